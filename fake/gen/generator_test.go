package gen_test

import (
	"testing"
	"time"

	"github.com/pilosa/lakekit/fake/gen"
)

func TestTime(t *testing.T) {
	g := gen.NewGenerator(0)
	start := time.Date(2018, 11, 01, 0, 0, 0, 0, time.UTC)
	last := start
	for i := 0; i < 1000; i++ {
		tim := g.Time(start, time.Second)
		if tim.Before(last) {
			t.Fatalf("generated a time before the last time")
		}
		if tim.Sub(last) > time.Second {
			t.Fatalf("generated a time more than a second after the last one")
		}
		last = tim
	}
}

func TestUint64(t *testing.T) {
	g := gen.NewGenerator(1)
	for i := 0; i < 1000; i++ {
		if v := g.Uint64(100); v >= 100 {
			t.Fatalf("value %d outside cardinality 100", v)
		}
	}
}
