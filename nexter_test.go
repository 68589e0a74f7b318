package lakekit_test

import (
	"testing"

	"github.com/pilosa/lakekit"
)

func TestNexter(t *testing.T) {
	n := lakekit.NewNexter(lakekit.NexterStartFrom(19))
	if num := n.Next(); num != 19 {
		t.Fatalf("expected 19 for Next, but %d", num)
	}
	if num := n.Last(); num != 19 {
		t.Fatalf("expected 19 for Last, but %d", num)
	}
}
