package lakekit

import (
	"reflect"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/pilosa/lakekit/test"
)

func TestMapTranslator(t *testing.T) {
	mt := NewMapTranslator()
	id, created, err := mt.GetID("users", "thing")
	test.MustBe(t, id, uint64(0), "first")
	test.MustBe(t, created, true, "first created")
	test.MustBe(t, err, nil)
	id, created, err = mt.GetID("users", "thing")
	test.MustBe(t, id, uint64(0), "repeat")
	test.MustBe(t, created, false, "repeat created")
	test.MustBe(t, err, nil)

	id, created, err = mt.GetID("users", "thing1")
	test.MustBe(t, id, uint64(1), "third")
	test.MustBe(t, created, true, "third created")
	test.MustBe(t, err, nil)

	id, created, err = mt.GetID("time", "thing3")
	test.MustBe(t, id, uint64(0), "fourth")
	test.MustBe(t, created, true, "fourth created")
	test.MustBe(t, err, nil)

	val, err := mt.Get("users", 0)
	test.ErrNil(t, err, "Get users 0")
	test.MustBe(t, "thing", val, "Get users 0")
	val, err = mt.Get("users", 1)
	test.ErrNil(t, err, "Get users 1")
	test.MustBe(t, "thing1", val, "Get users 1")
	val, err = mt.Get("time", 0)
	test.ErrNil(t, err, "Get time 0")
	test.MustBe(t, "thing3", val, "Get time 0")
}

func TestConcMapTranslator(t *testing.T) {
	bt := NewMapTranslator()

	wg := &sync.WaitGroup{}
	rets := make([][]uint64, 8)
	for i := 0; i < 8; i++ {
		rets[i] = make([]uint64, 1000)
		wg.Add(1)
		go func(ret []uint64) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				id, _, err := bt.GetID("t1", []byte(strconv.Itoa(j)))
				if err != nil {
					panic(err)
				}
				ret[j] = id
			}
		}(rets[i])
	}

	wg.Wait()
	for i, ret := range rets {
		if i != 0 {
			if !reflect.DeepEqual(ret, rets[i-1]) {
				t.Fatalf("returned ids different in different threads: %v, %v", ret, rets[i-1])
			}
		}
		sort.Sort(test.Uint64Slice(ret))
		for j := 0; j < 1000; j++ {
			if ret[j] != uint64(j) {
				t.Fatalf("returned ids are not monotonic, pos: %v, val: %v, arr: %v", j, ret[j], ret)
			}
		}
	}
}
