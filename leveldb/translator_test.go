package leveldb_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/pilosa/lakekit/leveldb"
	"github.com/pilosa/lakekit/test"
)

func tempDirName(t testing.TB) string {
	dir, err := ioutil.TempDir("", "leveltrans")
	if err != nil {
		t.Fatalf("getting temp dir: %v", err)
	}
	return dir
}

func TestLevelTranslator(t *testing.T) {
	levelDir := tempDirName(t)
	defer os.RemoveAll(levelDir)
	lt, err := leveldb.NewTranslator(levelDir, "users", "time")
	test.ErrNil(t, err, "new translator")

	id1, created, err := lt.GetID("users", []byte("hello"))
	test.ErrNil(t, err, "get id users")
	test.MustBe(t, created, true, "users created")
	id2, created, err := lt.GetID("time", []byte("hello"))
	test.ErrNil(t, err, "get id time")
	test.MustBe(t, created, true, "time created")

	key, err := lt.Get("users", id1)
	test.ErrNil(t, err, "get key users")
	if !bytes.Equal(key.([]byte), []byte("hello")) {
		t.Fatalf("unexpected key for hello id in users: %s", key)
	}

	err = lt.Close()
	test.ErrNil(t, err, "close")

	lt, err = leveldb.NewTranslator(levelDir, "users", "time")
	test.ErrNil(t, err, "reopen")
	defer lt.Close()

	id1again, created, err := lt.GetID("users", []byte("hello"))
	test.ErrNil(t, err, "get id users after reopen")
	test.MustBe(t, created, false, "known after reopen")
	id2again, created, err := lt.GetID("time", []byte("hello"))
	test.ErrNil(t, err, "get id time after reopen")
	test.MustBe(t, created, false, "known after reopen time")

	if id1again != id1 || id2again != id2 {
		t.Fatalf("didn't get same ids for same keys id1: %v, 1again: %v, 2: %v, 2again: %v", id1, id1again, id2, id2again)
	}

	// a fresh key after reopen must not reuse an existing id
	id3, created, err := lt.GetID("users", []byte("world"))
	test.ErrNil(t, err, "get id for fresh key")
	test.MustBe(t, created, true, "fresh key created")
	if id3 == id1 {
		t.Fatalf("fresh key after reopen reused id %d", id3)
	}
}

func TestConcLevelTranslator(t *testing.T) {
	levelDir := tempDirName(t)
	defer os.RemoveAll(levelDir)
	lt, err := leveldb.NewTranslator(levelDir, "t1")
	test.ErrNil(t, err, "new translator")
	defer lt.Close()

	wg := &sync.WaitGroup{}
	rets := make([][]uint64, 8)
	for i := 0; i < 8; i++ {
		rets[i] = make([]uint64, 1000)
		wg.Add(1)
		go func(ret []uint64) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				id, _, err := lt.GetID("t1", []byte(strconv.Itoa(j)))
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
