package parquet_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/pilosa/lakekit/file"
	"github.com/pilosa/lakekit/parquet"
)

type row struct {
	Name string `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	N    int64  `parquet:"name=n, type=INT64"`
}

func TestWriterPartitions(t *testing.T) {
	root, err := ioutil.TempDir("", "parquetwriter")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(root)
	store, err := file.NewStore(root)
	if err != nil {
		t.Fatal(err)
	}

	w, err := parquet.NewWriter(store, "things", new(row), parquet.OptRunID("t1"))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		partition := "year=2018/month=11"
		if i%2 == 0 {
			partition = "year=2018/month=12"
		}
		err = w.Add(partition, row{Name: "x", N: int64(i)})
		if err != nil {
			t.Fatalf("adding row %d: %v", i, err)
		}
	}
	if w.Rows() != 10 {
		t.Fatalf("expected 10 rows, got %d", w.Rows())
	}
	err = w.Close()
	if err != nil {
		t.Fatalf("closing writer: %v", err)
	}

	keys, err := store.List("things/")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(keys)
	if len(keys) != 2 {
		t.Fatalf("expected one part per partition, got %v", keys)
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, "things/year=2018/month=1") {
			t.Fatalf("part outside partition dir: %s", key)
		}
		if !strings.HasSuffix(key, "-t1.snappy.parquet") {
			t.Fatalf("unexpected part name: %s", key)
		}
	}

	info, err := parquet.ReadInfo(filepath.Join(root, keys[0]), 10)
	if err != nil {
		t.Fatalf("reading back part: %v", err)
	}
	if info.NumRows != 5 {
		t.Fatalf("expected 5 rows in part, got %d", info.NumRows)
	}
	// partition columns live in the directory name only
	for _, col := range info.Schema {
		if strings.EqualFold(col.Name, "year") || strings.EqualFold(col.Name, "month") {
			t.Fatalf("partition column %s leaked into file schema", col.Name)
		}
	}
	if len(info.Sample) != 5 {
		t.Fatalf("expected 5 sample rows, got %d", len(info.Sample))
	}
}

func TestWriterRollover(t *testing.T) {
	root, err := ioutil.TempDir("", "parquetroll")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(root)
	store, err := file.NewStore(root)
	if err != nil {
		t.Fatal(err)
	}

	w, err := parquet.NewWriter(store, "things", new(row), parquet.OptRowsPerFile(3))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 7; i++ {
		err = w.Add("", row{Name: "y", N: int64(i)})
		if err != nil {
			t.Fatal(err)
		}
	}
	err = w.Close()
	if err != nil {
		t.Fatal(err)
	}

	keys, err := store.List("things/")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 3 parts (3+3+1 rows), got %v", keys)
	}
	total := int64(0)
	for _, key := range keys {
		info, err := parquet.ReadInfo(filepath.Join(root, key), 0)
		if err != nil {
			t.Fatal(err)
		}
		total += info.NumRows
	}
	if total != 7 {
		t.Fatalf("expected 7 rows across parts, got %d", total)
	}
}

func TestWriterOverwriteAndAppend(t *testing.T) {
	root, err := ioutil.TempDir("", "parquetappend")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(root)
	store, err := file.NewStore(root)
	if err != nil {
		t.Fatal(err)
	}

	write := func(runID string, opts ...parquet.WriterOption) {
		t.Helper()
		opts = append(opts, parquet.OptRunID(runID))
		w, err := parquet.NewWriter(store, "things", new(row), opts...)
		if err != nil {
			t.Fatal(err)
		}
		err = w.Add("", row{Name: runID, N: 1})
		if err != nil {
			t.Fatal(err)
		}
		err = w.Close()
		if err != nil {
			t.Fatal(err)
		}
	}

	write("first")
	write("second")
	keys, err := store.List("things/")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || !strings.Contains(keys[0], "second") {
		t.Fatalf("overwrite should drop the first run's parts, got %v", keys)
	}

	write("third", parquet.OptAppend())
	keys, err = store.List("things/")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("append should keep the previous run's parts, got %v", keys)
	}
}
