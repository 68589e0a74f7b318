package jukebox_test

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/pilosa/lakekit/fake"
	"github.com/pilosa/lakekit/jukebox"
	"github.com/pilosa/lakekit/mock"
)

func TestMainEndToEnd(t *testing.T) {
	input, err := ioutil.TempDir("", "lakekit-input")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(input)

	gen := fake.NewMain()
	gen.Output = input
	gen.Seed = 11
	gen.Users = 8
	gen.Events = 1000
	err = gen.Run()
	if err != nil {
		t.Fatalf("generating dataset: %v", err)
	}

	store, root := newTestStore(t)
	m := jukebox.NewMain()
	m.Input = input
	m.Output = root
	m.Concurrency = 2
	m.RowsPerFile = 200
	stats := &mock.RecordingStatter{}
	m.SetStatter(stats)
	err = m.Run()
	if err != nil {
		t.Fatalf("running lake build: %v", err)
	}

	for _, table := range jukebox.Tables {
		rows := countRows(t, root, table+"/", store)
		if rows == 0 {
			t.Fatalf("table %s is empty", table)
		}
	}
	if stats.CountOf("songs_read") == 0 || stats.CountOf("events_read") == 0 {
		t.Fatalf("expected read counts, got %+v", stats.Counts)
	}
	if _, ok := stats.Timings["songs_phase"]; !ok {
		t.Fatal("expected a songs phase timing")
	}

	// a rebuild of just one table must leave the others alone
	before, err := store.List("songplays/")
	if err != nil {
		t.Fatal(err)
	}
	m2 := jukebox.NewMain()
	m2.Input = input
	m2.Output = root
	m2.Tables = []string{jukebox.TableUsers}
	err = m2.Run()
	if err != nil {
		t.Fatalf("rebuilding users: %v", err)
	}
	after, err := store.List("songplays/")
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != len(after) {
		t.Fatalf("songplays changed during users rebuild: %d -> %d parts", len(before), len(after))
	}
	if rows := countRows(t, root, "users/", store); rows == 0 {
		t.Fatal("users table empty after rebuild")
	}
}
