package jukebox_test

import (
	"testing"
	"time"

	"github.com/pilosa/lakekit"
	"github.com/pilosa/lakekit/fake"
	"github.com/pilosa/lakekit/jukebox"
	"github.com/pilosa/lakekit/mock"
	"github.com/pilosa/lakekit/parquet"
)

func TestStreamer(t *testing.T) {
	// the source and this generator share a seed, so they share a catalog
	idx := jukebox.NewSongIndex()
	for _, rec := range fake.NewEventGenerator(3, 5).Songs() {
		idx.Add(rec.ArtistName, rec.Title, rec.SongID, rec.ArtistID)
	}

	store, _ := newTestStore(t)
	trans := lakekit.NewMapTranslator()

	run := func(runID string) (users, times, plays int64) {
		t.Helper()
		newWriter := func(table string, example interface{}) *parquet.Writer {
			w, err := parquet.NewWriter(store, table, example,
				parquet.OptAppend(),
				parquet.OptRunID(runID),
			)
			if err != nil {
				t.Fatal(err)
			}
			return w
		}
		usersW := newWriter(jukebox.TableUsers, new(jukebox.UserRow))
		timeW := newWriter(jukebox.TableTime, new(jukebox.TimeRow))
		songplaysW := newWriter(jukebox.TableSongplays, new(jukebox.SongplayRow))

		phase := &jukebox.EventsPhase{
			Users:     usersW,
			Time:      timeW,
			Songplays: songplaysW,
			Index:     idx,
		}
		streamer := jukebox.NewStreamer(fake.NewSource(3, 5, 500), phase, trans)
		streamer.BatchSize = 100
		streamer.FlushTimeout = time.Minute
		streamer.Stats = &mock.RecordingStatter{}
		err := streamer.Run()
		if err != nil {
			t.Fatalf("running streamer: %v", err)
		}
		users, times, plays = usersW.Rows(), timeW.Rows(), songplaysW.Rows()
		for _, w := range []*parquet.Writer{usersW, timeW, songplaysW} {
			err = w.Close()
			if err != nil {
				t.Fatal(err)
			}
		}
		return users, times, plays
	}

	users, times, plays := run("one")
	if users == 0 || users > 10 {
		t.Fatalf("expected a handful of user rows, got %d", users)
	}
	if times == 0 || plays == 0 {
		t.Fatalf("expected time and songplay rows, got %d and %d", times, plays)
	}

	// replaying the identical stream through the same translator must not
	// duplicate any dimension rows, and must re-assign the same play ids
	users2, times2, plays2 := run("two")
	if users2 != 0 {
		t.Fatalf("expected no new user rows on replay, got %d", users2)
	}
	if times2 != 0 {
		t.Fatalf("expected no new time rows on replay, got %d", times2)
	}
	if plays2 != plays {
		t.Fatalf("expected %d songplay rows on replay, got %d", plays, plays2)
	}

	keys, err := store.List("users/")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) == 0 {
		t.Fatal("no user parts written")
	}
}
