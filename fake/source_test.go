package fake

import (
	"io"
	"testing"

	"github.com/pilosa/lakekit/jukebox"
)

func TestSource(t *testing.T) {
	src := NewSource(1, 2, 10000)

	for i := 0; i < 10000; i++ {
		rec, err := src.Record()
		if err != nil {
			t.Fatalf("unexpected error on rec %d: %v", i, err)
		}
		ev, ok := rec.(*jukebox.PlayEvent)
		if !ok {
			t.Fatalf("unexpected record type %T", rec)
		}
		if ev.Page == jukebox.PageNextSong && ev.Song == "" {
			t.Fatalf("song play with no song: %+v", ev)
		}
	}
	rec, err := src.Record()
	if err != io.EOF {
		t.Fatalf("should get EOF after 10k records, but %v", err)
	}
	if rec != nil {
		t.Fatalf("should have nil record after 10k records, but got %v", rec)
	}
}

func TestEventGenerator(t *testing.T) {
	g := NewEventGenerator(7, 10)
	if len(g.Songs()) == 0 {
		t.Fatal("empty song catalog")
	}
	for _, rec := range g.Songs() {
		if rec.SongID == "" || rec.ArtistID == "" || rec.Title == "" || rec.ArtistName == "" {
			t.Fatalf("incomplete song record: %+v", rec)
		}
	}

	catalog := make(map[string]bool)
	for _, rec := range g.Songs() {
		catalog[rec.ArtistName+"\x00"+rec.Title] = true
	}
	matched, last := 0, int64(0)
	for i := 0; i < 1000; i++ {
		ev := g.Event()
		if ev.TS < last {
			t.Fatalf("event timestamps went backwards at %d", i)
		}
		last = ev.TS
		if catalog[ev.Artist+"\x00"+ev.Song] {
			matched++
		}
	}
	if matched < 500 {
		t.Fatalf("only %d of 1000 events play catalog songs", matched)
	}
}
