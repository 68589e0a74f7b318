package jukebox_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pilosa/lakekit/file"
	"github.com/pilosa/lakekit/jukebox"
	"github.com/pilosa/lakekit/mock"
	"github.com/pilosa/lakekit/parquet"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		t.Fatal(err)
	}
	err = ioutil.WriteFile(path, []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}
}

func newTestStore(t *testing.T) (*file.Store, string) {
	t.Helper()
	root, err := ioutil.TempDir("", "jukeboxlake")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(root) })
	store, err := file.NewStore(root)
	if err != nil {
		t.Fatal(err)
	}
	return store, root
}

func countRows(t *testing.T, root, prefix string, store *file.Store) int64 {
	t.Helper()
	keys, err := store.List(prefix)
	if err != nil {
		t.Fatal(err)
	}
	total := int64(0)
	for _, key := range keys {
		info, err := parquet.ReadInfo(filepath.Join(root, key), 0)
		if err != nil {
			t.Fatalf("reading %s: %v", key, err)
		}
		total += info.NumRows
	}
	return total
}

func TestSongsPhase(t *testing.T) {
	dir, err := ioutil.TempDir("", "songdata")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	// two records in one file, a duplicate song in another, a record with no
	// song (artist only), and one broken file
	writeFixture(t, dir, "A/B/TRAAAAA.json",
		`{"num_songs": 1, "song_id": "SOAAA", "title": "Sehr kosmisch", "duration": 655.77751, "year": 0, "artist_id": "ARAAA", "artist_name": "Harmonia", "artist_latitude": 52.8, "artist_longitude": 9.0}
{"num_songs": 1, "song_id": "SOBBB", "title": "Dino", "duration": 213.1, "year": 1982, "artist_id": "ARAAA", "artist_name": "Harmonia", "artist_location": "Forst"}`)
	writeFixture(t, dir, "A/C/TRACCCC.json",
		`{"num_songs": 1, "song_id": "SOAAA", "title": "Sehr kosmisch", "duration": 655.77751, "year": 0, "artist_id": "ARAAA", "artist_name": "Harmonia"}`)
	writeFixture(t, dir, "A/C/TRADDDD.json",
		`{"num_songs": 1, "song_id": "", "title": "", "duration": 0, "artist_id": "ARBBB", "artist_name": "Elena"}`)
	writeFixture(t, dir, "A/C/TRAEEEE.json", `{"num_songs": 1, "song_id" BROKEN`)

	src, err := file.NewRawSource(dir)
	if err != nil {
		t.Fatal(err)
	}
	store, root := newTestStore(t)
	songsW, err := parquet.NewWriter(store, jukebox.TableSongs, new(jukebox.SongRow))
	if err != nil {
		t.Fatal(err)
	}
	artistsW, err := parquet.NewWriter(store, jukebox.TableArtists, new(jukebox.ArtistRow))
	if err != nil {
		t.Fatal(err)
	}

	stats := &mock.RecordingStatter{}
	idx := jukebox.NewSongIndex()
	phase := &jukebox.SongsPhase{
		Src:         src,
		Songs:       songsW,
		Artists:     artistsW,
		Index:       idx,
		Concurrency: 2,
		Stats:       stats,
	}
	err = phase.Run()
	if err != nil {
		t.Fatalf("running songs phase: %v", err)
	}
	err = songsW.Close()
	if err != nil {
		t.Fatal(err)
	}
	err = artistsW.Close()
	if err != nil {
		t.Fatal(err)
	}

	if got := countRows(t, root, "songs/", store); got != 2 {
		t.Fatalf("expected 2 song rows, got %d", got)
	}
	if got := countRows(t, root, "artists/", store); got != 2 {
		t.Fatalf("expected 2 artist rows, got %d", got)
	}
	if got := stats.CountOf("parse_errors"); got != 1 {
		t.Fatalf("expected 1 parse error, got %d", got)
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 indexed songs, got %d", idx.Len())
	}

	keys, err := store.List("songs/")
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, "songs/year=") || !strings.Contains(key, "/artist_id=ARAAA/") {
			t.Fatalf("song part outside its partition dir: %s", key)
		}
	}

	artistKeys, err := store.List("artists/")
	if err != nil {
		t.Fatal(err)
	}
	if len(artistKeys) != 1 {
		t.Fatalf("expected one artists part, got %v", artistKeys)
	}
	info, err := parquet.ReadInfo(filepath.Join(root, artistKeys[0]), 2)
	if err != nil {
		t.Fatal(err)
	}
	joined := strings.Join(info.Sample, "\n")
	if !strings.Contains(joined, "ARAAA") || !strings.Contains(joined, "ARBBB") {
		t.Fatalf("expected both artists in sample: %s", joined)
	}
}
