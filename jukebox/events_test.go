package jukebox_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pilosa/lakekit"
	"github.com/pilosa/lakekit/file"
	"github.com/pilosa/lakekit/jukebox"
	"github.com/pilosa/lakekit/mock"
	"github.com/pilosa/lakekit/parquet"
)

func TestEventsPhase(t *testing.T) {
	dir, err := ioutil.TempDir("", "logdata")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	// Five NextSong plays: two by the same user at the same level (one user
	// row), two sharing a timestamp (one time row), one with a blank userId
	// (dropped from users and songplays, its timestamp still lands in time),
	// and one playing a song the catalog doesn't know (dropped from
	// songplays). Plus a Home page event and a broken line, both ignored.
	writeFixture(t, dir, "2018/11/2018-11-13-events.json",
		`{"page": "NextSong", "artist": "Harmonia", "song": "Sehr kosmisch", "ts": 1542241826796, "userId": "26", "firstName": "Ryan", "lastName": "Smith", "gender": "M", "level": "paid", "sessionId": 583, "itemInSession": 0, "location": "San Jose, CA", "userAgent": "agent"}
{"page": "NextSong", "artist": "Harmonia", "song": "Sehr kosmisch", "ts": 1542241926796, "userId": "26", "firstName": "Ryan", "lastName": "Smith", "gender": "M", "level": "paid", "sessionId": 583, "itemInSession": 1}
{"page": "Home", "ts": 1542241936796, "userId": "26", "sessionId": 583, "itemInSession": 2}
this is not json
{"page": "NextSong", "artist": "Harmonia", "song": "Dino", "ts": 1542241926796, "userId": "80", "firstName": "Tegan", "lastName": "Levine", "gender": "F", "level": "free", "sessionId": 602, "itemInSession": 0}`)
	writeFixture(t, dir, "2018/11/2018-11-14-events.json",
		`{"page": "NextSong", "artist": "Harmonia", "song": "Sehr kosmisch", "ts": 1542242026796, "userId": "", "sessionId": 9, "itemInSession": 0}
{"page": "NextSong", "artist": "Nobody", "song": "Unknown Tune", "ts": 1542242126796, "userId": "80", "firstName": "Tegan", "lastName": "Levine", "gender": "F", "level": "free", "sessionId": 602, "itemInSession": 1}`)

	idx := jukebox.NewSongIndex()
	idx.Add("Harmonia", "Sehr kosmisch", "SOAAA", "ARAAA")
	idx.Add("Harmonia", "Dino", "SOBBB", "ARAAA")

	src, err := file.NewRawSource(dir)
	if err != nil {
		t.Fatal(err)
	}
	store, root := newTestStore(t)
	usersW, err := parquet.NewWriter(store, jukebox.TableUsers, new(jukebox.UserRow))
	if err != nil {
		t.Fatal(err)
	}
	timeW, err := parquet.NewWriter(store, jukebox.TableTime, new(jukebox.TimeRow))
	if err != nil {
		t.Fatal(err)
	}
	songplaysW, err := parquet.NewWriter(store, jukebox.TableSongplays, new(jukebox.SongplayRow))
	if err != nil {
		t.Fatal(err)
	}

	stats := &mock.RecordingStatter{}
	phase := &jukebox.EventsPhase{
		Src:         src,
		Users:       usersW,
		Time:        timeW,
		Songplays:   songplaysW,
		Index:       idx,
		IDs:         jukebox.RangeIDs(lakekit.NewLocalRangeAllocator(1 << 16)),
		Concurrency: 2,
		Stats:       stats,
	}
	err = phase.Run()
	if err != nil {
		t.Fatalf("running events phase: %v", err)
	}
	for _, w := range []*parquet.Writer{usersW, timeW, songplaysW} {
		err = w.Close()
		if err != nil {
			t.Fatal(err)
		}
	}

	if got := countRows(t, root, "users/", store); got != 2 {
		t.Fatalf("expected 2 user rows, got %d", got)
	}
	// four distinct NextSong timestamps
	if got := countRows(t, root, "time/", store); got != 4 {
		t.Fatalf("expected 4 time rows, got %d", got)
	}
	// five plays minus the blank user and the catalog miss
	if got := countRows(t, root, "songplays/", store); got != 3 {
		t.Fatalf("expected 3 songplay rows, got %d", got)
	}
	if got := stats.CountOf("songplays_unmatched"); got != 1 {
		t.Fatalf("expected 1 unmatched play, got %d", got)
	}
	if got := stats.CountOf("parse_errors"); got != 1 {
		t.Fatalf("expected 1 parse error, got %d", got)
	}

	// fact parts land under year=/month= dirs and carry the joined ids
	keys, err := store.List("songplays/")
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, "songplays/year=2018/month=11/") {
			t.Fatalf("songplay part outside its partition dir: %s", key)
		}
		info, err := parquet.ReadInfo(filepath.Join(root, key), 10)
		if err != nil {
			t.Fatal(err)
		}
		for _, row := range info.Sample {
			if !strings.Contains(row, "SOAAA") && !strings.Contains(row, "SOBBB") {
				t.Fatalf("songplay row missing joined song id: %s", row)
			}
		}
	}
}
