package jukebox

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pilosa/lakekit"
	"github.com/pilosa/lakekit/parquet"
	"github.com/pkg/errors"
)

// maxLineBytes is the scanner buffer cap for one log line.
const maxLineBytes = 1 << 20

// EventsPhase streams PlayEvents out of log_data (newline-delimited JSON)
// and writes the users and time dimensions and the songplays fact table.
// Only page == "NextSong" events count as song plays. Any writer may be nil
// to skip that table.
type EventsPhase struct {
	Src       lakekit.RawSource
	Users     *parquet.Writer
	Time      *parquet.Writer
	Songplays *parquet.Writer
	Index     *SongIndex

	// IDs assigns the songplay_id for an event. Batch runs wire a
	// RangeNexter-backed assigner; streaming wires a Translator so ids stay
	// stable across flushes.
	IDs func(ev *PlayEvent) (uint64, error)

	Concurrency int
	Stats       lakekit.Statter
	Log         lakekit.Logger

	seenUsers sync.Map
	seenTimes sync.Map
}

// Run pulls readers from the source with Concurrency workers until the
// source is exhausted. Malformed lines are logged, counted, and skipped.
func (p *EventsPhase) Run() error {
	if p.Stats == nil {
		p.Stats = lakekit.NopStatter{}
	}
	if p.Log == nil {
		p.Log = lakekit.NopLogger{}
	}
	conc := p.Concurrency
	if conc < 1 {
		conc = 1
	}
	start := time.Now()

	errs := make(chan error, conc)
	var wg sync.WaitGroup
	for i := 0; i < conc; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- p.work()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}
	p.Stats.Timing("events_phase", time.Since(start), 1)
	return nil
}

func (p *EventsPhase) work() error {
	for {
		reader, err := p.Src.NextReader()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrap(err, "getting next log_data reader")
		}
		err = p.readFile(reader)
		reader.Close()
		if err != nil {
			return err
		}
	}
}

func (p *EventsPhase) readFile(reader lakekit.NamedReadCloser) error {
	scan := bufio.NewScanner(reader)
	scan.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scan.Scan() {
		line := scan.Bytes()
		if len(line) == 0 {
			continue
		}
		ev := &PlayEvent{}
		err := json.Unmarshal(line, ev)
		if err != nil {
			p.Log.Printf("decoding event from %s: %v", reader.Name(), err)
			p.Stats.Count("parse_errors", 1, 1)
			continue
		}
		p.Stats.Count("events_read", 1, 1)
		err = p.Handle(ev)
		if err != nil {
			return err
		}
	}
	return errors.Wrapf(scan.Err(), "scanning %s", reader.Name())
}

// Handle folds one event into the tables. Exported so the streaming
// ingesters can share the exact batch transforms.
func (p *EventsPhase) Handle(ev *PlayEvent) error {
	if ev.Page != PageNextSong {
		return nil
	}
	err := p.handleUser(ev)
	if err != nil {
		return err
	}
	parts := Breakdown(ev.TS)
	err = p.handleTime(ev, parts)
	if err != nil {
		return err
	}
	return p.handleSongplay(ev, parts)
}

// handleUser dedups on the full row, so one user appears once per level they
// were ever seen at. Blank user ids are dropped.
func (p *EventsPhase) handleUser(ev *PlayEvent) error {
	if p.Users == nil || ev.UserID == "" {
		return nil
	}
	key := userKey(ev)
	if _, loaded := p.seenUsers.LoadOrStore(key, struct{}{}); loaded {
		return nil
	}
	err := p.Users.Add("", UserRow{
		UserID:    ev.UserID,
		FirstName: ev.FirstName,
		LastName:  ev.LastName,
		Gender:    ev.Gender,
		Level:     ev.Level,
	})
	return errors.Wrap(err, "writing user row")
}

func (p *EventsPhase) handleTime(ev *PlayEvent, parts TimeParts) error {
	if p.Time == nil {
		return nil
	}
	if _, loaded := p.seenTimes.LoadOrStore(ev.TS, struct{}{}); loaded {
		return nil
	}
	err := p.Time.Add(MonthPartition(parts), TimeRow{
		StartTime: ev.TS,
		Hour:      int32(parts.Hour),
		Day:       int32(parts.Day),
		Week:      int32(parts.Week),
		Weekday:   int32(parts.Weekday),
	})
	return errors.Wrap(err, "writing time row")
}

// handleSongplay joins the event against the song index. Misses are dropped
// from the fact table (inner-join semantics), but counted.
func (p *EventsPhase) handleSongplay(ev *PlayEvent, parts TimeParts) error {
	if p.Songplays == nil || ev.UserID == "" {
		return nil
	}
	songID, artistID, ok := p.Index.Lookup(ev.Artist, ev.Song)
	if !ok {
		p.Stats.Count("songplays_unmatched", 1, 1)
		return nil
	}
	id, err := p.IDs(ev)
	if err != nil {
		return errors.Wrap(err, "assigning songplay id")
	}
	err = p.Songplays.Add(MonthPartition(parts), SongplayRow{
		SongplayID: int64(id),
		StartTime:  ev.TS,
		UserID:     ev.UserID,
		Level:      ev.Level,
		SongID:     songID,
		ArtistID:   artistID,
		SessionID:  int32(ev.SessionID),
		Location:   ev.Location,
		UserAgent:  ev.UserAgent,
	})
	return errors.Wrap(err, "writing songplay row")
}

func userKey(ev *PlayEvent) string {
	return ev.UserID + "\x00" + ev.FirstName + "\x00" + ev.LastName + "\x00" + ev.Gender + "\x00" + ev.Level
}

// EventKey is the natural key of a play event, used for stable songplay ids
// when an id store backs the build.
func EventKey(ev *PlayEvent) []byte {
	return []byte(fmt.Sprintf("%d|%d|%d", ev.SessionID, ev.ItemInSession, ev.TS))
}

// RangeIDs returns an id assigner drawing fresh block-allocated ids from the
// given allocator. The assigner is safe for concurrent use.
func RangeIDs(alloc lakekit.RangeAllocator) func(ev *PlayEvent) (uint64, error) {
	var mu sync.Mutex
	var nexter lakekit.RangeNexter
	return func(ev *PlayEvent) (uint64, error) {
		mu.Lock()
		defer mu.Unlock()
		if nexter == nil {
			var err error
			nexter, err = lakekit.NewRangeNexter(alloc)
			if err != nil {
				return 0, err
			}
		}
		return nexter.Next()
	}
}

// TranslatorIDs returns an id assigner mapping each event's natural key
// through a Translator, so re-ingesting an event yields the same
// songplay_id.
func TranslatorIDs(trans lakekit.Translator) func(ev *PlayEvent) (uint64, error) {
	return func(ev *PlayEvent) (uint64, error) {
		id, _, err := trans.GetID(TableSongplays, EventKey(ev))
		return id, err
	}
}
