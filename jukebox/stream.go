package jukebox

import (
	"io"
	"time"

	"github.com/pilosa/lakekit"
	"github.com/pilosa/lakekit/parquet"
	"github.com/pkg/errors"
)

// Streamer ingests play events from a record-at-a-time source (Kafka, HTTP,
// fake generators) into append-mode table writers. Rows accumulate in the
// writers and are flushed to the store every BatchSize records or
// FlushTimeout, whichever comes first. Dimension dedup and songplay ids go
// through a Translator so they hold across flushes - and across restarts
// when the translator is persistent.
type Streamer struct {
	Src   lakekit.Source
	Phase *EventsPhase
	Trans lakekit.Translator

	BatchSize    int
	FlushTimeout time.Duration

	Stats lakekit.Statter
	Log   lakekit.Logger
}

// NewStreamer wires a Streamer whose phase writes through the given
// append-mode writers. trans backs user/time dedup and songplay ids.
func NewStreamer(src lakekit.Source, phase *EventsPhase, trans lakekit.Translator) *Streamer {
	phase.IDs = TranslatorIDs(trans)
	return &Streamer{
		Src:          src,
		Phase:        phase,
		Trans:        trans,
		BatchSize:    10000,
		FlushTimeout: 10 * time.Second,
		Stats:        lakekit.NopStatter{},
		Log:          lakekit.NopLogger{},
	}
}

// Run consumes records until the source returns io.EOF, flushing finished
// parquet parts on the batch and timeout boundaries. A record that isn't a
// *PlayEvent is counted and skipped.
func (s *Streamer) Run() error {
	if s.Phase.Stats == nil {
		s.Phase.Stats = s.Stats
	}
	if s.Phase.Log == nil {
		s.Phase.Log = s.Log
	}
	// Translator-backed dedup replaces the phase's in-memory maps: ask the
	// translator whether the key was created, and only write on first sight.
	recs := make(chan *PlayEvent)
	errs := make(chan error, 1)
	go func() {
		for {
			rec, err := s.Src.Record()
			if err != nil {
				errs <- err
				close(recs)
				return
			}
			ev, ok := rec.(*PlayEvent)
			if !ok {
				s.Stats.Count("bad_records", 1, 1)
				s.Log.Printf("record is not a play event but a %T", rec)
				continue
			}
			recs <- ev
		}
	}()

	timeout := s.FlushTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	n := 0
	for {
		select {
		case ev, ok := <-recs:
			if !ok {
				err := <-errs
				if err == io.EOF {
					return s.flush()
				}
				flushErr := s.flush()
				if flushErr != nil {
					s.Log.Printf("flushing after source error: %v", flushErr)
				}
				return errors.Wrap(err, "reading from source")
			}
			err := s.handle(ev)
			if err != nil {
				return err
			}
			n++
			if n >= s.BatchSize {
				err = s.flush()
				if err != nil {
					return err
				}
				n = 0
				resetTimer(timer, timeout)
			}
		case <-timer.C:
			err := s.flush()
			if err != nil {
				return err
			}
			n = 0
			timer.Reset(timeout)
		}
	}
}

func (s *Streamer) handle(ev *PlayEvent) error {
	if ev.Page != PageNextSong {
		return nil
	}
	p := s.Phase
	if p.Users != nil && ev.UserID != "" {
		_, created, err := s.Trans.GetID(TableUsers, []byte(userKey(ev)))
		if err != nil {
			return errors.Wrap(err, "translating user key")
		}
		if created {
			err = p.Users.Add("", UserRow{
				UserID:    ev.UserID,
				FirstName: ev.FirstName,
				LastName:  ev.LastName,
				Gender:    ev.Gender,
				Level:     ev.Level,
			})
			if err != nil {
				return errors.Wrap(err, "writing user row")
			}
		}
	}
	parts := Breakdown(ev.TS)
	if p.Time != nil {
		_, created, err := s.Trans.GetID(TableTime, EventTimeKey(ev.TS))
		if err != nil {
			return errors.Wrap(err, "translating time key")
		}
		if created {
			err = p.Time.Add(MonthPartition(parts), TimeRow{
				StartTime: ev.TS,
				Hour:      int32(parts.Hour),
				Day:       int32(parts.Day),
				Week:      int32(parts.Week),
				Weekday:   int32(parts.Weekday),
			})
			if err != nil {
				return errors.Wrap(err, "writing time row")
			}
		}
	}
	return p.handleSongplay(ev, parts)
}

func (s *Streamer) flush() error {
	p := s.Phase
	for _, w := range []*parquet.Writer{p.Users, p.Time, p.Songplays} {
		if w == nil {
			continue
		}
		err := w.Flush()
		if err != nil {
			return errors.Wrap(err, "flushing writer")
		}
	}
	s.Stats.Count("flushes", 1, 1)
	return nil
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// EventTimeKey is the translator key for a time-table row.
func EventTimeKey(tsMillis int64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(tsMillis)
		tsMillis >>= 8
	}
	return b
}
