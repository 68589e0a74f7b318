package jukebox

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/pilosa/lakekit"
	"github.com/pilosa/lakekit/parquet"
	"github.com/pkg/errors"
)

// geohashChars is the precision of the artists geohash column. 8 characters
// is roughly 38m x 19m, plenty for a location joined at city granularity.
const geohashChars = 8

// SongsPhase streams SongRecords out of song_data, writes the songs and
// artists dimension tables, and fills the song lookup index as a side
// effect. Either writer may be nil to skip that table; the index is always
// filled when non-nil.
type SongsPhase struct {
	Src     lakekit.RawSource
	Songs   *parquet.Writer
	Artists *parquet.Writer
	Index   *SongIndex

	Concurrency int
	Stats       lakekit.Statter
	Log         lakekit.Logger
}

// Run pulls readers from the source with Concurrency workers until the
// source is exhausted. Records with an empty song_id are dropped from songs,
// and an empty artist_id drops the artist; duplicate natural keys keep the
// first record seen. Files that fail to decode are counted and skipped.
func (p *SongsPhase) Run() error {
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

	var seenSongs, seenArtists sync.Map
	errs := make(chan error, conc)
	var wg sync.WaitGroup
	for i := 0; i < conc; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- p.work(&seenSongs, &seenArtists)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}
	p.Stats.Timing("songs_phase", time.Since(start), 1)
	return nil
}

func (p *SongsPhase) work(seenSongs, seenArtists *sync.Map) error {
	for {
		reader, err := p.Src.NextReader()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrap(err, "getting next song_data reader")
		}
		err = p.readFile(reader, seenSongs, seenArtists)
		reader.Close()
		if err != nil {
			return err
		}
	}
}

// readFile decodes the one-or-more JSON objects in a song_data file. A
// decode error abandons the rest of the file (the decoder can't resync) but
// not the run.
func (p *SongsPhase) readFile(reader lakekit.NamedReadCloser, seenSongs, seenArtists *sync.Map) error {
	dec := json.NewDecoder(reader)
	for {
		rec := &SongRecord{}
		err := dec.Decode(rec)
		if err == io.EOF {
			return nil
		} else if err != nil {
			p.Log.Printf("decoding song record from %s: %v", reader.Name(), err)
			p.Stats.Count("parse_errors", 1, 1)
			return nil
		}
		p.Stats.Count("songs_read", 1, 1)
		err = p.handle(rec, seenSongs, seenArtists)
		if err != nil {
			return err
		}
	}
}

func (p *SongsPhase) handle(rec *SongRecord, seenSongs, seenArtists *sync.Map) error {
	if p.Index != nil && rec.SongID != "" && rec.ArtistID != "" {
		p.Index.Add(rec.ArtistName, rec.Title, rec.SongID, rec.ArtistID)
	}
	if p.Songs != nil && rec.SongID != "" {
		if _, loaded := seenSongs.LoadOrStore(rec.SongID, struct{}{}); !loaded {
			err := p.Songs.Add(SongPartition(rec), SongRow{
				SongID:   rec.SongID,
				Title:    rec.Title,
				Duration: rec.Duration,
			})
			if err != nil {
				return errors.Wrap(err, "writing song row")
			}
		}
	}
	if p.Artists != nil && rec.ArtistID != "" {
		if _, loaded := seenArtists.LoadOrStore(rec.ArtistID, struct{}{}); !loaded {
			row := ArtistRow{
				ArtistID:  rec.ArtistID,
				Name:      rec.ArtistName,
				Location:  rec.ArtistLocation,
				Latitude:  rec.ArtistLatitude,
				Longitude: rec.ArtistLongitude,
			}
			if rec.ArtistLatitude != nil && rec.ArtistLongitude != nil {
				gh := geohash.EncodeWithPrecision(*rec.ArtistLatitude, *rec.ArtistLongitude, geohashChars)
				row.Geohash = &gh
			}
			err := p.Artists.Add("", row)
			if err != nil {
				return errors.Wrap(err, "writing artist row")
			}
		}
	}
	return nil
}

// BuildSongIndex streams song_data just to fill a SongIndex, without writing
// any tables. The streaming ingesters use it at startup.
func BuildSongIndex(src lakekit.RawSource, concurrency int, stats lakekit.Statter, log lakekit.Logger) (*SongIndex, error) {
	idx := NewSongIndex()
	phase := &SongsPhase{
		Src:         src,
		Index:       idx,
		Concurrency: concurrency,
		Stats:       stats,
		Log:         log,
	}
	err := phase.Run()
	if err != nil {
		return nil, errors.Wrap(err, "building song index")
	}
	return idx, nil
}
