package jukebox

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pilosa/lakekit"
	"github.com/pilosa/lakekit/aws/s3"
	"github.com/pilosa/lakekit/boltdb"
	"github.com/pilosa/lakekit/file"
	"github.com/pilosa/lakekit/leveldb"
	"github.com/pilosa/lakekit/parquet"
	"github.com/pkg/errors"
)

// Main contains the configuration for a batch lake build: one Run reads
// song_data and log_data under Input and overwrites the selected tables
// under Output.
type Main struct {
	Input       string   `help:"Data location holding song_data/ and log_data/ (s3://bucket/prefix or local path)."`
	Output      string   `help:"Destination for the lake's tables (s3://bucket/prefix or local path)."`
	Region      string   `help:"AWS region, for S3 input or output."`
	AccessKey   string   `help:"AWS access key id. Empty uses the default credential chain."`
	SecretKey   string   `help:"AWS secret access key."`
	Tables      []string `help:"Tables to build (songs,artists,users,time,songplays)."`
	Concurrency int      `help:"Number of workers per phase."`
	IDStore     string   `help:"Songplay id assignment: mem (fresh ids per run), bolt, or level (stable across runs)."`
	IDPath      string   `help:"Path for the bolt file or leveldb directory backing stable ids."`
	RowsPerFile int      `help:"Rows per parquet part file before rolling over."`
	RunID       string   `help:"Run identifier embedded in part file names. Empty derives one from the clock."`

	stats lakekit.Statter
	log   lakekit.Logger
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Input:       "s3://udacity-dend/",
		Output:      "",
		Region:      "us-west-2",
		Tables:      Tables,
		Concurrency: 4,
		IDStore:     "mem",
		IDPath:      "lakekit-ids",
		RowsPerFile: 1 << 20,

		stats: lakekit.NopStatter{},
		log:   lakekit.NopLogger{},
	}
}

// SetStatter sets the stats collector for the run.
func (m *Main) SetStatter(s lakekit.Statter) { m.stats = s }

// SetLogger sets the logger for the run.
func (m *Main) SetLogger(l lakekit.Logger) { m.log = l }

// Run builds the lake: songs phase first (songs, artists, song index), then
// the events phase (users, time, songplays). Selected tables are
// overwritten; unselected tables are untouched.
func (m *Main) Run() error {
	start := time.Now()
	sel, err := m.selection()
	if err != nil {
		return err
	}
	if m.Output == "" {
		return errors.New("output location is required")
	}
	store, err := m.store()
	if err != nil {
		return errors.Wrap(err, "getting store")
	}
	runID := m.RunID
	if runID == "" {
		runID = fmt.Sprintf("%x", time.Now().UnixNano())
	}

	newWriter := func(table string, example interface{}) (*parquet.Writer, error) {
		if !sel[table] {
			return nil, nil
		}
		w, err := parquet.NewWriter(store, table, example,
			parquet.OptRowsPerFile(int64(m.RowsPerFile)),
			parquet.OptRunID(runID),
			parquet.OptStatter(m.stats),
			parquet.OptLogger(m.log),
		)
		return w, errors.Wrapf(err, "creating %s writer", table)
	}

	index := NewSongIndex()
	if sel[TableSongs] || sel[TableArtists] || sel[TableSongplays] {
		songsW, err := newWriter(TableSongs, new(SongRow))
		if err != nil {
			return err
		}
		artistsW, err := newWriter(TableArtists, new(ArtistRow))
		if err != nil {
			return err
		}
		src, err := m.rawSource("song_data")
		if err != nil {
			return errors.Wrap(err, "getting song_data source")
		}
		phase := &SongsPhase{
			Src:         src,
			Songs:       songsW,
			Artists:     artistsW,
			Index:       index,
			Concurrency: m.Concurrency,
			Stats:       m.stats,
			Log:         m.log,
		}
		err = phase.Run()
		if err != nil {
			return errors.Wrap(err, "running songs phase")
		}
		err = closeWriters(songsW, artistsW)
		if err != nil {
			return err
		}
		m.log.Printf("songs phase done, %d songs indexed", index.Len())
	}

	if sel[TableUsers] || sel[TableTime] || sel[TableSongplays] {
		usersW, err := newWriter(TableUsers, new(UserRow))
		if err != nil {
			return err
		}
		timeW, err := newWriter(TableTime, new(TimeRow))
		if err != nil {
			return err
		}
		songplaysW, err := newWriter(TableSongplays, new(SongplayRow))
		if err != nil {
			return err
		}
		ids, closeIDs, err := m.idAssigner()
		if err != nil {
			return errors.Wrap(err, "getting id assigner")
		}
		src, err := m.rawSource("log_data")
		if err != nil {
			return errors.Wrap(err, "getting log_data source")
		}
		phase := &EventsPhase{
			Src:         src,
			Users:       usersW,
			Time:        timeW,
			Songplays:   songplaysW,
			Index:       index,
			IDs:         ids,
			Concurrency: m.Concurrency,
			Stats:       m.stats,
			Log:         m.log,
		}
		err = phase.Run()
		if err != nil {
			return errors.Wrap(err, "running events phase")
		}
		err = closeWriters(usersW, timeW, songplaysW)
		if err != nil {
			return err
		}
		err = closeIDs()
		if err != nil {
			return errors.Wrap(err, "closing id store")
		}
	}
	m.log.Printf("lake build done in %v", time.Since(start))
	return nil
}

func (m *Main) selection() (map[string]bool, error) {
	sel := make(map[string]bool)
	known := make(map[string]bool)
	for _, t := range Tables {
		known[t] = true
	}
	for _, t := range m.Tables {
		t = strings.TrimSpace(t)
		if !known[t] {
			return nil, errors.Errorf("unknown table '%s' (have %s)", t, strings.Join(Tables, ","))
		}
		sel[t] = true
	}
	if len(sel) == 0 {
		return nil, errors.New("no tables selected")
	}
	return sel, nil
}

func (m *Main) store() (lakekit.Store, error) {
	scheme, bucket, pth, err := lakekit.ParseURL(m.Output)
	if err != nil {
		return nil, err
	}
	if scheme == "s3" {
		return s3.NewStore(bucket, strings.Trim(pth, "/"),
			s3.OptRegion(m.Region),
			s3.OptStaticCredentials(m.AccessKey, m.SecretKey))
	}
	return file.NewStore(pth)
}

func (m *Main) rawSource(sub string) (lakekit.RawSource, error) {
	scheme, bucket, pth, err := lakekit.ParseURL(m.Input)
	if err != nil {
		return nil, err
	}
	if scheme == "s3" {
		prefix := path.Join(strings.Trim(pth, "/"), sub) + "/"
		return s3.NewRawSource(bucket, prefix,
			s3.OptRegion(m.Region),
			s3.OptStaticCredentials(m.AccessKey, m.SecretKey))
	}
	return file.NewRawSource(filepath.Join(pth, sub))
}

// idAssigner picks the songplay id strategy from the IDStore config. mem
// hands out fresh monotonic ids each run; bolt and level keep ids stable
// across re-runs.
func (m *Main) idAssigner() (func(ev *PlayEvent) (uint64, error), func() error, error) {
	switch m.IDStore {
	case "", "mem":
		return RangeIDs(lakekit.NewLocalRangeAllocator(1 << 20)), func() error { return nil }, nil
	case "bolt":
		trans, err := boltdb.NewTranslator(m.IDPath, TableSongplays)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening bolt translator")
		}
		return TranslatorIDs(trans), trans.Close, nil
	case "level":
		trans, err := leveldb.NewTranslator(m.IDPath, TableSongplays)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening leveldb translator")
		}
		return TranslatorIDs(trans), trans.Close, nil
	}
	return nil, nil, errors.Errorf("unknown id store '%s' (have mem, bolt, level)", m.IDStore)
}

func closeWriters(ws ...*parquet.Writer) error {
	for _, w := range ws {
		if w == nil {
			continue
		}
		err := w.Close()
		if err != nil {
			return errors.Wrap(err, "closing writer")
		}
	}
	return nil
}
