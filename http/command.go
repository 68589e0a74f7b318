// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package http

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
	"github.com/pilosa/lakekit/jukebox"
	"github.com/pilosa/lakekit/leveldb"
	"github.com/pilosa/lakekit/parquet"
	"github.com/pkg/errors"
)

// Main holds the config for the http command: a streaming lake build whose
// play events arrive as JSON post bodies.
type Main struct {
	Bind         string        `help:"Listen for post requests on this address."`
	Input        string        `help:"Data location holding song_data/ (s3://bucket/prefix or local path)."`
	Output       string        `help:"Destination for the lake's tables (s3://bucket/prefix or local path)."`
	Region       string        `help:"AWS region, for S3 input or output."`
	AccessKey    string        `help:"AWS access key id. Empty uses the default credential chain."`
	SecretKey    string        `help:"AWS secret access key."`
	Concurrency  int           `help:"Number of workers for the song index build."`
	IDStore      string        `help:"Dedup and songplay id store: mem, bolt, or level. Persistent stores survive restarts."`
	IDPath       string        `help:"Path for the bolt file or leveldb directory backing ids."`
	BatchSize    int           `help:"Records per flush (latency/throughput tradeoff)."`
	FlushTimeout time.Duration `help:"Flush at least this often."`
	RowsPerFile  int           `help:"Rows per parquet part file before rolling over."`

	stats lakekit.Statter
	log   lakekit.Logger
}

// NewMain gets a new Main with default values.
func NewMain() *Main {
	return &Main{
		Bind:         ":12121",
		Concurrency:  4,
		IDStore:      "bolt",
		IDPath:       "lakekit-ids",
		BatchSize:    10000,
		FlushTimeout: 10 * time.Second,
		RowsPerFile:  1 << 20,

		stats: lakekit.NopStatter{},
		log:   lakekit.NopLogger{},
	}
}

// SetStatter sets the stats collector for the run.
func (m *Main) SetStatter(s lakekit.Statter) { m.stats = s }

// SetLogger sets the logger for the run.
func (m *Main) SetLogger(l lakekit.Logger) { m.log = l }

// Run listens for posted play events and appends them to the lake. It blocks
// for as long as the listener is up.
func (m *Main) Run() error {
	if m.Output == "" {
		return errors.New("output location is required")
	}
	store, err := m.store()
	if err != nil {
		return errors.Wrap(err, "getting store")
	}
	index, err := m.songIndex()
	if err != nil {
		return errors.Wrap(err, "building song index")
	}
	m.log.Printf("song index ready, %d songs", index.Len())

	src, err := NewJSONSource(WithAddr(m.Bind))
	if err != nil {
		return errors.Wrap(err, "getting json source")
	}
	m.log.Printf("listening on %s", src.Addr())

	runID := fmt.Sprintf("%x", time.Now().UnixNano())
	newWriter := func(table string, example interface{}) (*parquet.Writer, error) {
		w, err := parquet.NewWriter(store, table, example,
			parquet.OptAppend(),
			parquet.OptRowsPerFile(int64(m.RowsPerFile)),
			parquet.OptRunID(runID),
			parquet.OptStatter(m.stats),
			parquet.OptLogger(m.log),
		)
		return w, errors.Wrapf(err, "creating %s writer", table)
	}
	usersW, err := newWriter(jukebox.TableUsers, new(jukebox.UserRow))
	if err != nil {
		return err
	}
	timeW, err := newWriter(jukebox.TableTime, new(jukebox.TimeRow))
	if err != nil {
		return err
	}
	songplaysW, err := newWriter(jukebox.TableSongplays, new(jukebox.SongplayRow))
	if err != nil {
		return err
	}

	trans, closeTrans, err := m.translator()
	if err != nil {
		return errors.Wrap(err, "getting translator")
	}
	defer closeTrans()

	phase := &jukebox.EventsPhase{
		Users:     usersW,
		Time:      timeW,
		Songplays: songplaysW,
		Index:     index,
		Stats:     m.stats,
		Log:       m.log,
	}
	streamer := jukebox.NewStreamer(src, phase, trans)
	streamer.BatchSize = m.BatchSize
	streamer.FlushTimeout = m.FlushTimeout
	streamer.Stats = m.stats
	streamer.Log = m.log
	return errors.Wrap(streamer.Run(), "running streamer")
}

func (m *Main) songIndex() (*jukebox.SongIndex, error) {
	if m.Input == "" {
		return jukebox.NewSongIndex(), nil
	}
	scheme, bucket, pth, err := lakekit.ParseURL(m.Input)
	if err != nil {
		return nil, err
	}
	var src lakekit.RawSource
	if scheme == "s3" {
		prefix := path.Join(strings.Trim(pth, "/"), "song_data") + "/"
		src, err = s3.NewRawSource(bucket, prefix,
			s3.OptRegion(m.Region),
			s3.OptStaticCredentials(m.AccessKey, m.SecretKey))
	} else {
		src, err = file.NewRawSource(filepath.Join(pth, "song_data"))
	}
	if err != nil {
		return nil, err
	}
	return jukebox.BuildSongIndex(src, m.Concurrency, m.stats, m.log)
}

func (m *Main) translator() (lakekit.Translator, func() error, error) {
	switch m.IDStore {
	case "", "mem":
		return lakekit.NewMapTranslator(), func() error { return nil }, nil
	case "bolt":
		trans, err := boltdb.NewTranslator(m.IDPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening bolt translator")
		}
		return trans, trans.Close, nil
	case "level":
		trans, err := leveldb.NewTranslator(m.IDPath)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening leveldb translator")
		}
		return trans, trans.Close, nil
	}
	return nil, nil, errors.Errorf("unknown id store '%s' (have mem, bolt, level)", m.IDStore)
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
