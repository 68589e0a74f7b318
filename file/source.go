// Package file implements a lakekit.RawSource over local files and a
// lakekit.Store over a local directory, so the same pipelines run against a
// laptop checkout of the data as against a bucket.
package file

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/pilosa/lakekit"
	"github.com/pkg/errors"
)

// RawSource hands out the files under a path one reader at a time. A
// directory is walked recursively, which matches the nested
// song_data/A/B/C/... layout the raw datasets use. Only files with the
// suffix (".json" by default) are included. Safe for concurrent NextReader
// calls.
type RawSource struct {
	files   []string
	fileIdx *uint64
}

// SrcOption is a functional option type for RawSource.
type SrcOption func(c *rawSourceConfig)

type rawSourceConfig struct {
	suffix string
}

// OptSrcSuffix sets the file suffix filter. An empty suffix includes
// everything.
func OptSrcSuffix(suffix string) SrcOption {
	return func(c *rawSourceConfig) {
		c.suffix = suffix
	}
}

// NewRawSource creates a RawSource over the file or directory at pathname.
func NewRawSource(pathname string, opts ...SrcOption) (*RawSource, error) {
	conf := &rawSourceConfig{suffix: ".json"}
	for _, opt := range opts {
		opt(conf)
	}
	fileIdx := uint64(0)
	s := &RawSource{
		fileIdx: &fileIdx,
	}
	info, err := os.Stat(pathname)
	if err != nil {
		return nil, errors.Wrap(err, "statting path")
	}
	if !info.IsDir() {
		s.files = []string{pathname}
		return s, nil
	}
	err = filepath.Walk(pathname, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if conf.suffix != "" && !strings.HasSuffix(path, conf.suffix) {
			return nil
		}
		s.files = append(s.files, path)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walking directory")
	}
	return s, nil
}

type metaFile struct {
	*os.File
}

func (m *metaFile) Name() string {
	return m.File.Name()
}

func (m *metaFile) Meta() map[string]interface{} { return nil }

// NextReader implements lakekit.RawSource.
func (s *RawSource) NextReader() (lakekit.NamedReadCloser, error) {
	idx := atomic.AddUint64(s.fileIdx, 1) - 1
	if int(idx) >= len(s.files) {
		return nil, io.EOF
	}

	file, err := os.Open(s.files[idx])
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", s.files[idx])
	}

	mf := metaFile{file}
	return &mf, nil
}
