// Package parquet writes the lake's tables as hive-partitioned, snappy
// compressed parquet part files, and reads them back for inspection. Parts
// are written to local temp files and handed to a lakekit.Store once
// finished, so the same writer serves local directories and S3.
package parquet

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/pilosa/lakekit"
	"github.com/pkg/errors"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// WriterOption is a functional option type for Writer.
type WriterOption func(w *Writer)

// OptRowsPerFile sets how many rows a part file holds before the writer
// rolls over to a new one.
func OptRowsPerFile(n int64) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.rowsPerFile = n
		}
	}
}

// OptAppend makes the writer add parts next to whatever is already under the
// table prefix instead of dropping the prefix first. Streaming builds use
// this; batch builds overwrite.
func OptAppend() WriterOption {
	return func(w *Writer) {
		w.append = true
	}
}

// OptRunID sets the run identifier embedded in part file names so parts from
// different runs can't collide in append mode.
func OptRunID(id string) WriterOption {
	return func(w *Writer) {
		w.runID = id
	}
}

// OptStatter sets the stats collector.
func OptStatter(s lakekit.Statter) WriterOption {
	return func(w *Writer) {
		w.stats = s
	}
}

// OptLogger sets the logger.
func OptLogger(l lakekit.Logger) WriterOption {
	return func(w *Writer) {
		w.log = l
	}
}

// Writer is a partitioned parquet writer for one table. Add buckets rows by
// partition, each open partition holds a parquet writer on a local temp
// file, and finished parts are handed to the Store under hive-style keys
// like songplays/year=2018/month=11/part-00003-<run>.snappy.parquet.
// Writer is safe for concurrent Add calls.
type Writer struct {
	table   string
	store   lakekit.Store
	example interface{}

	runID       string
	rowsPerFile int64
	append      bool

	stats lakekit.Statter
	log   lakekit.Logger

	mu      sync.Mutex
	parts   map[string]*part
	nexter  *lakekit.Nexter
	tmpDir  string
	closed  bool
	written int64
}

type part struct {
	partition string
	path      string
	key       string
	fw        interface{ Close() error }
	pw        *writer.ParquetWriter
	rows      int64
}

// NewWriter creates a Writer for the named table. example must be a pointer
// to the (parquet-tagged) row struct that Add will be called with. Unless
// OptAppend is given, everything under the table's prefix in the store is
// removed before the first part lands.
func NewWriter(store lakekit.Store, table string, example interface{}, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		table:       table,
		store:       store,
		example:     example,
		runID:       "run",
		rowsPerFile: 1 << 20,
		stats:       lakekit.NopStatter{},
		log:         lakekit.NopLogger{},
		parts:       make(map[string]*part),
		nexter:      lakekit.NewNexter(),
	}
	for _, opt := range opts {
		opt(w)
	}
	tmpDir, err := ioutil.TempDir("", "lakekit-"+table)
	if err != nil {
		return nil, errors.Wrap(err, "creating temp dir")
	}
	w.tmpDir = tmpDir
	if !w.append {
		err = store.RemoveAll(table + "/")
		if err != nil {
			return nil, errors.Wrapf(err, "removing prefix for table %s", table)
		}
	}
	return w, nil
}

// Add buffers a row into the open part for the given hive-style partition
// (like "year=2018/month=11", or "" for an unpartitioned table), rolling the
// part over when it reaches the configured size. Partition values are
// carried only in the directory name, never in the file schema.
func (w *Writer) Add(partition string, row interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.Errorf("add to closed writer for table %s", w.table)
	}
	prt := partition
	p, ok := w.parts[prt]
	if !ok {
		var err error
		p, err = w.openPart(prt)
		if err != nil {
			return errors.Wrapf(err, "opening part for partition '%s'", prt)
		}
		w.parts[prt] = p
	}
	err := p.pw.Write(row)
	if err != nil {
		return errors.Wrapf(err, "writing row to %s", p.path)
	}
	p.rows++
	w.written++
	w.stats.Count("rows_"+w.table, 1, 1)
	if p.rows >= w.rowsPerFile {
		delete(w.parts, prt)
		err = w.finishPart(p)
		if err != nil {
			return errors.Wrap(err, "rolling over part")
		}
	}
	return nil
}

// Rows returns how many rows have been added so far.
func (w *Writer) Rows() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Flush finishes every open part and hands it to the store. Streaming builds
// call it between batches; Add may be called again afterward.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flush()
}

func (w *Writer) flush() error {
	for prt, p := range w.parts {
		delete(w.parts, prt)
		err := w.finishPart(p)
		if err != nil {
			return errors.Wrapf(err, "finishing part for partition '%s'", prt)
		}
	}
	return nil
}

// Close finishes every open part and removes the writer's temp directory.
// After Close, every added row is in exactly one part file under its
// partition directory in the store.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.flush()
	if err != nil {
		return err
	}
	return errors.Wrap(os.RemoveAll(w.tmpDir), "removing temp dir")
}

func (w *Writer) openPart(partition string) (*part, error) {
	num := w.nexter.Next()
	name := fmt.Sprintf("part-%05d-%s.snappy.parquet", num, w.runID)
	path := filepath.Join(w.tmpDir, fmt.Sprintf("%05d.parquet", num))
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating local file writer at %s", path)
	}
	pw, err := writer.NewParquetWriter(fw, w.example, 2)
	if err != nil {
		fw.Close()
		return nil, errors.Wrap(err, "creating parquet writer")
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	key := w.table + "/"
	if partition != "" {
		key += partition + "/"
	}
	key += name
	return &part{
		partition: partition,
		path:      path,
		key:       key,
		fw:        fw,
		pw:        pw,
	}, nil
}

func (w *Writer) finishPart(p *part) error {
	err := p.pw.WriteStop()
	if err != nil {
		p.fw.Close()
		return errors.Wrapf(err, "finalizing %s", p.path)
	}
	err = p.fw.Close()
	if err != nil {
		return errors.Wrapf(err, "closing %s", p.path)
	}
	err = w.store.Put(p.path, p.key)
	if err != nil {
		return errors.Wrapf(err, "storing part at %s", p.key)
	}
	w.log.Debugf("wrote %d rows to %s", p.rows, p.key)
	w.stats.Count("parts_"+w.table, 1, 1)
	return nil
}
