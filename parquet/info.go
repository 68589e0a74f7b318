package parquet

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

// FileInfo describes a parquet file: its schema, row count, and a few sample
// rows rendered as JSON.
type FileInfo struct {
	Path    string
	NumRows int64
	Schema  []ColumnInfo
	Sample  []string
}

// ColumnInfo is one schema element of a parquet file.
type ColumnInfo struct {
	Name string
	Type string
}

// ReadInfo reads back a local parquet file and reports its schema, row
// count, and up to sample rows.
func ReadInfo(path string, sample int) (*FileInfo, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, nil, 1)
	if err != nil {
		return nil, errors.Wrapf(err, "reading parquet footer of %s", path)
	}
	defer pr.ReadStop()

	info := &FileInfo{
		Path:    path,
		NumRows: pr.GetNumRows(),
	}
	for _, el := range pr.Footer.Schema {
		if el.Type == nil {
			// group node (the root), not a column
			continue
		}
		info.Schema = append(info.Schema, ColumnInfo{
			Name: el.Name,
			Type: el.Type.String(),
		})
	}

	if sample > 0 {
		if int64(sample) > info.NumRows {
			sample = int(info.NumRows)
		}
		rows, err := pr.ReadByNumber(sample)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %d rows from %s", sample, path)
		}
		for _, row := range rows {
			b, err := json.Marshal(row)
			if err != nil {
				return nil, errors.Wrap(err, "rendering sample row")
			}
			info.Sample = append(info.Sample, string(b))
		}
	}
	return info, nil
}
