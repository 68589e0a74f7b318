package lakekit_test

import (
	"testing"

	"github.com/pilosa/lakekit"
	"github.com/pilosa/lakekit/test"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		loc    string
		scheme string
		bucket string
		path   string
		err    bool
	}{
		{loc: "s3://mybucket/some/prefix", scheme: "s3", bucket: "mybucket", path: "some/prefix"},
		{loc: "s3://mybucket", scheme: "s3", bucket: "mybucket", path: ""},
		{loc: "s3a://udacity-dend/", scheme: "s3", bucket: "udacity-dend", path: ""},
		{loc: "/tmp/data", scheme: "file", bucket: "", path: "/tmp/data"},
		{loc: "relative/data", scheme: "file", bucket: "", path: "relative/data"},
		{loc: "s3://", err: true},
		{loc: "gs://bucket/x", err: true},
	}
	for _, tst := range tests {
		scheme, bucket, path, err := lakekit.ParseURL(tst.loc)
		if tst.err {
			if err == nil {
				t.Fatalf("expected error for '%s'", tst.loc)
			}
			continue
		}
		test.ErrNil(t, err, tst.loc)
		test.MustBe(t, scheme, tst.scheme, tst.loc+" scheme")
		test.MustBe(t, bucket, tst.bucket, tst.loc+" bucket")
		test.MustBe(t, path, tst.path, tst.loc+" path")
	}
}
