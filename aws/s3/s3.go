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

// Package s3 implements a lakekit.RawSource over the objects in an S3 bucket
// and a lakekit.Store over a bucket prefix.
package s3

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pilosa/lakekit"
	"github.com/pkg/errors"
)

// Option is a functional option type shared by RawSource and Store.
type Option func(c *config)

type config struct {
	region    string
	accessKey string
	secretKey string
	suffix    string
}

// OptRegion sets the AWS region.
func OptRegion(region string) Option {
	return func(c *config) {
		c.region = region
	}
}

// OptStaticCredentials sets a static key/secret pair instead of the default
// credential chain. Both must be non-empty to take effect.
func OptStaticCredentials(accessKey, secretKey string) Option {
	return func(c *config) {
		c.accessKey = accessKey
		c.secretKey = secretKey
	}
}

// OptSuffix tells a RawSource to list only the objects whose keys end with
// suffix. The default is ".json"; empty includes everything.
func OptSuffix(suffix string) Option {
	return func(c *config) {
		c.suffix = suffix
	}
}

func newSession(c *config) (*session.Session, error) {
	awsConf := &aws.Config{}
	if c.region != "" {
		awsConf.Region = aws.String(c.region)
	}
	if c.accessKey != "" && c.secretKey != "" {
		awsConf.Credentials = credentials.NewStaticCredentials(c.accessKey, c.secretKey, "")
	}
	sess, err := session.NewSession(awsConf)
	return sess, errors.Wrap(err, "creating AWS session")
}

// RawSource is a lakekit.RawSource which reads the objects under a bucket
// prefix. The object listing is fetched up front (paginated); object bodies
// are streamed one NextReader call at a time. Safe for concurrent NextReader
// calls.
type RawSource struct {
	bucket string
	prefix string

	s3      *s3.S3
	objects []*s3.Object
	objIdx  *uint64
}

// NewRawSource creates a RawSource over s3://bucket/prefix.
func NewRawSource(bucket, prefix string, opts ...Option) (*RawSource, error) {
	conf := &config{suffix: ".json"}
	for _, opt := range opts {
		opt(conf)
	}
	idx := uint64(0)
	rs := &RawSource{
		bucket: bucket,
		prefix: prefix,
		objIdx: &idx,
	}
	sess, err := newSession(conf)
	if err != nil {
		return nil, err
	}
	rs.s3 = s3.New(sess)
	err = rs.s3.ListObjectsV2Pages(&s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			if conf.suffix != "" && !hasSuffix(*obj.Key, conf.suffix) {
				continue
			}
			rs.objects = append(rs.objects, obj)
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing objects in %s/%s", bucket, prefix)
	}
	return rs, nil
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

type objReader struct {
	name string
	meta map[string]interface{}
	body io.ReadCloser
}

func (o *objReader) Read(buf []byte) (n int, err error) {
	return o.body.Read(buf)
}

func (o *objReader) Close() error {
	return o.body.Close()
}

func (o *objReader) Name() string {
	return o.name
}

func (o *objReader) Meta() map[string]interface{} {
	return o.meta
}

// NextReader implements lakekit.RawSource.
func (rs *RawSource) NextReader() (lakekit.NamedReadCloser, error) {
	idx := atomic.AddUint64(rs.objIdx, 1) - 1
	if int(idx) >= len(rs.objects) {
		return nil, io.EOF
	}
	obj := rs.objects[idx]

	result, err := rs.s3.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(rs.bucket),
		Key:    aws.String(*obj.Key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %v", *obj.Key)
	}
	meta := map[string]interface{}{"size": *obj.Size}
	return &objReader{name: *obj.Key, meta: meta, body: result.Body}, nil
}

// Store is a lakekit.Store over a bucket, optionally under a fixed prefix.
type Store struct {
	bucket string
	prefix string

	s3       *s3.S3
	uploader *s3manager.Uploader
}

// NewStore creates a Store writing to s3://bucket/prefix.
func NewStore(bucket, prefix string, opts ...Option) (*Store, error) {
	conf := &config{}
	for _, opt := range opts {
		opt(conf)
	}
	sess, err := newSession(conf)
	if err != nil {
		return nil, err
	}
	return &Store{
		bucket:   bucket,
		prefix:   prefix,
		s3:       s3.New(sess),
		uploader: s3manager.NewUploader(sess),
	}, nil
}

func (st *Store) fullKey(key string) string {
	if st.prefix == "" {
		return key
	}
	return st.prefix + "/" + key
}

// Put uploads the local file to the given key and removes the local copy.
func (st *Store) Put(localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "opening %s", localPath)
	}
	_, err = st.uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(st.bucket),
		Key:    aws.String(st.fullKey(key)),
		Body:   f,
	})
	f.Close()
	if err != nil {
		return errors.Wrapf(err, "uploading %s", key)
	}
	return errors.Wrap(os.Remove(localPath), "removing local file")
}

// RemoveAll deletes every object under the given prefix, in batches of up to
// 1000 (the DeleteObjects limit).
func (st *Store) RemoveAll(prefix string) error {
	var batch []*s3.ObjectIdentifier
	var flushErr error
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := st.s3.DeleteObjects(&s3.DeleteObjectsInput{
			Bucket: aws.String(st.bucket),
			Delete: &s3.Delete{Objects: batch},
		})
		batch = batch[:0]
		return err
	}
	err := st.s3.ListObjectsV2Pages(&s3.ListObjectsV2Input{
		Bucket: aws.String(st.bucket),
		Prefix: aws.String(st.fullKey(prefix)),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			batch = append(batch, &s3.ObjectIdentifier{Key: obj.Key})
			if len(batch) == 1000 {
				if flushErr = flush(); flushErr != nil {
					return false
				}
			}
		}
		return true
	})
	if err != nil {
		return errors.Wrapf(err, "listing objects under %s", prefix)
	}
	if flushErr != nil {
		return errors.Wrapf(flushErr, "deleting objects under %s", prefix)
	}
	return errors.Wrapf(flush(), "deleting objects under %s", prefix)
}

// List returns the keys under the given prefix, relative to the store's
// prefix.
func (st *Store) List(prefix string) ([]string, error) {
	var keys []string
	full := st.fullKey(prefix)
	err := st.s3.ListObjectsV2Pages(&s3.ListObjectsV2Input{
		Bucket: aws.String(st.bucket),
		Prefix: aws.String(full),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			key := *obj.Key
			if st.prefix != "" {
				key = key[len(st.prefix)+1:]
			}
			keys = append(keys, key)
		}
		return true
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing objects under %s", prefix)
	}
	return keys, nil
}
