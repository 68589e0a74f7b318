package lakekit

import "io"

// Source is the interface for getting raw data one record at a time.
// Implementations of Source should be thread safe.
type Source interface {
	Record() (interface{}, error)
}

// NamedReadCloser is an io.ReadCloser which also knows the name of the thing
// being read (an object key, a file path) and any metadata the underlying
// store keeps alongside it.
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
	Meta() map[string]interface{}
}

// RawSource is the interface for getting raw data one whole object at a
// time. Implementations must be safe for concurrent calls to NextReader and
// must return io.EOF once every object has been handed out.
type RawSource interface {
	NextReader() (NamedReadCloser, error)
}
