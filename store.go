package lakekit

// Store is the destination for finished table files. Implementations exist
// for local directories (file.Store) and S3 buckets (s3.Store).
type Store interface {
	// Put moves the finished local file at localPath to the given key,
	// creating any intermediate directories or prefixes.
	Put(localPath, key string) error

	// RemoveAll deletes everything under the given prefix. Batch builds call
	// it before a table's first part lands to get overwrite semantics.
	RemoveAll(prefix string) error

	// List returns the keys under the given prefix.
	List(prefix string) ([]string, error)
}
