// Package boltdb implements a lakekit.Translator on a single boltdb file,
// one pair of nested buckets per table.
package boltdb

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pilosa/lakekit"
	"github.com/pkg/errors"
)

var (
	idBucket  = []byte("idKey")
	keyBucket = []byte("valKey")
)

var _ lakekit.Translator = &Translator{}

// Translator is a persistent key<->id mapping. Keys must be byte slices (or
// strings). Ids are assigned per table from bolt's bucket sequence, so they
// are monotonic and survive restarts.
type Translator struct {
	Db     *bolt.DB
	tmu    sync.RWMutex
	tables map[string]struct{}
}

// Close syncs and closes the underlying db.
func (bt *Translator) Close() error {
	err := bt.Db.Sync()
	if err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return bt.Db.Close()
}

// NewTranslator opens (creating if necessary) the db file and ensures
// buckets exist for the named tables.
func NewTranslator(filename string, tables ...string) (bt *Translator, err error) {
	bt = &Translator{
		tables: make(map[string]struct{}),
	}
	bt.Db, err = bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second, InitialMmapSize: 50000000, NoGrowSync: true})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	bt.Db.MaxBatchDelay = 400 * time.Microsecond
	err = bt.Db.Update(func(tx *bolt.Tx) error {
		ib, err := tx.CreateBucketIfNotExists(idBucket)
		if err != nil {
			return errors.Wrap(err, "creating idKey bucket")
		}
		kb, err := tx.CreateBucketIfNotExists(keyBucket)
		if err != nil {
			return errors.Wrap(err, "creating valKey bucket")
		}
		for _, table := range tables {
			_, _, err = bt.addTable(ib, kb, table)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return bt, nil
}

func (bt *Translator) addTable(ib, kb *bolt.Bucket, table string) (tib, tkb *bolt.Bucket, err error) {
	tib, err = ib.CreateBucketIfNotExists([]byte(table))
	if err != nil {
		return nil, nil, errors.Wrap(err, "adding "+table+" to id bucket")
	}
	tkb, err = kb.CreateBucketIfNotExists([]byte(table))
	if err != nil {
		return nil, nil, errors.Wrap(err, "adding "+table+" to key bucket")
	}
	bt.tmu.Lock()
	bt.tables[table] = struct{}{}
	bt.tmu.Unlock()

	return tib, tkb, nil
}

// Get returns the key mapped to the given id in the given table.
func (bt *Translator) Get(table string, id uint64) (key interface{}, err error) {
	bt.tmu.RLock()
	if _, ok := bt.tables[table]; !ok {
		bt.tmu.RUnlock()
		return nil, errors.Errorf("can't Get with unknown table '%v'", table)
	}
	bt.tmu.RUnlock()
	err = bt.Db.View(func(tx *bolt.Tx) error {
		tib := tx.Bucket(idBucket).Bucket([]byte(table))
		idBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(idBytes, id)
		key = tib.Get(idBytes)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "reading id bucket")
	}
	return key, nil
}

// GetID returns the id associated with the given key in the given table,
// assigning (and reporting) a new one on first sight.
func (bt *Translator) GetID(table string, key interface{}) (id uint64, created bool, err error) {
	// ensure table existence
	bt.tmu.RLock()
	_, ok := bt.tables[table]
	bt.tmu.RUnlock()
	if !ok {
		err = bt.Db.Update(func(tx *bolt.Tx) error {
			ib := tx.Bucket(idBucket)
			kb := tx.Bucket(keyBucket)
			_, _, err := bt.addTable(ib, kb, table)
			return err
		})
		if err != nil {
			return 0, false, errors.Wrap(err, "adding table in GetID")
		}
	}

	var bskey []byte
	switch k := key.(type) {
	case []byte:
		bskey = k
	case string:
		bskey = []byte(k)
	default:
		return 0, false, errors.Errorf("key %v of type %T for table %v not supported - must be a []byte or string", key, key, table)
	}

	// look up to see if this key is already mapped to an id
	var ret []byte
	err = bt.Db.View(func(tx *bolt.Tx) error {
		tkb := tx.Bucket(keyBucket).Bucket([]byte(table))
		ret = tkb.Get(bskey)
		return nil
	})
	if err != nil {
		return 0, false, errors.Wrap(err, "reading key bucket")
	}
	if len(ret) == 8 {
		return binary.BigEndian.Uint64(ret), false, nil
	}

	// get new id, and map it in both directions
	err = bt.Db.Batch(func(tx *bolt.Tx) error {
		tib := tx.Bucket(idBucket).Bucket([]byte(table))
		tkb := tx.Bucket(keyBucket).Bucket([]byte(table))

		// re-read inside the batch in case another goroutine created it
		ret = tkb.Get(bskey)
		if len(ret) == 8 {
			id = binary.BigEndian.Uint64(ret)
			return nil
		}
		seq, err := tib.NextSequence()
		if err != nil {
			return err
		}
		id = seq - 1
		created = true
		keybytes := make([]byte, 8)
		binary.BigEndian.PutUint64(keybytes, id)
		err = tib.Put(keybytes, bskey)
		if err != nil {
			return errors.Wrap(err, "inserting into idKey bucket")
		}
		err = tkb.Put(bskey, keybytes)
		if err != nil {
			return errors.Wrap(err, "inserting into valKey bucket")
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return id, created, nil
}
