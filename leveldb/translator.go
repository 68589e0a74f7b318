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

// Package leveldb implements a lakekit.Translator on a pair of leveldbs per
// table. It trades boltdb's simplicity for better write throughput on large
// id spaces.
package leveldb

import (
	"encoding/binary"
	"hash/fnv"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pilosa/lakekit"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

var _ lakekit.Translator = &Translator{}

// Translator is a persistent key<->id mapping holding a TableTranslator per
// table, each backed by two leveldbs under the translator's directory.
type Translator struct {
	lock    sync.RWMutex
	dirname string
	tables  map[string]*TableTranslator
}

// TableTranslator holds the two leveldbs (id->key and key->id) for one
// table.
type TableTranslator struct {
	lock   valueLocker
	idMap  *leveldb.DB
	keyMap *leveldb.DB
	curID  *uint64
}

type errorList []error

func (errs errorList) Error() string {
	errstrings := make([]string, len(errs))
	for i, err := range errs {
		errstrings[i] = err.Error()
	}
	return strings.Join(errstrings, "; ")
}

// Close closes every table's dbs.
func (lt *Translator) Close() error {
	errs := make(errorList, 0)
	for table, ltt := range lt.tables {
		err := ltt.Close()
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "table: %v", table))
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Close closes both dbs.
func (ltt *TableTranslator) Close() error {
	errs := make(errorList, 0)
	err := ltt.idMap.Close()
	if err != nil {
		errs = append(errs, errors.Wrap(err, "closing idMap"))
	}
	err = ltt.keyMap.Close()
	if err != nil {
		errs = append(errs, errors.Wrap(err, "closing keyMap"))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (lt *Translator) getTableTranslator(table string) (*TableTranslator, error) {
	lt.lock.RLock()
	if tr, ok := lt.tables[table]; ok {
		lt.lock.RUnlock()
		return tr, nil
	}
	lt.lock.RUnlock()
	lt.lock.Lock()
	defer lt.lock.Unlock()
	if tr, ok := lt.tables[table]; ok {
		return tr, nil
	}
	ltt, err := NewTableTranslator(lt.dirname, table)
	if err != nil {
		return nil, errors.Wrap(err, "creating new TableTranslator")
	}
	lt.tables[table] = ltt
	return ltt, nil
}

// NewTableTranslator opens the dbs for one table under dirname. The next id
// to assign is recovered by scanning the id map for its highest key.
func NewTableTranslator(dirname string, table string) (*TableTranslator, error) {
	err := os.MkdirAll(dirname, 0700)
	if err != nil {
		return nil, errors.Wrap(err, "making directory")
	}
	var initialID uint64
	ltt := &TableTranslator{
		curID: &initialID,
		lock:  newBucketVLock(),
	}
	ltt.idMap, err = leveldb.OpenFile(dirname+"/"+table+"-id", &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", dirname+"/"+table+"-id")
	}
	ltt.keyMap, err = leveldb.OpenFile(dirname+"/"+table+"-key", &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %v", dirname+"/"+table+"-key")
	}
	iter := ltt.idMap.NewIterator(nil, nil)
	if iter.Last() {
		initialID = binary.BigEndian.Uint64(iter.Key()) + 1
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "recovering last id")
	}
	return ltt, nil
}

// NewTranslator opens a Translator under dirname for the given tables.
// Tables not named here are created lazily by GetID.
func NewTranslator(dirname string, tables ...string) (lt *Translator, err error) {
	lt = &Translator{
		dirname: dirname,
		tables:  make(map[string]*TableTranslator),
	}
	for _, table := range tables {
		ltt, err := NewTableTranslator(dirname, table)
		if err != nil {
			return nil, errors.Wrap(err, "making TableTranslator")
		}
		lt.tables[table] = ltt
	}
	return lt, err
}

// Get returns the key mapped to the given id in the given table.
func (lt *Translator) Get(table string, id uint64) (interface{}, error) {
	ltt, err := lt.getTableTranslator(table)
	if err != nil {
		return nil, errors.Wrap(err, "getting table translator")
	}
	return ltt.Get(id)
}

// Get returns the key mapped to the given id.
func (ltt *TableTranslator) Get(id uint64) (interface{}, error) {
	idBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(idBytes, id)
	data, err := ltt.idMap.Get(idBytes, &opt.ReadOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "reading key for id %d", id)
	}
	return data, nil
}

// GetID returns the id for the given key in the given table, assigning (and
// reporting) a new one on first sight.
func (lt *Translator) GetID(table string, key interface{}) (id uint64, created bool, err error) {
	ltt, err := lt.getTableTranslator(table)
	if err != nil {
		return 0, false, errors.Wrap(err, "getting table translator")
	}
	return ltt.GetID(key)
}

// GetID returns the id for the given key, assigning (and reporting) a new
// one on first sight.
func (ltt *TableTranslator) GetID(key interface{}) (id uint64, created bool, err error) {
	var keyBytes []byte
	switch k := key.(type) {
	case []byte:
		keyBytes = k
	case string:
		keyBytes = []byte(k)
	default:
		return 0, false, errors.Errorf("key needs to be a string or byte slice, but is type: %T, key: '%v'", key, key)
	}
	var data []byte

	// if most keys are already mapped this path avoids the lock entirely
	data, err = ltt.keyMap.Get(keyBytes, &opt.ReadOptions{})
	if err != nil && err != leveldb.ErrNotFound {
		return 0, false, errors.Wrap(err, "trying to read key map")
	} else if err == nil {
		return binary.BigEndian.Uint64(data), false, nil
	}

	// else, key not found
	ltt.lock.Lock(keyBytes)
	defer ltt.lock.Unlock(keyBytes)
	// re-read after locking
	data, err = ltt.keyMap.Get(keyBytes, &opt.ReadOptions{})
	if err != nil && err != leveldb.ErrNotFound {
		return 0, false, errors.Wrap(err, "trying to read key map")
	} else if err == nil {
		return binary.BigEndian.Uint64(data), false, nil
	}

	idBytes := make([]byte, 8)
	newID := atomic.AddUint64(ltt.curID, 1)
	binary.BigEndian.PutUint64(idBytes, newID-1)
	err = ltt.idMap.Put(idBytes, keyBytes, &opt.WriteOptions{})
	if err != nil {
		return 0, false, errors.Wrap(err, "putting new id into idmap")
	}
	err = ltt.keyMap.Put(keyBytes, idBytes, &opt.WriteOptions{})
	if err != nil {
		return 0, false, errors.Wrap(err, "putting new id into keymap")
	}
	return newID - 1, true, nil
}

type valueLocker interface {
	Lock(val []byte)
	Unlock(val []byte)
}

type bucketVLock struct {
	ms []sync.Mutex
}

func newBucketVLock() bucketVLock {
	return bucketVLock{
		ms: make([]sync.Mutex, 1000),
	}
}

func (b bucketVLock) Lock(val []byte) {
	hsh := fnv.New32a()
	hsh.Write(val) // never returns error for hash
	b.ms[hsh.Sum32()%1000].Lock()
}

func (b bucketVLock) Unlock(val []byte) {
	hsh := fnv.New32a()
	hsh.Write(val) // never returns error for hash
	b.ms[hsh.Sum32()%1000].Unlock()
}
