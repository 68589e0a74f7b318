package lakekit

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// Translator describes the functionality for mapping natural keys in a given
// table to row ids and back. Implementations should be threadsafe and
// generate ids monotonically. The created return from GetID reports whether
// this call was the first sighting of the key, which is what streaming
// builders use to dedup dimension rows across flushes.
type Translator interface {
	Get(table string, id uint64) (interface{}, error)
	GetID(table string, key interface{}) (id uint64, created bool, err error)
}

// TableTranslator works like a Translator, but the methods don't take tables
// as arguments. Typically a Translator will include a TableTranslator for
// each table.
type TableTranslator interface {
	Get(id uint64) (interface{}, error)
	GetID(key interface{}) (id uint64, created bool, err error)
}

// MapTranslator is an in-memory implementation of Translator using maps.
type MapTranslator struct {
	lock   sync.RWMutex
	tables map[string]*MapTableTranslator
}

// NewMapTranslator creates a new MapTranslator.
func NewMapTranslator() *MapTranslator {
	return &MapTranslator{
		tables: make(map[string]*MapTableTranslator),
	}
}

func (m *MapTranslator) getTableTranslator(table string) *MapTableTranslator {
	m.lock.RLock()
	if mt, ok := m.tables[table]; ok {
		m.lock.RUnlock()
		return mt
	}
	m.lock.RUnlock()
	m.lock.Lock()
	defer m.lock.Unlock()
	if mt, ok := m.tables[table]; ok {
		return mt
	}
	m.tables[table] = NewMapTableTranslator()
	return m.tables[table]
}

// Get returns the key mapped to the given id in the given table.
func (m *MapTranslator) Get(table string, id uint64) (interface{}, error) {
	key, err := m.getTableTranslator(table).Get(id)
	if err != nil {
		return nil, errors.Wrapf(err, "table '%v', id %v", table, id)
	}
	return key, nil
}

// GetID returns the integer id associated with the given key in the given
// table. It allocates a new id if the key is not found.
func (m *MapTranslator) GetID(table string, key interface{}) (id uint64, created bool, err error) {
	return m.getTableTranslator(table).GetID(key)
}

// MapTableTranslator is an in-memory implementation of TableTranslator using
// sync.Map and a slice.
type MapTableTranslator struct {
	m sync.Map

	n *Nexter

	l sync.RWMutex
	s []interface{}
}

// NewMapTableTranslator creates a new MapTableTranslator.
func NewMapTableTranslator() *MapTableTranslator {
	return &MapTableTranslator{
		n: NewNexter(),
		s: make([]interface{}, 0),
	}
}

// Get returns the key mapped to the given id.
func (m *MapTableTranslator) Get(id uint64) (interface{}, error) {
	m.l.RLock()
	defer m.l.RUnlock()
	if uint64(len(m.s)) <= id {
		return nil, fmt.Errorf("requested unknown id in MapTableTranslator")
	}
	return m.s[id], nil
}

// GetID returns the integer id associated with the given key. It allocates a
// new id if the key is not found, and reports whether it did.
func (m *MapTableTranslator) GetID(key interface{}) (id uint64, created bool, err error) {
	// Byte slices aren't valid map keys, so they get stringified for the
	// lookup map while the slice keeps the original.
	var keyMap interface{}
	var keySlice interface{}
	if keyB, ok := key.([]byte); ok {
		keyMap = string(keyB)
		keySlice = keyB
	} else {
		keyMap, keySlice = key, key
	}
	if idv, ok := m.m.Load(keyMap); ok {
		if id, ok = idv.(uint64); !ok {
			return 0, false, errors.Errorf("got non uint64 value back from MapTableTranslator: %v", idv)
		}
		return id, false, nil
	}
	m.l.Lock()
	if idv, ok := m.m.Load(keyMap); ok {
		m.l.Unlock()
		if id, ok = idv.(uint64); !ok {
			return 0, false, errors.Errorf("got non uint64 value back from MapTableTranslator: %v", idv)
		}
		return id, false, nil
	}
	nextid := m.n.Next()
	m.s = append(m.s, keySlice)
	if uint64(len(m.s)) != nextid+1 {
		panic(fmt.Sprintf("unexpected length of slice, nextid: %d, len: %d", nextid, len(m.s)))
	}
	m.m.Store(keyMap, nextid)
	m.l.Unlock()
	return nextid, true, nil
}

// NexterTableTranslator satisfies the TableTranslator interface, but simply
// allocates a new contiguous id every time GetID(key) is called. It does not
// store any mapping and Get(id) always returns an error. It is useful when a
// table needs unique row ids but nothing will ever look them up again.
type NexterTableTranslator struct {
	n *Nexter
}

// NewNexterTableTranslator creates a new NexterTableTranslator.
func NewNexterTableTranslator() *NexterTableTranslator {
	return &NexterTableTranslator{
		n: NewNexter(),
	}
}

// GetID for the NexterTableTranslator increments the internal id counter
// atomically and returns the next id - it ignores the key argument entirely.
func (n *NexterTableTranslator) GetID(key interface{}) (id uint64, created bool, err error) {
	return n.n.Next(), true, nil
}

// Get always returns nil, and a non-nil error for the NexterTableTranslator.
func (n *NexterTableTranslator) Get(id uint64) (interface{}, error) {
	return nil, errors.New("the NexterTableTranslator \"Get\" method should not be used - cannot map ids back to keys")
}
