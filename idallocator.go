package lakekit

import (
	"fmt"
	"math/bits"
	"sync"

	"github.com/pkg/errors"
)

// RangeAllocator hands out blocks of contiguous ids. Fact-table writers each
// hold a RangeNexter backed by a shared allocator, so ids are unique across
// workers while each worker's ids stay block-contiguous.
type RangeAllocator interface {
	Get() (*IDRange, error)
	Return(*IDRange) error
}

// RangeNexter draws individual ids from a range, fetching a fresh range from
// its allocator when the current one is exhausted.
type RangeNexter interface {
	Next() (uint64, error)
	Return() error
}

// LocalRangeAllocator is an in-process RangeAllocator.
type LocalRangeAllocator struct {
	blockWidth uint64
	next       uint64
	returned   []*IDRange
	mu         sync.Mutex
}

// NewLocalRangeAllocator creates a RangeAllocator handing out ranges of
// blockWidth ids. blockWidth must be a power of 2, at least 2^16.
func NewLocalRangeAllocator(blockWidth uint64) RangeAllocator {
	if blockWidth < 1<<16 || bits.OnesCount64(blockWidth) > 1 {
		panic(fmt.Sprintf("bad blockWidth in NewLocalRangeAllocator: %d", blockWidth))
	}
	return &LocalRangeAllocator{
		blockWidth: blockWidth,
	}
}

// IDRange is inclusive at Start and exclusive at End... like slices.
type IDRange struct {
	Start uint64
	End   uint64
}

type rangeNexter struct {
	a RangeAllocator
	r *IDRange
}

// NewRangeNexter gets a RangeNexter drawing from the given allocator.
func NewRangeNexter(a RangeAllocator) (RangeNexter, error) {
	r, err := a.Get()
	if err != nil {
		return nil, errors.Wrap(err, "getting range")
	}
	return &rangeNexter{
		a: a,
		r: r,
	}, nil
}

func (n *rangeNexter) Next() (uint64, error) {
	var err error
	if n.r.Start == n.r.End {
		n.r, err = n.a.Get()
		if err != nil {
			return 0, errors.Wrap(err, "getting next range")
		}
	}
	if n.r.Start >= n.r.End {
		panic("Start is greater than End")
	}
	n.r.Start++
	return n.r.Start - 1, nil
}

func (n *rangeNexter) Return() error {
	return n.a.Return(n.r)
}

// Get returns the next available IDRange, preferring previously returned
// partial ranges.
func (a *LocalRangeAllocator) Get() (*IDRange, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.returned)
	if n > 0 {
		ret := a.returned[n-1]
		a.returned = a.returned[:n-1]
		return ret, nil
	}
	ret := &IDRange{
		Start: a.next,
		End:   a.next + a.blockWidth,
	}
	a.next += a.blockWidth
	return ret, nil
}

// Return gives the unused portion of a range back to the allocator.
func (a *LocalRangeAllocator) Return(r *IDRange) error {
	if r.Start == r.End {
		return nil
	}
	if r.Start > r.End {
		return errors.Errorf("attempted to return range with start > end: %v", r)
	}
	a.mu.Lock()
	a.returned = append(a.returned, r)
	a.mu.Unlock()
	return nil
}
