// Package gen contains helpers for generating random data in certain
// distributions.
package gen

import (
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"hash"
	"math/rand"
	"time"
)

// Generator holds state for generating random data in certain distributions.
type Generator struct {
	r     *rand.Rand
	zs    map[int]*rand.Zipf
	times map[time.Time]time.Duration
	hsh   hash.Hash
}

// NewGenerator gets a new Generator
func NewGenerator(seed int64) *Generator {
	r := rand.New(rand.NewSource(seed))
	return &Generator{
		r:     r,
		zs:    make(map[int]*rand.Zipf),
		times: make(map[time.Time]time.Duration),
		hsh:   sha1.New(),
	}
}

// String gets a zipfian random string from a set with the given cardinality.
func (g *Generator) String(length, cardinality int) string {
	if length > 32 {
		length = 32
	}

	val := g.Uint64(cardinality)

	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, val)
	_, _ = g.hsh.Write(b) // no need to check err
	hashed := g.hsh.Sum(nil)
	g.hsh.Reset()
	return base32.StdEncoding.EncodeToString(hashed)[:length]
}

// Uint64 gets a zipfian random uint64 with the given cardinality.
func (g *Generator) Uint64(cardinality int) uint64 {
	z, ok := g.zs[cardinality]
	if !ok {
		// We subtract one from cardinality because rand.Zipf generates values
		// in [0, imax], but the expectation from funcs like rand.Intn is to
		// generate values in [0, n). Also since we can generate 0, this means
		// that the actual cardinality of the values we can return matches
		// "cardinality".
		imax := uint64(cardinality) - 1
		v := 0.05 * float64(imax)
		if v < 1.0 {
			v = 1.0
		}
		z = rand.NewZipf(g.r, 1.1, v, imax)
		g.zs[cardinality] = z
	}
	return z.Uint64()
}

// Time returns a time increasing from the "from" time with a random delta.
func (g *Generator) Time(from time.Time, maxDelta time.Duration) time.Time {
	delta, ok := g.times[from]
	if !ok {
		delta = time.Duration(g.r.Uint64() % uint64(maxDelta))
		g.times[from] = delta
	} else {
		delta += time.Duration(g.r.Uint64() % uint64(maxDelta))
		g.times[from] = delta
	}
	return from.Add(delta)
}
