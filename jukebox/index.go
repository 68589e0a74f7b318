package jukebox

import "sync"

// SongIndex is the in-memory lookup table joining play events to song
// metadata. Keys are (artist name, song title) pairs; the songs phase builds
// it as a side effect of streaming song_data, and the events phase (and the
// streaming ingesters) resolve songplay song_id/artist_id through it. First
// record wins on duplicate keys. Safe for concurrent use.
type SongIndex struct {
	mu    sync.RWMutex
	byKey map[songKey]songIDs
}

type songKey struct {
	artist string
	title  string
}

type songIDs struct {
	songID   string
	artistID string
}

// NewSongIndex creates an empty SongIndex.
func NewSongIndex() *SongIndex {
	return &SongIndex{
		byKey: make(map[songKey]songIDs),
	}
}

// Add records the ids for an (artist name, song title) pair. The first entry
// for a pair wins.
func (idx *SongIndex) Add(artistName, title, songID, artistID string) {
	k := songKey{artist: artistName, title: title}
	idx.mu.Lock()
	if _, ok := idx.byKey[k]; !ok {
		idx.byKey[k] = songIDs{songID: songID, artistID: artistID}
	}
	idx.mu.Unlock()
}

// Lookup resolves an (artist name, song title) pair to its song_id and
// artist_id. ok is false when the pair is unknown.
func (idx *SongIndex) Lookup(artistName, title string) (songID, artistID string, ok bool) {
	idx.mu.RLock()
	ids, ok := idx.byKey[songKey{artist: artistName, title: title}]
	idx.mu.RUnlock()
	return ids.songID, ids.artistID, ok
}

// Len returns how many pairs are indexed.
func (idx *SongIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byKey)
}
