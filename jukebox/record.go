// Package jukebox builds a star-schema parquet lake from a music streaming
// app's raw JSON. Song metadata files become the songs and artists dimension
// tables; play-event logs become the users and time dimensions and the
// songplays fact table. The batch entry point is Main; streaming play-event
// ingestion goes through Streamer.
package jukebox

// SongRecord is one object from the song_data files: a song plus its
// artist's metadata.
type SongRecord struct {
	NumSongs        int      `json:"num_songs"`
	ArtistID        string   `json:"artist_id"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
	ArtistLocation  string   `json:"artist_location"`
	ArtistName      string   `json:"artist_name"`
	SongID          string   `json:"song_id"`
	Title           string   `json:"title"`
	Duration        float64  `json:"duration"`
	Year            int      `json:"year"`
}

// PlayEvent is one line from the newline-delimited log_data files: a single
// app interaction. Only events with Page == "NextSong" represent song plays.
type PlayEvent struct {
	Artist        string  `json:"artist"`
	Auth          string  `json:"auth"`
	FirstName     string  `json:"firstName"`
	Gender        string  `json:"gender"`
	ItemInSession int     `json:"itemInSession"`
	LastName      string  `json:"lastName"`
	Length        float64 `json:"length"`
	Level         string  `json:"level"`
	Location      string  `json:"location"`
	Method        string  `json:"method"`
	Page          string  `json:"page"`
	Registration  float64 `json:"registration"`
	SessionID     int     `json:"sessionId"`
	Song          string  `json:"song"`
	Status        int     `json:"status"`
	TS            int64   `json:"ts"`
	UserAgent     string  `json:"userAgent"`
	UserID        string  `json:"userId"`
}

// PageNextSong is the page value marking an event as a song play.
const PageNextSong = "NextSong"
