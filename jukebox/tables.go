package jukebox

import (
	"fmt"
	"time"
)

// Table names in the lake.
const (
	TableSongs     = "songs"
	TableArtists   = "artists"
	TableUsers     = "users"
	TableTime      = "time"
	TableSongplays = "songplays"
)

// Tables lists every table the jukebox pipeline can build, in build order.
var Tables = []string{TableSongs, TableArtists, TableUsers, TableTime, TableSongplays}

// SongRow is the file schema of the songs table. The table is partitioned by
// year and artist_id; those live in the directory names, not here.
type SongRow struct {
	SongID   string  `parquet:"name=song_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Title    string  `parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8"`
	Duration float64 `parquet:"name=duration, type=DOUBLE"`
}

// SongPartition is the hive partition directory for a song. Year 0 (unknown)
// still partitions as year=0.
func SongPartition(rec *SongRecord) string {
	return fmt.Sprintf("year=%d/artist_id=%s", rec.Year, rec.ArtistID)
}

// ArtistRow is the file schema of the artists table. Latitude and longitude
// stay null when the metadata has none; the geohash is only set when both
// coordinates are present.
type ArtistRow struct {
	ArtistID  string   `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name      string   `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Location  string   `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8"`
	Latitude  *float64 `parquet:"name=latitude, type=DOUBLE, repetitiontype=OPTIONAL"`
	Longitude *float64 `parquet:"name=longitude, type=DOUBLE, repetitiontype=OPTIONAL"`
	Geohash   *string  `parquet:"name=geohash, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

// UserRow is the file schema of the users table. Unpartitioned.
type UserRow struct {
	UserID    string `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	FirstName string `parquet:"name=first_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	LastName  string `parquet:"name=last_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Gender    string `parquet:"name=gender, type=BYTE_ARRAY, convertedtype=UTF8"`
	Level     string `parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// TimeRow is the file schema of the time table, the UTC breakdown of a
// songplay timestamp. Partitioned by year and month.
type TimeRow struct {
	StartTime int64 `parquet:"name=start_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Hour      int32 `parquet:"name=hour, type=INT32"`
	Day       int32 `parquet:"name=day, type=INT32"`
	Week      int32 `parquet:"name=week, type=INT32"`
	Weekday   int32 `parquet:"name=weekday, type=INT32"`
}

// SongplayRow is the file schema of the songplays fact table. Partitioned by
// year and month.
type SongplayRow struct {
	SongplayID int64  `parquet:"name=songplay_id, type=INT64"`
	StartTime  int64  `parquet:"name=start_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	UserID     string `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Level      string `parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8"`
	SongID     string `parquet:"name=song_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ArtistID   string `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	SessionID  int32  `parquet:"name=session_id, type=INT32"`
	Location   string `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8"`
	UserAgent  string `parquet:"name=user_agent, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// TimeParts is the UTC breakdown of an epoch-milliseconds timestamp.
// Weekday runs 1 through 7 with Sunday as 1; Week is the ISO week number.
type TimeParts struct {
	Year    int
	Month   int
	Day     int
	Hour    int
	Week    int
	Weekday int
}

// Breakdown computes the UTC TimeParts for an epoch-milliseconds timestamp.
func Breakdown(tsMillis int64) TimeParts {
	t := time.Unix(tsMillis/1000, (tsMillis%1000)*int64(time.Millisecond)).UTC()
	_, week := t.ISOWeek()
	return TimeParts{
		Year:    t.Year(),
		Month:   int(t.Month()),
		Day:     t.Day(),
		Hour:    t.Hour(),
		Week:    week,
		Weekday: int(t.Weekday()) + 1,
	}
}

// MonthPartition is the hive partition directory for the time and songplays
// tables.
func MonthPartition(p TimeParts) string {
	return fmt.Sprintf("year=%d/month=%d", p.Year, p.Month)
}
