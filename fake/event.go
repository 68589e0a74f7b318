// Package fake generates random song metadata and play events for testing
// lake builds without real app data.
package fake

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/pilosa/lakekit/fake/gen"
	"github.com/pilosa/lakekit/jukebox"
)

var pages = []string{"Home", "Roulette", "Settings", "Logout", "Downgrade", "Upgrade", "Help"}

var locations = []string{
	"San Jose-Sunnyvale-Santa Clara, CA",
	"Chicago-Naperville-Elgin, IL-IN-WI",
	"Dallas-Fort Worth-Arlington, TX",
	"Portland-South Portland, ME",
	"Birmingham-Hoover, AL",
	"Red Bluff, CA",
	"Tampa-St. Petersburg-Clearwater, FL",
	"New York-Newark-Jersey City, NY-NJ-PA",
	"Lansing-East Lansing, MI",
	"Atlanta-Sandy Springs-Roswell, GA",
}

var agents = []string{
	`"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_9_4) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/36.0.1985.143 Safari/537.36"`,
	`"Mozilla/5.0 (Windows NT 6.1; WOW64; rv:31.0) Gecko/20100101 Firefox/31.0"`,
	`Mozilla/5.0 (Windows NT 6.3; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/36.0.1985.143 Safari/537.36`,
	`"Mozilla/5.0 (iPhone; CPU iPhone OS 7_1_2 like Mac OS X) AppleWebKit/537.51.2 (KHTML, like Gecko) Version/7.0 Mobile/11D257 Safari/9537.53"`,
	`Mozilla/5.0 (Windows NT 5.1; rv:31.0) Gecko/20100101 Firefox/31.0`,
}

type user struct {
	id           string
	firstName    string
	lastName     string
	gender       string
	level        string
	location     string
	registration float64
	agent        string
}

type session struct {
	id   int
	item int
}

// EventGenerator generates a random song catalog and play events against it.
type EventGenerator struct {
	r        *rand.Rand
	g        *gen.Generator
	songs    []jukebox.SongRecord
	users    []user
	sessions map[string]*session
	nextSess int
	start    time.Time
}

// NewEventGenerator gets a new EventGenerator with numUsers distinct users
// and a song catalog sized to match. The same seed gives the same data on a
// given version of Go.
func NewEventGenerator(seed int64, numUsers int) *EventGenerator {
	if numUsers < 1 {
		numUsers = 1
	}
	g := &EventGenerator{
		r:        rand.New(rand.NewSource(seed)),
		g:        gen.NewGenerator(seed + 1),
		sessions: make(map[string]*session),
		start:    time.Date(2018, time.November, 1, 0, 0, 0, 0, time.UTC),
	}
	g.genCatalog(numUsers*2 + 4)
	g.genUsers(numUsers)
	return g
}

// Songs returns the generated song catalog.
func (g *EventGenerator) Songs() []jukebox.SongRecord {
	return g.songs
}

// Event generates a random play event. Most events are song plays against
// the catalog; the rest exercise the paths a lake build has to tolerate:
// other pages, logged-out events with no user id, and plays of songs the
// catalog doesn't know.
func (g *EventGenerator) Event() *jukebox.PlayEvent {
	u := g.users[int(g.g.Uint64(len(g.users)))]
	sess, ok := g.sessions[u.id]
	if !ok || g.r.Intn(20) == 0 {
		sess = &session{id: g.nextSess + 100}
		g.nextSess++
		g.sessions[u.id] = sess
	}
	item := sess.item
	sess.item++

	ts := g.g.Time(g.start, time.Minute).UnixNano() / int64(time.Millisecond)

	ev := &jukebox.PlayEvent{
		Auth:          "Logged In",
		FirstName:     u.firstName,
		Gender:        u.gender,
		ItemInSession: item,
		LastName:      u.lastName,
		Level:         u.level,
		Location:      u.location,
		Method:        "PUT",
		Page:          jukebox.PageNextSong,
		Registration:  u.registration,
		SessionID:     sess.id,
		Status:        200,
		TS:            ts,
		UserAgent:     u.agent,
		UserID:        u.id,
	}

	switch n := g.r.Intn(20); {
	case n < 14:
		s := g.songs[int(g.g.Uint64(len(g.songs)))]
		ev.Artist, ev.Song, ev.Length = s.ArtistName, s.Title, s.Duration
	case n < 16:
		// a play the catalog doesn't know
		ev.Artist = strings.Title(g.g.String(7, 5000))
		ev.Song = strings.Title(g.g.String(9, 20000))
		ev.Length = 120 + g.r.Float64()*240
	case n < 18:
		ev.Page = pages[g.r.Intn(len(pages))]
		ev.Method = "GET"
	default:
		// logged out
		ev.Auth = "Logged Out"
		ev.Page = "Home"
		ev.Method = "GET"
		ev.FirstName, ev.LastName, ev.Gender, ev.UserID = "", "", "", ""
		ev.Registration = 0
	}
	return ev
}

func (g *EventGenerator) genCatalog(numSongs int) {
	numArtists := numSongs/2 + 1
	artists := make([]jukebox.SongRecord, numArtists)
	for i := range artists {
		rec := jukebox.SongRecord{
			ArtistID:   fmt.Sprintf("AR%s", strings.ToUpper(g.g.String(16, numArtists*100))),
			ArtistName: strings.Title(g.g.String(7, numArtists*100)),
		}
		if g.r.Intn(3) > 0 {
			rec.ArtistLocation = locations[g.r.Intn(len(locations))]
		}
		if g.r.Intn(2) > 0 {
			lat := g.r.Float64()*180 - 90
			lon := g.r.Float64()*360 - 180
			rec.ArtistLatitude, rec.ArtistLongitude = &lat, &lon
		}
		artists[i] = rec
	}
	g.songs = make([]jukebox.SongRecord, numSongs)
	for i := range g.songs {
		rec := artists[g.r.Intn(numArtists)]
		rec.NumSongs = 1
		rec.SongID = fmt.Sprintf("SO%s", strings.ToUpper(g.g.String(16, numSongs*100)))
		rec.Title = strings.Title(g.g.String(9, numSongs*100))
		rec.Duration = 60 + g.r.Float64()*420
		if g.r.Intn(4) > 0 {
			rec.Year = 1960 + g.r.Intn(59)
		}
		g.songs[i] = rec
	}
}

func (g *EventGenerator) genUsers(numUsers int) {
	g.users = make([]user, numUsers)
	for i := range g.users {
		level := "free"
		if g.r.Intn(4) == 0 {
			level = "paid"
		}
		gender := "F"
		if g.r.Intn(2) == 0 {
			gender = "M"
		}
		g.users[i] = user{
			id:           fmt.Sprintf("%d", i+1),
			firstName:    strings.Title(g.g.String(6, numUsers*10)),
			lastName:     strings.Title(g.g.String(8, numUsers*10)),
			gender:       gender,
			level:        level,
			location:     locations[g.r.Intn(len(locations))],
			registration: float64(g.start.Add(-time.Duration(g.r.Intn(1000))*time.Hour).UnixNano() / int64(time.Millisecond)),
			agent:        agents[g.r.Intn(len(agents))],
		}
	}
}
