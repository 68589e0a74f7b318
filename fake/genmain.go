package fake

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pilosa/lakekit"
	"github.com/pilosa/lakekit/aws/s3"
	"github.com/pilosa/lakekit/file"
	"github.com/pilosa/lakekit/jukebox"
	"github.com/pkg/errors"
)

// Main writes a generated dataset in the same layout as the real app data:
// song_data/<A>/<B>/<C>/<track>.json with one song record per file, and
// log_data/<year>/<month>/<date>-events.json with one play event per line.
// The output is usable as the input of a batch lake build.
type Main struct {
	Output    string `help:"Destination for the dataset (s3://bucket/prefix or local path)."`
	Region    string `help:"AWS region, for S3 output."`
	AccessKey string `help:"AWS access key id. Empty uses the default credential chain."`
	SecretKey string `help:"AWS secret access key."`
	Seed      int64  `help:"Random seed."`
	Users     int    `help:"Number of distinct users."`
	Events    int    `help:"Number of play events to generate."`

	log lakekit.Logger
}

// NewMain gets a new Main with the default configuration.
func NewMain() *Main {
	return &Main{
		Region: "us-west-2",
		Seed:   1,
		Users:  100,
		Events: 10000,

		log: lakekit.NopLogger{},
	}
}

// SetLogger sets the logger for the run.
func (m *Main) SetLogger(l lakekit.Logger) { m.log = l }

// Run generates the dataset and writes it to Output.
func (m *Main) Run() error {
	if m.Output == "" {
		return errors.New("output location is required")
	}
	store, err := m.store()
	if err != nil {
		return errors.Wrap(err, "getting store")
	}
	tmp, err := ioutil.TempDir("", "lakekit-gen")
	if err != nil {
		return errors.Wrap(err, "creating temp dir")
	}
	defer os.RemoveAll(tmp)

	g := NewEventGenerator(m.Seed, m.Users)
	err = m.writeSongs(store, tmp, g.Songs())
	if err != nil {
		return errors.Wrap(err, "writing song_data")
	}
	err = m.writeEvents(store, tmp, g)
	if err != nil {
		return errors.Wrap(err, "writing log_data")
	}
	m.log.Printf("wrote %d songs and %d events to %s", len(g.Songs()), m.Events, m.Output)
	return nil
}

func (m *Main) writeSongs(store lakekit.Store, tmp string, songs []jukebox.SongRecord) error {
	for i, rec := range songs {
		track := strings.Replace(rec.SongID, "SO", "TR", 1)
		local := filepath.Join(tmp, fmt.Sprintf("song%d.json", i))
		data, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrap(err, "marshaling song")
		}
		err = ioutil.WriteFile(local, append(data, '\n'), 0644)
		if err != nil {
			return errors.Wrap(err, "writing song file")
		}
		key := path.Join("song_data", track[2:3], track[3:4], track[4:5], track+".json")
		err = store.Put(local, key)
		if err != nil {
			return errors.Wrapf(err, "storing %s", key)
		}
	}
	return nil
}

func (m *Main) writeEvents(store lakekit.Store, tmp string, g *EventGenerator) error {
	byDay := make(map[string][]*jukebox.PlayEvent)
	for i := 0; i < m.Events; i++ {
		ev := g.Event()
		day := time.Unix(0, ev.TS*int64(time.Millisecond)).UTC().Format("2006-01-02")
		byDay[day] = append(byDay[day], ev)
	}
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		local := filepath.Join(tmp, day+"-events.json")
		f, err := os.Create(local)
		if err != nil {
			return errors.Wrap(err, "creating events file")
		}
		enc := json.NewEncoder(f)
		for _, ev := range byDay[day] {
			err = enc.Encode(ev)
			if err != nil {
				f.Close()
				return errors.Wrap(err, "encoding event")
			}
		}
		err = f.Close()
		if err != nil {
			return errors.Wrap(err, "closing events file")
		}
		key := path.Join("log_data", day[:4], day[5:7], day+"-events.json")
		err = store.Put(local, key)
		if err != nil {
			return errors.Wrapf(err, "storing %s", key)
		}
	}
	return nil
}

func (m *Main) store() (lakekit.Store, error) {
	scheme, bucket, pth, err := lakekit.ParseURL(m.Output)
	if err != nil {
		return nil, err
	}
	if scheme == "s3" {
		return s3.NewStore(bucket, strings.Trim(pth, "/"),
			s3.OptRegion(m.Region),
			s3.OptStaticCredentials(m.AccessKey, m.SecretKey))
	}
	return file.NewStore(pth)
}
