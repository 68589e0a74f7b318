package fake

import (
	"io/ioutil"
	"os"
	"strings"
	"testing"
)

func TestGenMain(t *testing.T) {
	dir, err := ioutil.TempDir("", "lakekit-genmain")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	m := NewMain()
	m.Output = dir
	m.Users = 5
	m.Events = 200
	err = m.Run()
	if err != nil {
		t.Fatalf("running gen: %v", err)
	}

	songs, logs := 0, 0
	for _, key := range walkKeys(t, dir) {
		if !strings.HasSuffix(key, ".json") {
			t.Fatalf("unexpected non-json file %s", key)
		}
		switch {
		case strings.HasPrefix(key, "song_data/"):
			songs++
		case strings.HasPrefix(key, "log_data/"):
			logs++
		default:
			t.Fatalf("unexpected file %s", key)
		}
	}
	if songs == 0 {
		t.Fatal("no song_data files written")
	}
	if logs == 0 {
		t.Fatal("no log_data files written")
	}
}

func walkKeys(t *testing.T, dir string) []string {
	t.Helper()
	var keys []string
	var walk func(string)
	walk = func(sub string) {
		entries, err := ioutil.ReadDir(sub)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range entries {
			p := sub + "/" + e.Name()
			if e.IsDir() {
				walk(p)
				continue
			}
			keys = append(keys, strings.TrimPrefix(p, dir+"/"))
		}
	}
	walk(dir)
	return keys
}
