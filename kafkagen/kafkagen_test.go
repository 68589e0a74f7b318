package kafkagen

import (
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/linkedin/goavro"
	"github.com/pilosa/lakekit/fake"
	"github.com/pilosa/lakekit/jukebox"
)

func TestJSONEvent(t *testing.T) {
	ev := fake.NewEventGenerator(1, 2).Event()
	data, err := JSONEvent{*ev}.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != (JSONEvent{*ev}).Length() {
		t.Fatal("Length disagrees with Encode")
	}
	round := &jukebox.PlayEvent{}
	err = json.Unmarshal(data, round)
	if err != nil {
		t.Fatal(err)
	}
	if *round != *ev {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", round, ev)
	}
}

func TestAvroFrame(t *testing.T) {
	codec, err := goavro.NewCodec(PlaySchema)
	if err != nil {
		t.Fatal(err)
	}
	ev := fake.NewEventGenerator(1, 2).Event()
	buf, err := avroFrame(codec, 3, ev)
	if err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0 {
		t.Fatalf("bad magic byte %x", buf[0])
	}
	if id := binary.BigEndian.Uint32(buf[1:5]); id != 3 {
		t.Fatalf("bad schema id %d", id)
	}
	native, _, err := codec.NativeFromBinary(buf[5:])
	if err != nil {
		t.Fatal(err)
	}
	m, ok := native.(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected native type %T", native)
	}
	if m["ts"].(int64) != ev.TS || m["page"].(string) != ev.Page {
		t.Fatalf("decoded frame mismatch: %v", m)
	}
}
