// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package kafkagen produces fake play events to a Kafka topic, for feeding
// a streaming lake build.
package kafkagen

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/Shopify/sarama"
	"github.com/linkedin/goavro"
	"github.com/pilosa/lakekit/fake"
	"github.com/pilosa/lakekit/jukebox"
	"github.com/pkg/errors"
)

// Main holds the execution state for the kafka generator.
type Main struct {
	Hosts       []string      `help:"Comma separated list of Kafka hosts and ports."`
	Topic       string        `help:"Kafka topic to produce to."`
	RegistryURL string        `help:"URL of the confluent schema registry. Pass an empty string to produce JSON instead of Avro."`
	Subject     string        `help:"Registry subject to register the play event schema under."`
	Seed        int64         `help:"Random seed."`
	Users       int           `help:"Number of distinct users."`
	Count       int           `help:"Number of events to produce. Zero means produce forever."`
	Rate        time.Duration `help:"Delay between events."`
}

// NewMain returns a new Main.
func NewMain() *Main {
	return &Main{
		Hosts:   []string{"localhost:9092"},
		Topic:   "plays",
		Subject: "plays-value",
		Seed:    1,
		Users:   100,
		Rate:    time.Second * 1,
	}
}

// JSONEvent implements the sarama.Encoder interface for PlayEvent using json.
type JSONEvent struct {
	jukebox.PlayEvent
}

// Encode marshals the event to json.
func (e JSONEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Length returns the length of the marshalled json.
func (e JSONEvent) Length() int {
	bytes, _ := e.Encode()
	return len(bytes)
}

// Run runs the kafka generator.
func (m *Main) Run() error {
	conf := sarama.NewConfig()
	conf.Version = sarama.V0_10_0_0
	conf.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(m.Hosts, conf)
	if err != nil {
		return errors.Wrap(err, "getting new producer")
	}
	defer producer.Close()

	encode := func(ev *jukebox.PlayEvent) (sarama.Encoder, error) {
		return JSONEvent{*ev}, nil
	}
	if m.RegistryURL != "" {
		codec, err := goavro.NewCodec(PlaySchema)
		if err != nil {
			return errors.Wrap(err, "getting avro codec")
		}
		schemaID, err := m.postSchema()
		if err != nil {
			return errors.Wrap(err, "posting schema")
		}
		encode = func(ev *jukebox.PlayEvent) (sarama.Encoder, error) {
			buf, err := avroFrame(codec, schemaID, ev)
			return sarama.ByteEncoder(buf), errors.Wrap(err, "framing event")
		}
	}

	g := fake.NewEventGenerator(m.Seed, m.Users)
	sent := 0
	for ticker := time.NewTicker(m.Rate); m.Count == 0 || sent < m.Count; <-ticker.C {
		val, err := encode(g.Event())
		if err != nil {
			return err
		}
		msg := &sarama.ProducerMessage{Topic: m.Topic, Value: val}
		_, _, err = producer.SendMessage(msg)
		if err != nil {
			log.Printf("Error sending message: '%v', backing off", err)
			time.Sleep(time.Second * 10)
			continue
		}
		sent++
	}
	return nil
}

// avroFrame encodes the event with the Confluent wire framing: a zero magic
// byte, the big-endian schema id, then the binary avro record.
func avroFrame(codec *goavro.Codec, schemaID int, ev *jukebox.PlayEvent) ([]byte, error) {
	buf := make([]byte, 5, 512)
	buf[0] = 0
	binary.BigEndian.PutUint32(buf[1:], uint32(schemaID))
	return codec.BinaryFromNative(buf, map[string]interface{}{
		"artist":        ev.Artist,
		"song":          ev.Song,
		"length":        ev.Length,
		"page":          ev.Page,
		"auth":          ev.Auth,
		"method":        ev.Method,
		"status":        ev.Status,
		"level":         ev.Level,
		"itemInSession": ev.ItemInSession,
		"sessionId":     ev.SessionID,
		"ts":            ev.TS,
		"userId":        ev.UserID,
		"firstName":     ev.FirstName,
		"lastName":      ev.LastName,
		"gender":        ev.Gender,
		"location":      ev.Location,
		"registration":  ev.Registration,
		"userAgent":     ev.UserAgent,
	})
}

func (m *Main) postSchema() (int, error) {
	body, err := json.Marshal(map[string]string{"schema": PlaySchema})
	if err != nil {
		return 0, errors.Wrap(err, "marshaling schema body")
	}
	url := fmt.Sprintf("http://%s/subjects/%s/versions", m.RegistryURL, m.Subject)
	resp, err := http.Post(url, "application/vnd.schemaregistry.v1+json", bytes.NewReader(body))
	if err != nil {
		return 0, errors.Wrap(err, "posting to registry")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, errors.Errorf("registry returned status %d", resp.StatusCode)
	}
	ret := struct {
		ID int `json:"id"`
	}{}
	err = json.NewDecoder(resp.Body).Decode(&ret)
	return ret.ID, errors.Wrap(err, "decoding registry response")
}

// PlaySchema is the avro schema play events are produced with.
const PlaySchema = `{
    "fields": [
        {"name": "artist", "type": "string"},
        {"name": "song", "type": "string"},
        {"name": "length", "type": "double"},
        {"name": "page", "type": "string"},
        {"name": "auth", "type": "string"},
        {"name": "method", "type": "string"},
        {"name": "status", "type": "int"},
        {"name": "itemInSession", "type": "int"},
        {"name": "sessionId", "type": "int"},
        {"name": "level", "type": "string"},
        {"name": "ts", "type": "long"},
        {"name": "userId", "type": "string"},
        {"name": "firstName", "type": "string"},
        {"name": "lastName", "type": "string"},
        {"name": "gender", "type": "string"},
        {"name": "location", "type": "string"},
        {"name": "registration", "type": "double"},
        {"name": "userAgent", "type": "string"}
    ],
    "name": "PlayEvent",
    "namespace": "com.sparkify.plays",
    "type": "record"
}`
