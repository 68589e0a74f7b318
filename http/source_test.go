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

package http

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pilosa/lakekit/jukebox"
)

func TestJSONSource(t *testing.T) {
	j, err := NewJSONSource(WithBuffer(8), WithAddr("localhost:0"))
	if err != nil {
		t.Fatalf("getting json source: %v", err)
	}

	tests := []struct {
		method string
		path   string
		data   string
		exp    []jukebox.PlayEvent
	}{
		{
			method: "POST",
			path:   "/",
			data:   `{"artist": "Harmonia", "song": "Sehr kosmisch", "page": "NextSong", "sessionId": 583, "ts": 1542241826796, "userId": "26"}`,
			exp: []jukebox.PlayEvent{
				{Artist: "Harmonia", Song: "Sehr kosmisch", Page: "NextSong", SessionID: 583, TS: 1542241826796, UserID: "26"},
			},
		},
		{
			method: "POST",
			path:   "/blah",
			data:   `{"page": "Home", "sessionId": 1}{"page": "NextSong", "sessionId": 2}`,
			exp: []jukebox.PlayEvent{
				{Page: "Home", SessionID: 1},
				{Page: "NextSong", SessionID: 2},
			},
		},
		{
			method: "POST",
			path:   "/blah",
			data: `{"page": "Home", "sessionId": 1}
  {"page": "Login", "sessionId": 2}`,
			exp: []jukebox.PlayEvent{
				{Page: "Home", SessionID: 1},
				{Page: "Login", SessionID: 2},
			},
		},
	}

	for i, test := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			j.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(test.method, test.path, strings.NewReader(test.data)))
			for _, exp := range test.exp {
				rec, err := j.Record()
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				ev, ok := rec.(*jukebox.PlayEvent)
				if !ok {
					t.Fatalf("unexpected record type %T", rec)
				}
				if *ev != exp {
					t.Fatalf("unexpected event: %#v, exp: %#v", ev, exp)
				}
			}
		})
	}
}
