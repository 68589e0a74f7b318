package fake

import "io"

// Source is a lakekit.Source which generates fake play event data.
type Source struct {
	g     *EventGenerator
	max   int
	count int
}

// NewSource creates a new Source with the given random seed, number of
// distinct users, and maximum number of records to produce before EOF.
// Using the same seed should give the same series of events on a given
// version of Go.
func NewSource(seed int64, users, max int) *Source {
	return &Source{
		g:   NewEventGenerator(seed, users),
		max: max,
	}
}

// Record implements lakekit.Source and returns a randomly generated
// *jukebox.PlayEvent until the source's maximum, then io.EOF.
func (s *Source) Record() (interface{}, error) {
	if s.count >= s.max {
		return nil, io.EOF
	}
	s.count++
	return s.g.Event(), nil
}
