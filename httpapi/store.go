package httpapi

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/lone-faerie/cfstats/sensor"
)

// ErrUnknownSensor is returned when setting the state of a sensor that was
// never registered.
var ErrUnknownSensor = errors.New("unknown sensor")

type zoneEntry struct {
	id    string
	name  string
	ids   []string // sensor ids in catalog order
	index map[string]string
}

// Store holds the latest sensor states of each registered zone. It
// implements [sensor.Publisher].
type Store struct {
	mu     sync.RWMutex
	zones  map[string]*zoneEntry
	states map[string]*sensor.State
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		zones:  make(map[string]*zoneEntry),
		states: make(map[string]*sensor.State),
	}
}

// Register adds the sensors of defs for the zone with the given id and
// name. Every sensor starts unavailable.
func (s *Store) Register(zone, name string, defs []sensor.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	z := &zoneEntry{
		id:    zone,
		name:  name,
		ids:   make([]string, 0, len(defs)),
		index: make(map[string]string, len(defs)),
	}
	for _, def := range defs {
		id := sensor.ID(zone, def.Key)
		z.ids = append(z.ids, id)
		z.index[def.Key] = id
		s.states[id] = &sensor.State{Definition: def}
	}
	s.zones[zone] = z
}

func (s *Store) SetState(_ context.Context, id string, value any, unit string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[id]
	if !ok {
		return errors.Join(ErrUnknownSensor, errors.New(id))
	}
	st.Value = value
	st.Available = true
	if unit != "" {
		st.Unit = unit
	}
	return nil
}

func (s *Store) SetUnavailable(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[id]
	if !ok {
		return errors.Join(ErrUnknownSensor, errors.New(id))
	}
	st.Value = nil
	st.Available = false
	return nil
}

// Zone is the summary of a registered zone.
type Zone struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Sensors int    `json:"sensors"`
}

// Zones returns every registered zone, sorted by id.
func (s *Store) Zones() []Zone {
	s.mu.RLock()
	defer s.mu.RUnlock()

	zones := make([]Zone, 0, len(s.zones))
	for _, z := range s.zones {
		zones = append(zones, Zone{z.id, z.name, len(z.ids)})
	}
	slices.SortFunc(zones, func(a, b Zone) int {
		return strings.Compare(a.ID, b.ID)
	})
	return zones
}

// lookup returns the zone with the given id, or with the given name if no
// zone has that id.
func (s *Store) lookup(zone string) (*zoneEntry, bool) {
	if z, ok := s.zones[zone]; ok {
		return z, true
	}
	for _, z := range s.zones {
		if z.name == zone {
			return z, true
		}
	}
	return nil, false
}

// States returns a copy of the states of the zone with the given id or name.
func (s *Store) States(zone string) (Zone, []sensor.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	z, ok := s.lookup(zone)
	if !ok {
		return Zone{}, nil, false
	}
	states := make([]sensor.State, len(z.ids))
	for i, id := range z.ids {
		states[i] = *s.states[id]
	}
	return Zone{z.id, z.name, len(z.ids)}, states, true
}

// State returns a copy of the state of the sensor with the given key in
// the zone with the given id or name.
func (s *Store) State(zone, key string) (sensor.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	z, ok := s.lookup(zone)
	if !ok {
		return sensor.State{}, false
	}
	id, ok := z.index[key]
	if !ok {
		return sensor.State{}, false
	}
	return *s.states[id], true
}
