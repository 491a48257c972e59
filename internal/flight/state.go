package flight

import (
	"sync"

	"github.com/tiiuae/flightcontroller/internal/geo"
	"github.com/tiiuae/flightcontroller/internal/types"
)

// Cursor addresses the active leg as mission indices.
type Cursor struct {
	Prev int
	Next int
}

// Leg caches the planned positions at the cursor.
type Leg struct {
	Prev geo.Position
	Next geo.Position
}

// State is shared by the supervisor and its monitors. Every accessor holds
// the lock only for the copy in or out; callers never do I/O under it.
type State struct {
	mu           sync.Mutex
	position     geo.Position
	cursor       Cursor
	leg          Leg
	paused       bool
	homeAltitude float64
}

func NewState(homeAltitude float64, cursor Cursor, leg Leg) *State {
	return &State{
		position:     geo.Unknown,
		cursor:       cursor,
		leg:          leg,
		homeAltitude: homeAltitude,
	}
}

func (s *State) HomeAltitude() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.homeAltitude
}

func (s *State) Position() geo.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *State) SetPosition(p geo.Position) {
	s.mu.Lock()
	s.position = p
	s.mu.Unlock()
}

func (s *State) Cursor() Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *State) Leg() Leg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leg
}

// Track returns position, cursor and leg read together.
func (s *State) Track() (geo.Position, Cursor, Leg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position, s.cursor, s.leg
}

// Advance moves the cursor and its leg in one step.
func (s *State) Advance(c Cursor, l Leg) {
	s.mu.Lock()
	s.cursor = c
	s.leg = l
	s.mu.Unlock()
}

func (s *State) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *State) SetPaused(paused bool) {
	s.mu.Lock()
	s.paused = paused
	s.mu.Unlock()
}

func (s *State) Snapshot() types.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.Snapshot{
		Position: types.GlobalPosition{Lat: s.position.Lat, Lon: s.position.Lon, Alt: s.position.Alt},
		Prev:     s.cursor.Prev,
		Next:     s.cursor.Next,
		Paused:   s.paused,
	}
}
