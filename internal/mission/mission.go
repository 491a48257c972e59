package mission

import (
	"fmt"
	"log"

	"github.com/pkg/errors"
	"github.com/tiiuae/flightcontroller/internal/geo"
)

// Command is one mission item: Waypoint, Land, SetServo or ChangeSpeed.
type Command interface {
	isCommand()
}

type Waypoint struct {
	Position geo.Position
}

type Land struct {
	Position geo.Position
}

// ServoReleasePWM is the pulse width from which a SetServo item opens the cargo lock.
const ServoReleasePWM = 1500

type SetServo struct {
	Channel int
	PWM     int
}

// Locked reports whether the item asks the cargo lock to hold the payload.
func (s SetServo) Locked() bool {
	return s.PWM < ServoReleasePWM
}

type ChangeSpeed struct {
	Value int32
}

func (Waypoint) isCommand()    {}
func (Land) isCommand()        {}
func (SetServo) isCommand()    {}
func (ChangeSpeed) isCommand() {}

// Mission is the ordered command list received from ground control. It is
// built once and never modified, so it can be shared without locking.
type Mission struct {
	commands     []Command
	lastWaypoint int
}

// New validates commands and builds a Mission from a copy of them.
func New(commands []Command) (*Mission, error) {
	if len(commands) < 2 {
		return nil, errors.Errorf("mission needs at least home and land, got %d commands", len(commands))
	}
	if _, ok := commands[0].(Waypoint); !ok {
		return nil, errors.Errorf("mission must start with home waypoint, got %T", commands[0])
	}
	if _, ok := commands[len(commands)-1].(Land); !ok {
		return nil, errors.Errorf("mission must end with land, got %T", commands[len(commands)-1])
	}

	m := &Mission{commands: make([]Command, len(commands))}
	copy(m.commands, commands)
	for i, c := range m.commands {
		if _, ok := c.(Waypoint); ok {
			m.lastWaypoint = i
		}
	}

	return m, nil
}

func (m *Mission) Len() int {
	return len(m.commands)
}

func (m *Mission) At(i int) Command {
	return m.commands[i]
}

// Home is the first waypoint; its altitude is absolute and defines home altitude.
func (m *Mission) Home() geo.Position {
	return m.commands[0].(Waypoint).Position
}

// LastWaypoint is the index of the final Waypoint before landing.
func (m *Mission) LastWaypoint() int {
	return m.lastWaypoint
}

// IsWaypoint reports whether index i holds a Waypoint.
func (m *Mission) IsWaypoint(i int) bool {
	_, ok := m.commands[i].(Waypoint)
	return ok
}

// IsLand reports whether index i holds a Land command.
func (m *Mission) IsLand(i int) bool {
	_, ok := m.commands[i].(Land)
	return ok
}

// PositionAt returns the planned position of a Waypoint or Land item.
func (m *Mission) PositionAt(i int) (geo.Position, bool) {
	switch c := m.commands[i].(type) {
	case Waypoint:
		return c.Position, true
	case Land:
		return c.Position, true
	}
	return geo.Unknown, false
}

// LegNumber counts the waypoints after home up to and including index i, so
// the leg home -> first waypoint is leg 1.
func (m *Mission) LegNumber(i int) int {
	n := 0
	for j := 1; j <= i && j < len(m.commands); j++ {
		switch m.commands[j].(type) {
		case Waypoint, Land:
			n++
		}
	}
	return n
}

// Route lists the planned positions after home, in flight order.
func (m *Mission) Route() []geo.Position {
	var route []geo.Position
	for i := 1; i < len(m.commands); i++ {
		if p, ok := m.PositionAt(i); ok {
			route = append(route, p)
		}
	}
	return route
}

func (m *Mission) Print() {
	for i, c := range m.commands {
		log.Printf("Mission %2d: %s", i, Describe(c))
	}
}

// Describe renders c for logs.
func Describe(c Command) string {
	switch c := c.(type) {
	case Waypoint:
		return fmt.Sprintf("waypoint lat %.7f lon %.7f alt %.2f", c.Position.Lat, c.Position.Lon, c.Position.Alt)
	case Land:
		return fmt.Sprintf("land lat %.7f lon %.7f alt %.2f", c.Position.Lat, c.Position.Lon, c.Position.Alt)
	case SetServo:
		return fmt.Sprintf("set servo %d pwm %d", c.Channel, c.PWM)
	case ChangeSpeed:
		return fmt.Sprintf("change speed %d", c.Value)
	}
	return fmt.Sprintf("%T", c)
}
