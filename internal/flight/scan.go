package flight

import (
	"github.com/tiiuae/flightcontroller/internal/mission"
)

// Scan looks for the next Waypoint at or after index from and returns it with
// the indices of the SetServo and ChangeSpeed items passed on the way. Land
// is returned as a terminal index, or, with restartOnLand, the scan goes on
// from home.
func Scan(m *mission.Mission, from int, restartOnLand bool) (int, []int) {
	var skipped []int
	for i := from; i < m.Len(); i++ {
		switch m.At(i).(type) {
		case mission.Waypoint:
			return i, skipped
		case mission.Land:
			if restartOnLand {
				// home is always a waypoint
				return 0, skipped
			}
			return i, skipped
		default:
			skipped = append(skipped, i)
		}
	}
	return m.Len() - 1, skipped
}

// LegAt returns the planned endpoints of cursor c.
func LegAt(m *mission.Mission, c Cursor) Leg {
	prev, _ := m.PositionAt(c.Prev)
	next, _ := m.PositionAt(c.Next)
	return Leg{prev, next}
}
