package flight

import (
	"context"
	"log"
	"math"

	"github.com/tiiuae/flightcontroller/internal/geo"
	"github.com/tiiuae/flightcontroller/internal/mission"
	"github.com/tiiuae/flightcontroller/internal/types"
)

func (s *Supervisor) samplePosition(ctx context.Context) {
	lat, lon, alt, err := s.nav.GetCoords(ctx)
	if err != nil {
		log.Printf("WARNING: Failed to get coordinates: %v", err)
		return
	}
	p := geo.FromFixed(lat, lon, alt, s.cfg.PositionAltitudeScale)
	p.Alt -= s.state.HomeAltitude()
	s.state.SetPosition(p)
	s.post(types.CreateMessage(types.MessageTypePosition, "flight", "*", types.GlobalPosition{Lat: p.Lat, Lon: p.Lon, Alt: p.Alt}))
}

func (s *Supervisor) advance(ctx context.Context) {
	position, cursor, leg := s.state.Track()
	if !position.Known() || s.mission.IsLand(cursor.Next) {
		return
	}
	if geo.Distance(position, leg.Next) >= s.cfg.AdvanceDistance {
		return
	}

	next, skipped := Scan(s.mission, cursor.Next+1, s.cfg.RestartOnLand)
	c := Cursor{cursor.Next, next}
	s.state.Advance(c, LegAt(s.mission, c))
	log.Printf("Waypoint %d reached. Next target is command %d", cursor.Next, next)
	s.post(types.CreateMessage(types.MessageTypeWaypoint, "flight", "*", types.WaypointReached{
		Index: cursor.Next,
		Next:  next,
		Leg:   s.mission.LegNumber(next),
	}))

	for _, i := range skipped {
		s.apply(ctx, i)
	}
}

// apply carries out a SetServo or ChangeSpeed item passed by the scan.
func (s *Supervisor) apply(ctx context.Context, i int) {
	var err error
	switch c := s.mission.At(i).(type) {
	case mission.SetServo:
		err = s.periphery.SetCargoLock(ctx, c.Locked())
	case mission.ChangeSpeed:
		err = s.autopilot.ChangeSpeed(ctx, c.Value)
	default:
		return
	}
	if err != nil {
		log.Printf("WARNING: Failed to apply mission command %d: %v", i, err)
		return
	}
	s.post(types.CreateMessage(types.MessageTypeCommand, "flight", "*", types.CommandApplied{
		Index:       i,
		Description: mission.Describe(s.mission.At(i)),
	}))
}

func (s *Supervisor) checkCorridor(ctx context.Context) {
	position, cursor, leg := s.state.Track()
	if !position.Known() {
		return
	}
	legNumber := s.mission.LegNumber(cursor.Next)
	if legNumber <= s.cfg.CorridorSkipLegs || cursor.Next >= s.mission.LastWaypoint() {
		return
	}

	distance := geo.CrossTrackDistance(leg.Prev, leg.Next, position)
	inside := distance <= s.cfg.CorridorHalfWidth
	if inside {
		log.Printf("Inside corridor on leg %d (%.2f m)", legNumber, distance)
		return
	}

	log.Printf("WARNING: Outside corridor on leg %d (%.2f m). Cutting motors", legNumber, distance)
	if err := s.periphery.SetKillSwitch(ctx, false); err != nil {
		log.Printf("WARNING: Failed to cut motors: %v", err)
	}
	s.post(types.CreateMessage(types.MessageTypeCorridor, "flight", "*", types.CorridorCheck{
		Leg:      legNumber,
		Distance: distance,
		Inside:   inside,
	}))
}

func (s *Supervisor) checkAltitude(ctx context.Context) {
	position, cursor, _ := s.state.Track()
	if !position.Known() || s.mission.IsLand(cursor.Next) {
		return
	}
	legNumber := s.mission.LegNumber(cursor.Next)
	if legNumber < s.cfg.AltitudeFromLeg || legNumber > s.cfg.AltitudeToLeg {
		return
	}
	if position.Alt <= s.cfg.AltitudeCeiling {
		return
	}

	target := int32(math.Round(s.cfg.AltitudeTarget * s.cfg.CommandAltitudeScale))
	log.Printf("Altitude %.2f m above ceiling %.2f m on leg %d. Descending to %.2f m", position.Alt, s.cfg.AltitudeCeiling, legNumber, s.cfg.AltitudeTarget)
	if err := s.autopilot.ChangeAltitude(ctx, target); err != nil {
		log.Printf("WARNING: Failed to change altitude: %v", err)
		return
	}
	s.post(types.CreateMessage(types.MessageTypeAltitude, "flight", "*", types.AltitudeCorrection{
		Leg:      legNumber,
		Altitude: position.Alt,
		Target:   s.cfg.AltitudeTarget,
	}))
}
