package vehicle

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tiiuae/flightcontroller/internal/geo"
)

// SimConfig describes the simulated airframe.
type SimConfig struct {
	// Speed is the initial cruise speed in metres per second.
	Speed float64
	// ClimbRate in metres per second.
	ClimbRate float64
	// Reach is the distance at which a route point counts as visited.
	Reach float64
	// PositionAltitudeScale and CommandAltitudeScale match the controller's
	// fixed-point conventions.
	PositionAltitudeScale float64
	CommandAltitudeScale  float64
}

func DefaultSimConfig() SimConfig {
	return SimConfig{
		Speed:                 5,
		ClimbRate:             2,
		Reach:                 0.5,
		PositionAltitudeScale: 1000,
		CommandAltitudeScale:  100,
	}
}

// Sim is an in-process vehicle that flies a route once it is armed. Route
// altitudes are relative to home, whose altitude is absolute.
type Sim struct {
	cfg  SimConfig
	home geo.Position

	mu             sync.Mutex
	route          []geo.Position
	target         int
	position       geo.Position // Alt relative to home
	speed          float64
	altitudeTarget *float64
	armRequested   bool
	armed          bool
	powered        bool
	paused         bool
	cargoLocked    bool
	buzzer         bool
	kills          int
}

func NewSim(cfg SimConfig, home geo.Position, route []geo.Position) *Sim {
	r := make([]geo.Position, len(route))
	copy(r, route)
	return &Sim{
		cfg:          cfg,
		home:         home,
		route:        r,
		position:     geo.Position{Lat: home.Lat, Lon: home.Lon, Alt: 0},
		speed:        cfg.Speed,
		armRequested: true,
		cargoLocked:  true,
	}
}

func (s *Sim) Ready(ctx context.Context) error {
	return nil
}

func (s *Sim) GetCoords(ctx context.Context) (int32, int32, int32, error) {
	s.mu.Lock()
	p := s.position
	s.mu.Unlock()

	lat := int32(math.Round(p.Lat * geo.GPSScale))
	lon := int32(math.Round(p.Lon * geo.GPSScale))
	alt := int32(math.Round((p.Alt + s.home.Alt) * s.cfg.PositionAltitudeScale))
	return lat, lon, alt, nil
}

func (s *Sim) SetKillSwitch(ctx context.Context, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !enable && s.powered {
		s.kills++
		log.Printf("Sim: motors cut at %.7f %.7f", s.position.Lat, s.position.Lon)
	}
	s.powered = enable
	return nil
}

func (s *Sim) SetCargoLock(ctx context.Context, locked bool) error {
	s.mu.Lock()
	s.cargoLocked = locked
	s.mu.Unlock()
	log.Printf("Sim: cargo lock %v", locked)
	return nil
}

func (s *Sim) EnableBuzzer(ctx context.Context) error {
	s.mu.Lock()
	s.buzzer = true
	s.mu.Unlock()
	return nil
}

func (s *Sim) WaitForArmRequest(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armRequested || s.armed {
		return errors.New("no pending arm request")
	}
	return nil
}

func (s *Sim) PermitArm(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.powered {
		return errors.New("motors have no power")
	}
	s.armed = true
	s.armRequested = false
	return nil
}

func (s *Sim) ForbidArm(ctx context.Context) error {
	return nil
}

func (s *Sim) PauseFlight(ctx context.Context) error {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	return nil
}

func (s *Sim) ResumeFlight(ctx context.Context) error {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	return nil
}

func (s *Sim) ChangeAltitude(ctx context.Context, altitude int32) error {
	a := float64(altitude) / s.cfg.CommandAltitudeScale
	s.mu.Lock()
	s.altitudeTarget = &a
	s.mu.Unlock()
	return nil
}

func (s *Sim) ChangeSpeed(ctx context.Context, speed int32) error {
	if speed <= 0 {
		return errors.Errorf("invalid speed %d", speed)
	}
	s.mu.Lock()
	s.speed = float64(speed)
	s.mu.Unlock()
	return nil
}

// SimStatus is a point-in-time view of the simulator for tests and logs.
type SimStatus struct {
	Position    geo.Position
	Target      int
	Armed       bool
	Powered     bool
	Paused      bool
	CargoLocked bool
	Buzzer      bool
	Kills       int
	Speed       float64
}

func (s *Sim) Status() SimStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SimStatus{
		Position:    s.position,
		Target:      s.target,
		Armed:       s.armed,
		Powered:     s.powered,
		Paused:      s.paused,
		CargoLocked: s.cargoLocked,
		Buzzer:      s.buzzer,
		Kills:       s.kills,
		Speed:       s.speed,
	}
}

// Teleport places the vehicle at p, for tests.
func (s *Sim) Teleport(p geo.Position) {
	s.mu.Lock()
	s.position = p
	s.mu.Unlock()
}

// Step advances the simulation by dt.
func (s *Sim) Step(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.armed || !s.powered || s.paused || s.target >= len(s.route) {
		return
	}

	target := s.route[s.target]
	seconds := dt.Seconds()

	alt := target.Alt
	if s.altitudeTarget != nil {
		alt = *s.altitudeTarget
	}
	climb := s.cfg.ClimbRate * seconds
	switch {
	case s.position.Alt < alt-climb:
		s.position.Alt += climb
	case s.position.Alt > alt+climb:
		s.position.Alt -= climb
	default:
		s.position.Alt = alt
	}

	d := geo.Distance(s.position, target)
	move := s.speed * seconds
	if d <= move {
		s.position = geo.Position{Lat: target.Lat, Lon: target.Lon, Alt: s.position.Alt}
	} else {
		north := geo.Distance(s.position, geo.Position{Lat: target.Lat, Lon: s.position.Lon})
		if target.Lat < s.position.Lat {
			north = -north
		}
		east := geo.Distance(s.position, geo.Position{Lat: s.position.Lat, Lon: target.Lon})
		if target.Lon < s.position.Lon {
			east = -east
		}
		f := move / math.Hypot(north, east)
		s.position = geo.Offset(s.position, north*f, east*f)
	}

	if geo.Distance(s.position, target) < s.cfg.Reach {
		s.target++
		s.altitudeTarget = nil
		if s.target == len(s.route) {
			log.Printf("Sim: route completed")
		}
	}
}

// Run steps the simulation every period until ctx is done.
func (s *Sim) Run(ctx context.Context, period time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(period):
			s.Step(period)
		}
	}
}
