package flight

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/tiiuae/flightcontroller/internal/groundcontrol"
	"github.com/tiiuae/flightcontroller/internal/mission"
	"github.com/tiiuae/flightcontroller/internal/retry"
	"github.com/tiiuae/flightcontroller/internal/types"
	"github.com/tiiuae/flightcontroller/internal/vehicle"
)

// FlyRequester asks ground control whether the flight may go on.
type FlyRequester interface {
	RequestFly(ctx context.Context) (string, error)
}

// Supervisor owns the flight state from arming until landing.
type Supervisor struct {
	cfg       Config
	mission   *mission.Mission
	state     *State
	nav       vehicle.Navigation
	periphery vehicle.Periphery
	autopilot vehicle.Autopilot
	server    FlyRequester
	post      types.PostFn

	// touched by the control loop only
	speedChanged bool

	wg sync.WaitGroup
}

func NewSupervisor(cfg Config, m *mission.Mission, nav vehicle.Navigation, periphery vehicle.Periphery, autopilot vehicle.Autopilot, server FlyRequester, post types.PostFn) *Supervisor {
	if cfg.RestartOnLand {
		log.Printf("WARNING: restart_on_land is enabled: reaching Land restarts the mission from home and the flight never ends")
	}
	if post == nil {
		post = func(types.Message) {}
	}

	next, _ := Scan(m, 1, cfg.RestartOnLand)
	cursor := Cursor{0, next}

	return &Supervisor{
		cfg:       cfg,
		mission:   m,
		state:     NewState(m.Home().Alt, cursor, LegAt(m, cursor)),
		nav:       nav,
		periphery: periphery,
		autopilot: autopilot,
		server:    server,
		post:      post,
	}
}

func (s *Supervisor) State() *State {
	return s.state
}

// Run starts the monitors and drives the control loop until Land becomes
// the active target. The monitors keep running until ctx is done.
func (s *Supervisor) Run(ctx context.Context) error {
	s.spawn(ctx, "PositionSampler", s.cfg.PositionPeriod, s.samplePosition)
	s.spawn(ctx, "WaypointAdvancer", s.cfg.AdvancePeriod, s.advance)
	s.spawn(ctx, "CorridorGuard", s.cfg.CorridorPeriod, s.checkCorridor)
	s.spawn(ctx, "AltitudeGuard", s.cfg.AltitudePeriod, s.checkAltitude)

	for {
		done, err := s.tick(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if err := retry.Sleep(ctx, s.cfg.ControlPeriod); err != nil {
			return err
		}
	}
}

// Wait blocks until every monitor has stopped.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

func (s *Supervisor) spawn(ctx context.Context, name string, period time.Duration, fn func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Printf("%s started, period %v", name, period)
		for {
			fn(ctx)
			select {
			case <-ctx.Done():
				return
			case <-time.After(period):
			}
		}
	}()
}

// tick runs one control cycle and reports whether the flight has ended.
func (s *Supervisor) tick(ctx context.Context) (bool, error) {
	cursor := s.state.Cursor()
	if s.mission.IsLand(cursor.Next) {
		log.Printf("Land is active (command %d). Flight supervision finished", cursor.Next)
		s.post(types.CreateMessage(types.MessageTypeFlightEnded, "flight", "*", types.FlightEnded{Land: cursor.Next}))
		return true, nil
	}

	leg := s.mission.LegNumber(cursor.Next)
	if s.isFlyAcceptLeg(leg) {
		if err := s.pollFlyAccept(ctx, leg); err != nil {
			return false, err
		}
	}
	if leg == s.cfg.SpeedChangeLeg && !s.speedChanged {
		if err := s.autopilot.ChangeSpeed(ctx, s.cfg.SpeedChangeValue); err != nil {
			log.Printf("WARNING: Failed to change speed to %d: %v", s.cfg.SpeedChangeValue, err)
		} else {
			s.speedChanged = true
			log.Printf("Speed changed to %d on leg %d", s.cfg.SpeedChangeValue, leg)
			s.post(types.CreateMessage(types.MessageTypeSpeed, "flight", "*", types.SpeedChange{Leg: leg, Speed: s.cfg.SpeedChangeValue}))
		}
	}
	return false, nil
}

func (s *Supervisor) isFlyAcceptLeg(leg int) bool {
	for _, l := range s.cfg.FlyAcceptLegs {
		if l == leg {
			return true
		}
	}
	return false
}

// pollFlyAccept asks ground control whether to keep flying and pauses or
// resumes only when the answer differs from the current intent.
func (s *Supervisor) pollFlyAccept(ctx context.Context, leg int) error {
	response, err := s.server.RequestFly(ctx)
	if err != nil {
		return err
	}

	var pause bool
	switch groundcontrol.Decide(response) {
	case groundcontrol.DecisionPermit:
		pause = false
	case groundcontrol.DecisionForbid:
		pause = true
	default:
		log.Printf("WARNING: Failed to parse fly_accept response %q", response)
		return nil
	}

	if pause == s.state.Paused() {
		return nil
	}
	if pause {
		err = s.autopilot.PauseFlight(ctx)
	} else {
		err = s.autopilot.ResumeFlight(ctx)
	}
	if err != nil {
		log.Printf("WARNING: Failed to change pause to %v: %v", pause, err)
		return nil
	}
	s.state.SetPaused(pause)
	log.Printf("Flight paused: %v", pause)
	s.post(types.CreateMessage(types.MessageTypeFlyAccept, "flight", "*", types.FlyAccept{Leg: leg, Paused: pause}))
	return nil
}
