package vehicle

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/tiiuae/flightcontroller/internal/geo"
)

var home = geo.Position{Lat: 60.0, Lon: 24.0, Alt: 12.5}

func armed(t *testing.T, route []geo.Position) *Sim {
	t.Helper()
	s := NewSim(DefaultSimConfig(), home, route)
	ctx := context.Background()
	if err := s.WaitForArmRequest(ctx); err != nil {
		t.Fatalf("expected arm request: %v", err)
	}
	if err := s.SetKillSwitch(ctx, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.PermitArm(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func TestSimGetCoords(t *testing.T) {
	s := NewSim(DefaultSimConfig(), home, nil)
	lat, lon, alt, err := s.GetCoords(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lat != 600000000 || lon != 240000000 || alt != 12500 {
		t.Errorf("got %d %d %d", lat, lon, alt)
	}
}

func TestSimArmNeedsPower(t *testing.T) {
	s := NewSim(DefaultSimConfig(), home, nil)
	if err := s.PermitArm(context.Background()); err == nil {
		t.Error("armed without motor power")
	}
	s = armed(t, nil)
	if err := s.WaitForArmRequest(context.Background()); err == nil {
		t.Error("arm request still pending after arming")
	}
}

func TestSimFliesRoute(t *testing.T) {
	a := geo.Offset(home, 10, 0)
	a.Alt = 2
	b := geo.Offset(a, 0, 10)
	b.Alt = 2
	s := armed(t, []geo.Position{a, b})

	for i := 0; i < 200; i++ {
		s.Step(100 * time.Millisecond)
	}

	st := s.Status()
	if st.Target != 2 {
		t.Fatalf("got target %d, expected route completed", st.Target)
	}
	if d := geo.Distance(st.Position, b); d > 0.5 {
		t.Errorf("ended %.2f m from last point", d)
	}
	if math.Abs(st.Position.Alt-2) > 1e-9 {
		t.Errorf("got altitude %.2f, expected 2", st.Position.Alt)
	}
}

func TestSimHoldsWhenPausedOrKilled(t *testing.T) {
	a := geo.Offset(home, 50, 0)
	ctx := context.Background()
	s := armed(t, []geo.Position{a})

	s.PauseFlight(ctx)
	s.Step(time.Second)
	if p := s.Status().Position; p != (geo.Position{Lat: home.Lat, Lon: home.Lon}) {
		t.Errorf("moved while paused: %+v", p)
	}

	s.ResumeFlight(ctx)
	s.Step(time.Second)
	moved := s.Status().Position
	if d := geo.Distance(moved, geo.Position{Lat: home.Lat, Lon: home.Lon}); math.Abs(d-5) > 0.01 {
		t.Errorf("got %.3f m in one second, expected 5", d)
	}

	s.SetKillSwitch(ctx, false)
	s.Step(time.Second)
	st := s.Status()
	if st.Position != moved {
		t.Errorf("moved with motors cut")
	}
	if st.Kills != 1 {
		t.Errorf("got %d kills, expected 1", st.Kills)
	}
}

func TestSimSpeedAndAltitude(t *testing.T) {
	a := geo.Offset(home, 100, 0)
	a.Alt = 10
	ctx := context.Background()
	s := armed(t, []geo.Position{a})

	if err := s.ChangeSpeed(ctx, 0); err == nil {
		t.Error("accepted zero speed")
	}
	s.ChangeSpeed(ctx, 10)
	s.ChangeAltitude(ctx, 150)

	for i := 0; i < 10; i++ {
		s.Step(100 * time.Millisecond)
	}
	st := s.Status()
	if d := geo.Distance(st.Position, geo.Position{Lat: home.Lat, Lon: home.Lon}); math.Abs(d-10) > 0.01 {
		t.Errorf("got %.3f m, expected 10", d)
	}
	if math.Abs(st.Position.Alt-1.5) > 1e-9 {
		t.Errorf("got altitude %.3f, expected 1.5", st.Position.Alt)
	}
}

func TestSimPeriphery(t *testing.T) {
	ctx := context.Background()
	s := NewSim(DefaultSimConfig(), home, nil)
	s.EnableBuzzer(ctx)
	s.SetCargoLock(ctx, false)
	st := s.Status()
	if !st.Buzzer || st.CargoLocked {
		t.Errorf("got %+v", st)
	}
}
