package flight

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/tiiuae/flightcontroller/internal/types"
)

type fakeVehicle struct {
	mu       sync.Mutex
	calls    []string
	lat, lon int32
	alt      int32
	navErr   error
}

func (v *fakeVehicle) record(format string, args ...interface{}) {
	v.mu.Lock()
	v.calls = append(v.calls, fmt.Sprintf(format, args...))
	v.mu.Unlock()
}

func (v *fakeVehicle) recorded() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.calls))
	copy(out, v.calls)
	return out
}

func (v *fakeVehicle) GetCoords(ctx context.Context) (int32, int32, int32, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lat, v.lon, v.alt, v.navErr
}

func (v *fakeVehicle) SetKillSwitch(ctx context.Context, enable bool) error {
	v.record("SetKillSwitch(%v)", enable)
	return nil
}

func (v *fakeVehicle) SetCargoLock(ctx context.Context, locked bool) error {
	v.record("SetCargoLock(%v)", locked)
	return nil
}

func (v *fakeVehicle) EnableBuzzer(ctx context.Context) error      { return nil }
func (v *fakeVehicle) WaitForArmRequest(ctx context.Context) error { return nil }
func (v *fakeVehicle) PermitArm(ctx context.Context) error         { return nil }
func (v *fakeVehicle) ForbidArm(ctx context.Context) error         { return nil }

func (v *fakeVehicle) PauseFlight(ctx context.Context) error {
	v.record("PauseFlight")
	return nil
}

func (v *fakeVehicle) ResumeFlight(ctx context.Context) error {
	v.record("ResumeFlight")
	return nil
}

func (v *fakeVehicle) ChangeAltitude(ctx context.Context, altitude int32) error {
	v.record("ChangeAltitude(%d)", altitude)
	return nil
}

func (v *fakeVehicle) ChangeSpeed(ctx context.Context, speed int32) error {
	v.record("ChangeSpeed(%d)", speed)
	return nil
}

type scriptedServer struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (s *scriptedServer) RequestFly(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.responses) == 0 {
		return "", errors.New("no script")
	}
	r := s.responses[s.calls%len(s.responses)]
	s.calls++
	return r, nil
}

type events struct {
	mu       sync.Mutex
	messages []types.Message
}

func (e *events) post(msg types.Message) {
	e.mu.Lock()
	e.messages = append(e.messages, msg)
	e.mu.Unlock()
}

func (e *events) count(messageType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, m := range e.messages {
		if m.MessageType == messageType {
			n++
		}
	}
	return n
}
