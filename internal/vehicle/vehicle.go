package vehicle

import "context"

// Prober reports readiness of a collaborator during start-up.
type Prober interface {
	Ready(ctx context.Context) error
}

// ProberFunc adapts a plain function to Prober.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Ready(ctx context.Context) error {
	return f(ctx)
}

// Navigation samples the raw position: latitude and longitude in 1e-7
// degrees, altitude in the position altitude scale.
type Navigation interface {
	GetCoords(ctx context.Context) (lat, lon, alt int32, err error)
}

type Periphery interface {
	// SetKillSwitch enables (true) or cuts (false) motor power.
	SetKillSwitch(ctx context.Context, enable bool) error
	SetCargoLock(ctx context.Context, locked bool) error
	EnableBuzzer(ctx context.Context) error
}

type Autopilot interface {
	// WaitForArmRequest returns nil once the autopilot has asked to arm.
	WaitForArmRequest(ctx context.Context) error
	PermitArm(ctx context.Context) error
	ForbidArm(ctx context.Context) error
	PauseFlight(ctx context.Context) error
	ResumeFlight(ctx context.Context) error
	// ChangeAltitude takes the target in the command altitude scale.
	ChangeAltitude(ctx context.Context, altitude int32) error
	ChangeSpeed(ctx context.Context, speed int32) error
}

// Vehicle bundles the collaborators a drone exposes to the flight controller.
type Vehicle interface {
	Navigation
	Periphery
	Autopilot
	Prober
}
