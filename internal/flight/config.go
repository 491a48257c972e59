package flight

import "time"

// Config holds monitor cadences and thresholds.
type Config struct {
	PositionPeriod time.Duration
	AdvancePeriod  time.Duration
	CorridorPeriod time.Duration
	AltitudePeriod time.Duration
	ControlPeriod  time.Duration

	// AdvanceDistance is how close the drone must get to a waypoint, in metres.
	AdvanceDistance float64

	CorridorHalfWidth float64
	// Legs up to and including CorridorSkipLegs are not checked.
	CorridorSkipLegs int

	AltitudeFromLeg int
	AltitudeToLeg   int
	AltitudeCeiling float64
	AltitudeTarget  float64

	// PositionAltitudeScale divides sampled altitude; CommandAltitudeScale
	// multiplies the altitude given to ChangeAltitude.
	PositionAltitudeScale float64
	CommandAltitudeScale  float64

	FlyAcceptLegs    []int
	SpeedChangeLeg   int
	SpeedChangeValue int32

	// RestartOnLand makes the waypoint scan start over from home when it meets
	// Land instead of ending the flight there.
	RestartOnLand bool
}

func DefaultConfig() Config {
	return Config{
		PositionPeriod: 500 * time.Millisecond,
		AdvancePeriod:  750 * time.Millisecond,
		CorridorPeriod: 750 * time.Millisecond,
		AltitudePeriod: 500 * time.Millisecond,
		ControlPeriod:  time.Second,

		AdvanceDistance: 3,

		CorridorHalfWidth: 4,
		CorridorSkipLegs:  2,

		AltitudeFromLeg: 3,
		AltitudeToLeg:   4,
		AltitudeCeiling: 1.6,
		AltitudeTarget:  1.5,

		PositionAltitudeScale: 1000,
		CommandAltitudeScale:  100,

		FlyAcceptLegs:    []int{2, 3, 4},
		SpeedChangeLeg:   5,
		SpeedChangeValue: 2,
	}
}
