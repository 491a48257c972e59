package types

const (
	MessageTypeStage       = "stage"
	MessageTypePosition    = "global-position"
	MessageTypeTrust       = "trust"
	MessageTypeMission     = "mission"
	MessageTypeArm         = "arm"
	MessageTypeWaypoint    = "waypoint-reached"
	MessageTypeCommand     = "mission-command"
	MessageTypeCorridor    = "corridor"
	MessageTypeAltitude    = "altitude-correction"
	MessageTypeFlyAccept   = "fly-accept"
	MessageTypeSpeed       = "speed-change"
	MessageTypeFlightEnded = "flight-ended"
)

// Stage marks a lifecycle transition of the controller.
type Stage struct {
	Name string `json:"name"`
}

type GlobalPosition struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

// Snapshot is the periodic telemetry record.
type Snapshot struct {
	Position GlobalPosition `json:"position"`
	Prev     int            `json:"prev"`
	Next     int            `json:"next"`
	Paused   bool           `json:"paused"`
}

type Trust struct {
	PublicKey   string `json:"public_key"`
	Fingerprint string `json:"fingerprint"`
}

type MissionLoaded struct {
	Commands     int `json:"commands"`
	LastWaypoint int `json:"last_waypoint"`
}

type ArmState struct {
	State string `json:"state"`
}

type WaypointReached struct {
	Index int `json:"index"`
	Next  int `json:"next"`
	Leg   int `json:"leg"`
}

// CommandApplied reports a SetServo or ChangeSpeed executed while scanning.
type CommandApplied struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
}

type CorridorCheck struct {
	Leg      int     `json:"leg"`
	Distance float64 `json:"distance"`
	Inside   bool    `json:"inside"`
}

type AltitudeCorrection struct {
	Leg      int     `json:"leg"`
	Altitude float64 `json:"altitude"`
	Target   float64 `json:"target"`
}

type FlyAccept struct {
	Leg    int  `json:"leg"`
	Paused bool `json:"paused"`
}

type SpeedChange struct {
	Leg   int   `json:"leg"`
	Speed int32 `json:"speed"`
}

type FlightEnded struct {
	Land int `json:"land"`
}
