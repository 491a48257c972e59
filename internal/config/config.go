package config

import (
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	"github.com/tiiuae/flightcontroller/internal/flight"
	"github.com/tiiuae/flightcontroller/internal/telemetry"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DeviceID string `yaml:"device_id"`
	// BoardID identifies the drone towards ground control.
	BoardID           string        `yaml:"board_id"`
	Server            string        `yaml:"server"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	RequestRetryDelay time.Duration `yaml:"request_retry_delay"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	BusCapacity       int           `yaml:"bus_capacity"`

	Keys   Keys   `yaml:"keys"`
	MQTT   MQTT   `yaml:"mqtt"`
	Log    Log    `yaml:"log"`
	Flight Flight `yaml:"flight"`
}

type Keys struct {
	Board  string `yaml:"board"`
	Server string `yaml:"server"`
}

type MQTT struct {
	// Broker defaults to the cloud IoT endpoint.
	Broker          string        `yaml:"broker"`
	ProjectID       string        `yaml:"project_id"`
	Region          string        `yaml:"region"`
	RegistryID      string        `yaml:"registry_id"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	PublishTimeout  time.Duration `yaml:"publish_timeout"`
	TelemetryPeriod time.Duration `yaml:"telemetry_period"`
}

type Log struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type Flight struct {
	PositionPeriod        time.Duration `yaml:"position_period"`
	AdvancePeriod         time.Duration `yaml:"advance_period"`
	CorridorPeriod        time.Duration `yaml:"corridor_period"`
	AltitudePeriod        time.Duration `yaml:"altitude_period"`
	ControlPeriod         time.Duration `yaml:"control_period"`
	AdvanceDistance       float64       `yaml:"advance_distance"`
	Corridor              Corridor      `yaml:"corridor"`
	Altitude              Altitude      `yaml:"altitude"`
	PositionAltitudeScale float64       `yaml:"position_altitude_scale"`
	CommandAltitudeScale  float64       `yaml:"command_altitude_scale"`
	FlyAcceptLegs         []int         `yaml:"fly_accept_legs"`
	SpeedChange           SpeedChange   `yaml:"speed_change"`
	RestartOnLand         bool          `yaml:"restart_on_land"`
}

type Corridor struct {
	HalfWidth float64 `yaml:"half_width"`
	SkipLegs  int     `yaml:"skip_legs"`
}

type Altitude struct {
	FromLeg int     `yaml:"from_leg"`
	ToLeg   int     `yaml:"to_leg"`
	Ceiling float64 `yaml:"ceiling"`
	Target  float64 `yaml:"target"`
}

type SpeedChange struct {
	Leg   int   `yaml:"leg"`
	Value int32 `yaml:"value"`
}

const (
	defaultServer = "ssl://mqtt.googleapis.com:8883"
)

func Default() Config {
	f := flight.DefaultConfig()
	return Config{
		BoardID:           "1",
		Server:            "http://localhost:8080",
		RetryDelay:        time.Second,
		RequestRetryDelay: 5 * time.Second,
		RequestTimeout:    10 * time.Second,
		BusCapacity:       100,
		Keys: Keys{
			Board:  "/enclave/rsa_private.pem",
			Server: "/enclave/server_public.pem",
		},
		MQTT: MQTT{
			ProjectID:       "auto-fleet-mgnt",
			Region:          "europe-west1",
			RegistryID:      "fleet-registry",
			TokenTTL:        24 * time.Hour,
			ConnectTimeout:  5 * time.Second,
			PublishTimeout:  10 * time.Second,
			TelemetryPeriod: 100 * time.Millisecond,
		},
		Log: Log{
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Flight: Flight{
			PositionPeriod:        f.PositionPeriod,
			AdvancePeriod:         f.AdvancePeriod,
			CorridorPeriod:        f.CorridorPeriod,
			AltitudePeriod:        f.AltitudePeriod,
			ControlPeriod:         f.ControlPeriod,
			AdvanceDistance:       f.AdvanceDistance,
			Corridor:              Corridor{HalfWidth: f.CorridorHalfWidth, SkipLegs: f.CorridorSkipLegs},
			Altitude:              Altitude{FromLeg: f.AltitudeFromLeg, ToLeg: f.AltitudeToLeg, Ceiling: f.AltitudeCeiling, Target: f.AltitudeTarget},
			PositionAltitudeScale: f.PositionAltitudeScale,
			CommandAltitudeScale:  f.CommandAltitudeScale,
			FlyAcceptLegs:         f.FlyAcceptLegs,
			SpeedChange:           SpeedChange{Leg: f.SpeedChangeLeg, Value: f.SpeedChangeValue},
			RestartOnLand:         f.RestartOnLand,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path gives the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, errors.WithMessage(err, "Could not read config")
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.WithMessage(err, "Could not parse config")
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.BoardID == "" {
		return errors.New("board_id is empty")
	}
	if c.Server == "" {
		return errors.New("server is empty")
	}
	if c.RetryDelay <= 0 || c.RequestRetryDelay <= 0 || c.RequestTimeout <= 0 {
		return errors.New("retry_delay, request_retry_delay and request_timeout must be positive")
	}
	if c.RequestRetryDelay < c.RetryDelay {
		return errors.Errorf("request_retry_delay %v is shorter than retry_delay %v", c.RequestRetryDelay, c.RetryDelay)
	}
	if c.BusCapacity < 1 {
		return errors.Errorf("invalid bus_capacity %d", c.BusCapacity)
	}
	if c.MQTT.TelemetryPeriod <= 0 {
		return errors.New("mqtt.telemetry_period must be positive")
	}

	f := c.Flight
	for name, d := range map[string]time.Duration{
		"position_period": f.PositionPeriod,
		"advance_period":  f.AdvancePeriod,
		"corridor_period": f.CorridorPeriod,
		"altitude_period": f.AltitudePeriod,
		"control_period":  f.ControlPeriod,
	} {
		if d <= 0 {
			return errors.Errorf("flight.%s must be positive", name)
		}
	}
	if f.AdvanceDistance <= 0 || f.Corridor.HalfWidth <= 0 {
		return errors.New("flight.advance_distance and flight.corridor.half_width must be positive")
	}
	if f.Corridor.SkipLegs < 0 {
		return errors.Errorf("invalid flight.corridor.skip_legs %d", f.Corridor.SkipLegs)
	}
	if f.Altitude.FromLeg > f.Altitude.ToLeg {
		return errors.Errorf("flight.altitude window %d..%d is empty", f.Altitude.FromLeg, f.Altitude.ToLeg)
	}
	if f.Altitude.Target > f.Altitude.Ceiling {
		return errors.Errorf("flight.altitude.target %.2f is above ceiling %.2f", f.Altitude.Target, f.Altitude.Ceiling)
	}
	if f.PositionAltitudeScale <= 0 || f.CommandAltitudeScale <= 0 {
		return errors.New("altitude scales must be positive")
	}
	if f.SpeedChange.Value <= 0 {
		return errors.Errorf("invalid flight.speed_change.value %d", f.SpeedChange.Value)
	}
	return nil
}

// FlightConfig converts the flight section for the supervisor.
func (c Config) FlightConfig() flight.Config {
	f := c.Flight
	return flight.Config{
		PositionPeriod:        f.PositionPeriod,
		AdvancePeriod:         f.AdvancePeriod,
		CorridorPeriod:        f.CorridorPeriod,
		AltitudePeriod:        f.AltitudePeriod,
		ControlPeriod:         f.ControlPeriod,
		AdvanceDistance:       f.AdvanceDistance,
		CorridorHalfWidth:     f.Corridor.HalfWidth,
		CorridorSkipLegs:      f.Corridor.SkipLegs,
		AltitudeFromLeg:       f.Altitude.FromLeg,
		AltitudeToLeg:         f.Altitude.ToLeg,
		AltitudeCeiling:       f.Altitude.Ceiling,
		AltitudeTarget:        f.Altitude.Target,
		PositionAltitudeScale: f.PositionAltitudeScale,
		CommandAltitudeScale:  f.CommandAltitudeScale,
		FlyAcceptLegs:         f.FlyAcceptLegs,
		SpeedChangeLeg:        f.SpeedChange.Leg,
		SpeedChangeValue:      f.SpeedChange.Value,
		RestartOnLand:         f.RestartOnLand,
	}
}

// MQTTConfig returns the broker settings for device id.
func (c Config) MQTTConfig() telemetry.MQTTConfig {
	broker := c.MQTT.Broker
	if broker == "" {
		broker = defaultServer
	}
	return telemetry.MQTTConfig{
		Broker:         broker,
		ProjectID:      c.MQTT.ProjectID,
		Region:         c.MQTT.Region,
		RegistryID:     c.MQTT.RegistryID,
		DeviceID:       c.DeviceID,
		TokenTTL:       c.MQTT.TokenTTL,
		ConnectTimeout: c.MQTT.ConnectTimeout,
		PublishTimeout: c.MQTT.PublishTimeout,
	}
}
