package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/tiiuae/flightcontroller/internal/config"
	"github.com/tiiuae/flightcontroller/internal/controller"
	"github.com/tiiuae/flightcontroller/internal/credential"
	"github.com/tiiuae/flightcontroller/internal/flight"
	"github.com/tiiuae/flightcontroller/internal/groundcontrol"
	"github.com/tiiuae/flightcontroller/internal/telemetry"
	"github.com/tiiuae/flightcontroller/internal/types"
	"github.com/tiiuae/flightcontroller/internal/vehicle"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	defaultFlagSet    = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	deviceID          = defaultFlagSet.String("device_id", "", "The provisioned device id")
	mqttBrokerAddress = defaultFlagSet.String("mqtt_broker", "", "MQTT broker protocol, address and port")
	privateKeyPath    = defaultFlagSet.String("private_key", "", "The board private key, overrides keys.board")
	serverKeyPath     = defaultFlagSet.String("server_key", "", "The ground control public key, overrides keys.server")
	configPath        = defaultFlagSet.String("config", "", "YAML configuration file")
	serverAddress     = defaultFlagSet.String("server", "", "Ground control address, overrides server")
	sitl              = defaultFlagSet.Bool("sitl", false, "Fly a simulated drone against an in-process ground control")
)

func main() {
	defaultFlagSet.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	setupLogging(cfg.Log)

	terminationSignals := make(chan os.Signal, 1)
	signal.Notify(terminationSignals, syscall.SIGINT, syscall.SIGTERM)
	ctx, quitFunc := context.WithCancel(context.Background())
	defer quitFunc()
	go func() {
		<-terminationSignals
		log.Printf("Shutting down..")
		quitFunc()
	}()
	g, ctx := errgroup.WithContext(ctx)
	var wg sync.WaitGroup

	var (
		v           vehicle.Vehicle
		credentials *credential.Manager
		closeFn     = func() {}
	)
	if *sitl {
		s, err := startSITL(ctx, g, &cfg)
		if err != nil {
			log.Fatalf("Could not start simulation: %v", err)
		}
		v, credentials = s.vehicle, s.credentials
	} else {
		credentials, err = credential.Load(cfg.Keys.Board, cfg.Keys.Server)
		if err != nil {
			log.Fatalf("%v", err)
		}
		v, closeFn, err = newVehicle(ctx, &wg, cfg.DeviceID)
		if err != nil {
			log.Fatalf("%v", err)
		}
	}
	defer closeFn()

	tel := startTelemetry(ctx, g, cfg, credentials, !*sitl || cfg.MQTT.Broker != "")
	bus := types.NewMessageBus(make(chan types.Message, cfg.BusCapacity), types.NewLogger(), tel)
	bus.Run(ctx, &wg)

	flightDone := startController(ctx, g, cfg, v, credentials, bus, tel)

	// wait for termination, or for landing when simulating
	select {
	case <-ctx.Done():
	case <-flightDone:
		if !*sitl {
			<-ctx.Done()
		}
	}
	// cancel the main context
	quitFunc()
	// wait until goroutines have done their cleanup
	log.Printf("Waiting for routines to finish..")
	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Printf("WARNING: %v", err)
	}
	wg.Wait()
	log.Printf("Signing off - BYE")
}

// startTelemetry publishes to the log until the broker connection is up.
// The connection is made inside g so an unreachable broker never holds up
// the flight.
func startTelemetry(ctx context.Context, g *errgroup.Group, cfg config.Config, credentials *credential.Manager, online bool) *telemetry.Telemetry {
	tel := telemetry.New(telemetry.LogPublisher{}, cfg.DeviceID, cfg.MQTT.TelemetryPeriod)
	if online {
		g.Go(func() error {
			return telemetry.Attach(ctx, cfg.MQTTConfig(), credentials.MQTTPassword, tel)
		})
	}
	return tel
}

// startController runs the flight lifecycle in g. The returned channel is
// closed when the lifecycle ends.
func startController(ctx context.Context, g *errgroup.Group, cfg config.Config, v vehicle.Vehicle, credentials *credential.Manager, bus *types.MessageBus, tel *telemetry.Telemetry) <-chan struct{} {
	c := controller.New(controller.Options{
		Config:      cfg,
		Vehicle:     v,
		Credentials: credentials,
		Transport:   groundcontrol.NewHTTPTransport(cfg.Server, cfg.RequestTimeout),
		Post:        bus.Post,
		OnFlight: func(s *flight.State) {
			tel.SetSource(s.Snapshot)
		},
	})

	flightDone := make(chan struct{})
	g.Go(func() error {
		defer close(flightDone)
		if err := c.Run(ctx); err != nil {
			return err
		}
		log.Printf("Flight finished")
		return nil
	})
	return flightDone
}

func applyFlags(cfg *config.Config) {
	if *deviceID != "" {
		cfg.DeviceID = *deviceID
	}
	if *mqttBrokerAddress != "" {
		cfg.MQTT.Broker = *mqttBrokerAddress
	}
	if *privateKeyPath != "" {
		cfg.Keys.Board = *privateKeyPath
	}
	if *serverKeyPath != "" {
		cfg.Keys.Server = *serverKeyPath
	}
	if *serverAddress != "" {
		cfg.Server = *serverAddress
	}
}

// setupLogging mirrors the log to a rotating file when one is configured.
func setupLogging(cfg config.Log) {
	if cfg.File == "" {
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}))
}
