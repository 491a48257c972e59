package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/tiiuae/flightcontroller/internal/config"
	"github.com/tiiuae/flightcontroller/internal/credential"
	"github.com/tiiuae/flightcontroller/internal/geo"
	"github.com/tiiuae/flightcontroller/internal/groundcontrol"
	"github.com/tiiuae/flightcontroller/internal/mission"
	"github.com/tiiuae/flightcontroller/internal/vehicle"
	"golang.org/x/sync/errgroup"
)

type simulation struct {
	vehicle     *vehicle.Sim
	credentials *credential.Manager
}

// demoMission is a small square with a cargo drop, a speed change and an
// approach long enough for the corridor guard to engage.
func demoMission() (*mission.Mission, error) {
	home := geo.Position{Lat: 60.1699, Lon: 24.9384, Alt: 15}
	at := func(p geo.Position, north, east, alt float64) geo.Position {
		q := geo.Offset(p, north, east)
		q.Alt = alt
		return q
	}
	w1 := at(home, 0, 0, 1.5)
	w2 := at(w1, 20, 0, 1.5)
	w3 := at(w2, 0, 20, 1.5)
	w4 := at(w3, -20, 0, 1.5)
	w5 := at(w4, 0, -15, 1.5)
	land := at(w5, 0, -5, 0)

	return mission.New([]mission.Command{
		mission.Waypoint{Position: home},
		mission.Waypoint{Position: w1},
		mission.Waypoint{Position: w2},
		mission.ChangeSpeed{Value: 3},
		mission.Waypoint{Position: w3},
		mission.SetServo{Channel: 5, PWM: 1800},
		mission.Waypoint{Position: w4},
		mission.SetServo{Channel: 5, PWM: 1200},
		mission.Waypoint{Position: w5},
		mission.Land{Position: land},
	})
}

// startSITL generates throwaway keys, serves ground control on a local port
// and points cfg at it.
func startSITL(ctx context.Context, g *errgroup.Group, cfg *config.Config) (*simulation, error) {
	boardKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, errors.WithMessage(err, "Could not generate board key")
	}
	serverKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, errors.WithMessage(err, "Could not generate server key")
	}

	m, err := demoMission()
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, errors.WithMessage(err, "Could not listen")
	}
	server := &http.Server{Handler: groundcontrol.NewStub(serverKey, &boardKey.PublicKey, mission.Format(m))}
	g.Go(func() error {
		err := server.Serve(listener)
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		return server.Close()
	})
	cfg.Server = "http://" + listener.Addr().String()
	log.Printf("SITL: ground control stub at %s", cfg.Server)

	simCfg := vehicle.DefaultSimConfig()
	simCfg.PositionAltitudeScale = cfg.Flight.PositionAltitudeScale
	simCfg.CommandAltitudeScale = cfg.Flight.CommandAltitudeScale
	sim := vehicle.NewSim(simCfg, m.Home(), m.Route())
	g.Go(func() error {
		sim.Run(ctx, 50*time.Millisecond)
		return nil
	})

	return &simulation{sim, credential.New(boardKey, &serverKey.PublicKey)}, nil
}
