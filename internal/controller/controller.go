package controller

import (
	"context"
	"log"

	"github.com/tiiuae/flightcontroller/internal/arming"
	"github.com/tiiuae/flightcontroller/internal/config"
	"github.com/tiiuae/flightcontroller/internal/credential"
	"github.com/tiiuae/flightcontroller/internal/flight"
	"github.com/tiiuae/flightcontroller/internal/groundcontrol"
	"github.com/tiiuae/flightcontroller/internal/initgate"
	"github.com/tiiuae/flightcontroller/internal/types"
	"github.com/tiiuae/flightcontroller/internal/vehicle"
)

// ServerTransport reaches ground control and can tell whether it is reachable.
type ServerTransport interface {
	groundcontrol.Transport
	vehicle.Prober
}

// Options wires the controller to its collaborators.
type Options struct {
	Config      config.Config
	Vehicle     vehicle.Vehicle
	Credentials *credential.Manager
	Transport   ServerTransport
	// Post receives lifecycle and flight events. May be nil.
	Post types.PostFn
	// OnFlight is called with the flight state once the supervisor exists.
	OnFlight func(*flight.State)
}

// Controller runs a drone from power-on to landing.
type Controller struct {
	opts Options
	api  *groundcontrol.API
	post types.PostFn
}

func New(opts Options) *Controller {
	post := opts.Post
	if post == nil {
		post = func(types.Message) {}
	}
	if opts.OnFlight == nil {
		opts.OnFlight = func(*flight.State) {}
	}
	client := groundcontrol.NewClient(opts.Config.BoardID, opts.Credentials, opts.Transport, opts.Config.RetryDelay)
	return &Controller{
		opts: opts,
		api:  groundcontrol.NewAPI(client, opts.Config.RequestRetryDelay),
		post: post,
	}
}

func (c *Controller) stage(name string) {
	c.post(types.CreateMessage(types.MessageTypeStage, "controller", "*", types.Stage{Name: name}))
}

// Run returns nil once the flight has landed. Any error is the context's.
func (c *Controller) Run(ctx context.Context) error {
	cfg := c.opts.Config
	v := c.opts.Vehicle

	c.stage("initializing")
	gate := initgate.New(cfg.RetryDelay, initgate.Standard(v, v, v, c.opts.Transport, c.opts.Credentials)...)
	if err := gate.Wait(ctx); err != nil {
		return err
	}
	log.Printf("Initialization finished")

	if err := v.EnableBuzzer(ctx); err != nil {
		log.Printf("WARNING: Failed to enable buzzer at Periphery: %v", err)
	}

	c.publishTrust()

	c.stage("authenticating")
	if err := c.api.Authenticate(ctx); err != nil {
		return err
	}
	log.Printf("Successfully authenticated on the server")

	c.stage("fetching-mission")
	m, err := c.api.FetchMission(ctx)
	if err != nil {
		return err
	}
	log.Printf("Successfully received mission from the server")
	m.Print()
	c.post(types.CreateMessage(types.MessageTypeMission, "controller", "*", types.MissionLoaded{
		Commands:     m.Len(),
		LastWaypoint: m.LastWaypoint(),
	}))

	c.stage("arming")
	log.Printf("Ready to arm")
	negotiator := arming.New(c.api, v, v, cfg.RetryDelay)
	negotiator.OnTransition(func(s arming.State) {
		c.post(types.CreateMessage(types.MessageTypeArm, "controller", "*", types.ArmState{State: s.String()}))
	})
	if err := negotiator.Run(ctx); err != nil {
		return err
	}

	c.stage("flying")
	supervisor := flight.NewSupervisor(cfg.FlightConfig(), m, v, v, v, c.api, c.post)
	c.opts.OnFlight(supervisor.State())
	if err := supervisor.Run(ctx); err != nil {
		return err
	}

	c.stage("landing")
	return nil
}

func (c *Controller) publishTrust() {
	key, err := c.opts.Credentials.AuthorizedKey()
	if err != nil {
		log.Printf("WARNING: Could not publish trust: %v", err)
		return
	}
	fingerprint, err := c.opts.Credentials.Fingerprint()
	if err != nil {
		log.Printf("WARNING: Could not publish trust: %v", err)
		return
	}
	log.Printf("Board key %s", fingerprint)
	c.post(types.CreateMessage(types.MessageTypeTrust, "controller", "*", types.Trust{
		PublicKey:   key,
		Fingerprint: fingerprint,
	}))
}
