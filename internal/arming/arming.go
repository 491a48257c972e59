package arming

import (
	"context"
	"log"
	"time"

	"github.com/tiiuae/flightcontroller/internal/groundcontrol"
	"github.com/tiiuae/flightcontroller/internal/retry"
	"github.com/tiiuae/flightcontroller/internal/vehicle"
)

type State int

const (
	AwaitArmRequest State = iota
	RequestPermission
	Permitted
	Forbidden
)

func (s State) String() string {
	switch s {
	case AwaitArmRequest:
		return "AwaitArmRequest"
	case RequestPermission:
		return "RequestPermission"
	case Permitted:
		return "Permitted"
	case Forbidden:
		return "Forbidden"
	}
	return "Unknown"
}

// Requester asks ground control for arm permission.
type Requester interface {
	RequestArm(ctx context.Context) (string, error)
}

// Negotiator waits for the autopilot to ask for arming and lets ground
// control decide. Arming is granted at most once.
type Negotiator struct {
	requester  Requester
	autopilot  vehicle.Autopilot
	periphery  vehicle.Periphery
	retryDelay time.Duration
	notify     func(State)
}

func New(requester Requester, autopilot vehicle.Autopilot, periphery vehicle.Periphery, retryDelay time.Duration) *Negotiator {
	return &Negotiator{requester, autopilot, periphery, retryDelay, func(State) {}}
}

// OnTransition registers fn to be called on every state change.
func (n *Negotiator) OnTransition(fn func(State)) {
	n.notify = fn
}

// Run returns nil once arming has been permitted and carried out.
func (n *Negotiator) Run(ctx context.Context) error {
	state := AwaitArmRequest
	for state != Permitted {
		next, err := n.step(ctx, state)
		if err != nil {
			return err
		}
		if next != state {
			n.notify(next)
		}
		state = next
	}
	return n.permit(ctx)
}

func (n *Negotiator) permit(ctx context.Context) error {
	log.Printf("Arm is permitted")
	err := retry.Forever(ctx, n.retryDelay, "permit motor usage at Periphery", func() error {
		return n.periphery.SetKillSwitch(ctx, true)
	})
	if err != nil {
		return err
	}
	if err := n.autopilot.PermitArm(ctx); err != nil {
		log.Printf("WARNING: Failed to permit arm through Autopilot: %v", err)
	}
	return nil
}

func (n *Negotiator) step(ctx context.Context, state State) (State, error) {
	switch state {
	case AwaitArmRequest:
		err := retry.Forever(ctx, n.retryDelay, "receive an arm request from Autopilot", func() error {
			return n.autopilot.WaitForArmRequest(ctx)
		})
		if err != nil {
			return state, err
		}
		log.Printf("Received arm request. Notifying the server")
		return RequestPermission, nil

	case RequestPermission:
		response, err := n.requester.RequestArm(ctx)
		if err != nil {
			return state, err
		}
		next := Decide(response)
		if next == AwaitArmRequest {
			log.Printf("WARNING: Failed to parse arm response %q. Waiting for another arm request", response)
		}
		return next, nil

	case Forbidden:
		log.Printf("Arm is forbidden")
		if err := n.autopilot.ForbidArm(ctx); err != nil {
			log.Printf("WARNING: Failed to forbid arm through Autopilot: %v", err)
		}
		log.Printf("WARNING: Arm was not allowed. Waiting for another arm request")
		return AwaitArmRequest, nil
	}

	return state, nil
}

// Decide maps an arm response to the state it leads to.
func Decide(response string) State {
	switch groundcontrol.Decide(response) {
	case groundcontrol.DecisionPermit:
		return Permitted
	case groundcontrol.DecisionForbid:
		return Forbidden
	}
	return AwaitArmRequest
}
