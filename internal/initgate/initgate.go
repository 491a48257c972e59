package initgate

import (
	"context"
	"log"
	"time"

	"github.com/tiiuae/flightcontroller/internal/retry"
	"github.com/tiiuae/flightcontroller/internal/vehicle"
)

// Component is one collaborator the controller waits for at start-up.
type Component struct {
	Channel string
	Label   string
	Probe   vehicle.Prober
}

// Gate probes its components one after another, in order.
type Gate struct {
	components []Component
	retryDelay time.Duration
}

func New(retryDelay time.Duration, components ...Component) *Gate {
	return &Gate{components, retryDelay}
}

// Standard returns the five collaborators in the order the controller
// expects them.
func Standard(periphery, autopilot, navigation, server, credential vehicle.Prober) []Component {
	return []Component{
		{"periphery_controller_connection", "PeripheryController", periphery},
		{"autopilot_connector_connection", "AutopilotConnector", autopilot},
		{"navigation_system_connection", "NavigationSystem", navigation},
		{"server_connector_connection", "ServerConnector", server},
		{"credential_manager_connection", "CredentialManager", credential},
	}
}

// Wait returns once every component reported ready, or when ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	for _, c := range g.components {
		c := c
		err := retry.Forever(ctx, g.retryDelay, "receive init message from "+c.Label, func() error {
			return c.Probe.Ready(ctx)
		})
		if err != nil {
			return err
		}
		log.Printf("%s is ready (%s)", c.Label, c.Channel)
	}
	return nil
}
