package groundcontrol

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/tiiuae/flightcontroller/internal/mission"
	"github.com/tiiuae/flightcontroller/internal/retry"
)

const (
	PathAuth      = "/api/auth"
	PathMission   = "/api/fmission_kos"
	PathArm       = "/api/arm"
	PathFlyAccept = "/api/fly_accept"
)

const (
	MarkerSuccess = "$Success#"
	MarkerPermit  = "$Arm: 0#"
	MarkerForbid  = "$Arm: 1#"
)

type Decision int

const (
	DecisionUnknown Decision = iota
	DecisionPermit
	DecisionForbid
)

func (d Decision) String() string {
	switch d {
	case DecisionPermit:
		return "permit"
	case DecisionForbid:
		return "forbid"
	}
	return "unknown"
}

// Decide classifies an arm or fly_accept response by its literal marker.
func Decide(response string) Decision {
	if strings.Contains(response, MarkerPermit) {
		return DecisionPermit
	}
	if strings.Contains(response, MarkerForbid) {
		return DecisionForbid
	}
	return DecisionUnknown
}

// API wraps the ground-control endpoints the flight controller uses.
type API struct {
	client            *Client
	requestRetryDelay time.Duration
}

func NewAPI(client *Client, requestRetryDelay time.Duration) *API {
	return &API{client, requestRetryDelay}
}

// Authenticate registers the board until ground control confirms it.
func (a *API) Authenticate(ctx context.Context) error {
	for {
		response, err := a.client.Send(ctx, PathAuth)
		if err != nil {
			return err
		}
		if strings.Contains(response, MarkerSuccess) {
			return nil
		}
		log.Printf("WARNING: Unexpected authentication response %q. Trying again in %v", response, a.requestRetryDelay)
		if err := retry.Sleep(ctx, a.requestRetryDelay); err != nil {
			return err
		}
	}
}

// FetchMission asks for the mission until a payload parses. A malformed
// mission restarts the whole request after the longer request delay.
func (a *API) FetchMission(ctx context.Context) (*mission.Mission, error) {
	for {
		response, err := a.client.Send(ctx, PathMission)
		if err != nil {
			return nil, err
		}
		m, err := mission.Parse(response)
		if err == nil {
			return m, nil
		}
		log.Printf("WARNING: Failed to parse mission: %v. Trying again in %v", err, a.requestRetryDelay)
		if err := retry.Sleep(ctx, a.requestRetryDelay); err != nil {
			return nil, err
		}
	}
}

func (a *API) RequestArm(ctx context.Context) (string, error) {
	return a.client.Send(ctx, PathArm)
}

func (a *API) RequestFly(ctx context.Context) (string, error) {
	return a.client.Send(ctx, PathFlyAccept)
}
