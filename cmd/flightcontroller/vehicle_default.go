//go:build !ros2

package main

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/tiiuae/flightcontroller/internal/vehicle"
)

func newVehicle(ctx context.Context, wg *sync.WaitGroup, deviceID string) (vehicle.Vehicle, func(), error) {
	return nil, nil, errors.New("built without ROS 2 support (build with -tags ros2), or run with -sitl")
}
