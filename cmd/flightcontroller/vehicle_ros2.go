//go:build ros2

package main

import (
	"context"
	"sync"

	"github.com/tiiuae/flightcontroller/internal/vehicle"
)

func newVehicle(ctx context.Context, wg *sync.WaitGroup, deviceID string) (vehicle.Vehicle, func(), error) {
	r, err := vehicle.NewROS2(ctx, wg, deviceID)
	if err != nil {
		return nil, nil, err
	}
	return r, r.Close, nil
}
