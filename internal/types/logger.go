package types

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// logger writes bus events to the log. Position updates and in-corridor
// checks arrive several times a second and are not logged; safety-relevant
// events are logged as warnings.
type logger struct {
}

func NewLogger() MessageHandler {
	return &logger{}
}

func (l *logger) Receive(message Message) {
	switch payload := message.Message.(type) {
	case GlobalPosition:
		return
	case Stage:
		log.Printf("Stage: %s", payload.Name)
		return
	case CorridorCheck:
		if payload.Inside {
			return
		}
		log.Printf("WARNING: Corridor left on leg %d, %.2f m off track", payload.Leg, payload.Distance)
		return
	case AltitudeCorrection:
		log.Printf("WARNING: Altitude %.2f m corrected to %.2f m on leg %d", payload.Altitude, payload.Target, payload.Leg)
		return
	case FlyAccept:
		if payload.Paused {
			log.Printf("WARNING: Flight paused by ground control on leg %d", payload.Leg)
			return
		}
	case ArmState:
		if payload.State == "Forbidden" {
			log.Printf("WARNING: Arm forbidden by ground control")
			return
		}
	}

	b, _ := json.Marshal(message.Message)
	log.Printf("Event: %s (%s -> %s): %s", message.MessageType, message.From, message.To, string(b))
}

func (l *logger) Run(ctx context.Context, wg *sync.WaitGroup, post PostFn) {
}
