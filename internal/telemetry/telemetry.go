package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	uuid "github.com/google/uuid"
	"github.com/tiiuae/flightcontroller/internal/types"
)

type telemetry struct {
	Timestamp int64
	MessageID string

	Lat    float64
	Lon    float64
	Alt    float64
	Prev   int
	Next   int
	Paused bool
}

type deviceState struct {
	StartedAt time.Time `json:"started_at"`
	Message   string    `json:"message"`
}

// SnapshotFn reads the current flight snapshot.
type SnapshotFn func() types.Snapshot

// Telemetry publishes flight snapshots at a fixed rate and forwards bus
// events to MQTT. It is a bus receiver.
type Telemetry struct {
	deviceID string
	period   time.Duration
	inbox    chan types.Message

	mu        sync.Mutex
	publisher Publisher
	source    SnapshotFn
	last      types.Snapshot
	sentOnce  bool
}

func New(publisher Publisher, deviceID string, period time.Duration) *Telemetry {
	return &Telemetry{
		publisher: publisher,
		deviceID:  deviceID,
		period:    period,
		inbox:     make(chan types.Message, 32),
	}
}

// SetSource starts periodic telemetry from fn. Until a source is set only
// events are published.
func (t *Telemetry) SetSource(fn SnapshotFn) {
	t.mu.Lock()
	t.source = fn
	t.sentOnce = false
	t.mu.Unlock()
}

// SetPublisher switches where telemetry goes, e.g. once the broker
// connection is up.
func (t *Telemetry) SetPublisher(p Publisher) {
	t.mu.Lock()
	t.publisher = p
	t.mu.Unlock()
}

func (t *Telemetry) publish(topic string, payload []byte) error {
	t.mu.Lock()
	p := t.publisher
	t.mu.Unlock()
	return p.Publish(topic, payload)
}

func (t *Telemetry) topic(subfolder string) string {
	return fmt.Sprintf("/devices/%s/%s", t.deviceID, subfolder)
}

func (t *Telemetry) Receive(message types.Message) {
	if message.MessageType == types.MessageTypePosition {
		return
	}
	select {
	case t.inbox <- message:
	default:
		log.Printf("WARNING: Telemetry inbox full, dropped %s", message.MessageType)
	}
}

func (t *Telemetry) Run(ctx context.Context, wg *sync.WaitGroup, post types.PostFn) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		t.publishDeviceState()
		t.run(ctx)
	}()
}

// loop to send telemetry 10/s
func (t *Telemetry) run(ctx context.Context) {
	ticker := time.NewTicker(t.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-t.inbox:
			t.publishEvent(msg)
		case <-ticker.C:
			t.publishSnapshot()
		}
	}
}

func (t *Telemetry) publishDeviceState() {
	b, _ := json.Marshal(deviceState{
		StartedAt: time.Now().UTC(),
		Message:   "flight controller started",
	})
	if err := t.publish(t.topic("state"), b); err != nil {
		log.Printf("WARNING: Could not publish device state: %v", err)
	}
}

func (t *Telemetry) publishEvent(msg types.Message) {
	b, err := msg.ToJSON()
	if err != nil {
		log.Printf("WARNING: Could not marshal %s: %v", msg.MessageType, err)
		return
	}
	if err := t.publish(t.topic("events/"+msg.MessageType), b); err != nil {
		log.Printf("WARNING: Could not publish %s: %v", msg.MessageType, err)
	}
}

func (t *Telemetry) publishSnapshot() {
	t.mu.Lock()
	source := t.source
	t.mu.Unlock()
	if source == nil {
		return
	}
	snapshot := source()

	t.mu.Lock()
	if t.sentOnce && snapshot == t.last {
		// there's no new data to send
		t.mu.Unlock()
		return
	}
	t.last = snapshot
	t.sentOnce = true
	t.mu.Unlock()

	b, _ := json.Marshal(telemetry{
		Timestamp: time.Now().UnixNano() / 1000,
		MessageID: uuid.New().String(),
		Lat:       snapshot.Position.Lat,
		Lon:       snapshot.Position.Lon,
		Alt:       snapshot.Position.Alt,
		Prev:      snapshot.Prev,
		Next:      snapshot.Next,
		Paused:    snapshot.Paused,
	})
	if err := t.publish(t.topic("events/telemetry"), b); err != nil {
		log.Printf("WARNING: Could not publish telemetry: %v", err)
	}
}
