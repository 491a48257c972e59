package telemetry

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tiiuae/flightcontroller/internal/types"
)

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	mu  sync.Mutex
	out []published
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	p.mu.Lock()
	p.out = append(p.out, published{topic, payload})
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var topics []string
	for _, o := range p.out {
		topics = append(topics, o.topic)
	}
	return topics
}

func (p *fakePublisher) count(topic string) int {
	n := 0
	for _, t := range p.topics() {
		if t == topic {
			n++
		}
	}
	return n
}

func TestClientID(t *testing.T) {
	cfg := MQTTConfig{ProjectID: "p", Region: "r", RegistryID: "reg", DeviceID: "d1"}
	if id := cfg.ClientID(); id != "projects/p/locations/r/registries/reg/devices/d1" {
		t.Errorf("got %s", id)
	}
}

func TestSnapshotsOnlyOnChange(t *testing.T) {
	p := &fakePublisher{}
	tel := New(p, "d1", time.Millisecond)

	tel.publishSnapshot()
	if len(p.topics()) != 0 {
		t.Fatalf("published without a source: %v", p.topics())
	}

	snapshot := types.Snapshot{Position: types.GlobalPosition{Lat: 60, Lon: 24, Alt: 1}, Prev: 0, Next: 1}
	tel.SetSource(func() types.Snapshot { return snapshot })
	tel.publishSnapshot()
	tel.publishSnapshot()
	if n := p.count("/devices/d1/events/telemetry"); n != 1 {
		t.Fatalf("got %d telemetry messages, expected 1", n)
	}

	snapshot.Next = 2
	tel.publishSnapshot()
	if n := p.count("/devices/d1/events/telemetry"); n != 2 {
		t.Fatalf("got %d telemetry messages, expected 2", n)
	}

	var payload struct {
		MessageID string
		Lat       float64
		Next      int
	}
	if err := json.Unmarshal(p.out[1].payload, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Next != 2 || payload.Lat != 60 || payload.MessageID == "" {
		t.Errorf("got %+v", payload)
	}
}

func TestEventsAreForwarded(t *testing.T) {
	p := &fakePublisher{}
	tel := New(p, "d1", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	tel.Run(ctx, &wg, func(types.Message) {})

	tel.Receive(types.CreateMessage(types.MessageTypePosition, "flight", "*", types.GlobalPosition{}))
	tel.Receive(types.CreateMessage(types.MessageTypeTrust, "controller", "*", types.Trust{PublicKey: "ssh-rsa AAAA"}))

	deadline := time.Now().Add(time.Second)
	for len(p.topics()) < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	wg.Wait()

	topics := p.topics()
	if len(topics) != 2 || topics[0] != "/devices/d1/state" || topics[1] != "/devices/d1/events/trust" {
		t.Fatalf("got %v", topics)
	}
	if !strings.Contains(string(p.out[1].payload), "ssh-rsa AAAA") {
		t.Errorf("got payload %s", p.out[1].payload)
	}
}

func TestAttachKeepsFallbackWhileBrokerIsDown(t *testing.T) {
	fallback := &fakePublisher{}
	tel := New(fallback, "d1", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	tel.Run(ctx, &wg, func(types.Message) {})

	cfg := MQTTConfig{
		Broker:         "tcp://127.0.0.1:1",
		DeviceID:       "d1",
		ConnectTimeout: 50 * time.Millisecond,
		PublishTimeout: 50 * time.Millisecond,
	}
	attached := make(chan error)
	go func() {
		attached <- Attach(ctx, cfg, func(string, time.Time, time.Duration) (string, error) { return "token", nil }, tel)
	}()

	tel.Receive(types.CreateMessage(types.MessageTypeStage, "controller", "*", types.Stage{Name: "arming"}))
	deadline := time.Now().Add(time.Second)
	for fallback.count("/devices/d1/events/stage") == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if fallback.count("/devices/d1/events/stage") != 1 {
		t.Errorf("got %v, expected the stage event on the fallback", fallback.topics())
	}

	cancel()
	select {
	case err := <-attached:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Attach did not return after cancel")
	}
	wg.Wait()
}

func TestSetPublisherSwitchesDestination(t *testing.T) {
	first, second := &fakePublisher{}, &fakePublisher{}
	tel := New(first, "d1", time.Hour)

	tel.publishDeviceState()
	tel.SetPublisher(second)
	tel.publishDeviceState()

	if first.count("/devices/d1/state") != 1 || second.count("/devices/d1/state") != 1 {
		t.Errorf("got %v and %v", first.topics(), second.topics())
	}
}
