package telemetry

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
)

// MQTT parameters
const (
	QoS      = 1
	Retain   = false
	Username = "unused"
)

// Publisher delivers a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// MQTTConfig selects the broker and identity of the connection.
type MQTTConfig struct {
	Broker     string
	ProjectID  string
	Region     string
	RegistryID string
	DeviceID   string
	// TokenTTL is the lifetime of the JWT used as password.
	TokenTTL       time.Duration
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// ClientID is the device path the broker expects as client id.
func (c MQTTConfig) ClientID() string {
	return fmt.Sprintf(
		"projects/%s/locations/%s/registries/%s/devices/%s",
		c.ProjectID, c.Region, c.RegistryID, c.DeviceID)
}

// PasswordFn produces the MQTT password for a connection attempt.
type PasswordFn func(audience string, now time.Time, ttl time.Duration) (string, error)

// Connect dials the broker until it accepts the connection or ctx is done.
func Connect(ctx context.Context, cfg MQTTConfig, password PasswordFn) (mqtt.Client, error) {
	log.Printf("address: %v", cfg.Broker)
	log.Println("Client ID:", cfg.ClientID())

	pass, err := password(cfg.ProjectID, time.Now(), cfg.TokenTTL)
	if err != nil {
		return nil, errors.WithMessage(err, "Could not generate MQTT password")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID()).
		SetUsername(Username).
		SetPassword(pass).
		SetProtocolVersion(4) // Use MQTT 3.1.1
	if strings.HasPrefix(cfg.Broker, "ssl://") || strings.HasPrefix(cfg.Broker, "tls://") {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	client := mqtt.NewClient(opts)
	for {
		log.Printf("Connecting MQTT...")
		tok := client.Connect()
		if !tok.WaitTimeout(cfg.ConnectTimeout) {
			log.Println("WARNING: MQTT connection timeout")
		} else if err := tok.Error(); err != nil {
			log.Printf("WARNING: MQTT connection failed: %v", err)
		} else {
			log.Printf("..Connected")
			return client, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.ConnectTimeout):
		}
	}
}

// Attach connects to the broker in the background and routes tel through
// MQTT once connected. Until then tel keeps its current publisher. Attach
// disconnects and returns when ctx is done; a failed connection is logged and
// never reported as an error.
func Attach(ctx context.Context, cfg MQTTConfig, password PasswordFn, tel *Telemetry) error {
	client, err := Connect(ctx, cfg, password)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("WARNING: Telemetry stays offline: %v", err)
		}
		return nil
	}
	tel.SetPublisher(NewMQTTPublisher(client, cfg.PublishTimeout))
	log.Printf("Telemetry online")

	<-ctx.Done()
	tel.SetPublisher(LogPublisher{})
	client.Disconnect(1000)
	return nil
}

// MQTTPublisher publishes through a connected paho client.
type MQTTPublisher struct {
	client  mqtt.Client
	timeout time.Duration
}

func NewMQTTPublisher(client mqtt.Client, timeout time.Duration) *MQTTPublisher {
	return &MQTTPublisher{client, timeout}
}

func (p *MQTTPublisher) Publish(topic string, payload []byte) error {
	tok := p.client.Publish(topic, QoS, Retain, payload)
	if !tok.WaitTimeout(p.timeout) {
		return errors.Errorf("could not publish to %s within %v", topic, p.timeout)
	}
	return tok.Error()
}

// LogPublisher only logs what would be published. It is used when no broker
// is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(topic string, payload []byte) error {
	log.Printf("MQTT %s: %s", topic, payload)
	return nil
}
