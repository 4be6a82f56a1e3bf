package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/CataIana/solismqtt/config"
	"github.com/CataIana/solismqtt/logger"
)

const (
	connectTimeout = 10 * time.Second
	// ackTimeout bounds the wait for the broker's delivery acknowledgement
	ackTimeout = 30 * time.Second
)

// ErrAckTimeout is returned when the broker does not acknowledge a publish
// within ackTimeout. The session stays usable; the transport keeps its own
// reconnect loop running in the background.
var ErrAckTimeout = errors.New("timed out waiting for publish acknowledgement")

// Notifier is told about every confirmed delivery. Used for the uptime
// heartbeat; its failures must never affect publish results.
type Notifier interface {
	Notify()
}

// Session owns one connection to the MQTT broker. It is created and held
// by a single control flow and replaced wholesale if connecting fails.
type Session struct {
	client   mqtt.Client
	config   config.MQTTConfig
	notifier Notifier
}

// NewSession creates a broker session with a randomized client identifier,
// so restarts never collide with the broker's previous session state.
// notifier may be nil.
func NewSession(cfg config.MQTTConfig, notifier Notifier) (*Session, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("MQTT broker address cannot be empty")
	}

	clientID := "solismqtt_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(clientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost: %v", err)
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		logger.Info("trying to reconnect to MQTT broker...")
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info("connected to MQTT broker: %s:%d", cfg.Broker, cfg.Port)
	})

	return &Session{
		client:   mqtt.NewClient(opts),
		config:   cfg,
		notifier: notifier,
	}, nil
}

// Connect establishes the broker session. A refused or timed-out connect
// is fatal to this session; the caller decides whether to build a new one.
func (s *Session) Connect() error {
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connection to MQTT broker timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("MQTT broker refused connection: %v", err)
	}
	return nil
}

// Publish sends one message and waits for the broker to acknowledge
// delivery. On confirmed delivery the notifier is pinged.
func (s *Session) Publish(topic string, payload []byte, retain bool) error {
	logger.Debug("publishing to %s (retain=%v): %s", topic, retain, payload)

	token := s.client.Publish(topic, 1, retain, payload)
	if !token.WaitTimeout(ackTimeout) {
		return ErrAckTimeout
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s failed: %v", topic, err)
	}

	if s.notifier != nil {
		s.notifier.Notify()
	}
	return nil
}

// Disconnect closes the broker session
func (s *Session) Disconnect() {
	s.client.Disconnect(250)
	logger.Info("disconnected from MQTT broker")
}
