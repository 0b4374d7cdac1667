package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nerrad567/forestos-core/internal/auth"
	"github.com/nerrad567/forestos-core/internal/infrastructure/mqtt"
)

// handlerTimeout bounds the work done for one MQTT message.
const handlerTimeout = 10 * time.Second

// Subscriber is the part of the MQTT client the ingestor needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Authenticator checks device credentials presented in a message body.
type Authenticator interface {
	AuthenticateDevice(ctx context.Context, deviceID, token string) (*auth.Device, error)
}

// Message is the MQTT reading payload.
type Message struct {
	AuthToken string `json:"auth_token"`
	Submission
}

// Ingestor feeds MQTT readings into the Service.
type Ingestor struct {
	sub     Subscriber
	gate    Authenticator
	service *Service
	qos     byte
	logger  *slog.Logger
}

// NewIngestor creates an Ingestor.
func NewIngestor(sub Subscriber, gate Authenticator, service *Service, qos byte, logger *slog.Logger) *Ingestor {
	return &Ingestor{sub: sub, gate: gate, service: service, qos: qos, logger: logger}
}

// Start subscribes to every sensor's readings topic.
func (i *Ingestor) Start() error {
	topic := mqtt.Topics{}.AllSensorReadings()
	if err := i.sub.Subscribe(topic, i.qos, i.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	i.logger.Info("sensor ingest subscribed", "topic", topic)
	return nil
}

// Stop unsubscribes.
func (i *Ingestor) Stop() error {
	return i.sub.Unsubscribe(mqtt.Topics{}.AllSensorReadings())
}

// HandleMessage processes one reading message. Messages with bad
// credentials or bad payloads are dropped and logged; only storage
// failures are returned.
func (i *Ingestor) HandleMessage(topic string, payload []byte) error {
	deviceID, ok := mqtt.ParseSensorReadingsTopic(topic)
	if !ok {
		i.logger.Warn("ignoring message on unexpected topic", "topic", topic)
		return nil
	}

	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		i.logger.Warn("dropping malformed reading", "device_id", deviceID, "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	device, err := i.gate.AuthenticateDevice(ctx, deviceID, msg.AuthToken)
	if err != nil {
		if auth.KindOf(err) != 0 {
			i.logger.Warn("dropping reading with invalid device credentials", "device_id", deviceID)
			return nil
		}
		return fmt.Errorf("authenticating %s: %w", deviceID, err)
	}

	if _, err := i.service.Submit(ctx, device, msg.Submission); err != nil {
		if errors.Is(err, ErrInvalidReading) {
			i.logger.Warn("dropping invalid reading", "device_id", deviceID, "error", err)
			return nil
		}
		return err
	}
	return nil
}
