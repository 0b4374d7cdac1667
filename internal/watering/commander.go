package watering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nerrad567/forestos-core/internal/infrastructure/database"
	"github.com/nerrad567/forestos-core/internal/infrastructure/mqtt"
)

// handlerTimeout bounds the work done for one status report.
const handlerTimeout = 10 * time.Second

// Broker is the part of the MQTT client the Commander needs.
type Broker interface {
	PublishJSON(topic string, v any) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// ReportHandler applies a status report for a plant.
type ReportHandler func(ctx context.Context, plantID int64, report StatusReport) error

// Commander talks to pump controllers over MQTT.
type Commander struct {
	broker Broker
	qos    byte
	logger *slog.Logger
	handle ReportHandler
}

// NewCommander creates a Commander.
func NewCommander(broker Broker, qos byte, logger *slog.Logger) *Commander {
	return &Commander{broker: broker, qos: qos, logger: logger}
}

// SendCommand publishes a watering command to the plant's command topic.
func (c *Commander) SendCommand(ev Event) error {
	topic := mqtt.Topics{}.WateringCommand(ev.PlantID)
	cmd := Command{EventID: ev.ID, PlantID: ev.PlantID, Trigger: ev.Trigger, WaterML: ev.WaterML}
	if err := c.broker.PublishJSON(topic, cmd); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	c.logger.Debug("watering command sent", "topic", topic, "event_id", ev.ID)
	return nil
}

// Start subscribes to every plant's status topic and passes reports to handle.
func (c *Commander) Start(handle ReportHandler) error {
	c.handle = handle
	topic := mqtt.Topics{}.AllWateringStatus()
	if err := c.broker.Subscribe(topic, c.qos, c.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	c.logger.Info("watering status subscribed", "topic", topic)
	return nil
}

// Stop unsubscribes.
func (c *Commander) Stop() error {
	return c.broker.Unsubscribe(mqtt.Topics{}.AllWateringStatus())
}

// HandleMessage processes one status report. Malformed, invalid or
// mismatched reports are dropped and logged; storage failures are returned.
func (c *Commander) HandleMessage(topic string, payload []byte) error {
	plantID, ok := mqtt.ParseWateringStatusTopic(topic)
	if !ok {
		c.logger.Warn("ignoring message on unexpected topic", "topic", topic)
		return nil
	}

	var report StatusReport
	if err := json.Unmarshal(payload, &report); err != nil {
		c.logger.Warn("dropping malformed watering status", "plant_id", plantID, "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := c.handle(ctx, plantID, report); err != nil {
		if errors.Is(err, database.ErrNotFound) || errors.Is(err, ErrInvalidEvent) {
			c.logger.Warn("dropping watering status", "plant_id", plantID, "event_id", report.EventID, "error", err)
			return nil
		}
		return err
	}
	return nil
}
