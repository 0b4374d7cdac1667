package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/forestos-core/internal/auth"
	"github.com/nerrad567/forestos-core/internal/infrastructure/mqtt"
)

type fakeSubscriber struct {
	topics   map[string]mqtt.MessageHandler
	unsubbed []string
}

func (s *fakeSubscriber) Subscribe(topic string, _ byte, h mqtt.MessageHandler) error {
	if s.topics == nil {
		s.topics = map[string]mqtt.MessageHandler{}
	}
	s.topics[topic] = h
	return nil
}

func (s *fakeSubscriber) Unsubscribe(topic string) error {
	s.unsubbed = append(s.unsubbed, topic)
	return nil
}

func newTestIngestor(t *testing.T) (*fixture, *Ingestor, *Sensor) {
	t.Helper()
	f := newFixture(t)
	s := f.register(t, "ESP-001", &f.alicePlant)
	if _, err := f.repo.Update(t.Context(), s.ID, Patch{IsOnline: ptr(false)}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	gate := auth.NewGate(nil, nil, f.repo)
	svc := NewService(f.repo, nil, nil, discardLogger())
	return f, NewIngestor(&fakeSubscriber{}, gate, svc, 1, discardLogger()), s
}

func payload(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestIngestor_StartStop(t *testing.T) {
	sub := &fakeSubscriber{}
	in := NewIngestor(sub, nil, nil, 1, discardLogger())

	if err := in.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, ok := sub.topics["forestos/sensors/+/readings"]; !ok {
		t.Errorf("subscribed topics = %v", sub.topics)
	}
	if err := in.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if len(sub.unsubbed) != 1 {
		t.Errorf("unsubscribed = %v", sub.unsubbed)
	}
}

func TestIngestor_HandleMessage(t *testing.T) {
	f, in, s := newTestIngestor(t)
	topic := mqtt.Topics{}.SensorReadings(s.DeviceID)

	err := in.HandleMessage(topic, payload(t, map[string]any{
		"auth_token":       s.AuthToken,
		"moisture_percent": 41.5,
		"battery_level":    77,
		"timestamp":        time.Now().UTC().Add(-time.Minute).Format(time.RFC3339),
	}))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	latest, err := f.repo.LatestReading(t.Context(), s.ID)
	if err != nil {
		t.Fatalf("LatestReading() error = %v", err)
	}
	if latest.MoisturePct != 41.5 {
		t.Errorf("stored moisture = %v", latest.MoisturePct)
	}
	got, _ := f.repo.GetByDeviceID(t.Context(), s.DeviceID) //nolint:errcheck // fixture
	if !got.IsOnline || *got.BatteryLevel != 77 {
		t.Errorf("sensor online %v battery %v", got.IsOnline, *got.BatteryLevel)
	}
}

func TestIngestor_DropsBadMessages(t *testing.T) {
	f, in, s := newTestIngestor(t)
	topic := mqtt.Topics{}.SensorReadings(s.DeviceID)

	tests := []struct {
		name    string
		topic   string
		payload []byte
	}{
		{"wrong token", topic, payload(t, map[string]any{"auth_token": "nope", "moisture_percent": 40})},
		{"missing token", topic, payload(t, map[string]any{"moisture_percent": 40})},
		{"unknown device", mqtt.Topics{}.SensorReadings("GHOST"), payload(t, map[string]any{"auth_token": s.AuthToken, "moisture_percent": 40})},
		{"invalid reading", topic, payload(t, map[string]any{"auth_token": s.AuthToken, "moisture_percent": 400})},
		{"not json", topic, []byte("{")},
		{"bad topic", "forestos/sensors/readings", payload(t, map[string]any{"auth_token": s.AuthToken, "moisture_percent": 40})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := in.HandleMessage(tt.topic, tt.payload); err != nil {
				t.Errorf("HandleMessage() error = %v, want dropped", err)
			}
		})
	}

	n, err := f.repo.CountReadings(t.Context(), s.ID, time.Time{})
	if err != nil {
		t.Fatalf("CountReadings() error = %v", err)
	}
	if n != 0 {
		t.Errorf("%d readings stored from bad messages", n)
	}
	got, _ := f.repo.GetByDeviceID(t.Context(), s.DeviceID) //nolint:errcheck // fixture
	if got.IsOnline || got.LastSeen != nil {
		t.Errorf("sensor touched by bad messages: online %v last_seen %v", got.IsOnline, got.LastSeen)
	}
}

type failingDevices struct{}

func (failingDevices) GetCredentials(_ context.Context, _ string) (*auth.Device, error) {
	return nil, errors.New("disk I/O error")
}

func TestIngestor_StoreErrorReturned(t *testing.T) {
	gate := auth.NewGate(nil, nil, failingDevices{})
	in := NewIngestor(&fakeSubscriber{}, gate, nil, 1, discardLogger())

	err := in.HandleMessage(mqtt.Topics{}.SensorReadings("ESP-001"),
		payload(t, map[string]any{"auth_token": "t", "moisture_percent": 40}))
	if err == nil {
		t.Fatal("HandleMessage() error = nil, want store error")
	}
}
