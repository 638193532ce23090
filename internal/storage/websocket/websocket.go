package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dronemap/footprints/internal/storage/geojson"
	"github.com/dronemap/footprints/pkg/core"
	"github.com/dronemap/footprints/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL      string
	Secret   string
	RunStart time.Time
}

// Backend streams footprints over WebSocket to a live map viewer.
// Shoot boundaries are acknowledged by the server; features are fire-and-forget.
type Backend struct {
	link   *link
	cfg    Config
	logger *slog.Logger

	mu         sync.Mutex
	shoot      string
	images     int
	footprints int
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		link:   newLink(cfg.URL, cfg.Secret, logger),
		cfg:    cfg,
		logger: logger,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.link.open()
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	b.link.shutdown()
	if n := b.link.droppedFrames(); n > 0 {
		b.logger.Warn("Viewer missed features", "dropped", n)
	}
	return nil
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// StartShoot sends the shoot and waits for server ack.
func (b *Backend) StartShoot(s *core.Shoot) error {
	data, err := marshalEnvelope(streaming.TypeStartShoot, streaming.StartShootPayload{Shoot: s, RunStart: b.cfg.RunStart})
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.shoot = s.RelDir
	b.images = 0
	b.footprints = 0
	b.mu.Unlock()

	b.link.setHeader(data)
	return b.link.request(data, streaming.TypeStartShoot, ackTimeout)
}

// RecordFeature sends one GeoJSON feature without waiting.
func (b *Backend) RecordFeature(f *core.Feature) error {
	feature, err := geojson.NewFeature(f)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(feature)
	if err != nil {
		return fmt.Errorf("marshal feature %s: %w", f.Record.RelPath, err)
	}

	b.mu.Lock()
	shoot := b.shoot
	b.images++
	if f.Footprint.OK() {
		b.footprints++
	}
	b.mu.Unlock()

	data, err := marshalEnvelope(streaming.TypeFeature, streaming.FeaturePayload{Shoot: shoot, Feature: raw})
	if err != nil {
		return err
	}
	b.link.push(data)
	return nil
}

// EndShoot sends end_shoot with the shoot totals and waits for server ack.
func (b *Backend) EndShoot() error {
	b.mu.Lock()
	payload := streaming.EndShootPayload{Shoot: b.shoot, Images: b.images, Footprints: b.footprints}
	b.mu.Unlock()

	data, err := marshalEnvelope(streaming.TypeEndShoot, payload)
	if err != nil {
		return err
	}
	err = b.link.request(data, streaming.TypeEndShoot, ackTimeout)
	b.link.setHeader(nil)
	return err
}
