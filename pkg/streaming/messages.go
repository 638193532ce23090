package streaming

import (
	"encoding/json"
	"time"

	"github.com/dronemap/footprints/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartShoot = "start_shoot"
	TypeFeature    = "feature"
	TypeEndShoot   = "end_shoot"
	TypeAck        = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartShootPayload announces the shoot that following features belong to.
type StartShootPayload struct {
	Shoot    *core.Shoot `json:"shoot"`
	RunStart time.Time   `json:"runStart"`
}

// FeaturePayload carries one GeoJSON Feature of the current shoot.
type FeaturePayload struct {
	Shoot   string          `json:"shoot"`
	Feature json.RawMessage `json:"feature"`
}

// EndShootPayload closes a shoot with its totals.
type EndShootPayload struct {
	Shoot      string `json:"shoot"`
	Images     int    `json:"images"`
	Footprints int    `json:"footprints"`
}
