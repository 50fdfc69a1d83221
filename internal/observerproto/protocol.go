// Package observerproto defines the read-only spectator protocol: an HTTP bootstrap
// document and a websocket stream of round messages.
package observerproto

import (
	"councilofbots.ai/internal/sim/council"
	"councilofbots.ai/internal/sim/event"
	"councilofbots.ai/internal/sim/scoring"
)

// Version is the observer protocol version.
const Version = "1"

const (
	TypeSubscribe = "SUBSCRIBE"
	TypeRound     = "ROUND"
	TypeReport    = "REPORT"
)

// Client -> Server. Must be the first message on the websocket.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// FromRound replays recorded rounds >= FromRound before live ones. Zero means all.
	FromRound int `json:"from_round,omitempty"`
}

// HTTP response for GET /v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string       `json:"protocol_version"`
	RunID           string       `json:"run_id"`
	Seed            uint64       `json:"seed"`
	Rounds          int          `json:"rounds"`
	Round           int          `json:"round"`
	CatalogDigest   string       `json:"catalog_digest"`
	Members         []MemberInfo `json:"members"`
	Finished        bool         `json:"finished"`
}

type MemberInfo struct {
	Name      string            `json:"name"`
	Expertise []event.Expertise `json:"expertise"`
}

// Server -> Client. Sent once per completed round.
type RoundMsg struct {
	Type            string               `json:"type"`
	ProtocolVersion string               `json:"protocol_version"`
	RunID           string               `json:"run_id"`
	Record          *council.RoundRecord `json:"record"`
}

// Server -> Client. Sent once when the run ends.
type ReportMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	RunID           string         `json:"run_id"`
	Report          scoring.Report `json:"report"`
}
