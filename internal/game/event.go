package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeMatchStart
	EventTypeDamage
	EventTypeElimination
	EventTypeWave
	EventTypeMatchEnd
	EventTypeBlockPlaced
	EventTypeBlockDestroyed
	EventTypePickup
)

// EventVersion for backwards compatibility of the JSONL history
const EventVersion uint8 = 1

// Event is the core event structure for the event log
type Event struct {
	Version   uint8           `json:"version"`
	Type      EventType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`  // Monotonic sequence, assigned by the log
	TickNum   uint64          `json:"tickNum"`
	MatchID   string          `json:"matchId"`
	SourceID  string          `json:"sourceId"` // Originating entity (for rate limiting)
	Payload   json.RawMessage `json:"payload"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeMatchStart:
		return "match_start"
	case EventTypeDamage:
		return "damage"
	case EventTypeElimination:
		return "elimination"
	case EventTypeWave:
		return "wave"
	case EventTypeMatchEnd:
		return "match_end"
	case EventTypeBlockPlaced:
		return "block_placed"
	case EventTypeBlockDestroyed:
		return "block_destroyed"
	case EventTypePickup:
		return "pickup"
	default:
		return "unknown"
	}
}

// MarshalText writes the event type by name so the history stays readable
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Typed payloads for different event types

// MatchStartPayload describes a freshly created match
type MatchStartPayload struct {
	WorldSize   int     `json:"worldSize"`
	WorldHeight int     `json:"worldHeight"`
	Opponents   int     `json:"opponents"`
	SpawnX      float64 `json:"spawnX"`
	SpawnY      float64 `json:"spawnY"`
	SpawnZ      float64 `json:"spawnZ"`
}

// DamagePayload contains damage event details
type DamagePayload struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	Amount    float64 `json:"amount"`
	Remaining float64 `json:"remaining"`
	Shield    float64 `json:"shield,omitempty"`
	Weapon    string  `json:"weapon,omitempty"`
}

// EliminationPayload contains elimination details
type EliminationPayload struct {
	OpponentID int     `json:"opponentId"`
	Kills      int     `json:"kills"`
	Remaining  int     `json:"remaining"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
}

// WavePayload contains wave spawn details
type WavePayload struct {
	Wave      int `json:"wave"`
	Opponents int `json:"opponents"`
}

// MatchEndPayload contains the final result of a match
type MatchEndPayload struct {
	Won      bool    `json:"won"`
	Score    int     `json:"score"`
	Kills    int     `json:"kills"`
	Wave     int     `json:"wave"`
	Duration float64 `json:"duration"` // Match seconds
}

// BlockPayload contains block edit details
type BlockPayload struct {
	Source string `json:"source"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Z      int    `json:"z"`
	Block  string `json:"block"`
	Count  int    `json:"count"`
}

// PickupPayload contains item pickup details
type PickupPayload struct {
	Kind   string `json:"kind"`
	Amount int    `json:"amount"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, matchID, sourceID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		MatchID:   matchID,
		SourceID:  sourceID,
		Payload:   EncodePayload(payload),
	}
}

// EventSink receives match events. Implementations must not block.
type EventSink interface {
	Emit(event Event) bool
}
