// Package jsonrpc holds the wire contract shared by the state stream server and client.
package jsonrpc

import "encoding/json"

const (
	// Namespace is the namespace under which the pool API and its streams are registered.
	Namespace = "amm"
	// LedgerNamespace is the namespace of the token ledger API.
	LedgerNamespace = "ledger"

	StateStreamSubscriptionMethod = "subscribeStateStream"
	EventsSubscriptionMethod      = "subscribeEvents"
)

// Subscription event types.
const (
	EventTypeFull = "full"
	EventTypeDiff = "diff"
)

// SubscriptionEvent is the wrapper object sent on the state stream. Payload is
// an engine.State for "full" events and a differ.StateDiff for "diff" events.
type SubscriptionEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	SentAt  int64           `json:"sentAt"` // unix nanoseconds
}
