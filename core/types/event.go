package types

// Event represents a typed event emitted during state transitions. The
// attribute map carries every value an external indexer needs to rebuild
// ledger state from the event feed alone.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
