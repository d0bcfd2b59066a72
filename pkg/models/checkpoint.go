package models

// SlotCheckpoint is the durable record of scheduler progress, serialized as
// a single JSON document per spec.md §3/§6.
type SlotCheckpoint struct {
	LastProcessedSlot   uint64 `json:"last_processed_slot"`
	Timestamp           uint64 `json:"timestamp"`
	TotalSlotsProcessed uint64 `json:"total_slots_processed"`
	TotalMatchesFound   uint64 `json:"total_matches_found"`
}

// SlotProcessingResult is the per-slot outcome produced by the concurrent
// slot processor (spec.md §4.5).
type SlotProcessingResult struct {
	Slot                uint64          `json:"slot"`
	MatchedTransactions []SlotMatch     `json:"matched_transactions"`
	Success             bool            `json:"success"`
	Error               string          `json:"error,omitempty"`
	ProcessingTimeMS    int64           `json:"processing_time_ms"`
}

// SlotMatch pairs one transaction's signature with the filters it matched
// (post-dedup), for surfacing in SlotProcessingResult.
type SlotMatch struct {
	Signature string          `json:"signature"`
	Matches   []MatchedFilter `json:"matches"`
}
