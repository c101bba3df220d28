package models

import "time"

// HistoryEntry is a previously generated case stored for the player. ID is assigned when the case is recorded.
type HistoryEntry struct {
	ID         string      `json:"id"`
	RecordedAt time.Time   `json:"recordedAt"`
	Details    CaseDetails `json:"details"`
}
