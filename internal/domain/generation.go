package domain

import (
	"time"

	"kfashion/pkg/dataurl"
)

// GenerationResult is one generated image together with the prompt that
// produced it. Values are never mutated once created.
type GenerationResult struct {
	Image     dataurl.DataURL
	Prompt    string
	CreatedAt time.Time
	Mode      Mode
}

// HistoryEntry is a GenerationResult keyed by its millisecond stamp. Stamps
// are unique within a session.
type HistoryEntry struct {
	Stamp int64
	GenerationResult
}
