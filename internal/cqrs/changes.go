package cqrs

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/danghamo/twieo/internal/domain/run"
)

// StatsChanges returns the RFC 7386 merge patch turning prev into next.
// Unchanged stats give "{}".
func StatsChanges(prev, next run.Stats) (json.RawMessage, error) {
	before, err := json.Marshal(prev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal previous stats: %w", err)
	}
	after, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats: %w", err)
	}

	patch, err := jsonpatch.CreateMergePatch(before, after)
	if err != nil {
		return nil, fmt.Errorf("failed to create stats patch: %w", err)
	}
	return json.RawMessage(patch), nil
}

// ApplyStatsChanges applies a merge patch produced by StatsChanges
func ApplyStatsChanges(prev run.Stats, changes json.RawMessage) (run.Stats, error) {
	before, err := json.Marshal(prev)
	if err != nil {
		return run.Stats{}, fmt.Errorf("failed to marshal stats: %w", err)
	}

	merged, err := jsonpatch.MergePatch(before, changes)
	if err != nil {
		return run.Stats{}, fmt.Errorf("failed to apply stats patch: %w", err)
	}

	var next run.Stats
	if err := json.Unmarshal(merged, &next); err != nil {
		return run.Stats{}, fmt.Errorf("failed to unmarshal patched stats: %w", err)
	}
	return next, nil
}
