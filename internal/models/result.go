package models

import (
	"sort"
	"time"
)

// TypeStats counts the effect of one run on one entity type.
type TypeStats struct {
	Added   int `json:"added" msgpack:"added"`
	Updated int `json:"updated" msgpack:"updated"`
	Deleted int `json:"deleted" msgpack:"deleted"`
}

// Changed reports whether any counter is non-zero.
func (s TypeStats) Changed() bool {
	return s.Added+s.Updated+s.Deleted > 0
}

// ReconciliationResult is the structured report of one reconciliation run.
type ReconciliationResult struct {
	PerType       map[EntityType]*TypeStats
	BundleID      string
	SourceReplica string
	Scope         SyncScope
	RowErrors     []*RowError
	Errors        []string
	DryRun        bool
}

// NewReconciliationResult creates an empty result.
func NewReconciliationResult() *ReconciliationResult {
	return &ReconciliationResult{
		PerType: make(map[EntityType]*TypeStats),
	}
}

// Stats returns the counters of type t, creating them on first use.
func (r *ReconciliationResult) Stats(t EntityType) *TypeStats {
	s, ok := r.PerType[t]
	if !ok {
		s = &TypeStats{}
		r.PerType[t] = s
	}
	return s
}

// AddError records a row-level error.
func (r *ReconciliationResult) AddError(e *RowError) {
	r.RowErrors = append(r.RowErrors, e)
	r.Errors = append(r.Errors, e.Error())
}

// Totals sums the counters of every type.
func (r *ReconciliationResult) Totals() TypeStats {
	var t TypeStats
	for _, s := range r.PerType {
		t.Added += s.Added
		t.Updated += s.Updated
		t.Deleted += s.Deleted
	}
	return t
}

// Types returns the types present in the result in dependency order.
func (r *ReconciliationResult) Types() []EntityType {
	order := make(map[EntityType]int, len(registry))
	for i, s := range registry {
		order[s.Type] = i
	}

	types := make([]EntityType, 0, len(r.PerType))
	for t := range r.PerType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return order[types[i]] < order[types[j]] })
	return types
}

// ImportEntry is the journal record of one applied bundle.
type ImportEntry struct {
	AppliedAt     time.Time            `msgpack:"applied_at"`
	Stats         map[string]TypeStats `msgpack:"stats"`
	BundleID      string               `msgpack:"bundle_id"`
	SourceReplica string               `msgpack:"source_replica"`
	Scope         string               `msgpack:"scope"`
	Actor         string               `msgpack:"actor"`
	Errors        []string             `msgpack:"errors"`
}

// NewImportEntry builds the journal record of result.
func NewImportEntry(result *ReconciliationResult, actor string, appliedAt time.Time) *ImportEntry {
	stats := make(map[string]TypeStats, len(result.PerType))
	for t, s := range result.PerType {
		stats[string(t)] = *s
	}
	return &ImportEntry{
		AppliedAt:     appliedAt,
		Stats:         stats,
		BundleID:      result.BundleID,
		SourceReplica: result.SourceReplica,
		Scope:         result.Scope.String(),
		Actor:         actor,
		Errors:        append([]string(nil), result.Errors...),
	}
}
