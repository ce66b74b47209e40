package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ScopeKind selects the boundary of an export.
type ScopeKind string

const (
	ScopeKindAll    ScopeKind = "all"
	ScopeKindPeriod ScopeKind = "period"
	ScopeKindGroup  ScopeKind = "group"
)

// SyncScope is the explicit boundary of one export or import.
type SyncScope struct {
	Kind ScopeKind
	ID   int64
}

// ScopeAll covers every row of every entity type.
func ScopeAll() SyncScope {
	return SyncScope{Kind: ScopeKindAll}
}

// ScopePeriod covers the reference tables and everything attached to the groups of one period.
func ScopePeriod(periodID int64) SyncScope {
	return SyncScope{Kind: ScopeKindPeriod, ID: periodID}
}

// ScopeGroup covers the attendance and payments of one group. It never ships rosters.
func ScopeGroup(groupID int64) SyncScope {
	return SyncScope{Kind: ScopeKindGroup, ID: groupID}
}

// ParseScope parses "all", "period:<id>" or "group:<id>".
func ParseScope(s string) (SyncScope, error) {
	s = strings.TrimSpace(s)
	if s == string(ScopeKindAll) {
		return ScopeAll(), nil
	}

	kind, rawID, ok := strings.Cut(s, ":")
	if !ok {
		return SyncScope{}, fmt.Errorf("invalid scope %q: expected all, period:<id> or group:<id>", s)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return SyncScope{}, fmt.Errorf("invalid scope %q: bad id", s)
	}

	switch ScopeKind(kind) {
	case ScopeKindPeriod:
		return ScopePeriod(id), nil
	case ScopeKindGroup:
		return ScopeGroup(id), nil
	}
	return SyncScope{}, fmt.Errorf("invalid scope %q: unknown kind %q", s, kind)
}

// String returns the text form accepted by ParseScope.
func (s SyncScope) String() string {
	if s.Kind == ScopeKindAll {
		return string(ScopeKindAll)
	}
	return fmt.Sprintf("%s:%d", s.Kind, s.ID)
}

// Full reports whether exports of this scope carry rosters and may drive deletions.
func (s SyncScope) Full() bool {
	return s.Kind == ScopeKindAll || s.Kind == ScopeKindPeriod
}
