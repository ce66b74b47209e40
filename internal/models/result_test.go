package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconciliationResult(t *testing.T) {
	r := NewReconciliationResult()
	r.BundleID = "01J"
	r.Scope = ScopePeriod(2)

	r.Stats(Membership).Deleted++
	r.Stats(Session).Added += 2
	r.Stats(AttendanceMark).Deleted += 3
	r.Stats(Session).Updated++

	assert.Equal(t, TypeStats{Added: 2, Updated: 1, Deleted: 4}, r.Totals())
	assert.Equal(t, []EntityType{Session, Membership, AttendanceMark}, r.Types())

	r.AddError(NewRowError(ErrReferentialGap, "sessions", 4, "group_id %d not found", 9))
	assert.Len(t, r.RowErrors, 1)
	assert.Equal(t, []string{"sessions line 4: referential gap: group_id 9 not found"}, r.Errors)

	entry := NewImportEntry(r, "office", time.Unix(0, 0))
	assert.Equal(t, "period:2", entry.Scope)
	assert.Equal(t, TypeStats{Added: 2, Updated: 1}, entry.Stats["session"])
	assert.Equal(t, r.Errors, entry.Errors)
}

func TestRowError(t *testing.T) {
	e := NewRowError(ErrIntegrityRisk, "persons", 3, "uid mismatch")
	e.Key = "id=5"

	assert.True(t, errors.Is(e, ErrIntegrityRisk))
	assert.False(t, errors.Is(e, ErrArchive))
	assert.Equal(t, "integrity_risk", e.KindLabel())
	assert.Contains(t, e.Error(), "[id=5]")

	var target *RowError
	assert.True(t, errors.As(error(e), &target))
}
