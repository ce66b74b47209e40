package crdt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var (
	t1 = time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	t2 = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
)

func TestMergeField(t *testing.T) {
	tests := []struct {
		localTs  time.Time
		remoteTs time.Time
		name     string
		local    string
		remote   string
		expected string
	}{
		{
			name:     "remote newer wins",
			local:    "a",
			remote:   "b",
			localTs:  t1,
			remoteTs: t2,
			expected: "b",
		},
		{
			name:     "local newer wins",
			local:    "a",
			remote:   "b",
			localTs:  t2,
			remoteTs: t1,
			expected: "a",
		},
		{
			name:     "equal timestamps keep local",
			local:    "a",
			remote:   "b",
			localTs:  t1,
			remoteTs: t1,
			expected: "a",
		},
		{
			name:     "newer empty remote clears field",
			local:    "a",
			remote:   "",
			localTs:  t1,
			remoteTs: t2,
			expected: "",
		},
		{
			name:     "no timestamps, local filled",
			local:    "a",
			remote:   "b",
			expected: "a",
		},
		{
			name:     "no timestamps, local empty",
			local:    "",
			remote:   "b",
			expected: "b",
		},
		{
			name:     "no timestamps, empty remote never clobbers",
			local:    "a",
			remote:   "",
			expected: "a",
		},
		{
			name:     "only remote timestamp falls back to fullness",
			local:    "a",
			remote:   "b",
			remoteTs: t2,
			expected: "a",
		},
		{
			name:     "only local timestamp, local empty",
			local:    "",
			remote:   "b",
			localTs:  t2,
			expected: "b",
		},
		{
			name:     "both empty",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeField(tt.local, tt.remote, tt.localTs, tt.remoteTs)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMergeField_Monotonic(t *testing.T) {
	// Результат слияния не зависит от порядка применения двух версий
	for _, pair := range [][2]string{{"a", "b"}, {"", "b"}, {"a", ""}} {
		ab := MergeField(pair[0], pair[1], t1, t2)
		ba := MergeField(pair[1], pair[0], t2, t1)
		assert.Equal(t, ab, ba)
	}
}

func TestMergeRecord(t *testing.T) {
	fields := []string{"id", "notes", "status", "phone"}
	local := map[string]string{"id": "7", "notes": "", "status": "scheduled", "phone": "555"}

	t.Run("older remote fills nothing when local has timestamp", func(t *testing.T) {
		remote := map[string]string{"id": "7", "notes": "hello", "status": "done"}
		changes := MergeRecord(fields, local, remote, t2, t1)
		assert.Empty(t, changes)
	})

	t.Run("newer remote overwrites present fields", func(t *testing.T) {
		remote := map[string]string{"id": "7", "notes": "hello", "status": "done"}
		changes := MergeRecord(fields, local, remote, t1, t2)
		assert.Equal(t, map[string]string{"notes": "hello", "status": "done"}, changes)
	})

	t.Run("absent remote column keeps local", func(t *testing.T) {
		remote := map[string]string{"id": "7", "status": "scheduled"}
		changes := MergeRecord(fields, local, remote, t1, t2)
		assert.NotContains(t, changes, "phone")
		assert.Empty(t, changes)
	})

	t.Run("legacy type fills only empty fields", func(t *testing.T) {
		remote := map[string]string{"id": "7", "notes": "hello", "status": "done", "phone": ""}
		changes := MergeRecord(fields, local, remote, time.Time{}, time.Time{})
		assert.Equal(t, map[string]string{"notes": "hello"}, changes)
	})
}

func TestDetectConflicts(t *testing.T) {
	local := map[string]string{"a": "1", "b": "2", "c": "", "d": "same"}
	remote := map[string]string{"b": "3", "c": "4", "d": "same", "e": ""}

	conflicts := DetectConflicts(local, remote)

	assert.Equal(t, []Conflict{
		{Key: "a", Kind: LocalOnly, Local: "1"},
		{Key: "b", Kind: BothModified, Local: "2", Remote: "3"},
		{Key: "c", Kind: RemoteOnly, Remote: "4"},
	}, conflicts)
}

func TestDetectConflicts_Equal(t *testing.T) {
	rec := map[string]string{"a": "1", "b": ""}
	assert.Empty(t, DetectConflicts(rec, rec))
	assert.Empty(t, DetectConflicts(nil, nil))
}
