package crdt

import (
	"sort"
	"time"
)

// MergeField выбирает итоговое значение поля при слиянии двух реплик.
//
// Правило (Last-Write-Wins с запасным вариантом по заполненности):
//   - если обе метки времени заданы, побеждает remote только при remoteTs > localTs,
//     при равенстве сохраняется local;
//   - иначе берется непустое значение, при двух непустых - local.
//
// Пустое значение никогда не затирает непустое без метки времени в его пользу.
func MergeField(local, remote string, localTs, remoteTs time.Time) string {
	if !localTs.IsZero() && !remoteTs.IsZero() {
		if remoteTs.After(localTs) {
			return remote
		}
		return local
	}

	if local != "" {
		return local
	}
	return remote
}

// MergeRecord применяет MergeField к каждому полю из fields, присутствующему в remote.
// Поля, отсутствующие в remote, не несут информации и не меняются.
// Возвращает только изменившиеся поля; пустая map означает, что запись не меняется.
func MergeRecord(fields []string, local, remote map[string]string, localTs, remoteTs time.Time) map[string]string {
	changes := make(map[string]string)
	for _, name := range fields {
		rv, ok := remote[name]
		if !ok {
			continue
		}
		lv := local[name]
		if merged := MergeField(lv, rv, localTs, remoteTs); merged != lv {
			changes[name] = merged
		}
	}
	return changes
}

// ConflictKind классифицирует расхождение одного поля.
type ConflictKind string

const (
	// RemoteOnly значение есть только во входящей записи
	RemoteOnly ConflictKind = "remote_only"
	// LocalOnly значение есть только в локальной записи
	LocalOnly ConflictKind = "local_only"
	// BothModified обе стороны заполнены и различаются
	BothModified ConflictKind = "both_modified"
)

// Conflict описывает расхождение одного поля между репликами.
type Conflict struct {
	Key    string
	Kind   ConflictKind
	Local  string
	Remote string
}

// DetectConflicts сравнивает две версии записи по объединению ключей.
// Пустое значение считается отсутствующим, совпадающие ключи не попадают в результат.
// Только для диагностики, на результат слияния не влияет.
func DetectConflicts(local, remote map[string]string) []Conflict {
	keys := make(map[string]struct{}, len(local)+len(remote))
	for k := range local {
		keys[k] = struct{}{}
	}
	for k := range remote {
		keys[k] = struct{}{}
	}

	conflicts := make([]Conflict, 0)
	for k := range keys {
		lv, rv := local[k], remote[k]
		switch {
		case lv == rv:
			continue
		case lv == "":
			conflicts = append(conflicts, Conflict{Key: k, Kind: RemoteOnly, Remote: rv})
		case rv == "":
			conflicts = append(conflicts, Conflict{Key: k, Kind: LocalOnly, Local: lv})
		default:
			conflicts = append(conflicts, Conflict{Key: k, Kind: BothModified, Local: lv, Remote: rv})
		}
	}

	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Key < conflicts[j].Key })
	return conflicts
}
