// Package versions keeps append-only snapshots of questions taken before each
// content-bearing mutation.
//
// Snapshots are taken for content edits and typesetting completion. Pure status flips
// (queueing, review hand-offs, approvals, revision requests) are not snapshotted: they do not
// change content, and the status trail is already visible through notifications and notes.
package versions

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/examflow/editorial/internal/models"
)

// Reasons recorded with snapshots.
const (
	ReasonContentUpdate       = "content_update"
	ReasonTypesettingComplete = "typesetting_complete"
)

// bookkeeping keys change on every write and are left out of diffs.
var bookkeeping = map[string]struct{}{
	"version":    {},
	"updated_at": {},
}

// Snapshot captures q as it is now. Callers must invoke it before mutating q; the snapshot
// takes q.Version as its number and the caller then increments the live record.
func Snapshot(q *models.Question, actor models.Actor, reason string) (*models.QuestionVersion, error) {
	blob, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	changedBy := actor.ID
	return &models.QuestionVersion{
		QuestionID:    q.ID,
		VersionNumber: q.Version,
		Snapshot:      blob,
		ChangedBy:     &changedBy,
		Reason:        reason,
	}, nil
}

// Restore decodes the question stored in a snapshot.
func Restore(v *models.QuestionVersion) (*models.Question, error) {
	var q models.Question
	if err := json.Unmarshal(v.Snapshot, &q); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %d/%d: %w", v.QuestionID, v.VersionNumber, err)
	}
	return &q, nil
}

// Diff lists the fields whose values differ between a snapshot and the live record,
// sorted by JSON name.
func Diff(v *models.QuestionVersion, live *models.Question) ([]string, error) {
	var before map[string]any
	if err := json.Unmarshal(v.Snapshot, &before); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	raw, err := json.Marshal(live)
	if err != nil {
		return nil, fmt.Errorf("marshal live record: %w", err)
	}
	var after map[string]any
	if err := json.Unmarshal(raw, &after); err != nil {
		return nil, fmt.Errorf("unmarshal live record: %w", err)
	}

	keys := make(map[string]struct{}, len(before))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}
	var changed []string
	for k := range keys {
		if _, skip := bookkeeping[k]; skip {
			continue
		}
		if !reflect.DeepEqual(before[k], after[k]) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed, nil
}
