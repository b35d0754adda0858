// Package workflow holds the question lifecycle: the status registry, the transition
// authorizer and the status/approval state those two operate on.
package workflow

// Status is a lifecycle state token, persisted and transmitted as lowercase snake_case.
type Status string

const (
	StatusDraft                         Status = "draft"
	StatusTypesettingQueued             Status = "typesetting_queued"
	StatusTypesettingInProgress         Status = "typesetting_in_progress"
	StatusTypesettingDone               Status = "typesetting_done"
	StatusFieldReview                   Status = "field_review"
	StatusFieldApproved                 Status = "field_approved"
	StatusLanguageReview                Status = "language_review"
	StatusLanguageApproved              Status = "language_approved"
	StatusRevisionRequestedByReviewer   Status = "revision_requested_by_reviewer"
	StatusRevisionRequestedByTypesetter Status = "revision_requested_by_typesetter"
	StatusLegacyReviewQueue             Status = "legacy_review_queue"
	StatusLegacyInReview                Status = "legacy_in_review"
	StatusLegacyReviewDone              Status = "legacy_review_done"
	StatusCompleted                     Status = "completed"
	StatusArchived                      Status = "archived"
)

type statusInfo struct {
	terminal bool
	revision bool
}

// registry is read-only after package init. Adding a state means adding it here and, if it
// needs a non-admin path, a rule in authorizer.go.
var registry = map[Status]statusInfo{
	StatusDraft:                         {},
	StatusTypesettingQueued:             {},
	StatusTypesettingInProgress:         {},
	StatusTypesettingDone:               {},
	StatusFieldReview:                   {},
	StatusFieldApproved:                 {},
	StatusLanguageReview:                {},
	StatusLanguageApproved:              {},
	StatusRevisionRequestedByReviewer:   {revision: true},
	StatusRevisionRequestedByTypesetter: {revision: true},
	StatusLegacyReviewQueue:             {},
	StatusLegacyInReview:                {},
	StatusLegacyReviewDone:              {},
	StatusCompleted:                     {terminal: true},
	StatusArchived:                      {terminal: true},
}

// ordered keeps a stable listing for constraint generation and API output.
var ordered = []Status{
	StatusDraft,
	StatusTypesettingQueued,
	StatusTypesettingInProgress,
	StatusTypesettingDone,
	StatusFieldReview,
	StatusFieldApproved,
	StatusLanguageReview,
	StatusLanguageApproved,
	StatusRevisionRequestedByReviewer,
	StatusRevisionRequestedByTypesetter,
	StatusLegacyReviewQueue,
	StatusLegacyInReview,
	StatusLegacyReviewDone,
	StatusCompleted,
	StatusArchived,
}

// aliases are historical tokens still accepted at the boundary.
var aliases = map[string]Status{
	"incelemede":     StatusLegacyInReview,
	"inceleme_tamam": StatusLegacyReviewDone,
}

// Initial is the state new questions start in and the target of status repair.
func Initial() Status { return StatusDraft }

// All returns every registered status in declaration order.
func All() []Status {
	out := make([]Status, len(ordered))
	copy(out, ordered)
	return out
}

// Aliases returns a copy of the accepted historical tokens and the status each maps to.
func Aliases() map[string]Status {
	out := make(map[string]Status, len(aliases))
	for k, v := range aliases {
		out[k] = v
	}
	return out
}

// IsValid reports whether s is a registered status. Aliases are not valid statuses.
func IsValid(s Status) bool {
	_, ok := registry[s]
	return ok
}

// IsTerminal reports whether no further workflow transition is expected from s.
func IsTerminal(s Status) bool {
	return registry[s].terminal
}

// IsRevisionRequested reports whether s sends the question back to its author.
func IsRevisionRequested(s Status) bool {
	return registry[s].revision
}

// IsLocked reports whether content edits are closed to non-admins in s.
func IsLocked(s Status) bool {
	return s == StatusTypesettingInProgress || IsTerminal(s)
}

// Parse resolves a boundary token to a registered status, accepting historical aliases.
func Parse(token string) (Status, bool) {
	if s := Status(token); IsValid(s) {
		return s, true
	}
	if s, ok := aliases[token]; ok {
		return s, true
	}
	return "", false
}

// Normalize maps a persisted token to a registered status. Unknown values become Initial().
func Normalize(token string) Status {
	if s, ok := Parse(token); ok {
		return s
	}
	return Initial()
}

func (s Status) String() string { return string(s) }
