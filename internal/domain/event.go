package domain

import (
	"strings"
	"time"
)

// TargetKind identifies what a contribution event acted on
type TargetKind string

const (
	TargetIssue       TargetKind = "issue"
	TargetPullRequest TargetKind = "pull_request"
)

// EventKind identifies the kind of activity an event records
type EventKind string

const (
	EventOpened          EventKind = "opened"
	EventCommented       EventKind = "commented"
	EventLabeled         EventKind = "labeled"
	EventClosed          EventKind = "closed"
	EventReviewSubmitted EventKind = "review_submitted"
	EventMerged          EventKind = "merged"
)

// EventExtra carries kind-specific payload for a contribution event.
// Fields not relevant to the event kind are left zero.
type EventExtra struct {
	// ReviewState is the review verdict for EventReviewSubmitted
	// (APPROVED, CHANGES_REQUESTED, COMMENTED, DISMISSED, PENDING).
	// Carried through as metadata, never used for classification.
	ReviewState string

	// Label is the label name for EventLabeled.
	Label string

	// ClosedBy / MergedBy identify the actor for close/merge events.
	ClosedBy string
	MergedBy string

	// Merged reports whether a closed pull request ended up merged.
	Merged bool

	// ViaMergedPR marks an issue close that happened as a side effect
	// of a linked pull request merge rather than a direct action.
	ViaMergedPR bool
}

// ContributionEvent is one atomic activity by one author against one
// issue or pull request at one instant. It is populated once at the
// data-source boundary; OccurredAt is always UTC.
type ContributionEvent struct {
	TargetKind   TargetKind
	TargetNumber int
	TargetTitle  string
	TargetURL    string
	EventKind    EventKind
	AuthorLogin  string
	OccurredAt   time.Time
	Extra        EventExtra
}

// AuthorIs reports whether the event author matches login,
// compared case-insensitively as GitHub logins are.
func (e ContributionEvent) AuthorIs(login string) bool {
	return strings.EqualFold(e.AuthorLogin, login)
}

// ItemKey identifies the issue or pull request an event touched.
// Two events on the same item share the same key.
type ItemKey struct {
	Kind   TargetKind
	Number int
}

// Key returns the item identity of the event's target.
func (e ContributionEvent) Key() ItemKey {
	return ItemKey{Kind: e.TargetKind, Number: e.TargetNumber}
}
