// Package classifier maps raw contribution events onto the dashboard's
// fixed category taxonomy.
package classifier

import "github.com/osswatch/maintainer-dashboard/internal/domain"

// Top-level category names as they appear in API payloads.
const (
	CategoryIssuesOpened = "issues_opened"
	CategoryPRsOpened    = "prs_opened"
	CategoryIssueTriage  = "issue_triage"
	CategoryCodeReviews  = "code_reviews"
)

// Sub-bucket names under issue_triage and code_reviews.
const (
	SubComments = "comments"
	SubLabeled  = "labeled"
	SubClosed   = "closed"
	SubReviews  = "reviews"
	SubMerged   = "merged"
)

// CategoryKey addresses one leaf bucket. Sub is empty for the two
// flat top-level categories.
type CategoryKey struct {
	Top string
	Sub string
}

// Classify assigns an event to exactly one leaf bucket based on its
// target kind and event kind. Events whose combination is not part of
// the taxonomy return ok=false and are dropped by callers; unrecognized
// upstream event types are treated as noise, not as errors.
func Classify(ev domain.ContributionEvent) (key CategoryKey, ok bool) {
	switch ev.TargetKind {
	case domain.TargetIssue:
		switch ev.EventKind {
		case domain.EventOpened:
			return CategoryKey{Top: CategoryIssuesOpened}, true
		case domain.EventCommented:
			return CategoryKey{Top: CategoryIssueTriage, Sub: SubComments}, true
		case domain.EventLabeled:
			return CategoryKey{Top: CategoryIssueTriage, Sub: SubLabeled}, true
		case domain.EventClosed:
			return CategoryKey{Top: CategoryIssueTriage, Sub: SubClosed}, true
		}
	case domain.TargetPullRequest:
		switch ev.EventKind {
		case domain.EventOpened:
			return CategoryKey{Top: CategoryPRsOpened}, true
		case domain.EventCommented:
			return CategoryKey{Top: CategoryCodeReviews, Sub: SubComments}, true
		case domain.EventReviewSubmitted:
			return CategoryKey{Top: CategoryCodeReviews, Sub: SubReviews}, true
		case domain.EventClosed:
			if ev.Extra.Merged {
				return CategoryKey{Top: CategoryCodeReviews, Sub: SubMerged}, true
			}
			return CategoryKey{Top: CategoryCodeReviews, Sub: SubClosed}, true
		case domain.EventMerged:
			return CategoryKey{Top: CategoryCodeReviews, Sub: SubMerged}, true
		}
	}
	return CategoryKey{}, false
}
