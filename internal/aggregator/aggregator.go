// Package aggregator accumulates classified contribution events into
// per-category buckets and, in team mode, engagement statistics.
//
// Aggregation is a single pass over an in-memory event list: no I/O,
// no shared state, safe to run concurrently across requests.
package aggregator

import (
	"github.com/osswatch/maintainer-dashboard/internal/classifier"
	"github.com/osswatch/maintainer-dashboard/internal/domain"
)

// TriageBuckets holds the issue_triage sub-buckets in arrival order.
type TriageBuckets struct {
	Comments []domain.ContributionEvent
	Labeled  []domain.ContributionEvent
	Closed   []domain.ContributionEvent
}

// ReviewBuckets holds the code_reviews sub-buckets in arrival order.
type ReviewBuckets struct {
	Comments []domain.ContributionEvent
	Reviews  []domain.ContributionEvent
	Merged   []domain.ContributionEvent
	Closed   []domain.ContributionEvent
}

// Buckets is the full category tree. Every leaf is a non-nil slice;
// a category with no events is an empty sequence, never absent.
type Buckets struct {
	IssuesOpened []domain.ContributionEvent
	PRsOpened    []domain.ContributionEvent
	IssueTriage  TriageBuckets
	CodeReviews  ReviewBuckets
}

// Counts are the per-top-level-category totals for the summary section.
type Counts struct {
	Total        int
	IssuesOpened int
	PRsOpened    int
	IssueTriage  int
	CodeReviews  int
}

// NewBuckets returns an empty bucket tree with every leaf allocated.
func NewBuckets() *Buckets {
	return &Buckets{
		IssuesOpened: []domain.ContributionEvent{},
		PRsOpened:    []domain.ContributionEvent{},
		IssueTriage: TriageBuckets{
			Comments: []domain.ContributionEvent{},
			Labeled:  []domain.ContributionEvent{},
			Closed:   []domain.ContributionEvent{},
		},
		CodeReviews: ReviewBuckets{
			Comments: []domain.ContributionEvent{},
			Reviews:  []domain.ContributionEvent{},
			Merged:   []domain.ContributionEvent{},
			Closed:   []domain.ContributionEvent{},
		},
	}
}

// Aggregate classifies each event and appends it to its bucket,
// preserving arrival order. Events the classifier does not recognize
// are dropped and excluded from every count.
func Aggregate(events []domain.ContributionEvent) *Buckets {
	b := NewBuckets()
	for _, ev := range events {
		key, ok := classifier.Classify(ev)
		if !ok {
			continue
		}
		switch key.Top {
		case classifier.CategoryIssuesOpened:
			b.IssuesOpened = append(b.IssuesOpened, ev)
		case classifier.CategoryPRsOpened:
			b.PRsOpened = append(b.PRsOpened, ev)
		case classifier.CategoryIssueTriage:
			switch key.Sub {
			case classifier.SubComments:
				b.IssueTriage.Comments = append(b.IssueTriage.Comments, ev)
			case classifier.SubLabeled:
				b.IssueTriage.Labeled = append(b.IssueTriage.Labeled, ev)
			case classifier.SubClosed:
				b.IssueTriage.Closed = append(b.IssueTriage.Closed, ev)
			}
		case classifier.CategoryCodeReviews:
			switch key.Sub {
			case classifier.SubComments:
				b.CodeReviews.Comments = append(b.CodeReviews.Comments, ev)
			case classifier.SubReviews:
				b.CodeReviews.Reviews = append(b.CodeReviews.Reviews, ev)
			case classifier.SubMerged:
				b.CodeReviews.Merged = append(b.CodeReviews.Merged, ev)
			case classifier.SubClosed:
				b.CodeReviews.Closed = append(b.CodeReviews.Closed, ev)
			}
		}
	}
	return b
}

// Counts computes the summary totals from the bucket tree.
func (b *Buckets) Counts() Counts {
	c := Counts{
		IssuesOpened: len(b.IssuesOpened),
		PRsOpened:    len(b.PRsOpened),
		IssueTriage:  len(b.IssueTriage.Comments) + len(b.IssueTriage.Labeled) + len(b.IssueTriage.Closed),
		CodeReviews: len(b.CodeReviews.Comments) + len(b.CodeReviews.Reviews) +
			len(b.CodeReviews.Merged) + len(b.CodeReviews.Closed),
	}
	c.Total = c.IssuesOpened + c.PRsOpened + c.IssueTriage + c.CodeReviews
	return c
}
