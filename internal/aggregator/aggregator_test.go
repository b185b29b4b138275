package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osswatch/maintainer-dashboard/internal/domain"
)

func issueEvent(number int, kind domain.EventKind, author string) domain.ContributionEvent {
	return domain.ContributionEvent{
		TargetKind:   domain.TargetIssue,
		TargetNumber: number,
		EventKind:    kind,
		AuthorLogin:  author,
		OccurredAt:   time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func prEvent(number int, kind domain.EventKind, author string, extra domain.EventExtra) domain.ContributionEvent {
	return domain.ContributionEvent{
		TargetKind:   domain.TargetPullRequest,
		TargetNumber: number,
		EventKind:    kind,
		AuthorLogin:  author,
		OccurredAt:   time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
		Extra:        extra,
	}
}

func TestAggregateScenario(t *testing.T) {
	events := []domain.ContributionEvent{
		issueEvent(1, domain.EventOpened, "alice"),
		issueEvent(1, domain.EventCommented, "bob"),
		prEvent(5, domain.EventOpened, "alice", domain.EventExtra{}),
		prEvent(5, domain.EventClosed, "alice", domain.EventExtra{Merged: true}),
	}

	b := Aggregate(events)

	require.Len(t, b.IssuesOpened, 1)
	assert.Equal(t, 1, b.IssuesOpened[0].TargetNumber)
	require.Len(t, b.IssueTriage.Comments, 1)
	assert.Equal(t, "bob", b.IssueTriage.Comments[0].AuthorLogin)
	require.Len(t, b.PRsOpened, 1)
	assert.Equal(t, 5, b.PRsOpened[0].TargetNumber)
	require.Len(t, b.CodeReviews.Merged, 1)
	assert.Equal(t, 5, b.CodeReviews.Merged[0].TargetNumber)

	c := b.Counts()
	assert.Equal(t, 4, c.Total)
	assert.Equal(t, 1, c.IssuesOpened)
	assert.Equal(t, 1, c.PRsOpened)
	assert.Equal(t, 1, c.IssueTriage)
	assert.Equal(t, 1, c.CodeReviews)
}

func TestAggregatePreservesArrivalOrder(t *testing.T) {
	events := []domain.ContributionEvent{
		issueEvent(9, domain.EventCommented, "a"),
		issueEvent(3, domain.EventCommented, "b"),
		issueEvent(7, domain.EventCommented, "c"),
	}

	b := Aggregate(events)
	require.Len(t, b.IssueTriage.Comments, 3)
	assert.Equal(t, []int{9, 3, 7}, []int{
		b.IssueTriage.Comments[0].TargetNumber,
		b.IssueTriage.Comments[1].TargetNumber,
		b.IssueTriage.Comments[2].TargetNumber,
	})
}

func TestAggregateIsIdempotent(t *testing.T) {
	events := []domain.ContributionEvent{
		issueEvent(1, domain.EventOpened, "alice"),
		prEvent(2, domain.EventReviewSubmitted, "bob", domain.EventExtra{ReviewState: "APPROVED"}),
		issueEvent(1, domain.EventLabeled, "carol"),
	}

	first := Aggregate(events)
	second := Aggregate(events)
	assert.Equal(t, first, second)
	assert.Equal(t, first.Counts(), second.Counts())
}

func TestAggregateDropsUnmatchedEvents(t *testing.T) {
	events := []domain.ContributionEvent{
		issueEvent(1, domain.EventOpened, "alice"),
		issueEvent(2, domain.EventKind("reacted"), "alice"),
		prEvent(3, domain.EventLabeled, "alice", domain.EventExtra{Label: "bug"}),
	}

	b := Aggregate(events)
	c := b.Counts()

	// Dropped events are excluded from every bucket and every count.
	assert.Equal(t, 1, c.Total)
	leafSum := len(b.IssuesOpened) + len(b.PRsOpened) +
		len(b.IssueTriage.Comments) + len(b.IssueTriage.Labeled) + len(b.IssueTriage.Closed) +
		len(b.CodeReviews.Comments) + len(b.CodeReviews.Reviews) + len(b.CodeReviews.Merged) + len(b.CodeReviews.Closed)
	assert.Equal(t, c.Total, leafSum)
}

func TestAggregateEmptyInput(t *testing.T) {
	b := Aggregate(nil)

	// Zero-event buckets are empty sequences, never nil.
	assert.NotNil(t, b.IssuesOpened)
	assert.NotNil(t, b.PRsOpened)
	assert.NotNil(t, b.IssueTriage.Comments)
	assert.NotNil(t, b.CodeReviews.Reviews)
	assert.Equal(t, 0, b.Counts().Total)
}

func TestAggregateTeamEngagement(t *testing.T) {
	roster := domain.NewRoster([]string{"alice", "bob"})
	events := []domain.ContributionEvent{
		// Issue 1: touched by team and by an outside contributor.
		issueEvent(1, domain.EventOpened, "stranger"),
		issueEvent(1, domain.EventCommented, "Alice"), // roster match is case-insensitive
		// Issue 2: outside contributors only.
		issueEvent(2, domain.EventOpened, "stranger"),
		// PR 5: team only.
		prEvent(5, domain.EventOpened, "bob", domain.EventExtra{}),
		prEvent(5, domain.EventMerged, "bob", domain.EventExtra{MergedBy: "bob"}),
	}

	stats := AggregateTeam(events, roster, nil)

	assert.Equal(t, 2, stats.Team.Issues.TotalItems)
	assert.Equal(t, 1, stats.Team.Issues.ItemsTouched)
	assert.InDelta(t, 0.5, stats.Team.Issues.EngagementRatio, 1e-9)

	assert.Equal(t, 2, stats.Contributors.Issues.ItemsTouched)
	assert.InDelta(t, 1.0, stats.Contributors.Issues.EngagementRatio, 1e-9)

	assert.Equal(t, 1, stats.Team.PullRequests.TotalItems)
	assert.Equal(t, 1, stats.Team.PullRequests.ItemsTouched)
	assert.Equal(t, 0, stats.Contributors.PullRequests.ItemsTouched)

	assert.Equal(t, 1, stats.PRFinishes.Merged)
	assert.InDelta(t, 1.0, stats.PRFinishes.FinishRatio, 1e-9)
}

func TestAggregateTeamCloseSplit(t *testing.T) {
	roster := domain.NewRoster([]string{"alice"})
	events := []domain.ContributionEvent{
		issueEvent(1, domain.EventClosed, "alice"),
		{
			TargetKind:   domain.TargetIssue,
			TargetNumber: 2,
			EventKind:    domain.EventClosed,
			AuthorLogin:  "alice",
			Extra:        domain.EventExtra{ViaMergedPR: true},
		},
		issueEvent(3, domain.EventOpened, "alice"),
	}

	stats := AggregateTeam(events, roster, nil)
	assert.Equal(t, 1, stats.IssueCloses.ManuallyClosed)
	assert.Equal(t, 1, stats.IssueCloses.PRTriggeredClosed)
	assert.InDelta(t, 2.0/3.0, stats.IssueCloses.ClosedRatio, 1e-9)
}

func TestAggregateTeamCustomClosePredicate(t *testing.T) {
	roster := domain.NewRoster([]string{"alice"})
	events := []domain.ContributionEvent{
		issueEvent(1, domain.EventClosed, "alice"),
	}

	// A predicate wired to a different upstream signal overrides the flag.
	stats := AggregateTeam(events, roster, func(domain.ContributionEvent) bool { return true })
	assert.Equal(t, 0, stats.IssueCloses.ManuallyClosed)
	assert.Equal(t, 1, stats.IssueCloses.PRTriggeredClosed)
}

func TestAggregateTeamEmptyInput(t *testing.T) {
	stats := AggregateTeam(nil, domain.NewRoster(nil), nil)

	assert.Zero(t, stats.Team.Issues.EngagementRatio)
	assert.Zero(t, stats.Team.PullRequests.EngagementRatio)
	assert.Zero(t, stats.Contributors.Issues.EngagementRatio)
	assert.Zero(t, stats.Contributors.PullRequests.EngagementRatio)
	assert.Zero(t, stats.IssueCloses.ClosedRatio)
	assert.Zero(t, stats.PRFinishes.FinishRatio)
}
