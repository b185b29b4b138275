// Package report builds the structured result documents the dashboard
// serves: a meta/summary/data tree for single-subject queries and a
// meta/engagement tree for team queries.
//
// All timestamps in the machine-readable payload are ISO-8601 UTC with
// a trailing Z regardless of the timezone the range was resolved in;
// the timezone only decides which events are included.
package report

import (
	"time"

	"github.com/osswatch/maintainer-dashboard/internal/aggregator"
	"github.com/osswatch/maintainer-dashboard/internal/daterange"
	"github.com/osswatch/maintainer-dashboard/internal/domain"
)

// Item is the public shape of one contribution event. Optional fields
// are present-but-empty rather than omitted so consumers never need to
// existence-check a category-specific field.
type Item struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
	Author    string `json:"author"`
	Label     string `json:"label"`
	State     string `json:"state"`
	Action    string `json:"action"`
	ClosedBy  string `json:"closed_by"`
	MergedBy  string `json:"merged_by"`
}

// Period describes the resolved query window.
type Period struct {
	Days  int    `json:"days"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// Meta identifies the subject, repository and window of a report.
type Meta struct {
	User       string   `json:"user,omitempty"`
	Team       []string `json:"team,omitempty"`
	Repository string   `json:"repository"`
	Period     Period   `json:"period"`
	FetchedAt  string   `json:"fetched_at"`
}

// Summary carries the total and per-top-level-category counts.
type Summary struct {
	TotalActions int            `json:"total_actions"`
	ByCategory   map[string]int `json:"by_category"`
}

// TriageData is the issue_triage sub-bucket tree.
type TriageData struct {
	Comments []Item `json:"comments"`
	Labeled  []Item `json:"labeled"`
	Closed   []Item `json:"closed"`
}

// ReviewData is the code_reviews sub-bucket tree.
type ReviewData struct {
	Comments []Item `json:"comments"`
	Reviews  []Item `json:"reviews"`
	Merged   []Item `json:"merged"`
	Closed   []Item `json:"closed"`
}

// Data is the full serialized bucket tree.
type Data struct {
	IssuesOpened []Item     `json:"issues_opened"`
	PRsOpened    []Item     `json:"prs_opened"`
	IssueTriage  TriageData `json:"issue_triage"`
	CodeReviews  ReviewData `json:"code_reviews"`
}

// Report is the single-subject result document.
type Report struct {
	Meta    Meta    `json:"meta"`
	Summary Summary `json:"summary"`
	Data    Data    `json:"data"`
}

// EngagementStat is the public shape of one engagement measurement.
type EngagementStat struct {
	TotalItems      int     `json:"total_items"`
	ItemsTouched    int     `json:"items_touched"`
	EngagementRatio float64 `json:"engagement_ratio"`
}

// PopulationEngagement holds per-item-kind engagement for one population.
type PopulationEngagement struct {
	Issues       EngagementStat `json:"issues"`
	PullRequests EngagementStat `json:"pull_requests"`
}

// Engagement is the team-mode statistics section.
type Engagement struct {
	Team         PopulationEngagement `json:"team"`
	Contributors PopulationEngagement `json:"contributors"`
	Issues       struct {
		ManuallyClosed    int     `json:"manually_closed"`
		PRTriggeredClosed int     `json:"pr_triggered_closed"`
		ClosedRatio       float64 `json:"closed_ratio"`
	} `json:"issues"`
	PullRequests struct {
		Merged      int     `json:"merged"`
		Closed      int     `json:"closed"`
		FinishRatio float64 `json:"finish_ratio"`
	} `json:"pull_requests"`
}

// TeamReport is the team-mode result document.
type TeamReport struct {
	Meta       Meta       `json:"meta"`
	Engagement Engagement `json:"engagement"`
}

// Assembler builds result documents. The clock is injectable so the
// fetched_at stamp stays deterministic in tests.
type Assembler struct {
	clock func() time.Time
}

// NewAssembler returns an assembler stamping fetched_at from time.Now.
func NewAssembler() *Assembler {
	return &Assembler{clock: time.Now}
}

// NewAssemblerWithClock returns an assembler with a fixed clock source.
func NewAssemblerWithClock(clock func() time.Time) *Assembler {
	return &Assembler{clock: clock}
}

// Assemble builds the single-subject result document.
func (a *Assembler) Assemble(user string, repo domain.RepoRef, rng daterange.Range, b *aggregator.Buckets) *Report {
	counts := b.Counts()
	return &Report{
		Meta: a.meta(user, nil, repo, rng),
		Summary: Summary{
			TotalActions: counts.Total,
			ByCategory: map[string]int{
				"issues_opened": counts.IssuesOpened,
				"prs_opened":    counts.PRsOpened,
				"issue_triage":  counts.IssueTriage,
				"code_reviews":  counts.CodeReviews,
			},
		},
		Data: Data{
			IssuesOpened: items(b.IssuesOpened),
			PRsOpened:    items(b.PRsOpened),
			IssueTriage: TriageData{
				Comments: items(b.IssueTriage.Comments),
				Labeled:  items(b.IssueTriage.Labeled),
				Closed:   items(b.IssueTriage.Closed),
			},
			CodeReviews: ReviewData{
				Comments: items(b.CodeReviews.Comments),
				Reviews:  items(b.CodeReviews.Reviews),
				Merged:   items(b.CodeReviews.Merged),
				Closed:   items(b.CodeReviews.Closed),
			},
		},
	}
}

// AssembleTeam builds the team-mode result document.
func (a *Assembler) AssembleTeam(roster domain.Roster, repo domain.RepoRef, rng daterange.Range, stats aggregator.TeamStats) *TeamReport {
	r := &TeamReport{
		Meta: a.meta("", roster.Logins(), repo, rng),
	}
	r.Engagement.Team = populationEngagement(stats.Team)
	r.Engagement.Contributors = populationEngagement(stats.Contributors)
	r.Engagement.Issues.ManuallyClosed = stats.IssueCloses.ManuallyClosed
	r.Engagement.Issues.PRTriggeredClosed = stats.IssueCloses.PRTriggeredClosed
	r.Engagement.Issues.ClosedRatio = stats.IssueCloses.ClosedRatio
	r.Engagement.PullRequests.Merged = stats.PRFinishes.Merged
	r.Engagement.PullRequests.Closed = stats.PRFinishes.Closed
	r.Engagement.PullRequests.FinishRatio = stats.PRFinishes.FinishRatio
	return r
}

func (a *Assembler) meta(user string, team []string, repo domain.RepoRef, rng daterange.Range) Meta {
	return Meta{
		User:       user,
		Team:       team,
		Repository: repo.FullName(),
		Period: Period{
			Days:  rng.Days,
			Start: stamp(rng.FromInstant),
			End:   stamp(rng.ToInstant),
		},
		FetchedAt: stamp(a.clock()),
	}
}

func populationEngagement(p aggregator.PopulationStats) PopulationEngagement {
	return PopulationEngagement{
		Issues: EngagementStat{
			TotalItems:      p.Issues.TotalItems,
			ItemsTouched:    p.Issues.ItemsTouched,
			EngagementRatio: p.Issues.EngagementRatio,
		},
		PullRequests: EngagementStat{
			TotalItems:      p.PullRequests.TotalItems,
			ItemsTouched:    p.PullRequests.ItemsTouched,
			EngagementRatio: p.PullRequests.EngagementRatio,
		},
	}
}

func items(events []domain.ContributionEvent) []Item {
	out := make([]Item, 0, len(events))
	for _, ev := range events {
		out = append(out, toItem(ev))
	}
	return out
}

func toItem(ev domain.ContributionEvent) Item {
	item := Item{
		Number:    ev.TargetNumber,
		Title:     ev.TargetTitle,
		URL:       ev.TargetURL,
		Timestamp: stamp(ev.OccurredAt),
		Author:    ev.AuthorLogin,
		Label:     ev.Extra.Label,
		State:     ev.Extra.ReviewState,
		ClosedBy:  ev.Extra.ClosedBy,
		MergedBy:  ev.Extra.MergedBy,
	}
	switch ev.EventKind {
	case domain.EventOpened:
		item.Action = "opened"
	case domain.EventLabeled:
		item.Action = "labeled"
	case domain.EventMerged:
		item.Action = "merged"
		item.State = "MERGED"
	case domain.EventClosed:
		if ev.TargetKind == domain.TargetPullRequest && ev.Extra.Merged {
			item.Action = "merged"
			item.State = "MERGED"
		} else {
			item.Action = "closed"
			if ev.TargetKind == domain.TargetPullRequest {
				item.State = "CLOSED"
			}
		}
	}
	return item
}

// stamp renders a UTC instant as ISO-8601 with a trailing Z.
func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
