package aggregator

import "github.com/osswatch/maintainer-dashboard/internal/domain"

// EngagementStat measures how much of a population of items was touched
// by at least one member of a population of people.
type EngagementStat struct {
	TotalItems      int
	ItemsTouched    int
	EngagementRatio float64
}

// PopulationStats holds per-item-kind engagement for one population.
type PopulationStats struct {
	Issues       EngagementStat
	PullRequests EngagementStat
}

// IssueCloseStats splits issue closes into direct actions and closes
// triggered by a linked pull request merge.
type IssueCloseStats struct {
	ManuallyClosed    int
	PRTriggeredClosed int
	ClosedRatio       float64
}

// PRFinishStats counts pull requests that reached a terminal state.
type PRFinishStats struct {
	Merged      int
	Closed      int
	FinishRatio float64
}

// TeamStats is the full team-mode aggregation result.
type TeamStats struct {
	Team         PopulationStats
	Contributors PopulationStats
	IssueCloses  IssueCloseStats
	PRFinishes   PRFinishStats
}

// ClosePredicate decides whether an issue close event was triggered by
// a linked pull request merge. The exact signal depends on the upstream
// event schema, so it is pluggable; DefaultClosePredicate reads the
// flag the data source derived at collection time.
type ClosePredicate func(domain.ContributionEvent) bool

// DefaultClosePredicate trusts the ViaMergedPR flag on the event.
func DefaultClosePredicate(ev domain.ContributionEvent) bool {
	return ev.Extra.ViaMergedPR
}

// AggregateTeam computes engagement ratios over every distinct issue
// and pull request touched by the event list. An item counts toward
// its total once regardless of how many events hit it; it is "team
// engaged" when at least one event author is on the roster and
// "contributor engaged" when at least one author is not. An empty
// event list yields zero totals and ratios of exactly 0.
func AggregateTeam(events []domain.ContributionEvent, roster domain.Roster, isPRTriggered ClosePredicate) TeamStats {
	if isPRTriggered == nil {
		isPRTriggered = DefaultClosePredicate
	}

	type itemState struct {
		teamTouched        bool
		contributorTouched bool
		manualClose        bool
		prTriggeredClose   bool
		merged             bool
		closed             bool
	}
	items := make(map[domain.ItemKey]*itemState)

	for _, ev := range events {
		if ev.TargetKind != domain.TargetIssue && ev.TargetKind != domain.TargetPullRequest {
			continue
		}
		st, ok := items[ev.Key()]
		if !ok {
			st = &itemState{}
			items[ev.Key()] = st
		}

		if roster.Contains(ev.AuthorLogin) {
			st.teamTouched = true
		} else if ev.AuthorLogin != "" {
			st.contributorTouched = true
		}

		switch ev.TargetKind {
		case domain.TargetIssue:
			if ev.EventKind == domain.EventClosed {
				if isPRTriggered(ev) {
					st.prTriggeredClose = true
				} else {
					st.manualClose = true
				}
			}
		case domain.TargetPullRequest:
			switch {
			case ev.EventKind == domain.EventMerged:
				st.merged = true
			case ev.EventKind == domain.EventClosed && ev.Extra.Merged:
				st.merged = true
			case ev.EventKind == domain.EventClosed:
				st.closed = true
			}
		}
	}

	var stats TeamStats
	var totalIssues, totalPRs int
	for key, st := range items {
		switch key.Kind {
		case domain.TargetIssue:
			totalIssues++
			if st.teamTouched {
				stats.Team.Issues.ItemsTouched++
			}
			if st.contributorTouched {
				stats.Contributors.Issues.ItemsTouched++
			}
			if st.prTriggeredClose {
				stats.IssueCloses.PRTriggeredClosed++
			} else if st.manualClose {
				stats.IssueCloses.ManuallyClosed++
			}
		case domain.TargetPullRequest:
			totalPRs++
			if st.teamTouched {
				stats.Team.PullRequests.ItemsTouched++
			}
			if st.contributorTouched {
				stats.Contributors.PullRequests.ItemsTouched++
			}
			if st.merged {
				stats.PRFinishes.Merged++
			} else if st.closed {
				stats.PRFinishes.Closed++
			}
		}
	}

	stats.Team.Issues.TotalItems = totalIssues
	stats.Contributors.Issues.TotalItems = totalIssues
	stats.Team.PullRequests.TotalItems = totalPRs
	stats.Contributors.PullRequests.TotalItems = totalPRs

	stats.Team.Issues.EngagementRatio = ratio(stats.Team.Issues.ItemsTouched, totalIssues)
	stats.Contributors.Issues.EngagementRatio = ratio(stats.Contributors.Issues.ItemsTouched, totalIssues)
	stats.Team.PullRequests.EngagementRatio = ratio(stats.Team.PullRequests.ItemsTouched, totalPRs)
	stats.Contributors.PullRequests.EngagementRatio = ratio(stats.Contributors.PullRequests.ItemsTouched, totalPRs)

	stats.IssueCloses.ClosedRatio = ratio(stats.IssueCloses.ManuallyClosed+stats.IssueCloses.PRTriggeredClosed, totalIssues)
	stats.PRFinishes.FinishRatio = ratio(stats.PRFinishes.Merged+stats.PRFinishes.Closed, totalPRs)

	return stats
}

// ratio never divides by zero; an empty population has ratio 0.
func ratio(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
