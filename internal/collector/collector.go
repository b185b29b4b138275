// Package collector fetches contribution events from the GitHub
// GraphQL API and normalizes them into domain events at the boundary,
// so the classification pipeline never sees raw API shapes.
package collector

import (
	"context"

	"github.com/osswatch/maintainer-dashboard/internal/daterange"
	"github.com/osswatch/maintainer-dashboard/internal/domain"
)

// EventSource is the upstream data source boundary. Implementations
// return the complete event list for the window or fail; the pipeline
// performs no retries of its own.
type EventSource interface {
	// UserEvents returns every contribution event by login against the
	// repository within the resolved range.
	UserEvents(ctx context.Context, repo domain.RepoRef, login string, rng daterange.Range) ([]domain.ContributionEvent, error)

	// RepoEvents returns every event on issues and pull requests opened
	// in the repository within the resolved range, for team-engagement
	// aggregation.
	RepoEvents(ctx context.Context, repo domain.RepoRef, rng daterange.Range) ([]domain.ContributionEvent, error)
}

// RosterSource resolves a team roster from an external directory.
type RosterSource interface {
	TeamRoster(ctx context.Context, org, teamSlug string) (domain.Roster, error)
}
