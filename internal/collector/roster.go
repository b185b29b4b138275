package collector

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"

	"github.com/osswatch/maintainer-dashboard/internal/domain"
	apperrors "github.com/osswatch/maintainer-dashboard/internal/errors"
)

// GitHubRosterSource resolves team rosters through the GitHub REST API.
type GitHubRosterSource struct {
	client *github.Client
}

// NewGitHubRosterSource creates a roster source authenticated with token.
func NewGitHubRosterSource(ctx context.Context, token string) *GitHubRosterSource {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	return &GitHubRosterSource{client: github.NewClient(tc)}
}

// NewGitHubRosterSourceWithClient creates a roster source around an
// existing client, used by tests.
func NewGitHubRosterSourceWithClient(client *github.Client) *GitHubRosterSource {
	return &GitHubRosterSource{client: client}
}

// TeamRoster lists the members of org's team identified by slug.
func (s *GitHubRosterSource) TeamRoster(ctx context.Context, org, teamSlug string) (domain.Roster, error) {
	var logins []string
	opts := &github.TeamListTeamMembersOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		members, resp, err := s.client.Teams.ListTeamMembersBySlug(ctx, org, teamSlug, opts)
		if err != nil {
			return domain.Roster{}, mapRosterError(org, teamSlug, resp, err)
		}
		for _, m := range members {
			if login := m.GetLogin(); login != "" {
				logins = append(logins, login)
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return domain.NewRoster(logins), nil
}

func mapRosterError(org, teamSlug string, resp *github.Response, err error) error {
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return apperrors.New(apperrors.ErrCodeNotFound,
				fmt.Sprintf("team %s/%s not found", org, teamSlug))
		case http.StatusUnauthorized:
			return apperrors.NewUnauthorizedError("GitHub authentication failed; check your token")
		case http.StatusForbidden, http.StatusTooManyRequests:
			if _, ok := err.(*github.RateLimitError); ok || resp.StatusCode == http.StatusTooManyRequests {
				return apperrors.NewRateLimitedError("GitHub API rate limit exceeded; try again later")
			}
		}
	}
	if _, ok := err.(*github.RateLimitError); ok {
		return apperrors.NewRateLimitedError("GitHub API rate limit exceeded; try again later")
	}
	return apperrors.NewUpstreamError(fmt.Sprintf("failed to list team members: %v", err), err)
}
