package collector

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/osswatch/maintainer-dashboard/internal/daterange"
	"github.com/osswatch/maintainer-dashboard/internal/domain"
	apperrors "github.com/osswatch/maintainer-dashboard/internal/errors"
)

// Label prefixes that count as triage labeling.
var triageLabelPrefixes = []string{"Resolution-", "WG-"}

// prCloseProximity is the window after a pull request merge within
// which an issue close is attributed to the merge rather than to a
// direct action. GitHub emits the linked close 1-2 seconds after the
// merge event.
const prCloseProximity = 3 * time.Second

const userCommentsQuery = `
query($username: String!, $count: Int = 100, $before: String) {
  user(login: $username) {
    issueComments(last: $count, before: $before) {
      pageInfo {
        hasPreviousPage
        startCursor
      }
      nodes {
        publishedAt
        url
        issue {
          author { login }
          repository { nameWithOwner }
          number
          title
        }
        pullRequest { merged }
      }
    }
  }
}`

const userReviewsQuery = `
query($username: String!, $count: Int = 100, $after: String) {
  user(login: $username) {
    contributionsCollection {
      pullRequestReviewContributions(first: $count, after: $after) {
        pageInfo {
          hasNextPage
          endCursor
        }
        nodes {
          occurredAt
          repository { nameWithOwner }
          pullRequest {
            author { login }
            number
            title
            url
            merged
          }
          pullRequestReview {
            url
            state
          }
        }
      }
    }
  }
}`

const repoIssuesQuery = `
query($owner: String!, $repo: String!, $since: DateTime!, $pageSize: Int = 50, $cursor: String) {
  repository(owner: $owner, name: $repo) {
    issues(
      first: $pageSize,
      after: $cursor,
      orderBy: {field: UPDATED_AT, direction: DESC},
      filterBy: {since: $since}
    ) {
      pageInfo {
        hasNextPage
        endCursor
      }
      nodes {
        number
        title
        url
        createdAt
        updatedAt
        author { login }
        timelineItems(last: 50, itemTypes: [LABELED_EVENT, CLOSED_EVENT]) {
          nodes {
            __typename
            ... on LabeledEvent {
              createdAt
              actor { login }
              label { name }
            }
            ... on ClosedEvent {
              createdAt
              actor { login }
            }
          }
        }
      }
    }
  }
}`

const repoPullsQuery = `
query($owner: String!, $repo: String!, $pageSize: Int = 50, $cursor: String) {
  repository(owner: $owner, name: $repo) {
    pullRequests(
      first: $pageSize,
      after: $cursor,
      orderBy: {field: UPDATED_AT, direction: DESC},
      states: [OPEN, CLOSED, MERGED]
    ) {
      pageInfo {
        hasNextPage
        endCursor
      }
      nodes {
        number
        title
        url
        state
        createdAt
        updatedAt
        author { login }
        timelineItems(last: 50, itemTypes: [CLOSED_EVENT, MERGED_EVENT]) {
          nodes {
            __typename
            ... on ClosedEvent {
              createdAt
              actor { login }
            }
            ... on MergedEvent {
              createdAt
              actor { login }
            }
          }
        }
      }
    }
  }
}`

const teamIssuesQuery = `
query($owner: String!, $repo: String!, $since: DateTime!, $pageSize: Int = 100, $cursor: String) {
  repository(owner: $owner, name: $repo) {
    issues(
      first: $pageSize,
      after: $cursor,
      filterBy: {since: $since},
      orderBy: {field: CREATED_AT, direction: DESC}
    ) {
      pageInfo {
        hasNextPage
        endCursor
      }
      nodes {
        number
        title
        url
        createdAt
        author { login }
        comments(first: 100) {
          nodes {
            author { login }
            createdAt
          }
        }
        timelineItems(first: 100, itemTypes: [LABELED_EVENT, CLOSED_EVENT]) {
          nodes {
            __typename
            ... on LabeledEvent {
              createdAt
              actor { login }
              label { name }
            }
            ... on ClosedEvent {
              createdAt
              actor { login }
              closer { __typename }
            }
          }
        }
      }
    }
  }
}`

const teamPullsQuery = `
query($owner: String!, $repo: String!, $pageSize: Int = 100, $cursor: String) {
  repository(owner: $owner, name: $repo) {
    pullRequests(
      first: $pageSize,
      after: $cursor,
      orderBy: {field: CREATED_AT, direction: DESC}
    ) {
      pageInfo {
        hasNextPage
        endCursor
      }
      nodes {
        number
        title
        url
        createdAt
        author { login }
        state
        comments(first: 100) {
          nodes {
            author { login }
            createdAt
          }
        }
        reviews(first: 100) {
          nodes {
            author { login }
            createdAt
            state
          }
        }
        timelineItems(first: 50, itemTypes: [MERGED_EVENT, CLOSED_EVENT]) {
          nodes {
            __typename
            ... on MergedEvent {
              createdAt
              actor { login }
            }
            ... on ClosedEvent {
              createdAt
              actor { login }
              closer { __typename }
            }
          }
        }
      }
    }
  }
}`

// Shared fragments of the decode shapes.
type actorNode struct {
	Login string `json:"login"`
}

type repoNode struct {
	NameWithOwner string `json:"nameWithOwner"`
}

type labelNode struct {
	Name string `json:"name"`
}

type pageInfoNode struct {
	HasNextPage     bool   `json:"hasNextPage"`
	EndCursor       string `json:"endCursor"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	StartCursor     string `json:"startCursor"`
}

type timelineItemNode struct {
	Typename  string     `json:"__typename"`
	CreatedAt time.Time  `json:"createdAt"`
	Actor     *actorNode `json:"actor"`
	Label     *labelNode `json:"label"`
	Closer    *struct {
		Typename string `json:"__typename"`
	} `json:"closer"`
}

type commentListNode struct {
	Nodes []struct {
		Author    *actorNode `json:"author"`
		CreatedAt time.Time  `json:"createdAt"`
	} `json:"nodes"`
}

func loginOf(a *actorNode) string {
	if a == nil {
		return ""
	}
	return a.Login
}

func isTriageLabel(name string) bool {
	for _, prefix := range triageLabelPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// UserEvents fetches every contribution by login against the repository
// within the window. The four independent queries run concurrently;
// issue closes that trail a pull request merge by a few seconds are
// treated as merge side effects and dropped.
func (s *GitHubSource) UserEvents(ctx context.Context, repo domain.RepoRef, login string, rng daterange.Range) ([]domain.ContributionEvent, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error

		comments, reviews, issueActs, prActs []domain.ContributionEvent
	)

	run := func(fetch func() ([]domain.ContributionEvent, error), dst *[]domain.ContributionEvent) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			events, err := fetch()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			*dst = events
		}()
	}

	run(func() ([]domain.ContributionEvent, error) { return s.fetchUserComments(ctx, repo, login, rng) }, &comments)
	run(func() ([]domain.ContributionEvent, error) { return s.fetchUserReviews(ctx, repo, login, rng) }, &reviews)
	run(func() ([]domain.ContributionEvent, error) { return s.fetchUserIssueActivity(ctx, repo, login, rng) }, &issueActs)
	run(func() ([]domain.ContributionEvent, error) { return s.fetchUserPRActivity(ctx, repo, login, rng) }, &prActs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	events := make([]domain.ContributionEvent, 0, len(comments)+len(reviews)+len(issueActs)+len(prActs))
	events = append(events, comments...)
	events = append(events, reviews...)
	events = append(events, issueActs...)
	events = append(events, prActs...)

	events = dropPRTriggeredCloses(markPRTriggeredCloses(events))

	zap.L().Debug("collected user events",
		zap.String("user", login),
		zap.String("repository", repo.FullName()),
		zap.Int("events", len(events)))
	return events, nil
}

// fetchUserComments pages backwards through the user's issue comments,
// newest first, stopping once a page falls entirely before the window.
// Comments on the user's own pull requests do not count.
func (s *GitHubSource) fetchUserComments(ctx context.Context, repo domain.RepoRef, login string, rng daterange.Range) ([]domain.ContributionEvent, error) {
	var data struct {
		User *struct {
			IssueComments struct {
				PageInfo pageInfoNode `json:"pageInfo"`
				Nodes    []struct {
					PublishedAt time.Time `json:"publishedAt"`
					URL         string    `json:"url"`
					Issue       *struct {
						Author     *actorNode `json:"author"`
						Repository repoNode   `json:"repository"`
						Number     int        `json:"number"`
						Title      string     `json:"title"`
					} `json:"issue"`
					PullRequest *struct {
						Merged bool `json:"merged"`
					} `json:"pullRequest"`
				} `json:"nodes"`
			} `json:"issueComments"`
		} `json:"user"`
	}

	var events []domain.ContributionEvent
	cursor := ""
	for {
		variables := map[string]interface{}{"username": login, "count": 100}
		if cursor != "" {
			variables["before"] = cursor
		}
		if err := s.doQuery(ctx, userCommentsQuery, variables, &data); err != nil {
			return nil, err
		}
		if data.User == nil {
			return nil, apperrors.NewNotFoundError(login)
		}

		conn := data.User.IssueComments
		stopPaging := false
		for _, node := range conn.Nodes {
			if node.Issue == nil || node.Issue.Repository.NameWithOwner != repo.FullName() {
				continue
			}
			if node.PublishedAt.Before(rng.FromInstant) {
				stopPaging = true
				continue
			}
			if node.PublishedAt.After(rng.ToInstant) {
				continue
			}
			onPR := node.PullRequest != nil
			if onPR && strings.EqualFold(loginOf(node.Issue.Author), login) {
				continue
			}
			kind := domain.TargetIssue
			if onPR {
				kind = domain.TargetPullRequest
			}
			events = append(events, domain.ContributionEvent{
				TargetKind:   kind,
				TargetNumber: node.Issue.Number,
				TargetTitle:  node.Issue.Title,
				TargetURL:    node.URL,
				EventKind:    domain.EventCommented,
				AuthorLogin:  login,
				OccurredAt:   node.PublishedAt.UTC(),
			})
		}
		if stopPaging || !conn.PageInfo.HasPreviousPage {
			break
		}
		cursor = conn.PageInfo.StartCursor
	}
	return events, nil
}

// fetchUserReviews walks the user's review contributions, skipping
// reviews on their own pull requests.
func (s *GitHubSource) fetchUserReviews(ctx context.Context, repo domain.RepoRef, login string, rng daterange.Range) ([]domain.ContributionEvent, error) {
	var data struct {
		User *struct {
			ContributionsCollection struct {
				PullRequestReviewContributions struct {
					PageInfo pageInfoNode `json:"pageInfo"`
					Nodes    []struct {
						OccurredAt  time.Time `json:"occurredAt"`
						Repository  repoNode  `json:"repository"`
						PullRequest *struct {
							Author *actorNode `json:"author"`
							Number int        `json:"number"`
							Title  string     `json:"title"`
							URL    string     `json:"url"`
							Merged bool       `json:"merged"`
						} `json:"pullRequest"`
						PullRequestReview *struct {
							URL   string `json:"url"`
							State string `json:"state"`
						} `json:"pullRequestReview"`
					} `json:"nodes"`
				} `json:"pullRequestReviewContributions"`
			} `json:"contributionsCollection"`
		} `json:"user"`
	}

	var events []domain.ContributionEvent
	cursor := ""
	for {
		variables := map[string]interface{}{"username": login, "count": 100}
		if cursor != "" {
			variables["after"] = cursor
		}
		if err := s.doQuery(ctx, userReviewsQuery, variables, &data); err != nil {
			return nil, err
		}
		if data.User == nil {
			return nil, apperrors.NewNotFoundError(login)
		}

		conn := data.User.ContributionsCollection.PullRequestReviewContributions
		stopPaging := false
		for _, node := range conn.Nodes {
			if node.Repository.NameWithOwner != repo.FullName() || node.PullRequest == nil {
				continue
			}
			if node.OccurredAt.Before(rng.FromInstant) {
				stopPaging = true
				continue
			}
			if node.OccurredAt.After(rng.ToInstant) {
				continue
			}
			if strings.EqualFold(loginOf(node.PullRequest.Author), login) {
				continue
			}
			ev := domain.ContributionEvent{
				TargetKind:   domain.TargetPullRequest,
				TargetNumber: node.PullRequest.Number,
				TargetTitle:  node.PullRequest.Title,
				TargetURL:    node.PullRequest.URL,
				EventKind:    domain.EventReviewSubmitted,
				AuthorLogin:  login,
				OccurredAt:   node.OccurredAt.UTC(),
				Extra:        domain.EventExtra{Merged: node.PullRequest.Merged},
			}
			if node.PullRequestReview != nil {
				ev.TargetURL = node.PullRequestReview.URL
				ev.Extra.ReviewState = node.PullRequestReview.State
			}
			events = append(events, ev)
		}
		if stopPaging || !conn.PageInfo.HasNextPage {
			break
		}
		cursor = conn.PageInfo.EndCursor
	}
	return events, nil
}

type repoIssueNode struct {
	Number        int        `json:"number"`
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Author        *actorNode `json:"author"`
	TimelineItems struct {
		Nodes []timelineItemNode `json:"nodes"`
	} `json:"timelineItems"`
}

// fetchUserIssueActivity scans recently updated issues for opens,
// triage labelings, and closes by login. Labeled and closed each match
// at most once per issue, regardless of repeated timeline events.
func (s *GitHubSource) fetchUserIssueActivity(ctx context.Context, repo domain.RepoRef, login string, rng daterange.Range) ([]domain.ContributionEvent, error) {
	var events []domain.ContributionEvent
	err := s.eachRecentIssue(ctx, repo, rng, repoIssuesQuery, func(issue repoIssueNode) {
		if strings.EqualFold(loginOf(issue.Author), login) && rng.Contains(issue.CreatedAt) {
			events = append(events, domain.ContributionEvent{
				TargetKind:   domain.TargetIssue,
				TargetNumber: issue.Number,
				TargetTitle:  issue.Title,
				TargetURL:    issue.URL,
				EventKind:    domain.EventOpened,
				AuthorLogin:  login,
				OccurredAt:   issue.CreatedAt.UTC(),
			})
		}

		labeledFound, closedFound := false, false
		for _, item := range issue.TimelineItems.Nodes {
			switch item.Typename {
			case "LabeledEvent":
				if labeledFound || item.Label == nil || !isTriageLabel(item.Label.Name) {
					continue
				}
				if !strings.EqualFold(loginOf(item.Actor), login) || !rng.Contains(item.CreatedAt) {
					continue
				}
				events = append(events, domain.ContributionEvent{
					TargetKind:   domain.TargetIssue,
					TargetNumber: issue.Number,
					TargetTitle:  issue.Title,
					TargetURL:    issue.URL,
					EventKind:    domain.EventLabeled,
					AuthorLogin:  login,
					OccurredAt:   item.CreatedAt.UTC(),
					Extra:        domain.EventExtra{Label: item.Label.Name},
				})
				labeledFound = true
			case "ClosedEvent":
				if closedFound || !strings.EqualFold(loginOf(item.Actor), login) || !rng.Contains(item.CreatedAt) {
					continue
				}
				events = append(events, domain.ContributionEvent{
					TargetKind:   domain.TargetIssue,
					TargetNumber: issue.Number,
					TargetTitle:  issue.Title,
					TargetURL:    issue.URL,
					EventKind:    domain.EventClosed,
					AuthorLogin:  login,
					OccurredAt:   item.CreatedAt.UTC(),
					Extra:        domain.EventExtra{ClosedBy: loginOf(item.Actor)},
				})
				closedFound = true
			}
			if labeledFound && closedFound {
				break
			}
		}
	})
	return events, err
}

type repoPullNode struct {
	Number        int        `json:"number"`
	Title         string     `json:"title"`
	URL           string     `json:"url"`
	State         string     `json:"state"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Author        *actorNode `json:"author"`
	TimelineItems struct {
		Nodes []timelineItemNode `json:"nodes"`
	} `json:"timelineItems"`
}

// fetchUserPRActivity scans recently updated pull requests for opens,
// closes, and merges by login. Only the first terminal event per pull
// request matches.
func (s *GitHubSource) fetchUserPRActivity(ctx context.Context, repo domain.RepoRef, login string, rng daterange.Range) ([]domain.ContributionEvent, error) {
	var events []domain.ContributionEvent
	err := s.eachRecentPull(ctx, repo, rng, repoPullsQuery, func(pr repoPullNode) {
		if strings.EqualFold(loginOf(pr.Author), login) && rng.Contains(pr.CreatedAt) {
			events = append(events, domain.ContributionEvent{
				TargetKind:   domain.TargetPullRequest,
				TargetNumber: pr.Number,
				TargetTitle:  pr.Title,
				TargetURL:    pr.URL,
				EventKind:    domain.EventOpened,
				AuthorLogin:  login,
				OccurredAt:   pr.CreatedAt.UTC(),
			})
		}

		for _, item := range pr.TimelineItems.Nodes {
			if item.Typename != "ClosedEvent" && item.Typename != "MergedEvent" {
				continue
			}
			if !strings.EqualFold(loginOf(item.Actor), login) || !rng.Contains(item.CreatedAt) {
				continue
			}
			ev := domain.ContributionEvent{
				TargetKind:   domain.TargetPullRequest,
				TargetNumber: pr.Number,
				TargetTitle:  pr.Title,
				TargetURL:    pr.URL,
				AuthorLogin:  login,
				OccurredAt:   item.CreatedAt.UTC(),
			}
			if item.Typename == "MergedEvent" {
				ev.EventKind = domain.EventMerged
				ev.Extra = domain.EventExtra{MergedBy: loginOf(item.Actor), Merged: true}
			} else {
				ev.EventKind = domain.EventClosed
				ev.Extra = domain.EventExtra{ClosedBy: loginOf(item.Actor)}
			}
			events = append(events, ev)
			break
		}
	})
	return events, err
}

// eachRecentIssue pages through repository issues ordered by update
// time, newest first, invoking fn per issue. Pagination stops at the
// first issue not updated since the window start.
func (s *GitHubSource) eachRecentIssue(ctx context.Context, repo domain.RepoRef, rng daterange.Range, query string, fn func(repoIssueNode)) error {
	var data struct {
		Repository *struct {
			Issues struct {
				PageInfo pageInfoNode    `json:"pageInfo"`
				Nodes    []repoIssueNode `json:"nodes"`
			} `json:"issues"`
		} `json:"repository"`
	}

	cursor := ""
	for {
		variables := map[string]interface{}{
			"owner":    repo.Owner,
			"repo":     repo.Name,
			"since":    rng.FromInstant.Format(time.RFC3339),
			"pageSize": 50,
		}
		if cursor != "" {
			variables["cursor"] = cursor
		}
		if err := s.doQuery(ctx, query, variables, &data); err != nil {
			return err
		}
		if data.Repository == nil {
			return apperrors.New(apperrors.ErrCodeNotFound, "repository "+repo.FullName()+" not found")
		}

		conn := data.Repository.Issues
		for _, issue := range conn.Nodes {
			if issue.UpdatedAt.Before(rng.FromInstant) {
				return nil
			}
			fn(issue)
		}
		if !conn.PageInfo.HasNextPage {
			return nil
		}
		cursor = conn.PageInfo.EndCursor
	}
}

// eachRecentPull is the pull request counterpart of eachRecentIssue.
func (s *GitHubSource) eachRecentPull(ctx context.Context, repo domain.RepoRef, rng daterange.Range, query string, fn func(repoPullNode)) error {
	var data struct {
		Repository *struct {
			PullRequests struct {
				PageInfo pageInfoNode   `json:"pageInfo"`
				Nodes    []repoPullNode `json:"nodes"`
			} `json:"pullRequests"`
		} `json:"repository"`
	}

	cursor := ""
	for {
		variables := map[string]interface{}{
			"owner":    repo.Owner,
			"repo":     repo.Name,
			"pageSize": 50,
		}
		if cursor != "" {
			variables["cursor"] = cursor
		}
		if err := s.doQuery(ctx, query, variables, &data); err != nil {
			return err
		}
		if data.Repository == nil {
			return apperrors.New(apperrors.ErrCodeNotFound, "repository "+repo.FullName()+" not found")
		}

		conn := data.Repository.PullRequests
		for _, pr := range conn.Nodes {
			if pr.UpdatedAt.Before(rng.FromInstant) {
				return nil
			}
			fn(pr)
		}
		if !conn.PageInfo.HasNextPage {
			return nil
		}
		cursor = conn.PageInfo.EndCursor
	}
}

// markPRTriggeredCloses flags issue closes that happened within
// prCloseProximity after any pull request merge in the same event
// list. The actor of such a close is GitHub's automation following
// the merge, not a deliberate triage action.
func markPRTriggeredCloses(events []domain.ContributionEvent) []domain.ContributionEvent {
	var mergeTimes []time.Time
	for _, ev := range events {
		if ev.TargetKind != domain.TargetPullRequest {
			continue
		}
		if ev.EventKind == domain.EventMerged || (ev.EventKind == domain.EventClosed && ev.Extra.Merged) {
			mergeTimes = append(mergeTimes, ev.OccurredAt)
		}
	}
	if len(mergeTimes) == 0 {
		return events
	}
	for i, ev := range events {
		if ev.TargetKind != domain.TargetIssue || ev.EventKind != domain.EventClosed {
			continue
		}
		for _, mergedAt := range mergeTimes {
			diff := ev.OccurredAt.Sub(mergedAt)
			if diff >= 0 && diff <= prCloseProximity {
				events[i].Extra.ViaMergedPR = true
				break
			}
		}
	}
	return events
}

// dropPRTriggeredCloses removes issue closes flagged as merge side
// effects; they are not user contributions.
func dropPRTriggeredCloses(events []domain.ContributionEvent) []domain.ContributionEvent {
	out := events[:0]
	for _, ev := range events {
		if ev.TargetKind == domain.TargetIssue && ev.EventKind == domain.EventClosed && ev.Extra.ViaMergedPR {
			continue
		}
		out = append(out, ev)
	}
	return out
}

type teamIssueNode struct {
	Number        int             `json:"number"`
	Title         string          `json:"title"`
	URL           string          `json:"url"`
	CreatedAt     time.Time       `json:"createdAt"`
	Author        *actorNode      `json:"author"`
	Comments      commentListNode `json:"comments"`
	TimelineItems struct {
		Nodes []timelineItemNode `json:"nodes"`
	} `json:"timelineItems"`
}

type teamPullNode struct {
	Number    int             `json:"number"`
	Title     string          `json:"title"`
	URL       string          `json:"url"`
	CreatedAt time.Time       `json:"createdAt"`
	Author    *actorNode      `json:"author"`
	State     string          `json:"state"`
	Comments  commentListNode `json:"comments"`
	Reviews   struct {
		Nodes []struct {
			Author    *actorNode `json:"author"`
			CreatedAt time.Time  `json:"createdAt"`
			State     string     `json:"state"`
		} `json:"nodes"`
	} `json:"reviews"`
	TimelineItems struct {
		Nodes []timelineItemNode `json:"nodes"`
	} `json:"timelineItems"`
}

// RepoEvents fetches every event on issues and pull requests opened in
// the repository within the window, regardless of actor. Events later
// than the item's creation are kept without window filtering so
// engagement covers the item's whole lifetime.
func (s *GitHubSource) RepoEvents(ctx context.Context, repo domain.RepoRef, rng daterange.Range) ([]domain.ContributionEvent, error) {
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		firstErr    error
		issueEvents []domain.ContributionEvent
		prEvents    []domain.ContributionEvent
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		events, err := s.fetchTeamIssues(ctx, repo, rng)
		mu.Lock()
		defer mu.Unlock()
		if err != nil && firstErr == nil {
			firstErr = err
			return
		}
		issueEvents = events
	}()
	go func() {
		defer wg.Done()
		events, err := s.fetchTeamPulls(ctx, repo, rng)
		mu.Lock()
		defer mu.Unlock()
		if err != nil && firstErr == nil {
			firstErr = err
			return
		}
		prEvents = events
	}()
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	events := append(issueEvents, prEvents...)
	zap.L().Debug("collected repository events",
		zap.String("repository", repo.FullName()),
		zap.Int("events", len(events)))
	return events, nil
}

func (s *GitHubSource) fetchTeamIssues(ctx context.Context, repo domain.RepoRef, rng daterange.Range) ([]domain.ContributionEvent, error) {
	var data struct {
		Repository *struct {
			Issues struct {
				PageInfo pageInfoNode    `json:"pageInfo"`
				Nodes    []teamIssueNode `json:"nodes"`
			} `json:"issues"`
		} `json:"repository"`
	}

	var events []domain.ContributionEvent
	cursor := ""
	for {
		variables := map[string]interface{}{
			"owner":    repo.Owner,
			"repo":     repo.Name,
			"since":    rng.FromInstant.Format(time.RFC3339),
			"pageSize": 100,
		}
		if cursor != "" {
			variables["cursor"] = cursor
		}
		if err := s.doQuery(ctx, teamIssuesQuery, variables, &data); err != nil {
			return nil, err
		}
		if data.Repository == nil {
			return nil, apperrors.New(apperrors.ErrCodeNotFound, "repository "+repo.FullName()+" not found")
		}

		conn := data.Repository.Issues
		stopPaging := false
		for _, issue := range conn.Nodes {
			if issue.CreatedAt.Before(rng.FromInstant) {
				stopPaging = true
				continue
			}
			if !rng.Contains(issue.CreatedAt) {
				continue
			}
			events = append(events, issueNodeEvents(issue)...)
		}
		if stopPaging || !conn.PageInfo.HasNextPage {
			break
		}
		cursor = conn.PageInfo.EndCursor
	}
	return events, nil
}

func issueNodeEvents(issue teamIssueNode) []domain.ContributionEvent {
	base := domain.ContributionEvent{
		TargetKind:   domain.TargetIssue,
		TargetNumber: issue.Number,
		TargetTitle:  issue.Title,
		TargetURL:    issue.URL,
	}

	opened := base
	opened.EventKind = domain.EventOpened
	opened.AuthorLogin = loginOf(issue.Author)
	opened.OccurredAt = issue.CreatedAt.UTC()
	events := []domain.ContributionEvent{opened}

	for _, comment := range issue.Comments.Nodes {
		ev := base
		ev.EventKind = domain.EventCommented
		ev.AuthorLogin = loginOf(comment.Author)
		ev.OccurredAt = comment.CreatedAt.UTC()
		events = append(events, ev)
	}

	for _, item := range issue.TimelineItems.Nodes {
		switch item.Typename {
		case "LabeledEvent":
			if item.Label == nil || !isTriageLabel(item.Label.Name) {
				continue
			}
			ev := base
			ev.EventKind = domain.EventLabeled
			ev.AuthorLogin = loginOf(item.Actor)
			ev.OccurredAt = item.CreatedAt.UTC()
			ev.Extra = domain.EventExtra{Label: item.Label.Name}
			events = append(events, ev)
		case "ClosedEvent":
			ev := base
			ev.EventKind = domain.EventClosed
			ev.AuthorLogin = loginOf(item.Actor)
			ev.OccurredAt = item.CreatedAt.UTC()
			ev.Extra = domain.EventExtra{
				ClosedBy:    loginOf(item.Actor),
				ViaMergedPR: item.Closer != nil && item.Closer.Typename == "PullRequest",
			}
			events = append(events, ev)
		}
	}
	return events
}

func (s *GitHubSource) fetchTeamPulls(ctx context.Context, repo domain.RepoRef, rng daterange.Range) ([]domain.ContributionEvent, error) {
	var data struct {
		Repository *struct {
			PullRequests struct {
				PageInfo pageInfoNode   `json:"pageInfo"`
				Nodes    []teamPullNode `json:"nodes"`
			} `json:"pullRequests"`
		} `json:"repository"`
	}

	var events []domain.ContributionEvent
	cursor := ""
	for {
		variables := map[string]interface{}{
			"owner":    repo.Owner,
			"repo":     repo.Name,
			"pageSize": 100,
		}
		if cursor != "" {
			variables["cursor"] = cursor
		}
		if err := s.doQuery(ctx, teamPullsQuery, variables, &data); err != nil {
			return nil, err
		}
		if data.Repository == nil {
			return nil, apperrors.New(apperrors.ErrCodeNotFound, "repository "+repo.FullName()+" not found")
		}

		conn := data.Repository.PullRequests
		stopPaging := false
		for _, pr := range conn.Nodes {
			if pr.CreatedAt.Before(rng.FromInstant) {
				stopPaging = true
				continue
			}
			if !rng.Contains(pr.CreatedAt) {
				continue
			}
			events = append(events, pullNodeEvents(pr)...)
		}
		if stopPaging || !conn.PageInfo.HasNextPage {
			break
		}
		cursor = conn.PageInfo.EndCursor
	}
	return events, nil
}

func pullNodeEvents(pr teamPullNode) []domain.ContributionEvent {
	base := domain.ContributionEvent{
		TargetKind:   domain.TargetPullRequest,
		TargetNumber: pr.Number,
		TargetTitle:  pr.Title,
		TargetURL:    pr.URL,
	}

	opened := base
	opened.EventKind = domain.EventOpened
	opened.AuthorLogin = loginOf(pr.Author)
	opened.OccurredAt = pr.CreatedAt.UTC()
	events := []domain.ContributionEvent{opened}

	for _, comment := range pr.Comments.Nodes {
		ev := base
		ev.EventKind = domain.EventCommented
		ev.AuthorLogin = loginOf(comment.Author)
		ev.OccurredAt = comment.CreatedAt.UTC()
		events = append(events, ev)
	}

	for _, review := range pr.Reviews.Nodes {
		ev := base
		ev.EventKind = domain.EventReviewSubmitted
		ev.AuthorLogin = loginOf(review.Author)
		ev.OccurredAt = review.CreatedAt.UTC()
		ev.Extra = domain.EventExtra{ReviewState: review.State}
		events = append(events, ev)
	}

	for _, item := range pr.TimelineItems.Nodes {
		switch item.Typename {
		case "MergedEvent":
			ev := base
			ev.EventKind = domain.EventMerged
			ev.AuthorLogin = loginOf(item.Actor)
			ev.OccurredAt = item.CreatedAt.UTC()
			ev.Extra = domain.EventExtra{MergedBy: loginOf(item.Actor), Merged: true}
			events = append(events, ev)
		case "ClosedEvent":
			ev := base
			ev.EventKind = domain.EventClosed
			ev.AuthorLogin = loginOf(item.Actor)
			ev.OccurredAt = item.CreatedAt.UTC()
			ev.Extra = domain.EventExtra{ClosedBy: loginOf(item.Actor)}
			events = append(events, ev)
		}
	}
	return events
}
