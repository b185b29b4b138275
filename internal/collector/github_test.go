package collector

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osswatch/maintainer-dashboard/internal/daterange"
	"github.com/osswatch/maintainer-dashboard/internal/domain"
	apperrors "github.com/osswatch/maintainer-dashboard/internal/errors"
)

var testRepo = domain.RepoRef{Owner: "PowerShell", Name: "PowerShell"}

func testRange(t *testing.T) daterange.Range {
	t.Helper()
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	rng, err := daterange.Resolve("2026-08-01", "2026-08-15", time.UTC, now)
	require.NoError(t, err)
	return rng
}

// dispatchServer answers each GraphQL query with a canned response
// selected by a substring of the query document.
func dispatchServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req graphQLRequest
		require.NoError(t, json.Unmarshal(body, &req))

		for marker, resp := range responses {
			if strings.Contains(req.Query, marker) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(resp))
				return
			}
		}
		t.Errorf("no canned response for query: %s", req.Query)
		w.WriteHeader(http.StatusInternalServerError)
	}))
}

func newTestSource(url string) *GitHubSource {
	s := NewGitHubSource("testtoken", WithEndpoint(url))
	// No pacing in tests.
	s.limiter = noopLimiter{}
	return s
}

type noopLimiter struct{}

func (noopLimiter) Wait(context.Context) error    { return nil }
func (noopLimiter) UpdateLimit(int, time.Time)    {}
func (noopLimiter) UpdateFromHeaders(http.Header) {}

const emptyIssuesPage = `{"data":{"repository":{"issues":{"pageInfo":{"hasNextPage":false,"endCursor":""},"nodes":[]}}}}`
const emptyPullsPage = `{"data":{"repository":{"pullRequests":{"pageInfo":{"hasNextPage":false,"endCursor":""},"nodes":[]}}}}`
const emptyReviewsPage = `{"data":{"user":{"contributionsCollection":{"pullRequestReviewContributions":{"pageInfo":{"hasNextPage":false,"endCursor":""},"nodes":[]}}}}}`
const emptyCommentsPage = `{"data":{"user":{"issueComments":{"pageInfo":{"hasPreviousPage":false,"startCursor":""},"nodes":[]}}}}`

func TestUserEventsCommentMapping(t *testing.T) {
	comments := `{"data":{"user":{"issueComments":{
		"pageInfo":{"hasPreviousPage":false,"startCursor":""},
		"nodes":[
			{"publishedAt":"2026-08-10T10:00:00Z","url":"https://github.com/PowerShell/PowerShell/issues/100#issuecomment-1",
			 "issue":{"author":{"login":"someone"},"repository":{"nameWithOwner":"PowerShell/PowerShell"},"number":100,"title":"Crash on start"},
			 "pullRequest":null},
			{"publishedAt":"2026-08-11T10:00:00Z","url":"https://github.com/PowerShell/PowerShell/pull/200#issuecomment-2",
			 "issue":{"author":{"login":"someone"},"repository":{"nameWithOwner":"PowerShell/PowerShell"},"number":200,"title":"Fix crash"},
			 "pullRequest":{"merged":false}},
			{"publishedAt":"2026-08-12T10:00:00Z","url":"https://github.com/PowerShell/PowerShell/pull/201#issuecomment-3",
			 "issue":{"author":{"login":"Octocat"},"repository":{"nameWithOwner":"PowerShell/PowerShell"},"number":201,"title":"My own PR"},
			 "pullRequest":{"merged":true}},
			{"publishedAt":"2026-08-12T11:00:00Z","url":"https://github.com/other/repo/issues/1#issuecomment-4",
			 "issue":{"author":{"login":"someone"},"repository":{"nameWithOwner":"other/repo"},"number":1,"title":"Elsewhere"},
			 "pullRequest":null}
		]}}}}`

	srv := dispatchServer(t, map[string]string{
		"issueComments":                  comments,
		"pullRequestReviewContributions": emptyReviewsPage,
		"LABELED_EVENT":                  emptyIssuesPage,
		"pullRequests(":                  emptyPullsPage,
	})
	defer srv.Close()

	events, err := newTestSource(srv.URL).UserEvents(context.Background(), testRepo, "octocat", testRange(t))
	require.NoError(t, err)

	// Own-PR comment and foreign-repo comment are excluded.
	require.Len(t, events, 2)
	assert.Equal(t, domain.TargetIssue, events[0].TargetKind)
	assert.Equal(t, 100, events[0].TargetNumber)
	assert.Equal(t, domain.EventCommented, events[0].EventKind)
	assert.Equal(t, domain.TargetPullRequest, events[1].TargetKind)
	assert.Equal(t, 200, events[1].TargetNumber)
}

func TestUserEventsIssueActivity(t *testing.T) {
	issues := `{"data":{"repository":{"issues":{
		"pageInfo":{"hasNextPage":false,"endCursor":""},
		"nodes":[
			{"number":10,"title":"Opened by user","url":"u10","createdAt":"2026-08-05T00:00:00Z","updatedAt":"2026-08-05T00:00:00Z",
			 "author":{"login":"octocat"},"timelineItems":{"nodes":[]}},
			{"number":11,"title":"Triaged","url":"u11","createdAt":"2026-07-01T00:00:00Z","updatedAt":"2026-08-06T00:00:00Z",
			 "author":{"login":"someone"},
			 "timelineItems":{"nodes":[
				{"__typename":"LabeledEvent","createdAt":"2026-08-06T00:00:00Z","actor":{"login":"octocat"},"label":{"name":"Resolution-Fixed"}},
				{"__typename":"LabeledEvent","createdAt":"2026-08-07T00:00:00Z","actor":{"login":"octocat"},"label":{"name":"Resolution-Duplicate"}},
				{"__typename":"LabeledEvent","createdAt":"2026-08-07T01:00:00Z","actor":{"login":"octocat"},"label":{"name":"bug"}},
				{"__typename":"ClosedEvent","createdAt":"2026-08-08T00:00:00Z","actor":{"login":"octocat"}}
			 ]}}
		]}}}}`

	srv := dispatchServer(t, map[string]string{
		"issueComments":                  emptyCommentsPage,
		"pullRequestReviewContributions": emptyReviewsPage,
		"LABELED_EVENT":                  issues,
		"pullRequests(":                  emptyPullsPage,
	})
	defer srv.Close()

	events, err := newTestSource(srv.URL).UserEvents(context.Background(), testRepo, "octocat", testRange(t))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, domain.EventOpened, events[0].EventKind)
	assert.Equal(t, 10, events[0].TargetNumber)

	// Only the first triage label per issue matches; plain labels never do.
	assert.Equal(t, domain.EventLabeled, events[1].EventKind)
	assert.Equal(t, "Resolution-Fixed", events[1].Extra.Label)

	assert.Equal(t, domain.EventClosed, events[2].EventKind)
	assert.Equal(t, 11, events[2].TargetNumber)
}

func TestUserEventsDropsPRTriggeredIssueCloses(t *testing.T) {
	issues := `{"data":{"repository":{"issues":{
		"pageInfo":{"hasNextPage":false,"endCursor":""},
		"nodes":[
			{"number":20,"title":"Auto closed","url":"u20","createdAt":"2026-07-01T00:00:00Z","updatedAt":"2026-08-10T00:00:02Z",
			 "author":{"login":"someone"},
			 "timelineItems":{"nodes":[
				{"__typename":"ClosedEvent","createdAt":"2026-08-10T00:00:02Z","actor":{"login":"octocat"}}
			 ]}},
			{"number":21,"title":"Hand closed","url":"u21","createdAt":"2026-07-01T00:00:00Z","updatedAt":"2026-08-11T00:00:00Z",
			 "author":{"login":"someone"},
			 "timelineItems":{"nodes":[
				{"__typename":"ClosedEvent","createdAt":"2026-08-11T00:00:00Z","actor":{"login":"octocat"}}
			 ]}}
		]}}}}`
	pulls := `{"data":{"repository":{"pullRequests":{
		"pageInfo":{"hasNextPage":false,"endCursor":""},
		"nodes":[
			{"number":30,"title":"The fix","url":"u30","state":"MERGED","createdAt":"2026-08-02T00:00:00Z","updatedAt":"2026-08-10T00:00:00Z",
			 "author":{"login":"octocat"},
			 "timelineItems":{"nodes":[
				{"__typename":"MergedEvent","createdAt":"2026-08-10T00:00:00Z","actor":{"login":"octocat"}}
			 ]}}
		]}}}}`

	srv := dispatchServer(t, map[string]string{
		"issueComments":                  emptyCommentsPage,
		"pullRequestReviewContributions": emptyReviewsPage,
		"LABELED_EVENT":                  issues,
		"pullRequests(":                  pulls,
	})
	defer srv.Close()

	events, err := newTestSource(srv.URL).UserEvents(context.Background(), testRepo, "octocat", testRange(t))
	require.NoError(t, err)

	var issueCloses []int
	for _, ev := range events {
		if ev.TargetKind == domain.TargetIssue && ev.EventKind == domain.EventClosed {
			issueCloses = append(issueCloses, ev.TargetNumber)
		}
	}
	// Issue 20 closed 2s after the merge of PR 30 is a merge side
	// effect; issue 21 closed a day later stays.
	assert.Equal(t, []int{21}, issueCloses)
}

func TestUserEventsReviewMapping(t *testing.T) {
	reviews := `{"data":{"user":{"contributionsCollection":{"pullRequestReviewContributions":{
		"pageInfo":{"hasNextPage":false,"endCursor":""},
		"nodes":[
			{"occurredAt":"2026-08-09T00:00:00Z","repository":{"nameWithOwner":"PowerShell/PowerShell"},
			 "pullRequest":{"author":{"login":"someone"},"number":40,"title":"Reviewed","url":"u40","merged":true},
			 "pullRequestReview":{"url":"u40r","state":"APPROVED"}},
			{"occurredAt":"2026-08-09T01:00:00Z","repository":{"nameWithOwner":"PowerShell/PowerShell"},
			 "pullRequest":{"author":{"login":"octocat"},"number":41,"title":"Own PR","url":"u41","merged":false},
			 "pullRequestReview":{"url":"u41r","state":"COMMENTED"}}
		]}}}}}`

	srv := dispatchServer(t, map[string]string{
		"issueComments":                  emptyCommentsPage,
		"pullRequestReviewContributions": reviews,
		"LABELED_EVENT":                  emptyIssuesPage,
		"pullRequests(":                  emptyPullsPage,
	})
	defer srv.Close()

	events, err := newTestSource(srv.URL).UserEvents(context.Background(), testRepo, "octocat", testRange(t))
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventReviewSubmitted, events[0].EventKind)
	assert.Equal(t, 40, events[0].TargetNumber)
	assert.Equal(t, "APPROVED", events[0].Extra.ReviewState)
	assert.Equal(t, "u40r", events[0].TargetURL)
}

func TestUserEventsUserNotFound(t *testing.T) {
	srv := dispatchServer(t, map[string]string{
		"issueComments":                  `{"data":{"user":null}}`,
		"pullRequestReviewContributions": `{"data":{"user":null}}`,
		"LABELED_EVENT":                  emptyIssuesPage,
		"pullRequests(":                  emptyPullsPage,
	})
	defer srv.Close()

	_, err := newTestSource(srv.URL).UserEvents(context.Background(), testRepo, "ghost", testRange(t))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}

func TestDoQueryStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		headers  map[string]string
		body     string
		wantCode apperrors.ErrCode
	}{
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			body:     `{"message":"Bad credentials"}`,
			wantCode: apperrors.ErrCodeUnauthorized,
		},
		{
			name:     "rate limited",
			status:   http.StatusForbidden,
			headers:  map[string]string{"X-RateLimit-Remaining": "0"},
			body:     `{"message":"API rate limit exceeded"}`,
			wantCode: apperrors.ErrCodeRateLimited,
		},
		{
			name:     "server error",
			status:   http.StatusBadGateway,
			body:     `oops`,
			wantCode: apperrors.ErrCodeUpstream,
		},
		{
			name:     "graphql not found",
			status:   http.StatusOK,
			body:     `{"data":null,"errors":[{"type":"NOT_FOUND","message":"Could not resolve to a User with the login of 'ghost'."}]}`,
			wantCode: apperrors.ErrCodeNotFound,
		},
		{
			name:     "graphql rate limited",
			status:   http.StatusOK,
			body:     `{"data":null,"errors":[{"type":"RATE_LIMITED","message":"API rate limit exceeded"}]}`,
			wantCode: apperrors.ErrCodeRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var out struct{}
			err := newTestSource(srv.URL).doQuery(context.Background(), "query {}", nil, &out)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
		})
	}
}

func TestDoQueryMissingToken(t *testing.T) {
	s := NewGitHubSource("")
	var out struct{}
	err := s.doQuery(context.Background(), "query {}", nil, &out)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.CodeOf(err))
}

func TestRepoEventsTeamMapping(t *testing.T) {
	issues := `{"data":{"repository":{"issues":{
		"pageInfo":{"hasNextPage":false,"endCursor":""},
		"nodes":[
			{"number":50,"title":"Attended","url":"u50","createdAt":"2026-08-05T00:00:00Z","author":{"login":"reporter"},
			 "comments":{"nodes":[{"author":{"login":"alice"},"createdAt":"2026-08-05T01:00:00Z"}]},
			 "timelineItems":{"nodes":[
				{"__typename":"LabeledEvent","createdAt":"2026-08-05T02:00:00Z","actor":{"login":"alice"},"label":{"name":"Resolution-Answered"}},
				{"__typename":"ClosedEvent","createdAt":"2026-08-06T00:00:00Z","actor":{"login":"alice"},"closer":{"__typename":"PullRequest"}}
			 ]}},
			{"number":51,"title":"Unattended","url":"u51","createdAt":"2026-08-06T00:00:00Z","author":{"login":"reporter"},
			 "comments":{"nodes":[]},
			 "timelineItems":{"nodes":[]}}
		]}}}}`
	pulls := `{"data":{"repository":{"pullRequests":{
		"pageInfo":{"hasNextPage":false,"endCursor":""},
		"nodes":[
			{"number":60,"title":"Reviewed PR","url":"u60","createdAt":"2026-08-07T00:00:00Z","author":{"login":"contributor"},"state":"MERGED",
			 "comments":{"nodes":[]},
			 "reviews":{"nodes":[{"author":{"login":"bob"},"createdAt":"2026-08-07T01:00:00Z","state":"APPROVED"}]},
			 "timelineItems":{"nodes":[
				{"__typename":"MergedEvent","createdAt":"2026-08-08T00:00:00Z","actor":{"login":"bob"}}
			 ]}}
		]}}}}`

	srv := dispatchServer(t, map[string]string{
		"issues(":       issues,
		"pullRequests(": pulls,
	})
	defer srv.Close()

	events, err := newTestSource(srv.URL).RepoEvents(context.Background(), testRepo, testRange(t))
	require.NoError(t, err)

	byKind := map[domain.EventKind]int{}
	for _, ev := range events {
		byKind[ev.EventKind]++
	}
	assert.Equal(t, 3, byKind[domain.EventOpened])
	assert.Equal(t, 1, byKind[domain.EventCommented])
	assert.Equal(t, 1, byKind[domain.EventLabeled])
	assert.Equal(t, 1, byKind[domain.EventClosed])
	assert.Equal(t, 1, byKind[domain.EventReviewSubmitted])
	assert.Equal(t, 1, byKind[domain.EventMerged])

	for _, ev := range events {
		if ev.TargetKind == domain.TargetIssue && ev.EventKind == domain.EventClosed {
			assert.True(t, ev.Extra.ViaMergedPR)
		}
	}
}

func TestRepoEventsSkipsItemsOutsideWindow(t *testing.T) {
	issues := `{"data":{"repository":{"issues":{
		"pageInfo":{"hasNextPage":true,"endCursor":"next"},
		"nodes":[
			{"number":70,"title":"In window","url":"u70","createdAt":"2026-08-10T00:00:00Z","author":{"login":"reporter"},
			 "comments":{"nodes":[]},"timelineItems":{"nodes":[]}},
			{"number":71,"title":"Too old","url":"u71","createdAt":"2026-07-01T00:00:00Z","author":{"login":"reporter"},
			 "comments":{"nodes":[]},"timelineItems":{"nodes":[]}}
		]}}}}`

	srv := dispatchServer(t, map[string]string{
		"issues(":       issues,
		"pullRequests(": emptyPullsPage,
	})
	defer srv.Close()

	events, err := newTestSource(srv.URL).RepoEvents(context.Background(), testRepo, testRange(t))
	require.NoError(t, err)

	// The old issue halts pagination despite hasNextPage.
	require.Len(t, events, 1)
	assert.Equal(t, 70, events[0].TargetNumber)
}

func TestMarkPRTriggeredClosesBoundaries(t *testing.T) {
	merge := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	mk := func(offset time.Duration) domain.ContributionEvent {
		return domain.ContributionEvent{
			TargetKind: domain.TargetIssue,
			EventKind:  domain.EventClosed,
			OccurredAt: merge.Add(offset),
		}
	}
	events := []domain.ContributionEvent{
		{TargetKind: domain.TargetPullRequest, EventKind: domain.EventMerged, OccurredAt: merge, Extra: domain.EventExtra{Merged: true}},
		mk(0),
		mk(3 * time.Second),
		mk(3*time.Second + time.Nanosecond),
		mk(-time.Second),
	}

	marked := markPRTriggeredCloses(events)
	assert.True(t, marked[1].Extra.ViaMergedPR)
	assert.True(t, marked[2].Extra.ViaMergedPR)
	assert.False(t, marked[3].Extra.ViaMergedPR)
	assert.False(t, marked[4].Extra.ViaMergedPR)
}
