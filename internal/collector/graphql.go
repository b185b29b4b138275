package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/osswatch/maintainer-dashboard/internal/errors"
)

const graphQLEndpoint = "https://api.github.com/graphql"

// graphQLRequest is the wire shape of a GraphQL request
type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// graphQLError is one error entry in a GraphQL response
type graphQLError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// graphQLResponse is the wire shape of a GraphQL response
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

// Option configures a GitHubSource
type Option func(*GitHubSource)

// WithEndpoint overrides the GraphQL endpoint, used by tests.
func WithEndpoint(endpoint string) Option {
	return func(s *GitHubSource) { s.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *GitHubSource) { s.httpClient = client }
}

// GitHubSource fetches contribution events from the GitHub GraphQL API
type GitHubSource struct {
	endpoint   string
	token      string
	httpClient *http.Client
	limiter    RateLimiter
}

// NewGitHubSource creates an event source backed by the GitHub GraphQL API
func NewGitHubSource(token string, opts ...Option) *GitHubSource {
	s := &GitHubSource{
		endpoint: graphQLEndpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: NewRateLimiter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// doQuery executes one GraphQL query and maps transport and API
// failures onto the application error taxonomy. Messages propagated
// from upstream are sanitized before they can reach a response body.
func (s *GitHubSource) doQuery(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	if s.token == "" {
		return apperrors.NewUnauthorizedError("GitHub token is not configured")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return apperrors.NewInternalError("failed to marshal GraphQL request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return apperrors.NewInternalError("failed to create GraphQL request", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "maintainer-dashboard")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return apperrors.NewUpstreamError(fmt.Sprintf("GitHub API request failed: %v", err), err)
	}
	defer resp.Body.Close()

	s.limiter.UpdateFromHeaders(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewUpstreamError("failed to read GitHub API response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apperrors.NewUnauthorizedError("GitHub authentication failed; check your token")
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return apperrors.NewRateLimitedError("GitHub API rate limit exceeded; try again later")
	case resp.StatusCode != http.StatusOK:
		return apperrors.NewUpstreamError(
			fmt.Sprintf("GitHub GraphQL endpoint returned %d: %s", resp.StatusCode, string(body)), nil)
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(body, &gqlResp); err != nil {
		return apperrors.NewUpstreamError("failed to parse GitHub GraphQL response", err)
	}

	if len(gqlResp.Errors) > 0 {
		return mapGraphQLErrors(gqlResp.Errors)
	}

	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return apperrors.NewUpstreamError("failed to decode GitHub GraphQL data", err)
	}
	return nil
}

func mapGraphQLErrors(errs []graphQLError) error {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Message)
	}
	joined := strings.Join(messages, "; ")

	for _, e := range errs {
		switch e.Type {
		case "NOT_FOUND":
			return apperrors.New(apperrors.ErrCodeNotFound, apperrors.Sanitize(joined))
		case "RATE_LIMITED":
			return apperrors.NewRateLimitedError("GitHub API rate limit exceeded; try again later")
		}
	}
	return apperrors.NewUpstreamError("GraphQL query failed: "+joined, nil)
}
