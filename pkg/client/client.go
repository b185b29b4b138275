// Package client is a small HTTP client for the maintainer-dashboard API.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/osswatch/maintainer-dashboard/internal/report"
)

// QueryOptions select the reporting window and repository. Either Days
// or the FromDate/ToDate pair may be set, not both; zero values fall
// back to the server's defaults.
type QueryOptions struct {
	Days     int
	FromDate string
	ToDate   string
	Timezone string
	Owner    string
	Repo     string
}

// Client is the API client for the maintainer dashboard
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// GetUserMetrics retrieves activity metrics for a single user
func (c *Client) GetUserMetrics(user string, opts QueryOptions) (*report.Report, error) {
	params := opts.values()
	params.Set("user", user)

	var result report.Report
	if err := c.get("/api/v1/metrics", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTeamMetrics retrieves engagement metrics for a team roster.
// An empty roster defers to the server's configured team.
func (c *Client) GetTeamMetrics(team []string, opts QueryOptions) (*report.TeamReport, error) {
	params := opts.values()
	if len(team) > 0 {
		params.Set("team", strings.Join(team, ","))
	}

	var result report.TeamReport
	if err := c.get("/api/v1/team/metrics", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck() error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.get("/health", nil, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func (o QueryOptions) values() url.Values {
	params := url.Values{}
	if o.Days > 0 {
		params.Set("days", strconv.Itoa(o.Days))
	}
	if o.FromDate != "" {
		params.Set("from_date", o.FromDate)
	}
	if o.ToDate != "" {
		params.Set("to_date", o.ToDate)
	}
	if o.Timezone != "" {
		params.Set("timezone", o.Timezone)
	}
	if o.Owner != "" {
		params.Set("owner", o.Owner)
	}
	if o.Repo != "" {
		params.Set("repo", o.Repo)
	}
	return params
}

func (c *Client) get(path string, params url.Values, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	resp, err := c.httpClient.Get(u.String())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
