package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/osswatch/maintainer-dashboard/internal/aggregator"
	"github.com/osswatch/maintainer-dashboard/internal/collector"
	"github.com/osswatch/maintainer-dashboard/internal/config"
	"github.com/osswatch/maintainer-dashboard/internal/daterange"
	"github.com/osswatch/maintainer-dashboard/internal/domain"
	"github.com/osswatch/maintainer-dashboard/internal/logger"
	"github.com/osswatch/maintainer-dashboard/internal/report"
)

var (
	outputJSON bool
	days       int
	fromDate   string
	toDate     string
	timezone   string
	owner      string
	repo       string
)

var rootCmd = &cobra.Command{
	Use:   "maintainer-dashboard",
	Short: "GitHub maintainer activity reporting tool",
	Long: `A CLI tool for reporting GitHub maintainer activity.

It classifies a user's issue and pull request activity into triage and
code-review categories, and computes team engagement ratios over the
issues and pull requests opened in a repository.`,
}

var userCmd = &cobra.Command{
	Use:   "user [login]",
	Short: "Show activity metrics for a user",
	Long:  `Display classified contribution metrics for a single GitHub user.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runUser,
}

var teamCmd = &cobra.Command{
	Use:   "team [login...]",
	Short: "Show team engagement metrics",
	Long: `Display engagement ratios for a team over the issues and pull
requests opened in the repository. Team members may be listed as
arguments; otherwise the configured roster is used.`,
	RunE: runTeam,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().IntVar(&days, "days", 0, "rolling window in days (1-200)")
	rootCmd.PersistentFlags().StringVar(&fromDate, "from", "", "start date (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&toDate, "to", "", "end date (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "", "IANA timezone for date boundaries (default UTC)")
	rootCmd.PersistentFlags().StringVar(&owner, "owner", "", "repository owner")
	rootCmd.PersistentFlags().StringVar(&repo, "repo", "", "repository name")

	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(teamCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := logger.Initialize("error"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveRange(cfg *config.Config) (daterange.Range, error) {
	loc, err := daterange.LoadTimezone(timezone)
	if err != nil {
		return daterange.Range{}, err
	}
	if fromDate != "" || toDate != "" {
		if fromDate == "" || toDate == "" {
			return daterange.Range{}, fmt.Errorf("--from and --to must be provided together")
		}
		return daterange.Resolve(fromDate, toDate, loc, time.Now())
	}
	n := days
	if n == 0 {
		n = cfg.DefaultDays
	}
	return daterange.ResolveLastNDays(n, loc, time.Now())
}

func resolveRepo(cfg *config.Config) domain.RepoRef {
	ref := domain.RepoRef{Owner: cfg.DefaultOwner, Name: cfg.DefaultRepo}
	if owner != "" {
		ref.Owner = owner
	}
	if repo != "" {
		ref.Name = repo
	}
	return ref
}

func runUser(cmd *cobra.Command, args []string) error {
	login := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rng, err := resolveRange(cfg)
	if err != nil {
		return err
	}
	ref := resolveRepo(cfg)

	source := collector.NewGitHubSource(cfg.GitHubToken)
	events, err := source.UserEvents(context.Background(), ref, login, rng)
	if err != nil {
		return fmt.Errorf("failed to collect events: %w", err)
	}

	buckets := aggregator.Aggregate(events)
	result := report.NewAssembler().Assemble(login, ref, rng, buckets)

	if outputJSON {
		return printJSON(result)
	}

	fmt.Printf("Activity for %s in %s (%s to %s, %d days)\n\n",
		login, ref.FullName(), result.Meta.Period.Start, result.Meta.Period.End, result.Meta.Period.Days)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Category", "Count"})
	table.Append([]string{"Issues Opened", fmt.Sprintf("%d", len(result.Data.IssuesOpened))})
	table.Append([]string{"PRs Opened", fmt.Sprintf("%d", len(result.Data.PRsOpened))})
	table.Append([]string{"Issue Comments", fmt.Sprintf("%d", len(result.Data.IssueTriage.Comments))})
	table.Append([]string{"Issues Labeled", fmt.Sprintf("%d", len(result.Data.IssueTriage.Labeled))})
	table.Append([]string{"Issues Closed", fmt.Sprintf("%d", len(result.Data.IssueTriage.Closed))})
	table.Append([]string{"PR Comments", fmt.Sprintf("%d", len(result.Data.CodeReviews.Comments))})
	table.Append([]string{"PR Reviews", fmt.Sprintf("%d", len(result.Data.CodeReviews.Reviews))})
	table.Append([]string{"PRs Merged", fmt.Sprintf("%d", len(result.Data.CodeReviews.Merged))})
	table.Append([]string{"PRs Closed", fmt.Sprintf("%d", len(result.Data.CodeReviews.Closed))})
	table.Append([]string{"Total Actions", fmt.Sprintf("%d", result.Summary.TotalActions)})
	table.Render()

	return nil
}

func runTeam(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rng, err := resolveRange(cfg)
	if err != nil {
		return err
	}
	ref := resolveRepo(cfg)

	roster, err := resolveRoster(cfg, args)
	if err != nil {
		return err
	}

	source := collector.NewGitHubSource(cfg.GitHubToken)
	events, err := source.RepoEvents(context.Background(), ref, rng)
	if err != nil {
		return fmt.Errorf("failed to collect events: %w", err)
	}

	stats := aggregator.AggregateTeam(events, roster, nil)
	result := report.NewAssembler().AssembleTeam(roster, ref, rng, stats)

	if outputJSON {
		return printJSON(result)
	}

	fmt.Printf("Team engagement in %s (%s to %s, %d days)\n\n",
		ref.FullName(), result.Meta.Period.Start, result.Meta.Period.End, result.Meta.Period.Days)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Issues", "Pull Requests"})
	table.Append([]string{"Total Opened",
		fmt.Sprintf("%d", stats.Team.Issues.TotalItems),
		fmt.Sprintf("%d", stats.Team.PullRequests.TotalItems)})
	table.Append([]string{"Team Touched",
		fmt.Sprintf("%d", stats.Team.Issues.ItemsTouched),
		fmt.Sprintf("%d", stats.Team.PullRequests.ItemsTouched)})
	table.Append([]string{"Team Engagement",
		fmt.Sprintf("%.1f%%", stats.Team.Issues.EngagementRatio*100),
		fmt.Sprintf("%.1f%%", stats.Team.PullRequests.EngagementRatio*100)})
	table.Append([]string{"Contributor Touched",
		fmt.Sprintf("%d", stats.Contributors.Issues.ItemsTouched),
		fmt.Sprintf("%d", stats.Contributors.PullRequests.ItemsTouched)})
	table.Append([]string{"Closed / Finished",
		fmt.Sprintf("%d manual, %d via PR", stats.IssueCloses.ManuallyClosed, stats.IssueCloses.PRTriggeredClosed),
		fmt.Sprintf("%d merged, %d closed", stats.PRFinishes.Merged, stats.PRFinishes.Closed)})
	table.Render()

	return nil
}

func resolveRoster(cfg *config.Config, args []string) (domain.Roster, error) {
	if len(args) > 0 {
		return domain.NewRoster(args), nil
	}
	if len(cfg.TeamMembers) > 0 {
		return domain.NewRoster(cfg.TeamMembers), nil
	}
	if cfg.TeamOrg != "" {
		src := collector.NewGitHubRosterSource(context.Background(), cfg.GitHubToken)
		return src.TeamRoster(context.Background(), cfg.TeamOrg, cfg.TeamSlug)
	}
	return domain.Roster{}, fmt.Errorf("no team roster: pass members as arguments or set TEAM_MEMBERS or TEAM_ORG/TEAM_SLUG")
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
