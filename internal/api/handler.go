package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/osswatch/maintainer-dashboard/internal/aggregator"
	"github.com/osswatch/maintainer-dashboard/internal/collector"
	"github.com/osswatch/maintainer-dashboard/internal/config"
	"github.com/osswatch/maintainer-dashboard/internal/daterange"
	"github.com/osswatch/maintainer-dashboard/internal/domain"
	apperrors "github.com/osswatch/maintainer-dashboard/internal/errors"
	"github.com/osswatch/maintainer-dashboard/internal/report"
)

// Handler handles API requests
type Handler struct {
	source    collector.EventSource
	roster    collector.RosterSource
	assembler *report.Assembler
	cfg       *config.Config
	now       func() time.Time
}

// NewHandler creates a new API handler. roster may be nil when no
// team directory is configured.
func NewHandler(source collector.EventSource, roster collector.RosterSource, assembler *report.Assembler, cfg *config.Config) *Handler {
	return &Handler{
		source:    source,
		roster:    roster,
		assembler: assembler,
		cfg:       cfg,
		now:       time.Now,
	}
}

// HealthCheck returns the health status of the API
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// GetMetrics returns activity metrics for a single user
// GET /api/v1/metrics?user=...&days=7 or ?from_date=...&to_date=...
func (h *Handler) GetMetrics(c *gin.Context) {
	user := strings.TrimSpace(c.Query("user"))
	if user == "" {
		respondError(c, apperrors.NewValidationError(apperrors.ErrCodeMissingParameter,
			"missing required parameter: user"))
		return
	}

	repo, err := h.repoFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	rng, err := h.rangeFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	events, err := h.source.UserEvents(c.Request.Context(), repo, user, rng)
	if err != nil {
		respondError(c, err)
		return
	}

	buckets := aggregator.Aggregate(events)
	result := h.assembler.Assemble(user, repo, rng, buckets)

	zap.L().Info("metrics request served",
		zap.String("user", user),
		zap.String("repository", repo.FullName()),
		zap.Int("total_actions", result.Summary.TotalActions))

	c.JSON(http.StatusOK, result)
}

// GetTeamMetrics returns team engagement metrics
// GET /api/v1/team/metrics?team=a,b,c&days=7
func (h *Handler) GetTeamMetrics(c *gin.Context) {
	repo, err := h.repoFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}
	rng, err := h.rangeFromQuery(c)
	if err != nil {
		respondError(c, err)
		return
	}

	roster, err := h.resolveRoster(c)
	if err != nil {
		respondError(c, err)
		return
	}

	events, err := h.source.RepoEvents(c.Request.Context(), repo, rng)
	if err != nil {
		respondError(c, err)
		return
	}

	stats := aggregator.AggregateTeam(events, roster, nil)
	result := h.assembler.AssembleTeam(roster, repo, rng, stats)

	zap.L().Info("team metrics request served",
		zap.String("repository", repo.FullName()),
		zap.Int("team_size", roster.Size()))

	c.JSON(http.StatusOK, result)
}

// repoFromQuery reads owner/repo, falling back to configured defaults.
func (h *Handler) repoFromQuery(c *gin.Context) (domain.RepoRef, error) {
	owner := strings.TrimSpace(c.DefaultQuery("owner", h.cfg.DefaultOwner))
	repo := strings.TrimSpace(c.DefaultQuery("repo", h.cfg.DefaultRepo))
	if owner == "" || repo == "" {
		return domain.RepoRef{}, apperrors.NewValidationError(apperrors.ErrCodeInvalidParameter,
			"owner and repo must be non-empty strings")
	}
	return domain.RepoRef{Owner: owner, Name: repo}, nil
}

// rangeFromQuery resolves the reporting window from either an explicit
// from_date/to_date pair or a rolling day count. The two forms are
// mutually exclusive.
func (h *Handler) rangeFromQuery(c *gin.Context) (daterange.Range, error) {
	loc, err := daterange.LoadTimezone(c.Query("timezone"))
	if err != nil {
		return daterange.Range{}, err
	}

	fromDate := strings.TrimSpace(c.Query("from_date"))
	toDate := strings.TrimSpace(c.Query("to_date"))
	daysStr := strings.TrimSpace(c.Query("days"))

	if fromDate != "" || toDate != "" {
		if daysStr != "" {
			return daterange.Range{}, apperrors.NewValidationError(apperrors.ErrCodeInvalidParameter,
				"days cannot be combined with from_date/to_date")
		}
		if fromDate == "" || toDate == "" {
			return daterange.Range{}, apperrors.NewValidationError(apperrors.ErrCodeMissingParameter,
				"from_date and to_date must be provided together")
		}
		return daterange.Resolve(fromDate, toDate, loc, h.now())
	}

	days := h.cfg.DefaultDays
	if daysStr != "" {
		days, err = strconv.Atoi(daysStr)
		if err != nil {
			return daterange.Range{}, apperrors.NewValidationError(apperrors.ErrCodeInvalidParameter,
				"invalid days parameter: must be an integer")
		}
	}
	return daterange.ResolveLastNDays(days, loc, h.now())
}

// resolveRoster builds the team roster from, in order of precedence,
// the team query parameter, the configured static member list, or the
// configured org/team-slug pair.
func (h *Handler) resolveRoster(c *gin.Context) (domain.Roster, error) {
	if teamParam := strings.TrimSpace(c.Query("team")); teamParam != "" {
		var logins []string
		for _, login := range strings.Split(teamParam, ",") {
			if login = strings.TrimSpace(login); login != "" {
				logins = append(logins, login)
			}
		}
		if len(logins) == 0 {
			return domain.Roster{}, apperrors.NewValidationError(apperrors.ErrCodeInvalidParameter,
				"team parameter must list at least one login")
		}
		return domain.NewRoster(logins), nil
	}

	if len(h.cfg.TeamMembers) > 0 {
		return domain.NewRoster(h.cfg.TeamMembers), nil
	}

	if h.cfg.TeamOrg != "" && h.roster != nil {
		return h.roster.TeamRoster(c.Request.Context(), h.cfg.TeamOrg, h.cfg.TeamSlug)
	}

	return domain.Roster{}, apperrors.NewValidationError(apperrors.ErrCodeMissingParameter,
		"no team roster: pass team=... or configure TEAM_MEMBERS or TEAM_ORG/TEAM_SLUG")
}

// respondError sends an error response
func respondError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)

	status := http.StatusInternalServerError
	message := "An unexpected error occurred"
	if appErr := (*apperrors.AppError)(nil); errors.As(err, &appErr) {
		message = appErr.Message
	}

	switch {
	case apperrors.IsValidation(err):
		status = http.StatusBadRequest
	case code == apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case code == apperrors.ErrCodeRateLimited:
		status = http.StatusTooManyRequests
	case code == apperrors.ErrCodeUnauthorized, code == apperrors.ErrCodeUpstream:
		status = http.StatusInternalServerError
	default:
		// Unexpected failure: full detail stays in the server log,
		// the response body carries only a generic message.
		zap.L().Error("internal error", zap.Error(err), zap.String("path", c.Request.URL.Path))
		code = apperrors.ErrCodeInternal
		message = "An unexpected error occurred"
	}

	c.JSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}
