package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skylift/skylift/internal/application"
	"github.com/skylift/skylift/internal/domain"
)

func (a *API) listDeploymentsHandler(c *gin.Context) {
	records, err := a.Deploys.List(c.Request.Context())
	if err != nil {
		a.Log.WithError(err).Error("listing deployments failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list deployments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deployments": records})
}

func (a *API) getDeploymentHandler(c *gin.Context) {
	project := c.Param("project")
	rec, err := a.Deploys.Status(c.Request.Context(), project)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown project " + project})
	case errors.Is(err, domain.ErrDriftDetected):
		c.JSON(http.StatusOK, gin.H{"deployment": rec, "warning": "stack no longer exists"})
	case err != nil:
		a.Log.WithError(err).WithField("project", project).Error("status check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read deployment status"})
	default:
		c.JSON(http.StatusOK, gin.H{"deployment": rec})
	}
}

func (a *API) logsHandler(c *gin.Context) {
	project := c.Param("project")

	since := time.Hour
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since duration"})
			return
		}
		since = parsed
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	events, err := a.Observe.FetchLogs(c.Request.Context(), application.LogsInput{
		ProjectName:   project,
		Since:         since,
		FilterPattern: c.Query("filter"),
		Limit:         limit,
	})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no logs for project " + project})
	case err != nil:
		a.Log.WithError(err).WithField("project", project).Error("log fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch logs"})
	default:
		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}
