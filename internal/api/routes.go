package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, "pong")
}

func (a *API) registerRoutes() {
	a.Router.GET("/ping", a.healthHandler)
	a.Router.GET("/deployments", a.listDeploymentsHandler)
	a.Router.GET("/deployments/:project", a.getDeploymentHandler)
	a.Router.GET("/deployments/:project/logs", a.logsHandler)
}
