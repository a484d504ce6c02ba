// Package api exposes a read-only HTTP view of deployment records. Mutations
// go through the CLI; the server exists so dashboards and scripts can watch
// deployment state without database access.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/skylift/skylift/internal/application"
)

type API struct {
	Router  *gin.Engine
	Deploys *application.DeployService
	Observe *application.ObserveService
	Log     logrus.FieldLogger
}

func NewAPI(deploys *application.DeployService, observe *application.ObserveService, log logrus.FieldLogger) *API {
	gin.SetMode(gin.ReleaseMode)
	api := &API{
		Router:  gin.New(),
		Deploys: deploys,
		Observe: observe,
		Log:     log,
	}
	api.Router.Use(gin.Recovery())
	api.registerRoutes()
	return api
}

func (a *API) Run(addr string) error {
	a.Log.WithField("addr", addr).Info("starting deployment API server")
	return a.Router.Run(addr)
}
