package api

import (
	"github.com/gin-gonic/gin"

	"github.com/orrn/printhost/internal/api/handlers"
	"github.com/orrn/printhost/internal/api/middleware"
)

func NewRouter(auth *middleware.AuthMiddleware, print *handlers.PrintHandler, jobs *handlers.JobHandler, status *handlers.StatusHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/api/v1")

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/setup", auth.Setup)
		authGroup.POST("/login", auth.Login)
		authGroup.POST("/logout", auth.Logout)
		authGroup.GET("/status", auth.Status)
	}

	protected := v1.Group("", auth.RequireAuth())
	{
		protected.POST("/print", print.Print)
		protected.PUT("/document", print.UpdateDocument)
		protected.GET("/jobs", jobs.List)
		protected.GET("/jobs/:id", jobs.Get)
		protected.GET("/stats", jobs.Stats)
		protected.GET("/status", status.Status)
		protected.PUT("/settings/printing", status.SetPrintingEnabled)
	}

	return r
}
