package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(sentEmailHandler *SentEmailHandler, jwtSecret string) *Router {
	r := gin.Default()
	r.Use(MetricsMiddleware())

	// Public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.GET("/sent-emails", sentEmailHandler.List)
		auth.GET("/sent-emails/:id", sentEmailHandler.Get)
		auth.GET("/sent-emails/:id/info", sentEmailHandler.GetInfo)
		auth.GET("/sent-emails/:id/preview", sentEmailHandler.Preview)
		auth.POST("/sent-emails/:id/resend", sentEmailHandler.Resend)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
