package middleware

import (
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
)

// SetupPrometheus mounts the /metrics endpoint and request metrics on the router.
func SetupPrometheus(r *gin.Engine) {
	p := ginprometheus.NewPrometheus("gin")
	p.Use(r)
}
