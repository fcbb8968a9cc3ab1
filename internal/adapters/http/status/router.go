package status

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func NewRouter(h *Handler, middlewares ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/healthz", h.Health)
	r.GET("/status", h.Status)

	return r
}
