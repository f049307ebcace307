// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"navmarg/internal/http/handlers"
	"navmarg/internal/http/middleware"
	"navmarg/internal/modules/conversation"
)

func NewRouter(conversationService *conversation.Service) http.Handler {
	r := gin.New()
	r.Use(middleware.Logging(), middleware.Recovery())

	chatHandler := handlers.NewChatHandler(conversationService)
	r.POST("/api/sessions", chatHandler.CreateSession)
	r.POST("/api/sessions/:id/messages", chatHandler.PostMessage)
	r.GET("/api/sessions/:id", chatHandler.GetSession)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
