package api

import (
	"log"

	"github.com/gin-gonic/gin"

	anser "github.com/anserhq/anser"
)

// Server holds the dependencies shared by all route handlers.
type Server struct {
	config *anser.Config
	logger *log.Logger
}

// NewServer builds a server around the given configuration.
func NewServer(config *anser.Config) *Server {
	return &Server{
		config: config,
		logger: log.New(log.Writer(), "[API] ", log.LstdFlags),
	}
}

// NewRouter wires the HTTP surface: chat CRUD, sharing, model and provider
// configuration, tool endpoints, search history, users, and the live chat
// WebSocket.
func NewRouter(config *anser.Config) *gin.Engine {
	s := NewServer(config)
	router := gin.Default()

	api := router.Group("/api")
	{
		api.GET("/chats", s.listChats)
		api.POST("/chats", s.saveChat)
		api.DELETE("/chats", s.clearChats)
		api.GET("/chats/:id", s.getChat)
		api.DELETE("/chats/:id", s.deleteChat)
		api.POST("/chats/:id/share", s.shareChat)
		api.GET("/share/:id", s.getSharedChat)

		api.GET("/models", s.getModels)
		api.POST("/models", s.saveModels)
		api.PUT("/models/:id", s.updateModel)
		api.DELETE("/models/:id", s.deleteModel)

		api.GET("/providers", s.providerStatuses)
		api.POST("/providers", s.checkProvider)

		api.POST("/search", s.search)
		api.POST("/retrieve", s.retrieve)
		api.POST("/video-search", s.videoSearch)
		api.GET("/search-history", s.listSearchHistory)
		api.DELETE("/search-history", s.clearSearchHistory)

		api.POST("/users", s.createUser)
		api.GET("/users/:id", s.getUser)
		api.PUT("/users/:id/preferences", s.savePreferences)

		api.GET("/ws/chat/:id", s.chatWebSocket)
	}

	// Public read-only share page, rendered server side.
	router.GET("/share/:id", s.sharePage)

	return router
}

// userID extracts the client-supplied user id. There is no authentication;
// absent ids fall back to the anonymous user.
func userID(c *gin.Context) string {
	if id := c.Query("userId"); id != "" {
		return id
	}
	return "anonymous"
}
