package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anserhq/anser/models"
	"github.com/anserhq/anser/providers"
)

func (s *Server) providerStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": providers.Statuses()})
}

func (s *Server) checkProvider(c *gin.Context) {
	var req models.ProviderCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"providerId": req.ProviderID,
		"configured": providers.Configured(req.ProviderID),
	})
}
