package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anserhq/anser/models"
	"github.com/anserhq/anser/tools"
)

func (s *Server) search(c *gin.Context) {
	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := tools.Search(c.Request.Context(), req.Query, req.MaxResults,
		req.SearchDepth, req.IncludeDomains, req.ExcludeDomains)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	uid := userID(c)
	if req.UserID != "" {
		uid = req.UserID
	}
	s.recordSearch(uid, req.Query, len(results.Results), models.ToolSearch)
	c.JSON(http.StatusOK, results)
}

func (s *Server) retrieve(c *gin.Context) {
	var req models.RetrieveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := tools.Retrieve(c.Request.Context(), req.URL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) videoSearch(c *gin.Context) {
	var req models.VideoSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, err := tools.VideoSearch(c.Request.Context(), req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	uid := userID(c)
	if req.UserID != "" {
		uid = req.UserID
	}
	s.recordSearch(uid, req.Query, len(results.Videos), models.ToolVideoSearch)
	c.JSON(http.StatusOK, results)
}

// recordSearch appends a search history entry. Failures are logged, never
// surfaced: history is an accessory to the search, not a dependency of it.
func (s *Server) recordSearch(uid, query string, resultCount int, source string) {
	if user, err := s.config.Store.GetUser(uid); err == nil && !user.Preferences.HistoryEnabled {
		return
	}
	entry := models.SearchHistoryEntry{
		Query:     query,
		Timestamp: time.Now(),
		Results:   resultCount,
		Source:    source,
	}
	if err := s.config.Store.SaveSearchHistory(uid, entry); err != nil {
		s.logger.Printf("failed to save search history for %s: %v", uid, err)
	}
}

func (s *Server) listSearchHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	entries, err := s.config.Store.ListSearchHistory(userID(c), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func (s *Server) clearSearchHistory(c *gin.Context) {
	if err := s.config.Store.ClearSearchHistory(userID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
