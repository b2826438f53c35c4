package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anserhq/anser/models"
	"github.com/anserhq/anser/stores"
)

// createUser registers a user id. Creating an id that already exists returns
// the existing record unchanged.
func (s *Server) createUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if existing, err := s.config.Store.GetUser(req.ID); err == nil {
		c.JSON(http.StatusOK, existing)
		return
	} else if !errors.Is(err, stores.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	user := &models.User{
		ID:          req.ID,
		CreatedAt:   time.Now(),
		Preferences: models.DefaultPreferences(),
	}
	if err := s.config.Store.SaveUser(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (s *Server) getUser(c *gin.Context) {
	user, err := s.config.Store.GetUser(c.Param("id"))
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, user)
}

// savePreferences updates a user's preferences, creating the user on first
// write so a fresh browser profile can save settings without a prior signup.
func (s *Server) savePreferences(c *gin.Context) {
	var prefs models.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	user, err := s.config.Store.GetUser(id)
	if err != nil {
		if !errors.Is(err, stores.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		user = &models.User{ID: id, CreatedAt: time.Now()}
	}

	user.Preferences = prefs
	if err := s.config.Store.SaveUser(user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, user)
}
