package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anserhq/anser/models"
	"github.com/anserhq/anser/stores"
)

func (s *Server) listChats(c *gin.Context) {
	chats, err := s.config.Store.ListChats(userID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, chats)
}

func (s *Server) getChat(c *gin.Context) {
	chat, err := s.config.Store.GetChat(c.Param("id"), userID(c))
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (s *Server) saveChat(c *gin.Context) {
	var req models.SaveChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uid := userID(c)
	chat := models.Chat{
		ID:        req.ID,
		Title:     req.Title,
		UserID:    uid,
		Path:      req.Path,
		CreatedAt: time.Now(),
		Messages:  req.Messages,
	}
	if chat.ID == "" {
		chat.ID = uuid.NewString()
	}
	if chat.Path == "" {
		chat.Path = "/search/" + chat.ID
	}
	if chat.Title == "" {
		chat.Title = chat.FirstInput()
	}

	if err := s.config.Store.SaveChat(&chat, uid); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (s *Server) deleteChat(c *gin.Context) {
	err := s.config.Store.DeleteChat(c.Param("id"), userID(c))
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) clearChats(c *gin.Context) {
	if err := s.config.Store.ClearChats(userID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func (s *Server) shareChat(c *gin.Context) {
	chat, err := s.config.Store.ShareChat(c.Param("id"), userID(c))
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (s *Server) getSharedChat(c *gin.Context) {
	chat, err := s.config.Store.GetSharedChat(c.Param("id"))
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "shared chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, chat)
}
