package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anserhq/anser/models"
	"github.com/anserhq/anser/providers"
	"github.com/anserhq/anser/stores"
)

// getModels returns the saved model catalog, falling back to the built-in
// defaults when nothing has been saved yet.
func (s *Server) getModels(c *gin.Context) {
	configs, err := s.loadCatalog()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": configs})
}

func (s *Server) saveModels(c *gin.Context) {
	var req models.SaveModelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.config.Store.SaveModels(req.Models); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": req.Models})
}

// updateModel replaces one entry of the catalog. The path id wins over any id
// in the body.
func (s *Server) updateModel(c *gin.Context) {
	var cfg models.ModelConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg.ID = c.Param("id")

	configs, err := s.loadCatalog()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	found := false
	for i := range configs {
		if configs[i].ID == cfg.ID {
			configs[i] = cfg
			found = true
			break
		}
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "model not found"})
		return
	}

	if err := s.config.Store.SaveModels(configs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) deleteModel(c *gin.Context) {
	id := c.Param("id")

	configs, err := s.loadCatalog()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	kept := configs[:0]
	for _, cfg := range configs {
		if cfg.ID != id {
			kept = append(kept, cfg)
		}
	}
	if len(kept) == len(configs) {
		c.JSON(http.StatusNotFound, gin.H{"error": "model not found"})
		return
	}

	if err := s.config.Store.SaveModels(kept); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// loadCatalog returns the saved catalog, seeding from defaults so a fresh
// deployment works before the first explicit save.
func (s *Server) loadCatalog() ([]models.ModelConfig, error) {
	configs, err := s.config.Store.GetModels()
	if err != nil && !errors.Is(err, stores.ErrNotFound) {
		return nil, err
	}
	if len(configs) == 0 {
		configs = providers.DefaultModelConfigs()
	}
	return configs, nil
}
