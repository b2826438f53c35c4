package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/anserhq/anser/models"
	"github.com/anserhq/anser/providers"
	"github.com/anserhq/anser/sessions"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientFrame is one inbound control message on the chat socket.
type clientFrame struct {
	Type  string `json:"type"`
	Input string `json:"input,omitempty"`
	Query string `json:"query,omitempty"`
}

// chatWebSocket upgrades the connection and drives a chat session from
// inbound frames until the client disconnects.
func (s *Server) chatWebSocket(c *gin.Context) {
	model, err := s.resolveModel(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		s.logger.Printf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session := sessions.NewChatSession(c.Param("id"), userID(c), conn, s.config, model)
	if err := session.Load(); err != nil {
		session.Writer.WriteFrame(sessions.Frame{Type: sessions.FrameError, Error: err.Error()})
		return
	}

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Printf("websocket read error: %v", err)
			}
			break
		}

		var cmdErr error
		switch frame.Type {
		case "submit":
			cmdErr = session.Submit(frame.Input)
		case "submit_related":
			cmdErr = session.SubmitRelated(frame.Query)
		case "stop":
			session.Stop()
		case "clear":
			cmdErr = session.Clear()
		default:
			cmdErr = errors.New("unknown frame type: " + frame.Type)
		}
		if cmdErr != nil {
			session.Writer.WriteFrame(sessions.Frame{Type: sessions.FrameError, Error: cmdErr.Error()})
		}
	}

	// Let an in-flight turn wind down before dropping the session.
	session.Stop()
	session.Wait()
}

// resolveModel picks the model for the socket from the modelId query
// parameter, falling back to the first enabled model in the catalog.
func (s *Server) resolveModel(c *gin.Context) (providers.Model, error) {
	configs, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}

	modelID := c.Query("modelId")
	var chosen *models.ModelConfig
	for i := range configs {
		if modelID != "" {
			if configs[i].ID == modelID {
				chosen = &configs[i]
				break
			}
			continue
		}
		if configs[i].Enabled {
			chosen = &configs[i]
			break
		}
	}
	if chosen == nil {
		if modelID != "" {
			return nil, errors.New("unknown model: " + modelID)
		}
		return nil, errors.New("no enabled models configured")
	}

	return providers.NewModel(c.Request.Context(), *chosen)
}
