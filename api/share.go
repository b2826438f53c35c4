package api

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/anserhq/anser/stores"
	"github.com/anserhq/anser/tools"
	"github.com/anserhq/anser/uistate"
)

var shareMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// sharePage renders a shared chat as a standalone HTML page. Only chats that
// went through ShareChat are visible here.
func (s *Server) sharePage(c *gin.Context) {
	chat, err := s.config.Store.GetSharedChat(c.Param("id"))
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			c.Data(http.StatusNotFound, "text/html; charset=utf-8",
				[]byte("<!doctype html><title>Not found</title><h1>This chat is not shared.</h1>"))
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	elements := uistate.Project(chat.Messages, uistate.Options{IsSharePage: true})

	var body bytes.Buffer
	body.WriteString("<!doctype html>\n<html><head><meta charset=\"utf-8\">")
	fmt.Fprintf(&body, "<title>%s</title>", html.EscapeString(chat.Title))
	body.WriteString("</head><body>\n")
	fmt.Fprintf(&body, "<h1>%s</h1>\n", html.EscapeString(chat.Title))

	for _, group := range uistate.Group(elements) {
		for _, component := range group.Components {
			if component == nil {
				continue
			}
			renderComponent(&body, component)
		}
	}

	body.WriteString("</body></html>\n")
	c.Data(http.StatusOK, "text/html; charset=utf-8", body.Bytes())
}

func renderComponent(body *bytes.Buffer, component uistate.Component) {
	switch v := component.(type) {
	case uistate.UserMessage:
		fmt.Fprintf(body, "<h2>%s</h2>\n", html.EscapeString(v.Text))
	case uistate.CopilotDisplay:
		fmt.Fprintf(body, "<blockquote>%s</blockquote>\n", html.EscapeString(v.Content))
	case uistate.AnswerSection:
		body.WriteString("<div class=\"answer\">\n")
		if err := shareMarkdown.Convert([]byte(v.Text), body); err != nil {
			fmt.Fprintf(body, "<pre>%s</pre>\n", html.EscapeString(v.Text))
		}
		body.WriteString("</div>\n")
	case uistate.SearchSection:
		renderSources(body, "Sources", v.Results)
	case uistate.RetrieveSection:
		renderSources(body, "Retrieved", v.Results)
	case uistate.VideoSearchSection:
		if v.Results == nil || len(v.Results.Videos) == 0 {
			return
		}
		body.WriteString("<h3>Videos</h3>\n<ul>\n")
		for _, video := range v.Results.Videos {
			fmt.Fprintf(body, "<li><a href=\"%s\">%s</a></li>\n",
				html.EscapeString(video.Link), html.EscapeString(video.Title))
		}
		body.WriteString("</ul>\n")
	}
	// Related queries and followup affordances are interactive and never
	// appear on the share page; the projector already strips them.
}

func renderSources(body *bytes.Buffer, heading string, results *tools.SearchResults) {
	if results == nil || len(results.Results) == 0 {
		return
	}
	fmt.Fprintf(body, "<h3>%s</h3>\n<ul>\n", heading)
	for _, result := range results.Results {
		fmt.Fprintf(body, "<li><a href=\"%s\">%s</a></li>\n",
			html.EscapeString(result.URL), html.EscapeString(result.Title))
	}
	body.WriteString("</ul>\n")
}
