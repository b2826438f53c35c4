package models

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query          string   `json:"query" binding:"required,min=1"`
	MaxResults     int      `json:"maxResults" binding:"omitempty,min=1,max=50"`
	SearchDepth    string   `json:"searchDepth" binding:"omitempty,oneof=basic advanced"`
	IncludeDomains []string `json:"includeDomains"`
	ExcludeDomains []string `json:"excludeDomains"`
	UserID         string   `json:"userId"`
}

// RetrieveRequest is the body of POST /api/retrieve.
type RetrieveRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// VideoSearchRequest is the body of POST /api/video-search.
type VideoSearchRequest struct {
	Query  string `json:"query" binding:"required,min=1"`
	UserID string `json:"userId"`
}

// SaveChatRequest is the body of POST /api/chats. Missing id/title/path are
// filled in by the handler.
type SaveChatRequest struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages" binding:"required"`
	Path     string    `json:"path"`
}

// SaveModelsRequest is the body of POST /api/models.
type SaveModelsRequest struct {
	Models []ModelConfig `json:"models" binding:"required,dive"`
}

// ProviderCheckRequest is the body of POST /api/providers.
type ProviderCheckRequest struct {
	ProviderID string `json:"providerId" binding:"required"`
}

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	ID string `json:"id" binding:"required"`
}
