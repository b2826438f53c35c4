package models

// ModelConfig describes one selectable LLM in the model picker. The set is
// stored in the record store under a single key and can be replaced through
// the models API.
type ModelConfig struct {
	ID            string `json:"id" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Provider      string `json:"provider" binding:"required"`
	ProviderID    string `json:"providerId" binding:"required"`
	Enabled       bool   `json:"enabled"`
	ToolCallType  string `json:"toolCallType" binding:"required,oneof=native manual"`
	ToolCallModel string `json:"toolCallModel,omitempty"`
}
