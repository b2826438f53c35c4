package tools

// SearchResults is the structured output shared by the search and retrieve
// tools. It is stored JSON-serialized in tool messages and handed to the
// search/retrieve UI sections.
type SearchResults struct {
	Results         []SearchResult `json:"results"`
	Query           string         `json:"query"`
	Images          []SearchImage  `json:"images"`
	NumberOfResults int            `json:"number_of_results,omitempty"`
}

// SearchResult is one organic result item.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// SearchImage is one image hit attached to a search.
type SearchImage struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// VideoSearchResults is the structured output of the videoSearch tool,
// following the Serper videos response shape.
type VideoSearchResults struct {
	Query  string  `json:"query"`
	Videos []Video `json:"videos"`
}

// Video is one video result item.
type Video struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Duration string `json:"duration,omitempty"`
	Channel  string `json:"channel,omitempty"`
}
