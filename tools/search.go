package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// tavilyEndpoint is a package-level var so tests can point it at a fake server.
var tavilyEndpoint = "https://api.tavily.com/search"

type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results"`
	SearchDepth    string   `json:"search_depth"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
	IncludeImages  bool     `json:"include_images"`
}

type tavilyResponse struct {
	Query   string `json:"query"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
	Images []string `json:"images"`
}

// Search queries the Tavily search API and normalizes the response into
// SearchResults. maxResults defaults to 10, searchDepth to "basic".
func Search(ctx context.Context, query string, maxResults int, searchDepth string, includeDomains, excludeDomains []string) (*SearchResults, error) {
	apiKey := os.Getenv("TAVILY_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("TAVILY_API_KEY environment variable not set")
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	if searchDepth == "" {
		searchDepth = "basic"
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:         apiKey,
		Query:          query,
		MaxResults:     maxResults,
		SearchDepth:    searchDepth,
		IncludeDomains: includeDomains,
		ExcludeDomains: excludeDomains,
		IncludeImages:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("error marshalling search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", tavilyEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request to search API: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API request failed with status %d: %s", resp.StatusCode, string(responseBody))
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return nil, fmt.Errorf("error unmarshalling search API response: %w", err)
	}

	results := &SearchResults{
		Query:           parsed.Query,
		Results:         make([]SearchResult, 0, len(parsed.Results)),
		Images:          make([]SearchImage, 0, len(parsed.Images)),
		NumberOfResults: len(parsed.Results),
	}
	if results.Query == "" {
		results.Query = query
	}
	for _, r := range parsed.Results {
		results.Results = append(results.Results, SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
		})
	}
	for _, img := range parsed.Images {
		results.Images = append(results.Images, SearchImage{URL: img})
	}

	return results, nil
}
