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

// serperEndpoint is a package-level var so tests can point it at a fake server.
var serperEndpoint = "https://google.serper.dev/videos"

type serperResponse struct {
	Videos []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		ImageURL string `json:"imageUrl"`
		Duration string `json:"duration"`
		Channel  string `json:"channel"`
	} `json:"videos"`
}

// VideoSearch queries the Serper videos API and normalizes the response.
func VideoSearch(ctx context.Context, query string) (*VideoSearchResults, error) {
	apiKey := os.Getenv("SERPER_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("SERPER_API_KEY environment variable not set")
	}

	body, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return nil, fmt.Errorf("error marshalling video search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", serperEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("X-API-KEY", apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request to video search API: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("video search API request failed with status %d: %s", resp.StatusCode, string(responseBody))
	}

	var parsed serperResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return nil, fmt.Errorf("error unmarshalling video search API response: %w", err)
	}

	results := &VideoSearchResults{
		Query:  query,
		Videos: make([]Video, 0, len(parsed.Videos)),
	}
	for _, v := range parsed.Videos {
		results.Videos = append(results.Videos, Video{
			Title:    v.Title,
			Link:     v.Link,
			Snippet:  v.Snippet,
			ImageURL: v.ImageURL,
			Duration: v.Duration,
			Channel:  v.Channel,
		})
	}

	return results, nil
}
