package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// ContentCharacterLimit caps how much page text a retrieve result carries.
const ContentCharacterLimit = 10000

// httpGet is a package-level var so tests can mock it.
var httpGet = defaultHTTPGet

func defaultHTTPGet(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Anser/1.0 (Retrieve Tool)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain")
	return http.DefaultClient.Do(req)
}

// Retrieve fetches a URL and extracts its readable content as markdown,
// wrapped in the common SearchResults shape (one result, empty query).
// If the direct fetch fails it falls back to the Jina reader proxy.
func Retrieve(ctx context.Context, url string) (*SearchResults, error) {
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}

	results, err := fetchDirect(ctx, url)
	if err == nil {
		return results, nil
	}

	fallback, jinaErr := fetchJinaReader(ctx, url)
	if jinaErr != nil {
		return nil, fmt.Errorf("fetching %s: %w (jina fallback: %v)", url, err, jinaErr)
	}
	return fallback, nil
}

func fetchDirect(ctx context.Context, url string) (*SearchResults, error) {
	resp, err := httpGet(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024)) // 5MB limit
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript, iframe, nav, footer, header, aside").Remove()

	html, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(html) == "" {
		html = string(body)
	}

	converter := md.NewConverter("", true, nil)
	content, err := converter.ConvertString(html)
	if err != nil {
		return nil, fmt.Errorf("converting to markdown: %w", err)
	}
	content = strings.TrimSpace(content)
	if len(content) > ContentCharacterLimit {
		content = content[:ContentCharacterLimit]
	}
	if title == "" {
		title = url
	}

	return &SearchResults{
		Results: []SearchResult{{Title: title, URL: url, Content: content}},
		Query:   "",
		Images:  []SearchImage{},
	}, nil
}

type jinaResponse struct {
	Data struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"data"`
}

func fetchJinaReader(ctx context.Context, url string) (*SearchResults, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", "https://r.jina.ai/"+url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-With-Generated-Alt", "true")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed jinaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("jina reader response: %w", err)
	}
	if parsed.Data.Content == "" {
		return nil, fmt.Errorf("jina reader returned no content")
	}

	content := parsed.Data.Content
	if len(content) > ContentCharacterLimit {
		content = content[:ContentCharacterLimit]
	}
	resultURL := parsed.Data.URL
	if resultURL == "" {
		resultURL = url
	}

	return &SearchResults{
		Results: []SearchResult{{Title: parsed.Data.Title, URL: resultURL, Content: content}},
		Query:   "",
		Images:  []SearchImage{},
	}, nil
}
