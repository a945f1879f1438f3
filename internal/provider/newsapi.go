package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pders01/newsd/internal/validation"
)

const (
	DefaultNewsAPIBaseURL = "https://newsapi.org"
	maxResponseBytes      = 4 << 20
	removedTitle          = "[Removed]"
)

// DefaultNewsAPICategories are the categories the top-headlines endpoint accepts.
var DefaultNewsAPICategories = []string{
	"business", "entertainment", "general", "health", "science", "sports", "technology",
}

type NewsAPIOptions struct {
	APIKey     string
	BaseURL    string
	Country    string
	PageSize   int
	Categories []string
	// Validator checks BaseURL; nil uses the strict upstream validator.
	Validator *validation.UpstreamURLValidator
}

// NewsAPI fetches top headlines from newsapi.org.
type NewsAPI struct {
	apiKey     string
	endpoint   string
	country    string
	pageSize   int
	categories map[string]struct{}
	client     *http.Client
	userAgent  string
}

func NewNewsAPI(opts NewsAPIOptions, client *http.Client, userAgent string) (*NewsAPI, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("newsapi: api key is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultNewsAPIBaseURL
	}
	v := opts.Validator
	if v == nil {
		v = validation.NewUpstreamURLValidator()
	}
	base, err := v.ValidateAndNormalize(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("newsapi: invalid base url: %w", err)
	}
	if opts.Country == "" {
		opts.Country = "us"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 5
	}
	if len(opts.Categories) == 0 {
		opts.Categories = DefaultNewsAPICategories
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	cats := make(map[string]struct{}, len(opts.Categories))
	for _, c := range opts.Categories {
		cats[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}

	return &NewsAPI{
		apiKey:     opts.APIKey,
		endpoint:   strings.TrimRight(base, "/") + "/v2/top-headlines",
		country:    opts.Country,
		pageSize:   opts.PageSize,
		categories: cats,
		client:     client,
		userAgent:  userAgent,
	}, nil
}

func (n *NewsAPI) Name() string { return "newsapi" }

func (n *NewsAPI) Priority() int { return 100 }

func (n *NewsAPI) CanHandle(category string) bool {
	_, ok := n.categories[category]
	return ok
}

type newsAPIResponse struct {
	Status       string           `json:"status"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	TotalResults int              `json:"totalResults"`
	Articles     []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

func (n *NewsAPI) FetchTopHeadlines(ctx context.Context, category string) ([]RawArticle, error) {
	q := url.Values{}
	q.Set("category", category)
	q.Set("country", n.country)
	q.Set("pageSize", strconv.Itoa(n.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Api-Key", n.apiKey)
	req.Header.Set("Accept", "application/json")
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching headlines: %w", err)
	}
	defer resp.Body.Close()

	var body newsAPIResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body)

	if resp.StatusCode >= 400 {
		if decodeErr == nil && body.Message != "" {
			return nil, fmt.Errorf("HTTP error: %d: %s", resp.StatusCode, body.Message)
		}
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decoding response: %w", decodeErr)
	}
	if body.Status == "error" {
		return nil, fmt.Errorf("upstream error %s: %s", body.Code, body.Message)
	}

	articles := make([]RawArticle, 0, len(body.Articles))
	for _, a := range body.Articles {
		if a.Title == "" || a.Title == removedTitle {
			continue
		}
		raw := RawArticle{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
		}
		if ts, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			raw.PublishedAt = ts
		}
		articles = append(articles, raw)
	}
	return articles, nil
}
