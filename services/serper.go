package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultSerperURL = "https://google.serper.dev/search"
	serperMaxResults = 5
)

// SearchResult is a single web search hit handed to an agent.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchProvider is the web search tool the crew agents use.
type SearchProvider interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// SerperService queries Google through serper.dev.
type SerperService struct {
	apiKey   string
	endpoint string
	client   *retryablehttp.Client
	log      zerolog.Logger
}

type SerperOptions struct {
	Endpoint   string
	HTTPClient *http.Client
	Retry      RetryConfig
	Logger     zerolog.Logger
}

func NewSerperService(apiKey string, opts SerperOptions) *SerperService {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultSerperURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &SerperService{
		apiKey:   apiKey,
		endpoint: opts.Endpoint,
		client:   newRetryClient(opts.HTTPClient, opts.Retry, opts.Logger),
		log:      opts.Logger,
	}
}

// Search returns at most five organic results for query.
func (s *SerperService) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if strings.TrimSpace(s.apiKey) == "" {
		return nil, errors.New("serper: API key is missing")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &InvalidArgumentError{Argument: "query", Reason: "must not be empty"}
	}

	payload, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", s.apiKey)

	var resp struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := doJSON(s.client, "serper", req, &resp); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, serperMaxResults)
	for _, r := range resp.Organic {
		if r.Link == "" {
			continue
		}
		results = append(results, SearchResult{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
		if len(results) >= serperMaxResults {
			break
		}
	}

	s.log.Debug().Str("query", query).Int("results", len(results)).Msg("[Serper] search")
	return results, nil
}
