package services

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/LovationAdmin/travel-planner-api/utils"
)

const DefaultSerpAPIURL = "https://serpapi.com/search"

// ImageSearcher finds destination photos.
type ImageSearcher interface {
	SearchImages(ctx context.Context, query string) ([]string, error)
}

// ImageSearchService looks up photos through SerpAPI's Google Images engine.
type ImageSearchService struct {
	apiKey   string
	endpoint string
	limit    int
	client   *retryablehttp.Client
	log      zerolog.Logger
}

type ImageSearchOptions struct {
	Endpoint   string
	Limit      int
	HTTPClient *http.Client
	Retry      RetryConfig
	Logger     zerolog.Logger
}

func NewImageSearchService(apiKey string, opts ImageSearchOptions) *ImageSearchService {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultSerpAPIURL
	}
	if opts.Limit <= 0 {
		opts.Limit = 12
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &ImageSearchService{
		apiKey:   apiKey,
		endpoint: opts.Endpoint,
		limit:    opts.Limit,
		client:   newRetryClient(opts.HTTPClient, opts.Retry, opts.Logger),
		log:      opts.Logger,
	}
}

// SearchImages returns original-size image URLs for query, in the order
// SerpAPI ranks them. A response without images_results is an empty,
// successful lookup; transport, status and payload errors are returned as
// errors and never mixed into the URL list.
func (s *ImageSearchService) SearchImages(ctx context.Context, query string) ([]string, error) {
	if strings.TrimSpace(s.apiKey) == "" {
		return nil, errors.New("serpapi: API key is missing")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &InvalidArgumentError{Argument: "query", Reason: "must not be empty"}
	}

	params := url.Values{}
	params.Set("engine", "google_images")
	params.Set("q", query)
	params.Set("api_key", s.apiKey)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Error         string `json:"error"`
		ImagesResults []struct {
			Original string `json:"original"`
		} `json:"images_results"`
	}
	if err := doJSON(s.client, "serpapi", req, &resp); err != nil {
		s.log.Warn().Str("url", utils.MaskString(req.URL.String())).Err(err).Msg("[Images] lookup failed")
		return nil, err
	}
	if resp.Error != "" && len(resp.ImagesResults) == 0 {
		// SerpAPI reports "no results" this way as well
		if strings.Contains(strings.ToLower(resp.Error), "hasn't returned any results") {
			return []string{}, nil
		}
		return nil, &UpstreamError{Service: "serpapi", Message: utils.MaskString(resp.Error)}
	}

	urls := make([]string, 0, len(resp.ImagesResults))
	for _, img := range resp.ImagesResults {
		if img.Original == "" {
			continue
		}
		urls = append(urls, img.Original)
		if len(urls) >= s.limit {
			break
		}
	}
	return urls, nil
}
