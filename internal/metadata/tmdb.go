package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/watchlist/internal/config"
	apperrors "github.com/mantonx/watchlist/internal/errors"
	"golang.org/x/time/rate"
)

// TMDBClient is the Client backed by The Movie Database v3 API
type TMDBClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     hclog.Logger
}

var _ Client = (*TMDBClient)(nil)

// NewTMDBClient creates a new TMDB API client
func NewTMDBClient(cfg config.MetadataConfig, logger hclog.Logger) *TMDBClient {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 20
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &TMDBClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     logger.Named("tmdb"),
	}
}

// Search runs a multi search and keeps only movies and series
func (c *TMDBClient) Search(ctx context.Context, query, lang string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")

	var response SearchResponse
	if err := c.makeRequest(ctx, "/search/multi", lang, params, &response); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(response.Results))
	for _, r := range response.Results {
		if r.MediaType == MediaTypeMovie || r.MediaType == MediaTypeTV {
			results = append(results, r)
		}
	}
	return results, nil
}

// GetMovie fetches the full details of a movie
func (c *TMDBClient) GetMovie(ctx context.Context, id, lang string) (*MovieDetail, error) {
	if err := validateRemoteID(id); err != nil {
		return nil, err
	}

	var movie MovieDetail
	if err := c.makeRequest(ctx, "/movie/"+id, lang, nil, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// GetSeries fetches the full details of a series, without episodes
func (c *TMDBClient) GetSeries(ctx context.Context, id, lang string) (*SeriesDetail, error) {
	if err := validateRemoteID(id); err != nil {
		return nil, err
	}

	var series SeriesDetail
	if err := c.makeRequest(ctx, "/tv/"+id, lang, nil, &series); err != nil {
		return nil, err
	}
	return &series, nil
}

// GetSeasonEpisodes fetches the episodes of one season
func (c *TMDBClient) GetSeasonEpisodes(ctx context.Context, seriesID string, season int, lang string) ([]EpisodeDetail, error) {
	if err := validateRemoteID(seriesID); err != nil {
		return nil, err
	}

	var detail SeasonDetail
	path := fmt.Sprintf("/tv/%s/season/%d", seriesID, season)
	if err := c.makeRequest(ctx, path, lang, nil, &detail); err != nil {
		return nil, err
	}

	showID, _ := strconv.ParseInt(seriesID, 10, 64)
	for i := range detail.Episodes {
		if detail.Episodes[i].ShowID == 0 {
			detail.Episodes[i].ShowID = showID
		}
		if detail.Episodes[i].SeasonNumber == 0 {
			detail.Episodes[i].SeasonNumber = season
		}
	}
	return detail.Episodes, nil
}

// ListLanguages returns every language the provider supports
func (c *TMDBClient) ListLanguages(ctx context.Context) ([]Language, error) {
	var languages []Language
	if err := c.makeRequest(ctx, "/configuration/languages", "", nil, &languages); err != nil {
		return nil, err
	}
	return languages, nil
}

// makeRequest performs a rate limited GET and decodes the JSON body
func (c *TMDBClient) makeRequest(ctx context.Context, path, lang string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.NewNetworkError(path, 0, err)
	}

	if params == nil {
		params = url.Values{}
	}
	if lang != "" {
		params.Set("language", lang)
	}
	if c.apiKey != "" && !isJWTToken(c.apiKey) {
		params.Set("api_key", c.apiKey)
	}

	reqURL := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return apperrors.NewInternalError("failed to create request", err)
	}
	if isJWTToken(c.apiKey) {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("making TMDB API request", "path", path, "language", lang)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewNetworkError(path, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("TMDB API returned error status", "path", path, "status", resp.StatusCode)
		return apperrors.NewNetworkError(path, resp.StatusCode, nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return apperrors.NewInternalError("failed to decode TMDB response", err).With("path", path)
	}
	return nil
}

// isJWTToken reports whether the key is a v4 read access token
func isJWTToken(apiKey string) bool {
	return len(apiKey) > 100 && strings.HasPrefix(apiKey, "eyJ")
}

func validateRemoteID(id string) error {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return apperrors.NewValidationError("remote id must be numeric: "+id, "id")
	}
	return nil
}
