package graphapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"igfollowers/pkg/logger"
	"igfollowers/pkg/models"
)

// SourceName identifies this source in records and summaries.
const SourceName = "graph_api"

// DefaultBaseURL is the Graph API endpoint root.
const DefaultBaseURL = "https://graph.facebook.com/v21.0"

// Facebook error codes that mean rate limiting rather than a real failure.
const (
	errCodeTooManyCalls   = 4
	errCodePageCallLimit  = 32
	errCodeInvalidToken   = 190
	errCodeAliasNotExists = 803
)

// Source resolves usernames through the Instagram Graph API
// business_discovery edge. This is the low-risk official source: its
// failures never block the scraper from trying the same record later.
type Source struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	userID      string
	logger      logger.Logger

	mu        sync.Mutex
	usagePct  int
	usageSeen bool
}

// NewSource builds the official source from Graph API credentials.
func NewSource(accessToken, userID string, timeout time.Duration, log logger.Logger) *Source {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Source{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     DefaultBaseURL,
		accessToken: accessToken,
		userID:      userID,
		logger:      log,
	}
}

// SetBaseURL overrides the endpoint root (used in tests).
func (s *Source) SetBaseURL(base string) { s.baseURL = base }

// Name implements lookup.Source.
func (s *Source) Name() string { return SourceName }

// Trusted implements lookup.Source; the official API is the low-risk source.
func (s *Source) Trusted() bool { return true }

// Usage returns the last observed rate-limit usage percentage (0-100) and
// whether any usage header has been seen yet.
func (s *Source) Usage() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usagePct, s.usageSeen
}

type discoveryResponse struct {
	BusinessDiscovery *struct {
		FollowersCount int    `json:"followers_count"`
		FollowsCount   int    `json:"follows_count"`
		Name           string `json:"name"`
	} `json:"business_discovery"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Subcode int    `json:"error_subcode"`
}

// Resolve looks up one username via business_discovery and classifies the
// result. Only true rate limiting (HTTP 429 or codes 4/32) comes back as
// RateLimited; lookup misses such as personal (non-business) accounts are
// Transient so the record stays eligible for the scraper.
func (s *Source) Resolve(ctx context.Context, username string) models.Outcome {
	fields := fmt.Sprintf("business_discovery.username(%s){followers_count,follows_count,name}", username)

	params := url.Values{}
	params.Set("fields", fields)
	params.Set("access_token", s.accessToken)
	reqURL := fmt.Sprintf("%s/%s?%s", s.baseURL, s.userID, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.Transient(fmt.Errorf("build request: %w", err))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return models.Transient(fmt.Errorf("graph api request: %w", err))
	}
	defer resp.Body.Close()

	s.recordUsage(resp)

	if resp.StatusCode == http.StatusTooManyRequests {
		return models.RateLimited(s.cooldownHint(), errors.New("graph api: 429 rate limited"))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Transient(fmt.Errorf("read response: %w", err))
	}

	var payload discoveryResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return models.Transient(fmt.Errorf("parse response: %w", err))
	}

	if payload.Error != nil {
		return s.classifyAPIError(username, payload.Error)
	}
	if payload.BusinessDiscovery == nil {
		return models.Transient(fmt.Errorf("graph api: empty response (status %d)", resp.StatusCode))
	}

	bd := payload.BusinessDiscovery
	// business_discovery only works against public business/creator
	// accounts, so the profile is public by construction; the API does
	// not report the verified flag at all.
	private := false
	return models.Resolved(&models.ProfileAttributes{
		FollowerCount:  bd.FollowersCount,
		FollowingCount: bd.FollowsCount,
		FullName:       bd.Name,
		IsPrivate:      &private,
	})
}

func (s *Source) classifyAPIError(username string, apiErr *apiError) models.Outcome {
	switch apiErr.Code {
	case errCodeTooManyCalls, errCodePageCallLimit:
		return models.RateLimited(s.cooldownHint(),
			fmt.Errorf("graph api rate limit (code %d): %s", apiErr.Code, apiErr.Message))
	case errCodeInvalidToken:
		return models.Fatal(models.FatalSessionInvalid,
			fmt.Errorf("graph api token rejected: %s", apiErr.Message))
	case errCodeAliasNotExists:
		return models.NotFound()
	default:
		// Most commonly a personal account business_discovery cannot
		// see; the scraper will resolve it on a later pass.
		s.logger.DebugWithFields("graph api miss", map[string]interface{}{
			"username": username,
			"code":     apiErr.Code,
			"message":  apiErr.Message,
		})
		return models.Transient(fmt.Errorf("graph api (code %d): %s", apiErr.Code, apiErr.Message))
	}
}

// recordUsage parses rate-limit usage from the response headers. Both the
// simple X-App-Usage format and the nested X-Business-Use-Case-Usage
// format (used by Instagram endpoints) are checked.
func (s *Source) recordUsage(resp *http.Response) {
	if pct, ok := parseUsageHeader(resp.Header.Get("x-app-usage")); ok {
		s.setUsage(pct)
		return
	}
	if pct, ok := parseBusinessUsageHeader(resp.Header.Get("x-business-use-case-usage")); ok {
		s.setUsage(pct)
	}
}

func (s *Source) setUsage(pct int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usagePct = pct
	s.usageSeen = true
}

// cooldownHint suggests how long to stand down when the API pushes back,
// scaled by how much of the quota is already burned.
func (s *Source) cooldownHint() time.Duration {
	pct, seen := s.Usage()
	switch {
	case !seen:
		return 2 * time.Minute
	case pct >= 95:
		return 5 * time.Minute
	case pct >= 80:
		return time.Minute
	default:
		return 30 * time.Second
	}
}

func parseUsageHeader(header string) (int, bool) {
	if header == "" {
		return 0, false
	}
	var data struct {
		CallCount *int `json:"call_count"`
	}
	if err := json.Unmarshal([]byte(header), &data); err != nil || data.CallCount == nil {
		return 0, false
	}
	return *data.CallCount, true
}

func parseBusinessUsageHeader(header string) (int, bool) {
	if header == "" {
		return 0, false
	}
	var data map[string][]struct {
		CallCount *int `json:"call_count"`
	}
	if err := json.Unmarshal([]byte(header), &data); err != nil {
		return 0, false
	}
	for _, entries := range data {
		if len(entries) > 0 && entries[0].CallCount != nil {
			return *entries[0].CallCount, true
		}
	}
	return 0, false
}
