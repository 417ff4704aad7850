package instagram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	errs "igfollowers/pkg/errors"
	"igfollowers/pkg/logger"
	"igfollowers/pkg/models"
)

// SourceName identifies this source in records and summaries.
const SourceName = "scraper"

// Session carries the authenticated cookies the web endpoint requires.
type Session struct {
	SessionID string
	CSRFToken string
	UserAgent string
}

// Source resolves usernames by scraping the web profile endpoint with an
// authenticated session. This is the high-risk source: it is paced by the
// ultra-conservative rate caps and any sign of a session or account problem
// aborts the run rather than pressing on.
type Source struct {
	client *Client
	logger logger.Logger
}

// NewSource builds the scraping source from a ready-to-use session.
func NewSource(session Session, timeout time.Duration, log logger.Logger) *Source {
	if log == nil {
		log = logger.GetLogger()
	}

	client := NewClient(timeout, log)
	var cookies []string
	if session.SessionID != "" {
		cookies = append(cookies, "sessionid="+session.SessionID)
	}
	if session.CSRFToken != "" {
		cookies = append(cookies, "csrftoken="+session.CSRFToken)
		client.SetHeader("x-csrftoken", session.CSRFToken)
	}
	if len(cookies) > 0 {
		client.SetHeader("Cookie", strings.Join(cookies, "; "))
	}
	if session.UserAgent != "" {
		client.SetHeader("User-Agent", session.UserAgent)
	}

	return &Source{client: client, logger: log}
}

// NewSourceWithClient wires an existing client (used in tests).
func NewSourceWithClient(client *Client, log logger.Logger) *Source {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Source{client: client, logger: log}
}

// Name implements lookup.Source.
func (s *Source) Name() string { return SourceName }

// Trusted implements lookup.Source; the scraper is the high-risk source.
func (s *Source) Trusted() bool { return false }

// Resolve looks up one username and classifies the result.
func (s *Source) Resolve(ctx context.Context, username string) models.Outcome {
	profile, err := s.client.FetchProfile(ctx, username)
	if err != nil {
		return s.classifyError(username, err)
	}

	if profile.RequiresToLogin {
		return models.Fatal(models.FatalSessionInvalid,
			errors.New("endpoint demands login; session is no longer valid"))
	}
	if isChallenge(profile.Message) {
		return models.Fatal(models.FatalChallenge,
			fmt.Errorf("challenge response: %s", profile.Message))
	}
	if profile.Data.User == nil {
		// A 200 with a null user is how the endpoint reports profiles
		// that no longer exist.
		return models.NotFound()
	}

	user := profile.Data.User
	verified := user.IsVerified
	private := user.IsPrivate
	return models.Resolved(&models.ProfileAttributes{
		FollowerCount:  user.EdgeFollowedBy.Count,
		FollowingCount: user.EdgeFollow.Count,
		FullName:       user.FullName,
		IsVerified:     &verified,
		IsPrivate:      &private,
	})
}

func (s *Source) classifyError(username string, err error) models.Outcome {
	var apiErr *errs.Error
	if !errors.As(err, &apiErr) {
		return models.Transient(err)
	}

	switch apiErr.Type {
	case errs.ErrorTypeNotFound:
		return models.NotFound()
	case errs.ErrorTypeRateLimit:
		return models.RateLimited(apiErr.RetryAfter, apiErr)
	case errs.ErrorTypeAuth:
		return models.Fatal(models.FatalSessionInvalid, apiErr)
	case errs.ErrorTypeDenied:
		return models.Fatal(models.FatalHardDeny, apiErr)
	case errs.ErrorTypeNetwork, errs.ErrorTypeServerError, errs.ErrorTypeParsing:
		s.logger.DebugWithFields("transient scrape failure", map[string]interface{}{
			"username": username,
			"error":    apiErr.Error(),
		})
		return models.Transient(apiErr)
	default:
		return models.Transient(apiErr)
	}
}

func isChallenge(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "checkpoint") || strings.Contains(m, "challenge")
}
