// Package publish holds what the platform clients share: the post payload,
// API errors and their classification.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// ErrNoStatusID is returned when a platform accepted a post but its
// response carried no id.
var ErrNoStatusID = errors.New("post published without a status id")

// Post is one message with an optional image.
type Post struct {
	Text      string
	Image     []byte
	ImageName string
	ImageAlt  string
	// IdempotencyKey lets a platform drop a duplicate of the same post.
	IdempotencyKey string
}

// APIError is a non-2xx answer from a platform.
type APIError struct {
	Platform   string
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Platform, e.Op, e.StatusCode, e.Body)
}

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 2048

// DecodeResponse closes resp and decodes a 2xx JSON body into v, or returns
// an *APIError for other statuses.
func DecodeResponse(resp *http.Response, platform, op string, v any) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.String("platform", platform), slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Platform: platform, Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", platform, op, err)
	}
	return nil
}

// ErrorClass says whether a failed post is worth trying again on a later run.
type ErrorClass int

const (
	ErrorClassRetryable ErrorClass = iota
	ErrorClassFatal
	ErrorClassUnknown
)

func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassRetryable:
		return "retryable"
	case ErrorClassFatal:
		return "fatal"
	}
	return "unknown"
}

// Classify sorts a publish error. HTTP statuses decide when available,
// otherwise the message is matched against known transport failures.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorClassUnknown
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests, apiErr.StatusCode >= 500:
			return ErrorClassRetryable
		case apiErr.StatusCode >= 400:
			return ErrorClassFatal
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassRetryable
	}
	if errors.Is(err, context.Canceled) {
		return ErrorClassUnknown
	}

	lower := strings.ToLower(err.Error())
	for _, p := range []string{"invalid_grant", "invalid_client", "unauthorized", "no oauth token", "expired and has no refresh token"} {
		if strings.Contains(lower, p) {
			return ErrorClassFatal
		}
	}
	for _, p := range []string{
		"connection reset", "connection refused", "timeout", "no such host",
		"temporary failure in name resolution", "network unreachable", "eof", "broken pipe",
		"too many requests", "rate limit",
	} {
		if strings.Contains(lower, p) {
			return ErrorClassRetryable
		}
	}
	return ErrorClassUnknown
}
