// Package mastodonapi posts statuses to a Mastodon instance with an
// application access token.
package mastodonapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/onnwee/spectacles-xix/publish"
)

const platform = "mastodon"

// Client publishes statuses.
type Client struct {
	Instance   string
	HTTPClient *http.Client
	// MediaPollInterval and MediaPollAttempts bound the wait for an image
	// that the instance processes asynchronously.
	MediaPollInterval time.Duration
	MediaPollAttempts int
	logger            *slog.Logger
}

// New returns a client authorized with a bearer access token.
func New(ctx context.Context, instance, accessToken string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return NewWithHTTPClient(instance, oauth2.NewClient(ctx, ts))
}

// NewWithHTTPClient uses httpClient as is.
func NewWithHTTPClient(instance string, httpClient *http.Client) *Client {
	return &Client{
		Instance:          strings.TrimRight(instance, "/"),
		HTTPClient:        httpClient,
		MediaPollInterval: time.Second,
		MediaPollAttempts: 10,
		logger:            slog.Default().With(slog.String("component", "mastodonapi")),
	}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Name identifies the platform in logs and metrics.
func (c *Client) Name() string { return platform }

// Publish uploads the image when present and posts the status.
func (c *Client) Publish(ctx context.Context, p publish.Post) (string, error) {
	var mediaIDs []string
	if len(p.Image) > 0 {
		id, err := c.UploadMedia(ctx, p.Image, p.ImageName, p.ImageAlt)
		if err != nil {
			return "", err
		}
		mediaIDs = append(mediaIDs, id)
	}
	return c.PostStatus(ctx, p.Text, mediaIDs, p.IdempotencyKey)
}

type attachment struct {
	ID  string  `json:"id"`
	URL *string `json:"url"`
}

// UploadMedia sends an image and waits until the instance has processed it.
func (c *Client) UploadMedia(ctx context.Context, image []byte, name, description string) (string, error) {
	if name == "" {
		name = "cover.jpg"
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("mastodon media: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return "", fmt.Errorf("mastodon media: %w", err)
	}
	if description != "" {
		if err := mw.WriteField("description", description); err != nil {
			return "", fmt.Errorf("mastodon media: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("mastodon media: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Instance+"/api/v2/media", &body)
	if err != nil {
		return "", fmt.Errorf("mastodon media: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.http().Do(req)
	if err != nil {
		return "", fmt.Errorf("mastodon media: %w", err)
	}
	processing := resp.StatusCode == http.StatusAccepted
	var att attachment
	if err := publish.DecodeResponse(resp, platform, "media upload", &att); err != nil {
		return "", err
	}
	if att.ID == "" {
		return "", fmt.Errorf("mastodon media upload: response without media id")
	}
	if processing || att.URL == nil {
		if err := c.waitForMedia(ctx, att.ID); err != nil {
			return "", err
		}
	}
	return att.ID, nil
}

func (c *Client) waitForMedia(ctx context.Context, id string) error {
	for i := 0; i < c.MediaPollAttempts; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.MediaPollInterval):
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Instance+"/api/v1/media/"+id, nil)
		if err != nil {
			return fmt.Errorf("mastodon media status: %w", err)
		}
		resp, err := c.http().Do(req)
		if err != nil {
			return fmt.Errorf("mastodon media status: %w", err)
		}
		if resp.StatusCode == http.StatusPartialContent {
			resp.Body.Close()
			continue
		}
		var att attachment
		if err := publish.DecodeResponse(resp, platform, "media status", &att); err != nil {
			return err
		}
		if att.URL != nil {
			return nil
		}
	}
	return fmt.Errorf("mastodon media %s: still processing after %d checks", id, c.MediaPollAttempts)
}

type statusRequest struct {
	Status   string   `json:"status"`
	MediaIDs []string `json:"media_ids,omitempty"`
	Language string   `json:"language,omitempty"`
}

// PostStatus publishes text with uploaded media. idempotencyKey may be empty.
func (c *Client) PostStatus(ctx context.Context, text string, mediaIDs []string, idempotencyKey string) (string, error) {
	b, err := json.Marshal(statusRequest{Status: text, MediaIDs: mediaIDs, Language: "fr"})
	if err != nil {
		return "", fmt.Errorf("mastodon status: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Instance+"/api/v1/statuses", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("mastodon status: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return "", fmt.Errorf("mastodon status: %w", err)
	}
	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := publish.DecodeResponse(resp, platform, "status", &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", publish.ErrNoStatusID
	}
	c.logger.Info("toot sent", slog.String("status_id", out.ID), slog.String("url", out.URL))
	return out.ID, nil
}
