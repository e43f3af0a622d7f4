// Package twitterapi posts to X through the v2 API: an optional media upload
// followed by the tweet itself. Requests are authorized by the HTTP client,
// normally an oauth2 client over the stored user token.
package twitterapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/onnwee/spectacles-xix/publish"
)

const platform = "x"

// Client publishes tweets.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	logger     *slog.Logger
}

// New returns a client for baseURL (https://api.x.com in production).
func New(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: httpClient,
		logger:     slog.Default().With(slog.String("component", "twitterapi")),
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

// Publish uploads the image when present and posts the tweet, returning its id.
func (c *Client) Publish(ctx context.Context, p publish.Post) (string, error) {
	var mediaIDs []string
	if len(p.Image) > 0 {
		id, err := c.UploadMedia(ctx, p.Image, p.ImageName)
		if err != nil {
			return "", err
		}
		mediaIDs = append(mediaIDs, id)
	}
	return c.CreateTweet(ctx, p.Text, mediaIDs)
}

// UploadMedia sends an image and returns its media id.
func (c *Client) UploadMedia(ctx context.Context, image []byte, name string) (string, error) {
	if name == "" {
		name = "cover.jpg"
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("media_category", "tweet_image"); err != nil {
		return "", fmt.Errorf("x media: %w", err)
	}
	fw, err := mw.CreateFormFile("media", name)
	if err != nil {
		return "", fmt.Errorf("x media: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return "", fmt.Errorf("x media: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("x media: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/2/media/upload", &body)
	if err != nil {
		return "", fmt.Errorf("x media: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.http().Do(req)
	if err != nil {
		return "", fmt.Errorf("x media: %w", err)
	}
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := publish.DecodeResponse(resp, platform, "media upload", &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("x media upload: response without media id")
	}
	c.logger.Debug("media uploaded", slog.String("media_id", out.Data.ID), slog.Int("bytes", len(image)))
	return out.Data.ID, nil
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

// CreateTweet posts text with already uploaded media. A created tweet whose
// response has no id yields publish.ErrNoStatusID.
func (c *Client) CreateTweet(ctx context.Context, text string, mediaIDs []string) (string, error) {
	payload := tweetRequest{Text: text}
	if len(mediaIDs) > 0 {
		payload.Media = &tweetMedia{MediaIDs: mediaIDs}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("x tweet: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/2/tweets", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("x tweet: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http().Do(req)
	if err != nil {
		return "", fmt.Errorf("x tweet: %w", err)
	}
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := publish.DecodeResponse(resp, platform, "tweet", &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", publish.ErrNoStatusID
	}
	c.logger.Info("tweet sent", slog.String("tweet_id", out.Data.ID))
	return out.Data.ID, nil
}
