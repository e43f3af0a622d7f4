package twitterapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/onnwee/spectacles-xix/publish"
	"github.com/onnwee/spectacles-xix/testutil"
)

func TestPublishWithImage(t *testing.T) {
	srv := testutil.NewMockServer(t)
	srv.Handle(http.MethodPost, "/2/media/upload", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if r.FormValue("media_category") != "tweet_image" {
			t.Errorf("media_category = %q", r.FormValue("media_category"))
		}
		f, _, err := r.FormFile("media")
		if err != nil {
			t.Fatalf("media part: %v", err)
		}
		b, _ := io.ReadAll(f)
		if string(b) != "IMG" {
			t.Errorf("media bytes = %q", b)
		}
		testutil.WriteJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"id": "m-1"}})
	})
	srv.Handle(http.MethodPost, "/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		var req tweetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Text != "Le Mariage de raison" || req.Media == nil || req.Media.MediaIDs[0] != "m-1" {
			t.Errorf("tweet body = %+v", req)
		}
		testutil.WriteJSON(w, http.StatusCreated, map[string]any{"data": map[string]string{"id": "t-9", "text": req.Text}})
	})

	id, err := New(srv.URL, srv.Client()).Publish(context.Background(), publish.Post{Text: "Le Mariage de raison", Image: []byte("IMG")})
	if err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if id != "t-9" {
		t.Errorf("id = %q", id)
	}
}

func TestPublishTextOnly(t *testing.T) {
	srv := testutil.NewMockServer(t)
	srv.Handle(http.MethodPost, "/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		_ = json.NewDecoder(r.Body).Decode(&raw)
		if _, ok := raw["media"]; ok {
			t.Error("media should be omitted without an image")
		}
		testutil.WriteJSON(w, http.StatusCreated, map[string]any{"data": map[string]string{"id": "t-1"}})
	})
	c := New(srv.URL+"/", srv.Client())
	if _, err := c.Publish(context.Background(), publish.Post{Text: "x"}); err != nil {
		t.Fatal(err)
	}
	if srv.HitCount(http.MethodPost, "/2/media/upload") != 0 {
		t.Error("no upload expected")
	}
}

func TestPublishErrors(t *testing.T) {
	t.Run("no id", func(t *testing.T) {
		srv := testutil.NewMockServer(t)
		srv.JSON(http.MethodPost, "/2/tweets", http.StatusCreated, map[string]any{"data": map[string]string{}})
		_, err := New(srv.URL, srv.Client()).Publish(context.Background(), publish.Post{Text: "x"})
		if !errors.Is(err, publish.ErrNoStatusID) {
			t.Errorf("error = %v, want ErrNoStatusID", err)
		}
	})
	t.Run("duplicate", func(t *testing.T) {
		srv := testutil.NewMockServer(t)
		srv.JSON(http.MethodPost, "/2/tweets", http.StatusForbidden, map[string]any{"detail": "You are not allowed to create a Tweet with duplicate content."})
		_, err := New(srv.URL, srv.Client()).Publish(context.Background(), publish.Post{Text: "x"})
		var apiErr *publish.APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden {
			t.Fatalf("error = %v", err)
		}
		if publish.Classify(err) != publish.ErrorClassFatal {
			t.Error("duplicate tweet should be fatal")
		}
	})
	t.Run("upload fails", func(t *testing.T) {
		srv := testutil.NewMockServer(t)
		srv.JSON(http.MethodPost, "/2/media/upload", http.StatusServiceUnavailable, map[string]string{"title": "busy"})
		_, err := New(srv.URL, srv.Client()).Publish(context.Background(), publish.Post{Text: "x", Image: []byte("I")})
		if publish.Classify(err) != publish.ErrorClassRetryable {
			t.Errorf("error %v should be retryable", err)
		}
		if srv.HitCount(http.MethodPost, "/2/tweets") != 0 {
			t.Error("tweet should not be sent after a failed upload")
		}
	})
}

func TestName(t *testing.T) {
	if New("http://x", nil).Name() != "x" {
		t.Error("Name() should be x")
	}
}
