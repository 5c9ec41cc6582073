// Package imagehost uploads profile pictures to an imgbb compatible host.
package imagehost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	auth "github.com/goliatone/go-donor-auth"
)

// DefaultEndpoint is the imgbb upload URL
const DefaultEndpoint = "https://api.imgbb.com/1/upload"

// MaxImageSize bounds the uploaded file
const MaxImageSize = 32 << 20

type Option func(*Uploader)

func WithEndpoint(endpoint string) Option {
	return func(u *Uploader) {
		if endpoint != "" {
			u.endpoint = endpoint
		}
	}
}

func WithDefaultAvatar(avatar string) Option {
	return func(u *Uploader) {
		if avatar != "" {
			u.defaultAvatar = avatar
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(u *Uploader) {
		if hc != nil {
			u.httpClient = hc
		}
	}
}

func WithLogger(logger auth.Logger) Option {
	return func(u *Uploader) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// Uploader turns an image into a hosted URL
type Uploader struct {
	apiKey        string
	endpoint      string
	defaultAvatar string
	httpClient    *http.Client
	logger        auth.Logger
}

func New(apiKey string, opts ...Option) *Uploader {
	u := &Uploader{
		apiKey:        apiKey,
		endpoint:      DefaultEndpoint,
		defaultAvatar: auth.DefaultAvatar,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        auth.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type uploadResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
}

// AvatarURL uploads image and returns its URL. An empty image, a missing API
// key or any upload failure yields the default avatar.
func (u *Uploader) AvatarURL(ctx context.Context, filename string, image io.Reader) string {
	if image == nil {
		return u.defaultAvatar
	}

	hosted, err := u.Upload(ctx, filename, image)
	if err != nil {
		u.logger.Error("Image upload failed: %s", err)
		return u.defaultAvatar
	}
	return hosted
}

// Upload sends image to the host and returns the hosted URL
func (u *Uploader) Upload(ctx context.Context, filename string, image io.Reader) (string, error) {
	if u.apiKey == "" {
		return "", errors.New("image host api key not configured")
	}

	raw, err := io.ReadAll(io.LimitReader(image, MaxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(raw) == 0 {
		return "", errors.New("empty image")
	}
	if len(raw) > MaxImageSize {
		return "", fmt.Errorf("image exceeds %d bytes", MaxImageSize)
	}

	if filename == "" {
		filename = "avatar"
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(raw); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	endpoint, err := url.Parse(u.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("key", u.apiKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}

	var out uploadResponse
	if err := auth.DecodeResponse(resp, &out); err != nil {
		return "", err
	}

	if !out.Success || out.Data.URL == "" {
		return "", fmt.Errorf("image host rejected upload (status %d)", out.Status)
	}

	return out.Data.URL, nil
}
