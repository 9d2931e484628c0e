// Package assets stores generated images and resolves public URLs for them.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultBucket = "para-bucket"
	contentType   = "image/png"
)

var ErrNotConfigured = errors.New("asset storage not configured")

type Publisher interface {
	Publish(ctx context.Context, filename string, data []byte) (string, error)
}

// NewFilename returns a collision-resistant object name for a generated image.
func NewFilename() string {
	return "agent-" + uuid.NewString() + ".png"
}

// SupabasePublisher talks to the Supabase Storage REST API.
type SupabasePublisher struct {
	baseURL    string
	serviceKey string
	bucket     string
	http       *http.Client
}

func NewSupabasePublisher(baseURL, serviceKey, bucket string, client *http.Client) *SupabasePublisher {
	if strings.TrimSpace(bucket) == "" {
		bucket = DefaultBucket
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &SupabasePublisher{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		serviceKey: strings.TrimSpace(serviceKey),
		bucket:     bucket,
		http:       client,
	}
}

func (p *SupabasePublisher) Publish(ctx context.Context, filename string, data []byte) (string, error) {
	if p.baseURL == "" || p.serviceKey == "" {
		return "", ErrNotConfigured
	}
	objectPath := url.PathEscape(p.bucket) + "/" + url.PathEscape(filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/storage/v1/object/"+objectPath, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.serviceKey)
	req.Header.Set("apikey", p.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("upload %s: http %d: %s", filename, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return p.baseURL + "/storage/v1/object/public/" + objectPath, nil
}

// DirPublisher writes images into a local directory that the server exposes
// under publicBaseURL.
type DirPublisher struct {
	dir           string
	publicBaseURL string
}

func NewDirPublisher(dir, publicBaseURL string) *DirPublisher {
	return &DirPublisher{
		dir:           dir,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

func (p *DirPublisher) Publish(_ context.Context, filename string, data []byte) (string, error) {
	if p.dir == "" {
		return "", ErrNotConfigured
	}
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("create asset dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(p.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write asset: %w", err)
	}
	return p.publicBaseURL + "/" + url.PathEscape(name), nil
}
