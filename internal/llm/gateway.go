// Package llm wraps the Gemini text and image endpoints used by the run
// pipeline.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"para/internal/assets"
	"para/internal/models"
)

const (
	temperature     = 0.9
	maxOutputTokens = 900

	imageAspectRatio = "4:5"
	imageSamples     = 1
)

var (
	ErrEmptyResponse = errors.New("empty model response")
	ErrInvalidJSON   = errors.New("invalid JSON response from model")
)

// UpstreamError carries the provider's error text for a non-success reply.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return "model request failed"
	}
	return e.Message
}

// upstreamBody rebuilds the provider's error body from a genai.APIError.
// Transport errors keep their own text.
func upstreamBody(err error) string {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	// Non-JSON bodies are kept verbatim in Message with the HTTP status line.
	if apiErr.Message != "" && strings.HasPrefix(apiErr.Status, strconv.Itoa(apiErr.Code)+" ") {
		return apiErr.Message
	}
	b, mErr := json.Marshal(map[string]genai.APIError{"error": apiErr})
	if mErr != nil {
		return apiErr.Message
	}
	return string(b)
}

type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

type Gateway struct {
	client    *genai.Client
	publisher assets.Publisher
	logger    *zap.Logger
}

func New(ctx context.Context, cfg Config, publisher assets.Publisher, logger *zap.Logger) (*Gateway, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gateway{client: client, publisher: publisher, logger: logger}, nil
}

// GenerateStructured sends one system instruction and one user turn and
// returns the first candidate's text, which must parse as JSON.
func (g *Gateway) GenerateStructured(ctx context.Context, model, system, user string) (json.RawMessage, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(user, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, "system"),
			Temperature:       genai.Ptr[float32](temperature),
			MaxOutputTokens:   maxOutputTokens,
		},
	)
	if err != nil {
		return nil, &UpstreamError{Message: upstreamBody(err)}
	}

	text := firstText(resp)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	if !json.Valid([]byte(text)) {
		g.logger.Debug("model returned non-JSON text", zap.String("model", model), zap.Int("bytes", len(text)))
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(text), nil
}

// GenerateImage renders one image and publishes it. Every failure is logged
// and yields nil.
func (g *Gateway) GenerateImage(ctx context.Context, model, prompt string) *models.ImageAsset {
	resp, err := g.client.Models.GenerateImages(ctx, model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: imageSamples,
		AspectRatio:    imageAspectRatio,
	})
	if err != nil {
		g.logger.Warn("image generation failed", zap.String("model", model), zap.Error(err))
		return nil
	}
	if resp == nil || len(resp.GeneratedImages) == 0 ||
		resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		g.logger.Warn("image generation returned no bytes", zap.String("model", model))
		return nil
	}
	if g.publisher == nil {
		g.logger.Warn("no asset publisher configured")
		return nil
	}

	url, err := g.publisher.Publish(ctx, assets.NewFilename(), resp.GeneratedImages[0].Image.ImageBytes)
	if err != nil {
		g.logger.Warn("publish image failed", zap.Error(err))
		return nil
	}
	return &models.ImageAsset{URL: url, Prompt: prompt}
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return ""
	}
	for _, part := range c.Content.Parts {
		if part != nil && part.Text != "" {
			return part.Text
		}
	}
	return ""
}
