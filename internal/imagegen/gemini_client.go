package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"kfashion/internal/domain"
	"kfashion/internal/infra"
)

// DefaultModel is the Gemini image model used when none is configured.
const DefaultModel = "gemini-2.5-flash-image"

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// GeminiClient sends one generateContent call per request through the
// official genai SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *infra.Logger
}

// NewGeminiClient builds the SDK client. A missing API key is not an error
// here; every Generate call then fails with domain.ErrConfiguration.
func NewGeminiClient(ctx context.Context, opts Options) (*GeminiClient, error) {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	c := &GeminiClient{model: model, logger: logger}

	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return c, nil
	}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	c.client = client
	return c, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string { return c.model }

// Generate sends the source image followed by the prompt text and returns the
// first inline image of the response.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (ImagePart, error) {
	if c.client == nil {
		return ImagePart{}, fmt.Errorf("gemini: %w", &domain.ServiceError{Err: domain.ErrConfiguration, Detail: "missing API key"})
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Source.Data, req.Source.MediaType),
			genai.NewPartFromText(req.Prompt),
		}, genai.RoleUser),
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		c.logger.Error().Err(err).Str("model", c.model).Dur("elapsed", time.Since(start)).Msg("gemini generate content failed")
		return ImagePart{}, classifyError(err)
	}

	parts := responseParts(resp)
	img, ok := FirstImage(parts)
	if !ok {
		c.logger.Warn().Str("model", c.model).Int("parts", len(parts)).Msg("gemini response carried no image")
		return ImagePart{}, fmt.Errorf("gemini: %w", domain.ErrEmptyResult)
	}
	c.logger.Info().
		Str("model", c.model).
		Str("mime", img.MediaType).
		Int("bytes", len(img.Data)).
		Dur("elapsed", time.Since(start)).
		Msg("gemini image generated")
	return img, nil
}

// responseParts flattens every candidate's parts, in candidate order then
// part order.
func responseParts(resp *genai.GenerateContentResponse) []Part {
	if resp == nil {
		return nil
	}
	var out []Part
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			switch {
			case p == nil:
			case p.InlineData != nil:
				out = append(out, ImagePart{MediaType: p.InlineData.MIMEType, Data: p.InlineData.Data})
			case p.Text != "":
				out = append(out, TextPart{Text: p.Text})
			}
		}
	}
	return out
}

func classifyError(err error) error {
	code, msg := 0, err.Error()
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code, msg = apiErr.Code, apiErr.Message
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code, msg = apiErrPtr.Code, apiErrPtr.Message
	}
	kind := domain.ErrTransport
	if code == http.StatusUnauthorized || code == http.StatusForbidden ||
		strings.Contains(strings.ToLower(msg), "api key not valid") {
		kind = domain.ErrConfiguration
	}
	return fmt.Errorf("gemini: %w", &domain.ServiceError{Err: kind, Detail: strings.TrimSpace(msg)})
}

var _ Generator = (*GeminiClient)(nil)
