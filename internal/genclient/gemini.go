package genclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mark3labs/adreel/internal/logger"
	"github.com/mark3labs/adreel/internal/template"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	DefaultModel                = "gemini-2.5-flash"
	DefaultScriptTemperature    = 0.7
	DefaultScriptTopP           = 0.95
	DefaultAnimationTemperature = 0.5

	responseMIMEType = "application/json"
	excerptLen       = 200
)

var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")

var (
	errEmptyImage    = errors.New("image payload is empty")
	errEmptyResponse = errors.New("response contained no shots")
)

var scriptSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"shot_number": {
				Type:        genai.TypeString,
				Description: "The shot number, e.g., 'Shot 1'.",
			},
			"shot_description": {
				Type:        genai.TypeString,
				Description: "Cinematic description of the shot for the video script. Should be engaging and concise.",
			},
			"image_prompt": {
				Type:        genai.TypeString,
				Description: "A detailed text-to-image prompt to generate the visual for this shot. Should be artistic and visually rich.",
			},
		},
		Required: []string{"shot_number", "shot_description", "image_prompt"},
	},
}

var animationSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"veo_prompt": {
				Type:        genai.TypeString,
				Description: "A concise but powerful Veo prompt (under 250 characters) that animates the corresponding image. It should focus on subtle camera movements and environmental effects to bring the image to life.",
			},
		},
		Required: []string{"veo_prompt"},
	},
}

// contentGenerator is the slice of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options tunes a Gemini client. Zero values fall back to the defaults.
type Options struct {
	Model                string
	ScriptTemperature    float32
	ScriptTopP           float32
	AnimationTemperature float32
	// RateInterval is the minimum spacing between calls; zero disables pacing.
	RateInterval time.Duration
	Templates    template.Set
	HTTPClient   *http.Client
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.ScriptTemperature == 0 {
		o.ScriptTemperature = DefaultScriptTemperature
	}
	if o.ScriptTopP == 0 {
		o.ScriptTopP = DefaultScriptTopP
	}
	if o.AnimationTemperature == 0 {
		o.AnimationTemperature = DefaultAnimationTemperature
	}
	if o.Templates.Script == "" {
		o.Templates.Script = template.ScriptTemplate
	}
	if o.Templates.Animation == "" {
		o.Templates.Animation = template.AnimationTemplate
	}
	return o
}

// Gemini implements Generator on the Gemini API.
type Gemini struct {
	models  contentGenerator
	opts    Options
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewGemini creates a client authenticated with apiKey.
func NewGemini(ctx context.Context, apiKey string, opts Options) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return newGemini(client.Models, opts), nil
}

func newGemini(models contentGenerator, opts Options) *Gemini {
	opts = opts.withDefaults()
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.RateInterval), 1)
	}
	return &Gemini{
		models:  models,
		opts:    opts,
		limiter: limiter,
		log:     logger.For("genclient"),
	}
}

// GenerateScript sends the product image and the script instruction and
// returns the shots in narrative order.
func (g *Gemini) GenerateScript(ctx context.Context, image Image) ([]ShotDetail, error) {
	shots, err := g.generateScript(ctx, image)
	if err != nil {
		g.log.Error("script generation failed: %v", err)
		return nil, &ScriptGenerationError{Err: err}
	}
	g.log.Info("script generated with %d shots", len(shots))
	return shots, nil
}

func (g *Gemini) generateScript(ctx context.Context, image Image) ([]ShotDetail, error) {
	imagePart, err := inlinePart(image)
	if err != nil {
		return nil, err
	}

	prompt := template.Render(g.opts.Templates.Script, template.Variables{})
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{imagePart, genai.NewPartFromText(prompt)}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: responseMIMEType,
		ResponseSchema:   scriptSchema,
		Temperature:      genai.Ptr(g.opts.ScriptTemperature),
		TopP:             genai.Ptr(g.opts.ScriptTopP),
	}

	raw, err := g.call(ctx, contents, config)
	if err != nil {
		return nil, err
	}

	var shots []ShotDetail
	if err := parseJSONArray(raw, &shots); err != nil {
		return nil, err
	}
	if len(shots) == 0 {
		return nil, errEmptyResponse
	}
	for i, s := range shots {
		if s.ShotNumber == "" || s.ShotDescription == "" || s.ImagePrompt == "" {
			return nil, fmt.Errorf("shot %d is missing required fields", i+1)
		}
	}
	return shots, nil
}

// GenerateAnimationPrompts sends every shot image with the script context and
// returns one animation prompt per image, in image order.
func (g *Gemini) GenerateAnimationPrompts(ctx context.Context, images []Image, script []ShotDetail) ([]string, error) {
	prompts, err := g.generateAnimationPrompts(ctx, images, script)
	if err != nil {
		g.log.Error("animation prompt generation failed: %v", err)
		return nil, &AnimationPromptError{Err: err}
	}
	g.log.Info("generated %d animation prompts", len(prompts))
	return prompts, nil
}

func (g *Gemini) generateAnimationPrompts(ctx context.Context, images []Image, script []ShotDetail) ([]string, error) {
	if len(images) != len(script) {
		return nil, fmt.Errorf("got %d images for %d shots", len(images), len(script))
	}
	if len(images) == 0 {
		return nil, errors.New("no images to animate")
	}

	prompt := template.Render(g.opts.Templates.Animation, template.Variables{
		ScriptContext: ScriptContext(script),
	})
	parts := make([]*genai.Part, 0, len(images)+1)
	parts = append(parts, genai.NewPartFromText(prompt))
	for i, img := range images {
		part, err := inlinePart(img)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}
		parts = append(parts, part)
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: responseMIMEType,
		ResponseSchema:   animationSchema,
		Temperature:      genai.Ptr(g.opts.AnimationTemperature),
	}

	raw, err := g.call(ctx, contents, config)
	if err != nil {
		return nil, err
	}

	var items []struct {
		VeoPrompt string `json:"veo_prompt"`
	}
	if err := parseJSONArray(raw, &items); err != nil {
		return nil, err
	}
	if len(items) != len(images) {
		return nil, fmt.Errorf("got %d prompts for %d images", len(items), len(images))
	}

	prompts := make([]string, len(items))
	for i, item := range items {
		if item.VeoPrompt == "" {
			return nil, fmt.Errorf("prompt %d is empty", i+1)
		}
		prompts[i] = item.VeoPrompt
	}
	return prompts, nil
}

func (g *Gemini) call(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	start := time.Now()
	g.log.Debug("calling %s", g.opts.Model)
	resp, err := g.models.GenerateContent(ctx, g.opts.Model, contents, config)
	if err != nil {
		return "", err
	}
	g.log.Debug("%s responded in %s", g.opts.Model, time.Since(start).Round(time.Millisecond))

	if resp == nil {
		return "", errors.New("empty response")
	}
	return resp.Text(), nil
}

func inlinePart(image Image) (*genai.Part, error) {
	if image.Data == "" {
		return nil, errEmptyImage
	}
	data, err := base64.StdEncoding.DecodeString(image.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding image payload: %w", err)
	}
	if len(data) == 0 {
		return nil, errEmptyImage
	}
	mime := image.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return genai.NewPartFromBytes(data, mime), nil
}

// parseJSONArray decodes a JSON array from raw model output, tolerating a
// fenced code block or surrounding prose.
func parseJSONArray(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return errors.New("response was empty")
	}

	rawJSON := raw
	if matches := jsonBlockRegex.FindStringSubmatch(raw); len(matches) > 1 {
		rawJSON = matches[1]
	} else if !strings.HasPrefix(raw, "[") {
		first := strings.Index(raw, "[")
		last := strings.LastIndex(raw, "]")
		if first != -1 && last > first {
			rawJSON = raw[first : last+1]
		}
	}

	if err := json.Unmarshal([]byte(rawJSON), v); err != nil {
		return fmt.Errorf("parsing response JSON (excerpt: %q): %w", truncateString(raw, excerptLen), err)
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
