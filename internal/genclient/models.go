package genclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strings"

	"google.golang.org/genai"
)

// ListModels returns the IDs of Gemini models that support content generation
// for apiKey, sorted by name.
func ListModels(ctx context.Context, apiKey string, httpClient *http.Client) ([]string, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	var models []*genai.Model
	for m, err := range client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("listing models: %w", err)
		}
		models = append(models, m)
	}
	return generativeModelIDs(models), nil
}

func generativeModelIDs(models []*genai.Model) []string {
	var ids []string
	for _, m := range models {
		if m == nil || !slices.Contains(m.SupportedActions, "generateContent") {
			continue
		}
		id := strings.TrimPrefix(m.Name, "models/")
		if !strings.HasPrefix(id, "gemini") {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
