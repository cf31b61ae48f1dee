package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/adreel/internal/encoder"
	"github.com/mark3labs/adreel/internal/export"
	"github.com/mark3labs/adreel/internal/genclient"
	"github.com/mark3labs/adreel/internal/workflow"
	"github.com/mark3labs/mcp-go/mcp"
)

var shotSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"shot_number": map[string]any{
			"type":        "string",
			"description": "Shot label, e.g. \"Shot 1\"",
		},
		"shot_description": map[string]any{
			"type":        "string",
			"description": "What happens in the shot",
		},
		"image_prompt": map[string]any{
			"type":        "string",
			"description": "Prompt used to create the shot's still image",
		},
	},
	"required": []string{"shot_number", "shot_description", "image_prompt"},
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("generate-script",
			mcp.WithDescription(fmt.Sprintf("Write a short video ad script (at most %d shots) for the product in an image", workflow.MaxShots)),
			mcp.WithString("image_path", mcp.Required(),
				mcp.Description("Path of the product photo on the server's filesystem"),
			),
		),
		s.handleGenerateScript,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("generate-animation-prompts",
			mcp.WithDescription("Write one Veo animation prompt per shot from the shot images and the script"),
			mcp.WithArray("image_paths", mcp.Required(),
				mcp.Description("Paths of the shot images, in shot order"),
				mcp.WithStringItems(),
			),
			mcp.WithArray("script", mcp.Required(),
				mcp.Description("The script returned by generate-script"),
				mcp.Items(shotSchema),
			),
		),
		s.handleGenerateAnimationPrompts,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("save-concept",
			mcp.WithDescription("Save a finished concept (script plus animation prompts) to the export directory"),
			mcp.WithString("title", mcp.Description("Concept title; used for the file name")),
			mcp.WithArray("script", mcp.Required(), mcp.Items(shotSchema)),
			mcp.WithArray("prompts", mcp.Required(),
				mcp.Description("Animation prompts, one per shot"),
				mcp.WithStringItems(),
			),
			mcp.WithString("format", mcp.Enum("markdown", "json"), mcp.Description("Export format (default markdown)")),
		),
		s.handleSaveConcept,
	)
}

// handleGenerateScript encodes the product photo and returns the script as JSON.
func (s *Server) handleGenerateScript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if args == nil {
		return mcp.NewToolResultError("no arguments provided"), nil
	}
	path, _ := args["image_path"].(string)
	if strings.TrimSpace(path) == "" {
		return mcp.NewToolResultError("missing 'image_path' parameter"), nil
	}

	payload, err := s.enc.Encode(ctx, encoder.NewFileSource(path))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	shots, err := s.gen.GenerateScript(ctx, genclient.Image{MIMEType: payload.MIMEType, Data: payload.Data})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(shots) == 0 {
		return mcp.NewToolResultError("the model returned an empty script"), nil
	}
	if len(shots) > workflow.MaxShots {
		shots = shots[:workflow.MaxShots]
	}

	return jsonResult(shots)
}

// handleGenerateAnimationPrompts encodes the shot images and returns one prompt per shot.
func (s *Server) handleGenerateAnimationPrompts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if args == nil {
		return mcp.NewToolResultError("no arguments provided"), nil
	}

	paths, err := stringArray(args, "image_paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	script, err := parseScript(args["script"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(paths) != len(script) {
		return mcp.NewToolResultError(fmt.Sprintf("got %d images for %d shots; provide one image per shot", len(paths), len(script))), nil
	}

	srcs := make([]encoder.Source, len(paths))
	for i, p := range paths {
		srcs[i] = encoder.NewFileSource(p)
	}
	payloads, err := s.enc.EncodeAll(ctx, srcs)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	images := make([]genclient.Image, len(payloads))
	for i, p := range payloads {
		images[i] = genclient.Image{MIMEType: p.MIMEType, Data: p.Data}
	}

	prompts, err := s.gen.GenerateAnimationPrompts(ctx, images, script)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(prompts) != len(images) {
		return mcp.NewToolResultError(fmt.Sprintf("the model returned %d prompts for %d shots", len(prompts), len(images))), nil
	}

	return jsonResult(prompts)
}

// handleSaveConcept writes a concept to the export directory and returns its path.
func (s *Server) handleSaveConcept(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	if args == nil {
		return mcp.NewToolResultError("no arguments provided"), nil
	}

	script, err := parseScript(args["script"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	prompts, err := stringArray(args, "prompts")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, _ := args["title"].(string)
	formatArg, _ := args["format"].(string)
	format, err := export.ParseFormat(formatArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	concept, err := export.FromPrompts(title, script, prompts, s.now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := export.Save(s.exportDir, concept, format)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Saved %q to %s", concept.Title, path)), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// stringArray extracts a non-empty array of non-empty strings.
func stringArray(args map[string]any, name string) ([]string, error) {
	raw, ok := args[name]
	if !ok {
		return nil, fmt.Errorf("missing '%s' parameter", name)
	}
	// mcp-go decodes arrays as []any.
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("'%s' is not an array", name)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("'%s' must not be empty", name)
	}
	out := make([]string, len(items))
	for i, item := range items {
		str, ok := item.(string)
		if !ok || strings.TrimSpace(str) == "" {
			return nil, fmt.Errorf("%s[%d] must be a non-empty string", name, i)
		}
		out[i] = str
	}
	return out, nil
}

// parseScript round-trips the decoded argument through JSON into shots.
func parseScript(raw any) ([]genclient.ShotDetail, error) {
	if raw == nil {
		return nil, fmt.Errorf("missing 'script' parameter")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid 'script': %w", err)
	}
	var script []genclient.ShotDetail
	if err := json.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("'script' must be an array of shots: %w", err)
	}
	if len(script) == 0 {
		return nil, fmt.Errorf("'script' must contain at least one shot")
	}
	if len(script) > workflow.MaxShots {
		return nil, fmt.Errorf("'script' has %d shots; at most %d are allowed", len(script), workflow.MaxShots)
	}
	for i, shot := range script {
		if shot.ShotNumber == "" || shot.ShotDescription == "" {
			return nil, fmt.Errorf("script[%d] needs shot_number and shot_description", i)
		}
	}
	return script, nil
}
