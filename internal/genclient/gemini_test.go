package genclient

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/adreel/internal/template"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	text     string
	err      error
	calls    int
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.contents = contents
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}},
		}},
	}, nil
}

func testImage(s string) Image {
	return Image{MIMEType: "image/png", Data: base64.StdEncoding.EncodeToString([]byte(s))}
}

const twoShots = `[
 {"shot_number":"Shot 1","shot_description":"Hook","image_prompt":"A bottle on a cliff"},
 {"shot_number":"Shot 2","shot_description":"Reveal","image_prompt":"Close-up of the label"}
]`

func TestGenerateScript_Success(t *testing.T) {
	t.Parallel()

	models := &fakeModels{text: twoShots}
	g := newGemini(models, Options{})

	shots, err := g.GenerateScript(context.Background(), testImage("product"))
	require.NoError(t, err)
	require.Len(t, shots, 2)
	require.Equal(t, "Shot 1", shots[0].ShotNumber)
	require.Equal(t, "Close-up of the label", shots[1].ImagePrompt)

	require.Equal(t, DefaultModel, models.model)
	require.Equal(t, "application/json", models.config.ResponseMIMEType)
	require.Equal(t, scriptSchema, models.config.ResponseSchema)
	require.InDelta(t, 0.7, *models.config.Temperature, 1e-6)
	require.InDelta(t, 0.95, *models.config.TopP, 1e-6)

	require.Len(t, models.contents, 1)
	parts := models.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	require.Equal(t, []byte("product"), parts[0].InlineData.Data)
	require.Equal(t, "image/png", parts[0].InlineData.MIMEType)
	require.Contains(t, parts[1].Text, "20-second Meta advertisement")
}

func TestGenerateScript_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		image Image
		text  string
		err   error
	}{
		{name: "empty image", image: Image{}, text: twoShots},
		{name: "bad base64", image: Image{Data: "!!!"}, text: twoShots},
		{name: "transport error", image: testImage("p"), err: errors.New("connection refused")},
		{name: "malformed json", image: testImage("p"), text: `[{"shot_number":`},
		{name: "empty array", image: testImage("p"), text: `[]`},
		{name: "missing field", image: testImage("p"), text: `[{"shot_number":"Shot 1","shot_description":"x"}]`},
		{name: "empty text", image: testImage("p"), text: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := newGemini(&fakeModels{text: tt.text, err: tt.err}, Options{})

			shots, err := g.GenerateScript(context.Background(), tt.image)
			require.Nil(t, shots)
			var scriptErr *ScriptGenerationError
			require.ErrorAs(t, err, &scriptErr)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestGenerateScript_FencedResponse(t *testing.T) {
	t.Parallel()

	text := "Here you go:\n```json\n" + twoShots + "\n```\n"
	g := newGemini(&fakeModels{text: text}, Options{})

	shots, err := g.GenerateScript(context.Background(), testImage("p"))
	require.NoError(t, err)
	require.Len(t, shots, 2)
}

func TestGenerateScript_ReturnsAllShots(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < 7; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"shot_number":"S","shot_description":"D","image_prompt":"P"}`)
	}
	b.WriteString("]")

	g := newGemini(&fakeModels{text: b.String()}, Options{})
	shots, err := g.GenerateScript(context.Background(), testImage("p"))
	require.NoError(t, err)
	require.Len(t, shots, 7)
}

func TestGenerateAnimationPrompts_Success(t *testing.T) {
	t.Parallel()

	models := &fakeModels{text: `[{"veo_prompt":"Slow zoom in"},{"veo_prompt":"Gentle pan left"}]`}
	g := newGemini(models, Options{Model: "custom-model"})
	script := []ShotDetail{
		{ShotNumber: "Shot 1", ShotDescription: "Hook"},
		{ShotNumber: "Shot 2", ShotDescription: "Reveal"},
	}

	prompts, err := g.GenerateAnimationPrompts(context.Background(), []Image{testImage("a"), testImage("b")}, script)
	require.NoError(t, err)
	require.Equal(t, []string{"Slow zoom in", "Gentle pan left"}, prompts)

	require.Equal(t, "custom-model", models.model)
	require.Equal(t, animationSchema, models.config.ResponseSchema)
	require.InDelta(t, 0.5, *models.config.Temperature, 1e-6)
	require.Nil(t, models.config.TopP)

	parts := models.contents[0].Parts
	require.Len(t, parts, 3)
	require.Contains(t, parts[0].Text, "Shot 1: Hook\nShot 2: Reveal")
	require.Equal(t, []byte("a"), parts[1].InlineData.Data)
	require.Equal(t, []byte("b"), parts[2].InlineData.Data)
}

func TestGenerateAnimationPrompts_Failures(t *testing.T) {
	t.Parallel()

	script := []ShotDetail{{ShotNumber: "Shot 1"}, {ShotNumber: "Shot 2"}}
	images := []Image{testImage("a"), testImage("b")}

	tests := []struct {
		name   string
		images []Image
		text   string
		err    error
	}{
		{name: "length mismatch", images: images[:1], text: `[{"veo_prompt":"x"}]`},
		{name: "empty image", images: []Image{testImage("a"), {}}, text: `[]`},
		{name: "transport error", images: images, err: errors.New("quota exceeded")},
		{name: "count mismatch", images: images, text: `[{"veo_prompt":"only one"}]`},
		{name: "empty prompt", images: images, text: `[{"veo_prompt":"x"},{"veo_prompt":""}]`},
		{name: "not json", images: images, text: "I cannot help with that."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := newGemini(&fakeModels{text: tt.text, err: tt.err}, Options{})

			prompts, err := g.GenerateAnimationPrompts(context.Background(), tt.images, script)
			require.Nil(t, prompts)
			var promptErr *AnimationPromptError
			require.ErrorAs(t, err, &promptErr)
		})
	}
}

func TestCustomTemplates(t *testing.T) {
	t.Parallel()

	models := &fakeModels{text: `[{"veo_prompt":"x"}]`}
	g := newGemini(models, Options{Templates: template.Set{
		Script:    "script instruction",
		Animation: "animate:\n{{script_context}}",
	}})

	_, err := g.GenerateAnimationPrompts(context.Background(), []Image{testImage("a")}, []ShotDetail{{ShotNumber: "Shot 1", ShotDescription: "Hook"}})
	require.NoError(t, err)
	require.Equal(t, "animate:\nShot 1: Hook", models.contents[0].Parts[0].Text)
}

func TestRateLimiterHonorsContext(t *testing.T) {
	t.Parallel()

	models := &fakeModels{text: twoShots}
	g := newGemini(models, Options{RateInterval: 1 << 40})

	_, err := g.GenerateScript(context.Background(), testImage("p"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.GenerateScript(ctx, testImage("p"))
	var scriptErr *ScriptGenerationError
	require.ErrorAs(t, err, &scriptErr)
	require.Equal(t, 1, models.calls)
}

func TestScriptContext(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", ScriptContext(nil))
	require.Equal(t, "Shot 1: A\nShot 2: B", ScriptContext([]ShotDetail{
		{ShotNumber: "Shot 1", ShotDescription: "A"},
		{ShotNumber: "Shot 2", ShotDescription: "B"},
	}))
}

func TestParseJSONArray(t *testing.T) {
	t.Parallel()

	var out []int
	require.NoError(t, parseJSONArray("noise [1,2,3] trailing", &out))
	require.Equal(t, []int{1, 2, 3}, out)

	err := parseJSONArray(strings.Repeat("x", 300), &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "...")
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	require.Equal(t, ScriptFailureMessage+": boom", (&ScriptGenerationError{Err: cause}).Error())
	require.Equal(t, AnimationFailureMessage, (&AnimationPromptError{}).Error())
}
