package httpapi

import (
	"github.com/mark3labs/adreel/internal/encoder"
	"github.com/mark3labs/adreel/internal/genclient"
	"github.com/mark3labs/adreel/internal/workflow"
)

// imageInfo describes an uploaded image without its content.
type imageInfo struct {
	Name string `json:"name"`
}

// stateResponse is the JSON form of a workflow.Snapshot.
type stateResponse struct {
	Session      string                 `json:"session"`
	Step         int                    `json:"step"`
	StepName     string                 `json:"step_name"`
	StepTitle    string                 `json:"step_title"`
	ProductImage *imageInfo             `json:"product_image"`
	Script       []genclient.ShotDetail `json:"script"`
	UserImages   []*imageInfo           `json:"user_images"`
	FinalPrompts []string               `json:"final_prompts"`
	Loading      bool                   `json:"loading"`
	Error        string                 `json:"error,omitempty"`
	Epoch        uint64                 `json:"epoch"`
}

func info(src encoder.Source) *imageInfo {
	if src == nil {
		return nil
	}
	return &imageInfo{Name: src.Name()}
}

func newStateResponse(id string, snap workflow.Snapshot) stateResponse {
	images := make([]*imageInfo, len(snap.UserImages))
	for i, src := range snap.UserImages {
		images[i] = info(src)
	}
	script := snap.Script
	if script == nil {
		script = []genclient.ShotDetail{}
	}
	prompts := snap.FinalPrompts
	if prompts == nil {
		prompts = []string{}
	}
	return stateResponse{
		Session:      id,
		Step:         int(snap.Step),
		StepName:     snap.Step.String(),
		StepTitle:    snap.Step.Title(),
		ProductImage: info(snap.ProductImage),
		Script:       script,
		UserImages:   images,
		FinalPrompts: prompts,
		Loading:      snap.Loading,
		Error:        snap.Error,
		Epoch:        snap.Epoch,
	}
}
