package workflow

import (
	"slices"

	"github.com/mark3labs/adreel/internal/encoder"
	"github.com/mark3labs/adreel/internal/genclient"
)

const (
	// MaxShots caps the number of shots kept from a generated script.
	MaxShots = 5
	// PlaceholderSlots is the number of image slots shown before a script exists.
	PlaceholderSlots = 5
)

// Step is a position in the wizard.
type Step int

const (
	StepUploadProduct Step = iota + 1
	StepReviewScript
	StepUploadShotImages
	StepReviewFinalPrompts
)

// Steps lists every step in order.
var Steps = []Step{StepUploadProduct, StepReviewScript, StepUploadShotImages, StepReviewFinalPrompts}

// Title is the label shown in step indicators.
func (s Step) Title() string {
	switch s {
	case StepUploadProduct:
		return "Upload Product"
	case StepReviewScript:
		return "Get Script"
	case StepUploadShotImages:
		return "Upload Images"
	case StepReviewFinalPrompts:
		return "Get Veo Prompts"
	default:
		return "Unknown"
	}
}

func (s Step) String() string {
	switch s {
	case StepUploadProduct:
		return "upload_product"
	case StepReviewScript:
		return "review_script"
	case StepUploadShotImages:
		return "upload_shot_images"
	case StepReviewFinalPrompts:
		return "review_final_prompts"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the four wizard steps.
func (s Step) Valid() bool {
	return s >= StepUploadProduct && s <= StepReviewFinalPrompts
}

// state is the aggregate owned by a Machine. It is only touched under Machine.mu.
type state struct {
	step         Step
	productImage encoder.Source
	script       []genclient.ShotDetail
	userImages   []encoder.Source
	finalPrompts []string
	loading      bool
	err          string
}

func initialState() state {
	return state{
		step:       StepUploadProduct,
		userImages: make([]encoder.Source, PlaceholderSlots),
	}
}

// Snapshot is an immutable copy of the aggregate for views.
type Snapshot struct {
	Step         Step
	ProductImage encoder.Source
	Script       []genclient.ShotDetail
	UserImages   []encoder.Source
	FinalPrompts []string
	Loading      bool
	Error        string
	// Epoch increases on every ResetAll.
	Epoch uint64
}

func (s state) snapshot(epoch uint64) Snapshot {
	return Snapshot{
		Step:         s.step,
		ProductImage: s.productImage,
		Script:       slices.Clone(s.script),
		UserImages:   slices.Clone(s.userImages),
		FinalPrompts: slices.Clone(s.finalPrompts),
		Loading:      s.loading,
		Error:        s.err,
		Epoch:        epoch,
	}
}

// AllImagesSet reports whether every shot slot holds an image.
func (s Snapshot) AllImagesSet() bool {
	if len(s.UserImages) == 0 {
		return false
	}
	for _, img := range s.UserImages {
		if img == nil {
			return false
		}
	}
	return true
}

// FilledSlots counts the slots holding an image.
func (s Snapshot) FilledSlots() int {
	n := 0
	for _, img := range s.UserImages {
		if img != nil {
			n++
		}
	}
	return n
}

// CanNavigateTo reports whether NavigateTo(target) would move.
func (s Snapshot) CanNavigateTo(target Step) bool {
	return !s.Loading && target >= StepUploadProduct && target < s.Step
}
