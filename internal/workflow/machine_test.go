package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mark3labs/adreel/internal/encoder"
	"github.com/mark3labs/adreel/internal/genclient"
	"github.com/mark3labs/adreel/internal/genclient/genclienttest"
	"github.com/stretchr/testify/require"
)

func img(name string) encoder.Source {
	return encoder.NewBytesSource(name, []byte("image:"+name))
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// failingEncoder fails every call.
type failingEncoder struct{}

func (failingEncoder) Encode(ctx context.Context, src encoder.Source) (encoder.Payload, error) {
	return encoder.Payload{}, &encoder.ReadError{Source: src.Name(), Err: errors.New("disk gone")}
}

func (failingEncoder) EncodeAll(ctx context.Context, srcs []encoder.Source) ([]encoder.Payload, error) {
	return nil, &encoder.ReadError{Source: "all", Err: errors.New("disk gone")}
}

func newMachine(t *testing.T, fake *genclienttest.Fake, opts ...Option) *Machine {
	t.Helper()
	return New(fake, encoder.New(), opts...)
}

// toStep3 drives a machine with n shots to the image collection step.
func toStep3(t *testing.T, m *Machine) {
	t.Helper()
	require.NoError(t, m.SetProductImage(img("product")))
	require.NoError(t, m.GenerateScriptAndAdvance(context.Background()))
	require.True(t, m.Forward())
	require.Equal(t, StepUploadShotImages, m.Snapshot().Step)
}

func TestInitialState(t *testing.T) {
	t.Parallel()

	snap := newMachine(t, &genclienttest.Fake{}).Snapshot()
	require.Equal(t, StepUploadProduct, snap.Step)
	require.Nil(t, snap.ProductImage)
	require.Empty(t, snap.Script)
	require.Len(t, snap.UserImages, PlaceholderSlots)
	require.Empty(t, snap.FinalPrompts)
	require.False(t, snap.Loading)
	require.Empty(t, snap.Error)
}

func TestGenerateScript_RequiresProductImage(t *testing.T) {
	t.Parallel()

	fake := &genclienttest.Fake{}
	m := newMachine(t, fake)

	err := m.GenerateScriptAndAdvance(context.Background())

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Equal(t, MsgNoProductImage, valErr.Message)

	snap := m.Snapshot()
	require.Equal(t, MsgNoProductImage, snap.Error)
	require.Equal(t, StepUploadProduct, snap.Step)
	require.False(t, snap.Loading)
	require.Zero(t, fake.ScriptCalls())
}

func TestGenerateScript_TruncatesToFiveShots(t *testing.T) {
	t.Parallel()

	fake := &genclienttest.Fake{
		ScriptFn: func(ctx context.Context, image genclient.Image) ([]genclient.ShotDetail, error) {
			return genclienttest.Shots(7), nil
		},
	}
	m := newMachine(t, fake)
	m.SetProductImage(img("product"))

	require.NoError(t, m.GenerateScriptAndAdvance(context.Background()))

	snap := m.Snapshot()
	require.Equal(t, StepReviewScript, snap.Step)
	require.Equal(t, genclienttest.Shots(7)[:5], snap.Script)
	require.Len(t, snap.UserImages, 5)
	for _, slot := range snap.UserImages {
		require.Nil(t, slot)
	}
	require.Empty(t, snap.Error)
	require.False(t, snap.Loading)
}

func TestGenerateScript_ShotCounts(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 3, 4, 5} {
		t.Run(fmt.Sprintf("%d shots", n), func(t *testing.T) {
			t.Parallel()
			fake := &genclienttest.Fake{
				ScriptFn: func(ctx context.Context, image genclient.Image) ([]genclient.ShotDetail, error) {
					return genclienttest.Shots(n), nil
				},
			}
			m := newMachine(t, fake)
			m.SetProductImage(img("product"))
			require.NoError(t, m.GenerateScriptAndAdvance(context.Background()))

			snap := m.Snapshot()
			require.Len(t, snap.Script, n)
			require.Len(t, snap.UserImages, n)
		})
	}
}

func TestGenerateScript_EncodesProductImage(t *testing.T) {
	t.Parallel()

	fake := &genclienttest.Fake{}
	m := newMachine(t, fake)
	m.SetProductImage(encoder.NewBytesSource("p.png", []byte("\x89PNG\r\n\x1a\npayload")))
	require.NoError(t, m.GenerateScriptAndAdvance(context.Background()))

	got := fake.LastProductImage()
	require.Equal(t, "image/png", got.MIMEType)
	require.NotEmpty(t, got.Data)
}

func TestGenerateScript_Failure(t *testing.T) {
	t.Parallel()

	cause := &genclient.ScriptGenerationError{Err: errors.New("401")}
	fake := &genclienttest.Fake{
		ScriptFn: func(ctx context.Context, image genclient.Image) ([]genclient.ShotDetail, error) {
			return nil, cause
		},
	}
	m := newMachine(t, fake)
	m.SetProductImage(img("product"))

	err := m.GenerateScriptAndAdvance(context.Background())
	require.ErrorIs(t, err, cause)

	snap := m.Snapshot()
	require.Equal(t, StepUploadProduct, snap.Step)
	require.Equal(t, MsgScriptFailed, snap.Error)
	require.Empty(t, snap.Script)
	require.False(t, snap.Loading)
}

func TestGenerateScript_EmptyResultFails(t *testing.T) {
	t.Parallel()

	fake := &genclienttest.Fake{
		ScriptFn: func(ctx context.Context, image genclient.Image) ([]genclient.ShotDetail, error) {
			return nil, nil
		},
	}
	m := newMachine(t, fake)
	m.SetProductImage(img("product"))

	err := m.GenerateScriptAndAdvance(context.Background())
	var scriptErr *genclient.ScriptGenerationError
	require.ErrorAs(t, err, &scriptErr)
	require.Equal(t, MsgScriptFailed, m.Snapshot().Error)
}

func TestGenerateScript_EncodeFailureUsesScriptMessage(t *testing.T) {
	t.Parallel()

	fake := &genclienttest.Fake{}
	m := New(fake, failingEncoder{})
	m.SetProductImage(img("product"))

	err := m.GenerateScriptAndAdvance(context.Background())
	var readErr *encoder.ReadError
	require.ErrorAs(t, err, &readErr)
	require.Equal(t, MsgScriptFailed, m.Snapshot().Error)
	require.Zero(t, fake.ScriptCalls())
}

func TestGenerateScript_PanicClearsLoading(t *testing.T) {
	t.Parallel()

	fake := &genclienttest.Fake{
		ScriptFn: func(ctx context.Context, image genclient.Image) ([]genclient.ShotDetail, error) {
			panic("boom")
		},
	}
	m := newMachine(t, fake)
	m.SetProductImage(img("product"))

	err := m.GenerateScriptAndAdvance(context.Background())
	require.Error(t, err)

	snap := m.Snapshot()
	require.False(t, snap.Loading)
	require.Equal(t, MsgScriptFailed, snap.Error)
	require.Equal(t, StepUploadProduct, snap.Step)
}

func TestGenerateScript_ClearsPreviousErrorAndPrompts(t *testing.T) {
	t.Parallel()

	m := newMachine(t, &genclienttest.Fake{})
	require.Error(t, m.GenerateScriptAndAdvance(context.Background()))
	require.Equal(t, MsgNoProductImage, m.Snapshot().Error)

	toStep3(t, m)
	for i := range m.Snapshot().UserImages {
		require.NoError(t, m.SetUserImage(i, img(fmt.Sprint(i))))
	}
	require.NoError(t, m.GenerateAnimationPromptsAndAdvance(context.Background()))
	require.NotEmpty(t, m.Snapshot().FinalPrompts)

	require.True(t, m.NavigateTo(StepUploadProduct))
	require.NoError(t, m.GenerateScriptAndAdvance(context.Background()))

	snap := m.Snapshot()
	require.Empty(t, snap.Error)
	require.Empty(t, snap.FinalPrompts)
	require.Zero(t, snap.FilledSlots())
}

func TestGenerateScript_WrongStep(t *testing.T) {
	t.Parallel()

	m := newMachine(t, &genclienttest.Fake{})
	toStep3(t, m)
	require.ErrorIs(t, m.GenerateScriptAndAdvance(context.Background()), ErrWrongStep)
	require.Equal(t, StepUploadShotImages, m.Snapshot().Step)
}

func TestGenerateAnimation_RequiresAllImages(t *testing.T) {
	t.Parallel()

	fake := &genclienttest.Fake{
		ScriptFn: func(ctx context.Context, image genclient.Image) ([]genclient.ShotDetail, error) {
			return genclienttest.Shots(5), nil
		},
	}
	m := newMachine(t, fake)
	toStep3(t, m)
	for i := 0; i < 3; i++ {
		require.NoError(t, m.SetUserImage(i, img(fmt.Sprint(i))))
	}

	err := m.GenerateAnimationPromptsAndAdvance(context.Background())
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	require.Equal(t, MsgMissingShotImages, valErr.Message)

	snap := m.Snapshot()
	require.Equal(t, MsgMissingShotImages, snap.Error)
	require.Equal(t, StepUploadShotImages, snap.Step)
	require.Zero(t, fake.PromptsCalls())
}

func TestGenerateAnimation_PreservesOrder(t *testing.T) {
	t.Parallel()

	fake := &genclienttest.Fake{
		ScriptFn: func(ctx context.Context, image genclient.Image) ([]genclient.ShotDetail, error) {
			return genclienttest.Shots(5), nil
		},
		PromptsFn: func(ctx context.Context, images []genclient.Image, script []genclient.ShotDetail) ([]string, error) {
			return []string{"P0", "P1", "P2", "P3", "P4"}, nil
		},
	}
	m := newMachine(t, fake)
	toStep3(t, m)
	sources := make([]encoder.Source, 5)
	for i := range sources {
		sources[i] = img(fmt.Sprint("shot", i))
		require.NoError(t, m.SetUserImage(i, sources[i]))
	}

	require.NoError(t, m.GenerateAnimationPromptsAndAdvance(context.Background()))

	snap := m.Snapshot()
	require.Equal(t, StepReviewFinalPrompts, snap.Step)
	require.Equal(t, []string{"P0", "P1", "P2", "P3", "P4"}, snap.FinalPrompts)
	require.Equal(t, sources[2], snap.UserImages[2])
	require.Equal(t, "P2", snap.FinalPrompts[2])

	enc := encoder.New()
	for i, got := range fake.LastImages() {
		want, err := enc.Encode(context.Background(), sources[i])
		require.NoError(t, err)
		require.Equal(t, want.Data, got.Data)
	}
	require.Equal(t, genclienttest.Shots(5), fake.LastScript())
}

func TestGenerateAnimation_Failure(t *testing.T) {
	t.Parallel()

	fake := &genclienttest.Fake{
		PromptsFn: func(ctx context.Context, images []genclient.Image, script []genclient.ShotDetail) ([]string, error) {
			return nil, &genclient.AnimationPromptError{Err: errors.New("timeout")}
		},
	}
	m := newMachine(t, fake)
	toStep3(t, m)
	for i := range m.Snapshot().UserImages {
		require.NoError(t, m.SetUserImage(i, img(fmt.Sprint(i))))
	}

	err := m.GenerateAnimationPromptsAndAdvance(context.Background())
	var promptErr *genclient.AnimationPromptError
	require.ErrorAs(t, err, &promptErr)

	snap := m.Snapshot()
	require.Equal(t, StepUploadShotImages, snap.Step)
	require.Equal(t, MsgPromptsFailed, snap.Error)
	require.Empty(t, snap.FinalPrompts)
	require.False(t, snap.Loading)
}

func TestGenerateAnimation_CountMismatchFails(t *testing.T) {
	t.Parallel()

	fake := &genclienttest.Fake{
		PromptsFn: func(ctx context.Context, images []genclient.Image, script []genclient.ShotDetail) ([]string, error) {
			return []string{"only one"}, nil
		},
	}
	m := newMachine(t, fake)
	toStep3(t, m)
	for i := range m.Snapshot().UserImages {
		require.NoError(t, m.SetUserImage(i, img(fmt.Sprint(i))))
	}

	err := m.GenerateAnimationPromptsAndAdvance(context.Background())
	var promptErr *genclient.AnimationPromptError
	require.ErrorAs(t, err, &promptErr)
	require.Equal(t, MsgPromptsFailed, m.Snapshot().Error)
}

func TestGenerateAnimation_PanicClearsLoading(t *testing.T) {
	t.Parallel()

	fake := &genclienttest.Fake{
		PromptsFn: func(ctx context.Context, images []genclient.Image, script []genclient.ShotDetail) ([]string, error) {
			panic("boom")
		},
	}
	m := newMachine(t, fake)
	toStep3(t, m)
	for i := range m.Snapshot().UserImages {
		require.NoError(t, m.SetUserImage(i, img(fmt.Sprint(i))))
	}

	require.Error(t, m.GenerateAnimationPromptsAndAdvance(context.Background()))
	require.False(t, m.Snapshot().Loading)
}

func TestNavigation(t *testing.T) {
	t.Parallel()

	m := newMachine(t, &genclienttest.Fake{})
	require.False(t, m.Forward(), "forward from step 1 is a generation, not navigation")
	require.False(t, m.Back())

	toStep3(t, m)
	require.False(t, m.Forward())
	require.True(t, m.Back())
	require.Equal(t, StepReviewScript, m.Snapshot().Step)
	require.True(t, m.Back())
	require.Equal(t, StepUploadProduct, m.Snapshot().Step)

	// Script and slots survive backward navigation.
	snap := m.Snapshot()
	require.Len(t, snap.Script, 4)
	require.Len(t, snap.UserImages, 4)
}

func TestNavigateTo(t *testing.T) {
	t.Parallel()

	m := newMachine(t, &genclienttest.Fake{})
	toStep3(t, m)

	for _, target := range []Step{StepUploadShotImages, StepReviewFinalPrompts, 0, -1, 9} {
		require.False(t, m.NavigateTo(target), "target %d", target)
		require.Equal(t, StepUploadShotImages, m.Snapshot().Step)
	}

	require.True(t, m.NavigateTo(StepUploadProduct))
	require.Equal(t, StepUploadProduct, m.Snapshot().Step)
}

func TestNavigationKeepsError(t *testing.T) {
	t.Parallel()

	m := newMachine(t, &genclienttest.Fake{})
	toStep3(t, m)
	require.Error(t, m.GenerateAnimationPromptsAndAdvance(context.Background()))
	require.True(t, m.Back())
	require.Equal(t, MsgMissingShotImages, m.Snapshot().Error)
}

func TestSetUserImage(t *testing.T) {
	t.Parallel()

	m := newMachine(t, &genclienttest.Fake{})

	// Placeholder slots are addressable before a script exists.
	require.NoError(t, m.SetUserImage(4, img("early")))

	var idxErr *IndexError
	require.ErrorAs(t, m.SetUserImage(5, img("x")), &idxErr)
	require.Equal(t, 5, idxErr.Index)
	require.Equal(t, PlaceholderSlots, idxErr.Len)
	require.ErrorAs(t, m.SetUserImage(-1, img("x")), &idxErr)
	require.Empty(t, m.Snapshot().Error, "index errors are never stored")

	toStep3(t, m)
	require.NoError(t, m.SetUserImage(1, img("a")))
	require.NoError(t, m.SetUserImage(1, img("b")))
	require.Equal(t, "b", m.Snapshot().UserImages[1].Name())
	require.NoError(t, m.SetUserImage(1, nil))
	require.Nil(t, m.Snapshot().UserImages[1])
	require.ErrorAs(t, m.SetUserImage(4, img("x")), &idxErr)
}

func TestSetProductImageReplaces(t *testing.T) {
	t.Parallel()

	m := newMachine(t, &genclienttest.Fake{})
	m.SetProductImage(img("one"))
	m.SetProductImage(img("two"))
	require.Equal(t, "two", m.Snapshot().ProductImage.Name())
}

func TestResetAll(t *testing.T) {
	t.Parallel()

	m := newMachine(t, &genclienttest.Fake{})
	initial := m.Snapshot()

	toStep3(t, m)
	for i := range m.Snapshot().UserImages {
		require.NoError(t, m.SetUserImage(i, img(fmt.Sprint(i))))
	}
	require.NoError(t, m.GenerateAnimationPromptsAndAdvance(context.Background()))

	m.ResetAll()
	after := m.Snapshot()
	require.Equal(t, initial.Epoch+1, after.Epoch)
	after.Epoch = initial.Epoch
	require.Equal(t, initial, after)
}

func TestResetDuringFlightDiscardsResult(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	fake := &genclienttest.Fake{
		ScriptFn: func(ctx context.Context, image genclient.Image) ([]genclient.ShotDetail, error) {
			close(started)
			<-release
			return genclienttest.Shots(3), nil
		},
	}
	m := newMachine(t, fake)
	m.SetProductImage(img("product"))

	done := make(chan error, 1)
	go func() { done <- m.GenerateScriptAndAdvance(context.Background()) }()

	<-started
	require.True(t, m.Snapshot().Loading)
	require.ErrorIs(t, m.GenerateScriptAndAdvance(context.Background()), ErrBusy)
	require.False(t, m.Back(), "navigation is disabled while loading")

	m.ResetAll()
	close(release)
	require.ErrorIs(t, <-done, ErrStale)

	snap := m.Snapshot()
	require.Equal(t, StepUploadProduct, snap.Step)
	require.Empty(t, snap.Script)
	require.Nil(t, snap.ProductImage)
	require.False(t, snap.Loading)
}

func TestImagesLockedDuringFlight(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	fake := &genclienttest.Fake{
		PromptsFn: func(ctx context.Context, images []genclient.Image, script []genclient.ShotDetail) ([]string, error) {
			close(started)
			<-release
			out := make([]string, len(images))
			for i, im := range images {
				out[i] = "prompt for " + im.Data
			}
			return out, nil
		},
	}
	m := newMachine(t, fake)
	toStep3(t, m)
	n := len(m.Snapshot().UserImages)
	for i := 0; i < n; i++ {
		require.NoError(t, m.SetUserImage(i, img("orig")))
	}

	done := make(chan error, 1)
	go func() { done <- m.GenerateAnimationPromptsAndAdvance(context.Background()) }()
	<-started

	require.ErrorIs(t, m.SetUserImage(0, img("swapped")), ErrBusy)
	require.ErrorIs(t, m.SetUserImage(1, nil), ErrBusy)
	require.ErrorIs(t, m.SetProductImage(img("other")), ErrBusy)
	require.ErrorIs(t, m.SetProductImage(nil), ErrBusy)

	close(release)
	require.NoError(t, <-done)

	snap := m.Snapshot()
	require.Equal(t, StepReviewFinalPrompts, snap.Step)
	require.Equal(t, "product", snap.ProductImage.Name())
	require.Len(t, snap.FinalPrompts, n)
	for i, src := range snap.UserImages {
		require.NotNil(t, src)
		require.Equal(t, "orig", src.Name())
		require.Equal(t, "prompt for "+fake.LastImages()[i].Data, snap.FinalPrompts[i])
	}

	require.NoError(t, m.SetUserImage(0, img("after")), "slots unlock once the call returns")
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	m := newMachine(t, &genclienttest.Fake{})
	toStep3(t, m)

	snap := m.Snapshot()
	snap.UserImages[0] = img("mutated")
	snap.Script[0].ShotNumber = "mutated"

	fresh := m.Snapshot()
	require.Nil(t, fresh.UserImages[0])
	require.Equal(t, "Shot 1", fresh.Script[0].ShotNumber)
}

func TestEvents(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	m := newMachine(t, &genclienttest.Fake{}, WithNotifier(rec), WithSession("s1"))
	require.Equal(t, "s1", m.Session())

	toStep3(t, m)
	require.NoError(t, m.SetUserImage(0, img("a")))
	m.ResetAll()

	require.Equal(t, []EventType{
		EventImageSet,
		EventGenerationStarted,
		EventGenerationSucceeded,
		EventStepChanged,
		EventImageSet,
		EventReset,
	}, rec.types())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Equal(t, ProductSlot, rec.events[0].Slot)
	require.Equal(t, OpScript, rec.events[1].Operation)
	require.Equal(t, StepReviewScript, rec.events[2].Step)
	require.Equal(t, 0, rec.events[4].Slot)
	for _, e := range rec.events {
		require.Equal(t, "s1", e.Session)
	}
}

func TestStepTitles(t *testing.T) {
	t.Parallel()

	titles := make([]string, len(Steps))
	for i, s := range Steps {
		titles[i] = s.Title()
		require.True(t, s.Valid())
	}
	require.Equal(t, []string{"Upload Product", "Get Script", "Upload Images", "Get Veo Prompts"}, titles)
	require.False(t, Step(0).Valid())
	require.Equal(t, "review_script", StepReviewScript.String())
}
