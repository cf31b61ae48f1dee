package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mark3labs/adreel/internal/encoder"
	"github.com/mark3labs/adreel/internal/events"
	"github.com/mark3labs/adreel/internal/genclient"
	"github.com/mark3labs/adreel/internal/genclient/genclienttest"
	"github.com/mark3labs/adreel/internal/tui/testfixtures"
	"github.com/mark3labs/adreel/internal/workflow"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var exportedAt = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestServer(t *testing.T, fake *genclienttest.Fake, mutate ...func(*Options)) *Server {
	t.Helper()
	if fake == nil {
		fake = &genclienttest.Fake{}
	}
	if fake.ScriptFn == nil {
		fake.ScriptFn = func(context.Context, genclient.Image) ([]genclient.ShotDetail, error) {
			return testfixtures.CoffeeScript(), nil
		}
	}
	opts := Options{
		Generator: fake,
		Encoder:   encoder.New(),
		ExportDir: filepath.Join(t.TempDir(), "exports"),
		WorkDir:   t.TempDir(),
		Now:       func() time.Time { return exportedAt },
	}
	for _, m := range mutate {
		m(&opts)
	}
	return New(opts)
}

type apiClient struct {
	t   *testing.T
	srv *Server
}

func (a apiClient) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	a.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (a apiClient) json(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	if body == nil {
		return a.do(method, path, nil, "")
	}
	data, err := json.Marshal(body)
	require.NoError(a.t, err)
	return a.do(method, path, bytes.NewReader(data), "application/json")
}

func (a apiClient) upload(path, filename string, data []byte) *httptest.ResponseRecorder {
	a.t.Helper()
	body, contentType := multipartImage(a.t, filename, data)
	return a.do(http.MethodPut, path, body, contentType)
}

func multipartImage(t *testing.T, filename string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) stateResponse {
	t.Helper()
	var st stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st), rec.Body.String())
	return st
}

type errorBody struct {
	Error string        `json:"error"`
	State stateResponse `json:"state"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func (a apiClient) create() string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/v1/sessions", nil, "")
	require.Equal(a.t, http.StatusCreated, rec.Code)
	return decodeState(a.t, rec).Session
}

func TestAPI_FullFlow(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	api := apiClient{t: t, srv: srv}
	png := testfixtures.PNG(32, 18)

	rec := api.do(http.MethodPost, "/api/v1/sessions", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	st := decodeState(t, rec)
	require.NotEmpty(t, st.Session)
	require.Equal(t, 1, st.Step)
	require.Equal(t, "upload_product", st.StepName)
	require.Len(t, st.UserImages, workflow.PlaceholderSlots)
	require.Empty(t, st.Script)
	base := "/api/v1/sessions/" + st.Session

	rec = api.json(http.MethodPost, base+"/script", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, workflow.MsgNoProductImage, decodeError(t, rec).Error)

	rec = api.upload(base+"/product", "can.png", png)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "can.png", decodeState(t, rec).ProductImage.Name)

	rec = api.json(http.MethodPost, base+"/script", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st = decodeState(t, rec)
	require.Equal(t, 2, st.Step)
	require.Equal(t, testfixtures.CoffeeScript(), st.Script)
	require.Empty(t, st.Error)

	rec = api.json(http.MethodPost, base+"/forward", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var move moveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &move))
	require.True(t, move.Moved)
	require.Equal(t, 3, move.State.Step)
	require.Len(t, move.State.UserImages, 3)

	rec = api.json(http.MethodPost, base+"/prompts", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, workflow.MsgMissingShotImages, decodeError(t, rec).Error)

	for _, i := range []string{"0", "1", "2"} {
		rec = api.upload(base+"/shots/"+i, "shot-"+i+".png", png)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec = api.upload(base+"/shots/7", "extra.png", png)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.json(http.MethodPost, base+"/prompts", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st = decodeState(t, rec)
	require.Equal(t, 4, st.Step)
	require.Equal(t, []string{"Slow push in on shot 1", "Slow push in on shot 2", "Slow push in on shot 3"}, st.FinalPrompts)
	require.Equal(t, "shot-2.png", st.UserImages[2].Name)

	rec = api.json(http.MethodPost, base+"/navigate", map[string]int{"step": 4})
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &move))
	require.False(t, move.Moved)

	rec = api.json(http.MethodPost, base+"/export", map[string]string{"title": "Cold Brew", "format": "json"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var exp exportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exp))
	require.Equal(t, filepath.Join(srv.opts.ExportDir, "cold-brew-20260314-092653.json"), exp.Path)
	data, err := os.ReadFile(exp.Path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"image": "shot-0.png"`)

	rec = api.json(http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st = decodeState(t, rec)
	require.Equal(t, 1, st.Step)
	require.Nil(t, st.ProductImage)
	require.Equal(t, uint64(1), st.Epoch)
}

func TestAPI_ScriptFailure(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &genclienttest.Fake{
		ScriptFn: func(context.Context, genclient.Image) ([]genclient.ShotDetail, error) {
			return nil, &genclient.ScriptGenerationError{Err: errors.New("unavailable")}
		},
	})
	api := apiClient{t: t, srv: srv}
	base := "/api/v1/sessions/" + api.create()

	require.Equal(t, http.StatusOK, api.upload(base+"/product", "can.png", testfixtures.PNG(4, 4)).Code)
	rec := api.json(http.MethodPost, base+"/script", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeError(t, rec)
	require.Equal(t, workflow.MsgScriptFailed, body.Error)
	require.Equal(t, 1, body.State.Step)
	require.False(t, body.State.Loading)
}

func TestAPI_Conflicts(t *testing.T) {
	t.Parallel()
	api := apiClient{t: t, srv: newTestServer(t, nil)}
	base := "/api/v1/sessions/" + api.create()

	rec := api.json(http.MethodPost, base+"/prompts", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, workflow.ErrWrongStep.Error(), decodeError(t, rec).Error)

	rec = api.json(http.MethodPost, base+"/export", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = api.json(http.MethodPost, base+"/back", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var move moveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &move))
	require.False(t, move.Moved)
}

func TestAPI_ImagesLockedWhileGenerating(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	release := make(chan struct{})
	fake := &genclienttest.Fake{
		ScriptFn: func(context.Context, genclient.Image) ([]genclient.ShotDetail, error) {
			close(started)
			<-release
			return testfixtures.CoffeeScript(), nil
		},
	}
	api := apiClient{t: t, srv: newTestServer(t, fake)}
	base := "/api/v1/sessions/" + api.create()
	require.Equal(t, http.StatusOK, api.upload(base+"/product", "can.png", testfixtures.PNG(8, 8)).Code)

	done := make(chan int, 1)
	go func() { done <- api.do(http.MethodPost, base+"/script", nil, "").Code }()
	<-started

	rec := api.upload(base+"/product", "other.png", testfixtures.PNG(4, 4))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, workflow.ErrBusy.Error(), decodeError(t, rec).Error)
	require.Equal(t, http.StatusConflict, api.do(http.MethodDelete, base+"/product", nil, "").Code)
	require.Equal(t, http.StatusConflict, api.do(http.MethodDelete, base+"/shots/0", nil, "").Code)

	close(release)
	require.Equal(t, http.StatusOK, <-done)

	st := decodeState(t, api.do(http.MethodGet, base, nil, ""))
	require.NotNil(t, st.ProductImage)
	require.Equal(t, "can.png", st.ProductImage.Name)
}

func TestAPI_BadRequests(t *testing.T) {
	t.Parallel()
	api := apiClient{t: t, srv: newTestServer(t, nil, func(o *Options) { o.MaxUploadBytes = 16 })}
	base := "/api/v1/sessions/" + api.create()

	tests := []struct {
		name string
		rec  func() *httptest.ResponseRecorder
		want int
	}{
		{
			name: "missing image field",
			rec:  func() *httptest.ResponseRecorder { return api.do(http.MethodPut, base+"/product", strings.NewReader(""), "") },
			want: http.StatusBadRequest,
		},
		{
			name: "upload too large",
			rec:  func() *httptest.ResponseRecorder { return api.upload(base+"/product", "big.png", testfixtures.PNG(64, 64)) },
			want: http.StatusRequestEntityTooLarge,
		},
		{
			name: "empty upload",
			rec:  func() *httptest.ResponseRecorder { return api.upload(base+"/product", "empty.png", nil) },
			want: http.StatusBadRequest,
		},
		{
			name: "non-numeric shot index",
			rec:  func() *httptest.ResponseRecorder { return api.do(http.MethodDelete, base+"/shots/first", nil, "") },
			want: http.StatusBadRequest,
		},
		{
			name: "navigate out of range",
			rec:  func() *httptest.ResponseRecorder { return api.json(http.MethodPost, base+"/navigate", map[string]int{"step": 9}) },
			want: http.StatusBadRequest,
		},
		{
			name: "unknown export format",
			rec: func() *httptest.ResponseRecorder {
				return api.json(http.MethodPost, base+"/export", map[string]string{"format": "pdf"})
			},
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.rec()
			require.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestAPI_SessionLifecycle(t *testing.T) {
	t.Parallel()
	api := apiClient{t: t, srv: newTestServer(t, nil)}

	rec := api.do(http.MethodGet, "/api/v1/sessions/missing", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	id := api.create()
	rec = api.do(http.MethodGet, "/healthz", nil, "")
	require.Contains(t, rec.Body.String(), `"sessions":1`)

	rec = api.do(http.MethodDelete, "/api/v1/sessions/"+id, nil, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(http.MethodGet, "/api/v1/sessions/"+id, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/ws/sessions/"+api.create(), nil, "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code, "streaming needs a bus")
}

func TestSessionStore_Expiry(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	store := newSessionStore(30*time.Millisecond, srv.newMachine, srv.log)

	sess := store.Create()
	got, ok := store.Get(sess.id)
	require.True(t, ok)
	require.Same(t, sess, got)
	require.Equal(t, sess.id, got.machine.Session())

	time.Sleep(80 * time.Millisecond)
	_, ok = store.Get(sess.id)
	require.False(t, ok)
}

func TestAPI_WebSocketStream(t *testing.T) {
	bus, err := events.Start()
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	srv := newTestServer(t, nil, func(o *Options) { o.Bus = bus })
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/v1/sessions", "application/json", nil)
	require.NoError(t, err)
	var st stateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/sessions/" + st.Session
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first streamMessage
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, "state", first.Type)
	require.Equal(t, st.Session, first.State.Session)

	body, contentType := multipartImage(t, "can.png", testfixtures.PNG(8, 8))
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/v1/sessions/"+st.Session+"/product", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var next streamMessage
	require.NoError(t, conn.ReadJSON(&next))
	require.Equal(t, "event", next.Type)
	require.NotNil(t, next.Event)
	require.Equal(t, workflow.EventImageSet, next.Event.Type)
	require.Equal(t, workflow.ProductSlot, next.Event.Slot)
	require.Equal(t, "can.png", next.State.ProductImage.Name)
}
