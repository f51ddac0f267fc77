package uploader

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeView struct {
	file    *SelectedFile
	status  string
	result  string
	visible bool
}

func (v *fakeView) SelectedFile() *SelectedFile { return v.file }
func (v *fakeView) SetStatus(status string)     { v.status = status }
func (v *fakeView) ShowResult(pretty string)    { v.visible = true; v.result = pretty }
func (v *fakeView) HideResult()                 { v.visible = false; v.result = "" }

func pngFile() *SelectedFile {
	return &SelectedFile{
		Name:        "sample.png",
		ContentType: "image/png",
		Data:        []byte("\x89PNG fake payload"),
	}
}

func jsonResponder(status int, body string, calls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestSubmitWithoutFileMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(jsonResponder(http.StatusOK, `{}`, &calls))
	defer srv.Close()

	view := &fakeView{}
	ctrl := NewController(srv.URL+"/analyze", view, zap.NewNop())

	state := ctrl.Submit(context.Background())

	assert.Equal(t, StateError, state)
	assert.Equal(t, MsgChooseFile, view.status)
	assert.False(t, view.visible)
	assert.Zero(t, calls.Load())
}

func TestSubmitRendersSuccessfulAnalysis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		file, header, err := r.FormFile("image")
		if assert.NoError(t, err) {
			defer file.Close()
			payload, readErr := io.ReadAll(file)
			assert.NoError(t, readErr)
			assert.Equal(t, pngFile().Data, payload)
			assert.Equal(t, "sample.png", header.Filename)
			assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"region": "coastal-plain", "confidence": 0.82}`)
	}))
	defer srv.Close()

	view := &fakeView{file: pngFile()}
	ctrl := NewController(srv.URL+"/analyze", view, zap.NewNop())

	state := ctrl.Submit(context.Background())

	assert.Equal(t, StateSuccess, state)
	assert.Equal(t, MsgComplete, view.status)
	assert.True(t, view.visible)
	assert.JSONEq(t, `{"region": "coastal-plain", "confidence": 0.82}`, view.result)
	assert.Contains(t, view.result, "\n  \"confidence\"", "result should be pretty-printed")
}

func TestSubmitSurfacesServerErrorField(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusInternalServerError} {
		srv := httptest.NewServer(jsonResponder(status, `{"error": "unsupported format"}`, nil))

		view := &fakeView{file: pngFile()}
		ctrl := NewController(srv.URL+"/analyze", view, zap.NewNop())

		state := ctrl.Submit(context.Background())

		assert.Equal(t, StateError, state)
		assert.Equal(t, "unsupported format", view.status)
		assert.False(t, view.visible)
		srv.Close()
	}
}

func TestSubmitFallsBackWhenErrorFieldMissing(t *testing.T) {
	srv := httptest.NewServer(jsonResponder(http.StatusUnprocessableEntity, `{}`, nil))
	defer srv.Close()

	view := &fakeView{file: pngFile()}
	ctrl := NewController(srv.URL+"/analyze", view, zap.NewNop())

	state := ctrl.Submit(context.Background())

	assert.Equal(t, StateError, state)
	assert.Equal(t, MsgFailed, view.status)
	assert.False(t, view.visible)
}

func TestSubmitReportsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(jsonResponder(http.StatusOK, `{}`, nil))
	endpoint := srv.URL + "/analyze"
	srv.Close()

	view := &fakeView{file: pngFile()}
	ctrl := NewController(endpoint, view, zap.NewNop())

	state := ctrl.Submit(context.Background())

	assert.Equal(t, StateError, state)
	assert.Equal(t, MsgUnexpected, view.status)
	assert.False(t, view.visible)
}

func TestSubmitReportsMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>not json</html>")
	}))
	defer srv.Close()

	view := &fakeView{file: pngFile()}
	ctrl := NewController(srv.URL+"/analyze", view, zap.NewNop())

	state := ctrl.Submit(context.Background())

	assert.Equal(t, StateError, state)
	assert.Equal(t, MsgUnexpected, view.status)
	assert.False(t, view.visible)
}

func TestRepeatedSuccessLeavesNoStaleState(t *testing.T) {
	failing := httptest.NewServer(jsonResponder(http.StatusBadRequest, `{"error": "unsupported format"}`, nil))
	defer failing.Close()
	succeeding := httptest.NewServer(jsonResponder(http.StatusOK, `{"region": "coastal-plain", "confidence": 0.82}`, nil))
	defer succeeding.Close()

	view := &fakeView{file: pngFile()}

	// Seed an error so a later success must fully replace it.
	NewController(failing.URL+"/analyze", view, zap.NewNop()).Submit(context.Background())
	require.Equal(t, "unsupported format", view.status)

	ctrl := NewController(succeeding.URL+"/analyze", view, zap.NewNop())

	ctrl.Submit(context.Background())
	firstStatus, firstResult, firstVisible := view.status, view.result, view.visible

	ctrl.Submit(context.Background())

	assert.Equal(t, StateSuccess, ctrl.State())
	assert.Equal(t, firstStatus, view.status)
	assert.Equal(t, firstResult, view.result)
	assert.Equal(t, firstVisible, view.visible)
	assert.Equal(t, MsgComplete, view.status)
	assert.True(t, view.visible)
}

func TestSubmitIgnoresTriggerWhileInFlight(t *testing.T) {
	var calls atomic.Int32
	reached := make(chan struct{})
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		close(reached)
		<-release
		_, _ = io.WriteString(w, `{"region": "coastal-plain", "confidence": 0.82}`)
	}))
	defer srv.Close()

	view := &fakeView{file: pngFile()}
	ctrl := NewController(srv.URL+"/analyze", view, zap.NewNop())

	done := make(chan State, 1)
	go func() {
		done <- ctrl.Submit(context.Background())
	}()

	<-reached
	second := ctrl.Submit(context.Background())
	assert.Equal(t, StateAnalyzing, second)

	close(release)
	require.Equal(t, StateSuccess, <-done)
	assert.Equal(t, int32(1), calls.Load())
}
