// Package uploader mediates one user-triggered submit -> request -> render
// cycle against the analysis endpoint, reflecting the outcome on a View.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync/atomic"

	"go.uber.org/zap"
)

// State identifies where the submission cycle currently is. Transitions are
// strictly idle -> analyzing -> {success, error}; error is also reachable
// directly when no file is selected. A new submission restarts the cycle.
type State string

const (
	StateIdle      State = "idle"
	StateAnalyzing State = "analyzing"
	StateSuccess   State = "success"
	StateError     State = "error"
)

// Fixed user-facing status messages.
const (
	MsgChooseFile = "Please choose a PNG or JPEG file to analyze."
	MsgAnalyzing  = "Analyzing image..."
	MsgComplete   = "Analysis complete."
	MsgFailed     = "The analysis failed."
	MsgUnexpected = "Unexpected error while analyzing the image."
)

// SelectedFile is the payload chosen on the view. It is read once per
// submission and not retained.
type SelectedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// View is the UI surface the controller drives. Implementations decide how
// status text and the result area are presented.
type View interface {
	// SelectedFile returns the currently chosen file, or nil when none is.
	SelectedFile() *SelectedFile
	SetStatus(status string)
	ShowResult(pretty string)
	HideResult()
}

// Controller coordinates a single upload/analyze interaction.
type Controller struct {
	endpoint  string
	authToken string
	client    *http.Client
	view      View
	logger    *zap.Logger

	state    State
	inFlight atomic.Bool
}

// Option customizes a Controller.
type Option func(*Controller)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) {
		c.client = client
	}
}

// WithAuthToken attaches a bearer token to analysis requests, for endpoints
// running with auth enabled.
func WithAuthToken(token string) Option {
	return func(c *Controller) {
		c.authToken = token
	}
}

// NewController builds a controller posting to the given analysis endpoint.
func NewController(endpoint string, view View, logger *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		endpoint: endpoint,
		client:   &http.Client{},
		view:     view,
		logger:   logger.Named("uploader"),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the state reached by the most recent submission.
func (c *Controller) State() State {
	return c.state
}

// Submit runs one submission cycle and returns the terminal state. Triggers
// arriving while another submission is in flight are ignored.
func (c *Controller) Submit(ctx context.Context) State {
	if !c.inFlight.CompareAndSwap(false, true) {
		return c.state
	}
	defer c.inFlight.Store(false)

	file := c.view.SelectedFile()
	if file == nil {
		return c.fail(MsgChooseFile)
	}

	body, contentType, err := encodeMultipart(file)
	if err != nil {
		c.logger.Error("failed to encode multipart body", zap.Error(err))
		return c.fail(MsgUnexpected)
	}

	c.state = StateAnalyzing
	c.view.SetStatus(MsgAnalyzing)
	c.view.HideResult()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		c.logger.Error("failed to build analysis request", zap.Error(err))
		return c.fail(MsgUnexpected)
	}
	req.Header.Set("Content-Type", contentType)
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("analysis request failed", zap.Error(err))
		return c.fail(MsgUnexpected)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("failed to read analysis response", zap.Error(err))
		return c.fail(MsgUnexpected)
	}

	// The endpoint returns a JSON body even on failure statuses.
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.logger.Error("analysis response is not valid JSON",
			zap.Error(err), zap.Int("status", resp.StatusCode))
		return c.fail(MsgUnexpected)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.fail(serverErrorMessage(parsed))
	}

	pretty, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		c.logger.Error("failed to render analysis result", zap.Error(err))
		return c.fail(MsgUnexpected)
	}

	c.state = StateSuccess
	c.view.SetStatus(MsgComplete)
	c.view.ShowResult(string(pretty))
	return c.state
}

// fail moves to the error state. The result surface is hidden first so it
// never stays visible outside the success state.
func (c *Controller) fail(message string) State {
	c.state = StateError
	c.view.HideResult()
	c.view.SetStatus(message)
	return c.state
}

// serverErrorMessage extracts the endpoint's error field, falling back to
// the fixed failure message when absent.
func serverErrorMessage(parsed any) string {
	if obj, ok := parsed.(map[string]any); ok {
		if message, ok := obj["error"].(string); ok && message != "" {
			return message
		}
	}
	return MsgFailed
}

// encodeMultipart packages the file as multipart form data under the
// "image" field.
func encodeMultipart(file *SelectedFile) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, file.Name))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}
