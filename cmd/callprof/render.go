package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/goccy/go-json"

	"github.com/getsentry/callprof/internal/calltree"
	"github.com/getsentry/callprof/internal/errorutil"
	"github.com/getsentry/callprof/internal/httputil"
	"github.com/getsentry/callprof/internal/profiler"
	"github.com/getsentry/callprof/internal/speedscope"
	"github.com/getsentry/callprof/internal/tmpl"
)

const defaultTemplateName = "template.tmpl"

type (
	RenderRequest struct {
		Data     map[string]interface{} `json:"data"`
		Name     string                 `json:"name"`
		Template string                 `json:"template"`
	}

	RenderResponse struct {
		CallTree *calltree.Node `json:"call_tree"`
		Output   string         `json:"output"`
	}
)

func (r RenderRequest) validate() error {
	if r.Template == "" {
		return fmt.Errorf("%w: template is empty", errorutil.ErrInvalidPayload)
	}
	return nil
}

func (e *environment) postRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	hub := sentry.GetHubFromContext(ctx)

	format, ok := httputil.GetQueryParameter(w, r, "format", "json", "json", "speedscope")
	if !ok {
		return
	}

	s := sentry.StartSpan(ctx, "processing")
	s.Description = "Read HTTP body"
	body, err := io.ReadAll(r.Body)
	s.Finish()
	if err != nil {
		captureException(hub, err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var req RenderRequest
	s = sentry.StartSpan(ctx, "json.unmarshal")
	s.Description = "Unmarshal render request"
	err = json.Unmarshal(body, &req)
	s.Finish()
	if err == nil {
		err = req.validate()
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		req.Name = defaultTemplateName
	}

	stop := profiler.Trace(ctx)
	frame := profiler.Current(ctx)
	output, err := tmpl.Render(ctx, req.Name, req.Template, req.Data)
	stop()
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, errorutil.ErrUnterminatedExpression) || errors.Is(err, errorutil.ErrEmptyExpression) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	var response interface{} = RenderResponse{
		CallTree: frame,
		Output:   output,
	}
	if format == "speedscope" {
		response = speedscope.FromCallTree(req.Name, frame)
	}

	s = sentry.StartSpan(ctx, "json.marshal")
	defer s.Finish()
	b, err := json.Marshal(response)
	if err != nil {
		captureException(hub, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func captureException(hub *sentry.Hub, err error) {
	if hub != nil {
		hub.CaptureException(err)
	}
}
