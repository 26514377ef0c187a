package actions

import (
	"context"

	"github.com/shaiso/notepipe/internal/pipeline"
)

const fieldHTML = "html"

// ParseHTMLAction extracts plain text from the raw HTML fragment
// stored under "html" and stores it under "text", leaving "html"
// unchanged. The note-specific
// grammar for what counts as title/ingredients/instructions is out of
// scope; this only strips markup.
type ParseHTMLAction struct{}

func NewParseHTMLAction() *ParseHTMLAction { return &ParseHTMLAction{} }

func (a *ParseHTMLAction) Name() string    { return "parse_html" }
func (a *ParseHTMLAction) Retryable() bool { return false }

func (a *ParseHTMLAction) ValidateInput(data pipeline.PipelineData) error {
	if _, ok := data.Get(fieldHTML); !ok {
		return &pipeline.ValidationError{Action: a.Name(), Message: "missing html field"}
	}
	return nil
}

func (a *ParseHTMLAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	raw, _ := data.Get(fieldHTML)
	text, err := parseHTML(raw.(string))
	if err != nil {
		return data, &pipeline.TransientIOError{Op: "parse_html", Err: err}
	}
	return data.With("text", text), nil
}

// CleanHTMLAction normalizes the raw HTML fragment in place.
type CleanHTMLAction struct{}

func NewCleanHTMLAction() *CleanHTMLAction { return &CleanHTMLAction{} }

func (a *CleanHTMLAction) Name() string    { return "clean_html" }
func (a *CleanHTMLAction) Retryable() bool { return false }

func (a *CleanHTMLAction) ValidateInput(data pipeline.PipelineData) error {
	if _, ok := data.Get(fieldHTML); !ok {
		return &pipeline.ValidationError{Action: a.Name(), Message: "missing html field"}
	}
	return nil
}

func (a *CleanHTMLAction) Execute(ctx context.Context, data pipeline.PipelineData, deps *pipeline.Dependencies, actx pipeline.ActionContext) (pipeline.PipelineData, error) {
	raw, _ := data.Get(fieldHTML)
	cleaned, err := cleanHTML(raw.(string))
	if err != nil {
		return data, &pipeline.TransientIOError{Op: "clean_html", Err: err}
	}
	return data.With(fieldHTML, cleaned), nil
}
