// Package report renders workflow results for delivery.
package report

import (
	"encoding/json"
	"fmt"

	"github.com/syncport-ai/npsd/internal/workflow"
)

// Format selects an output renderer.
type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// Renderer turns a workflow result into a deliverable document.
type Renderer interface {
	// Render serializes the result.
	Render(result *workflow.Result) ([]byte, error)

	// ContentType is the MIME type of the rendered document.
	ContentType() string
}

// New returns the renderer for a format.
func New(format Format) (Renderer, error) {
	switch format {
	case FormatJSON, "":
		return &JSONRenderer{Indent: true}, nil
	case FormatHTML:
		return &HTMLRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// JSONRenderer emits the full result document as JSON.
type JSONRenderer struct {
	// Indent pretty-prints the output.
	Indent bool
}

func (r *JSONRenderer) Render(result *workflow.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("nil result")
	}
	if r.Indent {
		return json.MarshalIndent(result, "", "  ")
	}
	return json.Marshal(result)
}

func (r *JSONRenderer) ContentType() string { return "application/json" }
