// Package llm turns finance requests into structured model prompts and
// validates what comes back before it becomes a domain value.
package llm

import (
	"context"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Model sends one structured request to an external language model and
// returns the raw response text.
type Model interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is a single instruction with the JSON shape the answer must take.
type Request struct {
	// Operation names the gateway call for logs.
	Operation  string
	Prompt     string
	SchemaName string
	Schema     jsonschema.Definition
	// Attachment is sent inline alongside Prompt when set.
	Attachment *Attachment
}

// Attachment is a file passed to the model as base64 inline data.
type Attachment struct {
	MIMEType string
	Data     []byte
}
