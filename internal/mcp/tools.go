package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/natefinch/atomic"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil"
)

// --- Shared types ---

// TemplateSummary describes a stored template.
type TemplateSummary struct {
	ID        string `json:"id"                  jsonschema:"template ID"`
	Name      string `json:"name"                jsonschema:"template name"`
	Category  string `json:"category,omitempty"  jsonschema:"template category"`
	Version   int    `json:"version"             jsonschema:"version number, starting at 1"`
	ParentID  string `json:"parent_id,omitempty" jsonschema:"ID of the version this one was derived from"`
	State     string `json:"state"               jsonschema:"draft or finalized"`
	Variables int    `json:"variables"           jsonschema:"number of variables"`
}

// --- List tool ---

// ListInput is the input for the list_templates tool.
type ListInput struct {
	State    string `json:"state,omitempty"    jsonschema:"only list templates in this state (draft or finalized)"`
	Category string `json:"category,omitempty" jsonschema:"only list templates in this category"`
}

// ListOutput is the output for the list_templates tool.
type ListOutput struct {
	Count     int               `json:"count"     jsonschema:"number of templates listed"`
	Templates []TemplateSummary `json:"templates" jsonschema:"templates ordered by name and version"`
}

func handleList(engine *stencil.Engine) mcp.ToolHandlerFor[ListInput, ListOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
		if input.State != "" {
			var state stencil.State
			if err := state.UnmarshalText([]byte(input.State)); err != nil {
				return nil, ListOutput{}, err
			}
		}

		recs, err := engine.List(ctx)
		if err != nil {
			return nil, ListOutput{}, fmt.Errorf("listing templates: %w", err)
		}

		out := ListOutput{Templates: make([]TemplateSummary, 0, len(recs))}
		for _, rec := range recs {
			if input.State != "" && rec.State.String() != input.State {
				continue
			}
			if input.Category != "" && rec.Category != input.Category {
				continue
			}
			out.Templates = append(out.Templates, toSummary(rec))
		}
		out.Count = len(out.Templates)
		return nil, out, nil
	}
}

// --- Describe tool ---

// DescribeInput is the input for the describe_template tool.
type DescribeInput struct {
	ID string `json:"id" jsonschema:"template ID (required)"`
}

// VariableInfo describes one variable of a template.
type VariableInfo struct {
	Name        string         `json:"name"                  jsonschema:"variable name, used as the binding key"`
	Type        string         `json:"type"                  jsonschema:"text, number, date or enum"`
	Required    bool           `json:"required"              jsonschema:"whether generation fails without a binding"`
	Default     any            `json:"default,omitempty"     jsonschema:"value used when an optional variable is not bound"`
	Constraints map[string]any `json:"constraints,omitempty" jsonschema:"type-specific constraints"`
	Start       int            `json:"start"                 jsonschema:"start of the covered text, in characters"`
	End         int            `json:"end"                   jsonschema:"end of the covered text, in characters"`
	Text        string         `json:"text"                  jsonschema:"template text the variable replaces"`
}

// DescribeOutput is the output for the describe_template tool.
type DescribeOutput struct {
	Template  TemplateSummary `json:"template"  jsonschema:"the template"`
	Variables []VariableInfo  `json:"variables" jsonschema:"variables in document order"`
}

func handleDescribe(engine *stencil.Engine) mcp.ToolHandlerFor[DescribeInput, DescribeOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DescribeInput) (*mcp.CallToolResult, DescribeOutput, error) {
		if input.ID == "" {
			return nil, DescribeOutput{}, errors.New("id is required")
		}
		tmpl, err := engine.Open(ctx, input.ID)
		if err != nil {
			return nil, DescribeOutput{}, err
		}
		rec, err := tmpl.Record()
		if err != nil {
			return nil, DescribeOutput{}, err
		}
		vars, err := describeVariables(tmpl.Document().Text(), rec.Variables)
		if err != nil {
			return nil, DescribeOutput{}, err
		}
		return nil, DescribeOutput{Template: toSummary(rec), Variables: vars}, nil
	}
}

// --- Generate tool ---

// GenerateInput is the input for the generate_document tool.
type GenerateInput struct {
	TemplateID string         `json:"template_id"           jsonschema:"ID of a finalized template (required)"`
	Bindings   map[string]any `json:"bindings"              jsonschema:"values keyed by variable name"`
	Locale     string         `json:"locale,omitempty"      jsonschema:"locale for dates and numbers, e.g. id or en"`
	OutputPath string         `json:"output_path,omitempty" jsonschema:"file to write the document to"`
}

// GenerateOutput is the output for the generate_document tool.
type GenerateOutput struct {
	OutputPath string            `json:"output_path,omitempty" jsonschema:"file the document was written to"`
	Document   string            `json:"document,omitempty"    jsonschema:"base64 document when no output_path was given"`
	Size       int               `json:"size"                  jsonschema:"document size in bytes"`
	Warnings   []stencil.Warning `json:"warnings,omitempty"    jsonschema:"non-fatal notes such as defaulted variables"`
}

func handleGenerate(engine *stencil.Engine) mcp.ToolHandlerFor[GenerateInput, GenerateOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GenerateInput) (*mcp.CallToolResult, GenerateOutput, error) {
		if input.TemplateID == "" {
			return nil, GenerateOutput{}, errors.New("template_id is required")
		}

		result, err := engine.Generate(ctx, stencil.GenerationRequest{
			TemplateID: input.TemplateID,
			Bindings:   input.Bindings,
			Locale:     input.Locale,
		})
		if err != nil {
			return nil, GenerateOutput{}, err
		}

		out := GenerateOutput{Size: len(result.Output), Warnings: result.Warnings}
		if input.OutputPath == "" {
			out.Document = base64.StdEncoding.EncodeToString(result.Output)
			return nil, out, nil
		}
		if err := atomic.WriteFile(input.OutputPath, bytes.NewReader(result.Output)); err != nil {
			return nil, GenerateOutput{}, fmt.Errorf("writing %s: %w", input.OutputPath, err)
		}
		out.OutputPath = input.OutputPath
		return nil, out, nil
	}
}
