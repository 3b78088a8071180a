package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil"
)

func missingBindings() error {
	return &stencil.ValidationError{
		Kind: stencil.ErrMissingRequiredVariable,
		Issues: []stencil.ValidationIssue{
			{Field: "nama_pegawai", Message: "no value bound"},
			{Field: "tanggal", Message: "no value bound"},
		},
	}
}

func TestPrinter_JSON_Success(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter(&buf, true, false)

	if err := printer.Success(map[string]any{"id": "t-1", "state": "draft"}); err != nil {
		t.Fatalf("Success() error = %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse JSON: %v\nOutput: %s", err, buf.String())
	}
	if result["id"] != "t-1" || result["state"] != "draft" {
		t.Errorf("result = %v", result)
	}
}

func TestPrinter_JSON_ErrorWithIssues(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter(&buf, true, false)
	printer.Error(missingBindings())

	var result struct {
		Error  string                    `json:"error"`
		Code   int                       `json:"code"`
		Issues []stencil.ValidationIssue `json:"issues"`
	}
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse JSON: %v\nOutput: %s", err, buf.String())
	}
	if result.Code != ExitUserError {
		t.Errorf("code = %d, want %d", result.Code, ExitUserError)
	}
	if len(result.Issues) != 2 || result.Issues[1].Field != "tanggal" {
		t.Errorf("issues = %+v", result.Issues)
	}
}

func TestPrinter_Human_Error(t *testing.T) {
	var out, errOut bytes.Buffer
	printer := NewPrinter(&out, false, false).WithStderr(&errOut)
	printer.Error(missingBindings())

	if out.Len() != 0 {
		t.Errorf("error written to stdout: %q", out.String())
	}
	want := "Error: missing required variable: 2 issues:\n" +
		"  - nama_pegawai: no value bound\n" +
		"  - tanggal: no value bound\n"
	if got := errOut.String(); got != want {
		t.Errorf("stderr = %q, want %q", got, want)
	}
}

func TestPrinter_Human_Success(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter(&buf, false, false)
	if err := printer.Success(map[string]any{"message": "Template saved"}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "Template saved\n" {
		t.Errorf("output = %q", got)
	}
}

func TestPrinter_Table(t *testing.T) {
	var buf bytes.Buffer
	printer := NewPrinter(&buf, false, false)
	printer.Table([]string{"NAME", "TYPE"}, [][]string{
		{"nama_pegawai", "text"},
		{"tanggal", "date"},
	})

	want := "NAME          TYPE\n" +
		"nama_pegawai  text\n" +
		"tanggal       date\n"
	if got := buf.String(); got != want {
		t.Errorf("table = %q, want %q", got, want)
	}
}

func TestPrinter_Warn(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false, false).Warn("%s: %s", "tempat", "no value bound, left empty")
	if !strings.Contains(buf.String(), "Warning: tempat: no value bound, left empty") {
		t.Errorf("warning = %q", buf.String())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitSuccess},
		{name: "exit error kept", err: NewConflictError("busy"), want: ExitConflict},
		{name: "wrapped exit error", err: fmt.Errorf("ctx: %w", NewSystemErrorWithCause("db", errors.New("locked"))), want: ExitSystemError},
		{name: "validation", err: missingBindings(), want: ExitUserError},
		{name: "not found", err: fmt.Errorf("%w: abc", stencil.ErrTemplateNotFound), want: ExitUserError},
		{name: "finalized", err: fmt.Errorf("%w: abc", stencil.ErrTemplateFinalized), want: ExitConflict},
		{name: "stale", err: stencil.ErrStaleTemplateVersion, want: ExitConflict},
		{name: "serialization", err: stencil.ErrSerializationFailure, want: ExitSystemError},
		{name: "untyped", err: errors.New("unknown flag: --x"), want: ExitUserError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
