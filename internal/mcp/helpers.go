package mcp

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/benjaminschreck/go-letterstencil/pkg/stencil"
)

// toSummary converts a stored record to a TemplateSummary.
func toSummary(rec stencil.Record) TemplateSummary {
	return TemplateSummary{
		ID:        rec.ID,
		Name:      rec.Name,
		Category:  rec.Category,
		Version:   rec.Version,
		ParentID:  rec.ParentID,
		State:     rec.State.String(),
		Variables: len(rec.Variables),
	}
}

// describeVariables builds VariableInfo for each record, in document
// order. text is the template's plain text.
func describeVariables(text string, recs []stencil.VariableRecord) ([]VariableInfo, error) {
	runes := []rune(text)
	result := make([]VariableInfo, 0, len(recs))
	for _, rec := range recs {
		info := VariableInfo{
			Name:     rec.Name,
			Type:     string(rec.Type),
			Required: rec.Required,
			Default:  rec.Default,
			Start:    rec.Range.Start,
			End:      rec.Range.End,
		}
		if rec.Range.Start >= 0 && rec.Range.End <= len(runes) && rec.Range.Start <= rec.Range.End {
			info.Text = string(runes[rec.Range.Start:rec.Range.End])
		}
		if len(rec.Constraints) > 0 {
			if err := json.Unmarshal(rec.Constraints, &info.Constraints); err != nil {
				return nil, fmt.Errorf("variable %s: %w", rec.Name, err)
			}
		}
		result = append(result, info)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Start < result[j].Start
	})
	return result, nil
}
