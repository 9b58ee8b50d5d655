package platform

import (
	"fmt"
	"strings"

	"cogflow/internal/domain"
)

// Report combines validation status and analysis into a human-readable
// summary (spec §4.6 "generate a human-readable report").
func (p *Platform) Report(doc *domain.Document) (string, error) {
	analysis, validation, err := p.Analyze(doc)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Report for %s (%s)\n", doc.Metadata.Name, doc.Metadata.ID)
	fmt.Fprintf(&b, "================================\n\n")

	if validation.Valid {
		fmt.Fprintf(&b, "Validation: PASS (%d warnings)\n", validation.Summary.Warnings)
	} else {
		fmt.Fprintf(&b, "Validation: FAIL (%d errors, %d warnings)\n", validation.Summary.Errors, validation.Summary.Warnings)
	}
	for _, iss := range validation.Issues {
		fmt.Fprintf(&b, "  [%s/%s] %s\n", iss.Severity, iss.Kind, iss.Message)
	}

	fmt.Fprintf(&b, "\nComplexity: %s\n", analysis.Bucket)
	fmt.Fprintf(&b, "  max depth:        %d\n", analysis.Complexity.MaxDepth)
	fmt.Fprintf(&b, "  average branching: %.2f\n", analysis.Complexity.AverageBranching)
	fmt.Fprintf(&b, "  cycle count:      %d\n", analysis.Complexity.CycleCount)

	fmt.Fprintf(&b, "\nNode types:\n")
	for t, count := range analysis.NodeTypeCounts {
		fmt.Fprintf(&b, "  %s: %d\n", t, count)
	}

	if len(analysis.Recommendations) > 0 {
		fmt.Fprintf(&b, "\nRecommendations:\n")
		for _, rec := range analysis.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", rec)
		}
	}

	return b.String(), nil
}
