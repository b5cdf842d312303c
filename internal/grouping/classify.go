package grouping

import "go-ocr-inventory/internal/util"

type Rule struct {
	Suffix string
	Label  string
}

// DefaultRules match the artifacts written by the OCR service. Rules are
// evaluated in order, so a more specific suffix must precede a broader one.
var DefaultRules = []Rule{
	{Suffix: "_results.json", Label: "Results (JSON)"},
	{Suffix: "_text.txt", Label: "Text Content"},
	{Suffix: "_summary.txt", Label: "Summary"},
}

func Classify(name string) string {
	return ClassifyWith(DefaultRules, name)
}

// ClassifyWith returns the label of the first rule whose suffix matches name
// (case-insensitive). Unmatched names are their own label.
func ClassifyWith(rules []Rule, name string) string {
	for _, rule := range rules {
		if rule.Suffix == "" {
			continue
		}
		if util.HasSuffixFold(name, rule.Suffix) {
			return rule.Label
		}
	}

	return name
}
