package domain

import (
	"strings"

	"github.com/samber/lo"
)

// Rule decides whether a set of annotations is worth ringing for.
// An empty label set means any label qualifies; only the confidence
// threshold applies then.
type Rule struct {
	Labels        []string
	MinConfidence float64
}

// Matches reports whether at least one annotation carries a wanted label
// with a confidence at or above the threshold. Pure function: same inputs,
// same answer.
func (r Rule) Matches(annotations Annotations) bool {
	return len(r.matching(annotations)) > 0
}

// BestMatch returns the highest-confidence annotation that satisfies the
// rule, to be quoted in the notification text.
func (r Rule) BestMatch(annotations Annotations) (Annotation, bool) {
	return Annotations(r.matching(annotations)).Best()
}

func (r Rule) matching(annotations Annotations) []Annotation {
	return lo.Filter(annotations, func(a Annotation, _ int) bool {
		if a.Confidence < r.MinConfidence {
			return false
		}
		if len(r.Labels) == 0 {
			return true
		}
		return lo.ContainsBy(r.Labels, func(label string) bool {
			return strings.EqualFold(label, a.Label)
		})
	})
}
