package generate

import (
	"fmt"
	"strings"

	"github.com/StackPilotAI/stackpilot-mvp/engine/domain"
)

const systemInstruction = `You are an expert software architect. Recommend a
technology stack for the described project. Respond with ONLY a JSON object
of this exact shape:
{
  "primary_stack": [{"category": "...", "technology": "..."}],
  "alternatives": {"<category>": [{"category": "...", "technology": "..."}]},
  "explanation": "...",
  "confidence": 0.0
}
Use at most one technology per category in primary_stack. confidence is your
own certainty in [0,1].`

// BuildPrompt assembles the structured provider prompt from the request and
// optional similarity grounding context.
func BuildPrompt(req domain.Request, matches []domain.SimilarityMatch) string {
	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\nProject description:\n")
	b.WriteString(strings.TrimSpace(req.Description))

	if len(req.Requirements) > 0 {
		b.WriteString("\n\nRequirements:\n")
		for _, r := range req.Requirements {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}

	if len(req.Constraints) > 0 {
		b.WriteString("\nDo NOT recommend these technologies:\n")
		for _, cat := range domain.SortedCategories(req.Constraints) {
			fmt.Fprintf(&b, "- %s: %s\n", cat, strings.Join(req.Constraints[cat], ", "))
		}
	}

	if len(matches) > 0 {
		b.WriteString("\nComparable real projects, most similar first:\n")
		for _, m := range matches {
			fmt.Fprintf(&b, "- %s (similarity %.2f): %s\n",
				m.Project.Name, m.Score, summarizeStack(m.Project.Stack))
		}
	}
	return b.String()
}

func summarizeStack(s domain.Stack) string {
	var parts []string
	for _, cat := range domain.SortedCategories(s) {
		parts = append(parts, fmt.Sprintf("%s=%s", cat, strings.Join(s[cat], "/")))
	}
	return strings.Join(parts, ", ")
}
