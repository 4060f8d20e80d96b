package judge

import (
	"fmt"
	"strings"
)

// Defaults for the call-centre rubric
const (
	DefaultRole      = "a Quality Assurance Specialist for a Customer Service center in Azerbaijan"
	DefaultLanguage  = "Azerbaijani"
	DefaultSafetyKey = "KR2.5"
)

// DefaultCriteriaKeys are the rubric criteria the provider must score
var DefaultCriteriaKeys = []string{"KR2.1", "KR2.2", "KR2.3", "KR2.4", "KR2.5"}

// PromptOptions controls how the provider instructions are composed
type PromptOptions struct {
	Role         string
	Language     string
	CriteriaKeys []string
	SafetyKey    string
}

// DefaultPromptOptions returns the options for the call-centre rubric
func DefaultPromptOptions() PromptOptions {
	keys := make([]string, len(DefaultCriteriaKeys))
	copy(keys, DefaultCriteriaKeys)
	return PromptOptions{
		Role:         DefaultRole,
		Language:     DefaultLanguage,
		CriteriaKeys: keys,
		SafetyKey:    DefaultSafetyKey,
	}
}

func (o PromptOptions) withDefaults() PromptOptions {
	if strings.TrimSpace(o.Role) == "" {
		o.Role = DefaultRole
	}
	if strings.TrimSpace(o.Language) == "" {
		o.Language = DefaultLanguage
	}
	return o
}

// BuildPrompt composes the provider request. The criteria text is embedded verbatim;
// findings from deterministic checks are listed after the output rules.
func BuildPrompt(transcriptText, criteriaText string, findings []string, opts PromptOptions) Prompt {
	return Prompt{
		System: buildSystemPrompt(criteriaText, findings, opts.withDefaults()),
		User:   "Transcript:\n" + transcriptText,
	}
}

func buildSystemPrompt(criteriaText string, findings []string, opts PromptOptions) string {
	var rules []string
	rules = append(rules,
		"Return purely JSON (no markdown).",
		`Keys MUST be in English (e.g., "score", "reasoning", "probability").`,
		fmt.Sprintf(`The content of the "reasoning" field MUST be in %s.`, opts.Language),
	)
	if len(opts.CriteriaKeys) > 0 {
		rules = append(rules, "Keys MUST be exactly: "+strings.Join(opts.CriteriaKeys, ", "))
	}
	rules = append(rules,
		"Each criterion must have:\n"+
			`   - "score": integer 0-3`+"\n"+
			fmt.Sprintf(`   - "reasoning": short but specific explanation in %s`, opts.Language)+"\n"+
			`   - "evidence_snippet": quote from the transcript`+"\n"+
			`   - "probability": "HIGH" or "LOW" (confidence in your score)`,
		`If you cannot find evidence, set "evidence_snippet": "N/A" and "probability": "LOW".`,
	)
	if opts.SafetyKey != "" {
		rules = append(rules, fmt.Sprintf(
			"If PII is shared and NOT stopped by the operator, %s must be 0.", opts.SafetyKey))
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("You are %s.\n", opts.Role))
	b.WriteString("Evaluate the following call transcript based strictly on these criteria:\n\n")
	b.WriteString(criteriaText)
	b.WriteString("\n\nOutput Requirements:\n")
	for i, rule := range rules {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, rule))
	}

	if len(findings) > 0 {
		b.WriteString("\nAutomated checks flagged the following in this transcript:\n")
		for _, finding := range findings {
			b.WriteString("- ")
			b.WriteString(finding)
			b.WriteString("\n")
		}
	}

	return b.String()
}
