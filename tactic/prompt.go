package tactic

import (
	"strconv"
	"strings"
)

const schemaInstructionsTemplate = `
You are a Lean 4 assistant. Think through the goal, then respond ONLY with strict JSON:
{
  "explanation": "<brief natural-language summary>",
  "suggestions": [
    {"tactic": "<single Lean tactic>", "confidence": <number between 0 and 1>},
    ...
  ]
}
Return at most {limit} unique suggestions (best-first). Emit no prose outside the JSON object.
`

func prefixHint(prefix string) string {
	if prefix == "" {
		return ""
	}
	return "\nOnly return tactics that start with `" + prefix + "`."
}

// chatTemplatePrompt is the role-delimited prompt the local chat models were tuned on.
func chatTemplatePrompt(state, prefix string) string {
	var b strings.Builder
	b.WriteString("My LEAN 4 state is:\n```lean\n")
	b.WriteString(state)
	b.WriteString("\n```\nPlease predict a possible tactic to help me prove the theorem.")
	b.WriteString(prefixHint(prefix))
	return "<|im_start|>user\n" + b.String() + "<|im_end|>\n<|im_start|>assistant\n"
}

func goalContextPrompt(state, prefix string) string {
	var b strings.Builder
	b.WriteString("You are given the current Lean 4 goal and context:\n```lean\n")
	b.WriteString(state)
	b.WriteString("\n```\nSuggest a single Lean tactic that can make progress.")
	b.WriteString(prefixHint(prefix))
	b.WriteString("\nRespond with the tactic only (no leading `by`).")
	return b.String()
}

// schemaInstructions is the system instruction of structured calls.
func schemaInstructions(limit int) string {
	return strings.Replace(schemaInstructionsTemplate, "{limit}", strconv.Itoa(limit), 1)
}
