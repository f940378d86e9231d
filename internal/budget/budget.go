// Package budget estimates token spend for verification calls so a dry run
// can report the cost of the pending work before any paid call is made.
package budget

import "math"

// perCriterionOverheadChars covers the criterion line in the user message
// plus its share of the JSON reply.
const perCriterionOverheadChars = 160

// systemPromptChars approximates the fixed auditor system message.
const systemPromptChars = 600

// EstimateTokensFromChars converts a character count into an estimated token
// count using a conservative heuristic (~4 chars per token in English). The
// result is always at least 1 when chars > 0.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of a string.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(len(s))
}

// EstimateCheckTokens estimates the tokens one verification call will spend:
// the page markup, the fixed system message, and per-criterion overhead.
func EstimateCheckTokens(markup string, criteriaCount int) int {
	if criteriaCount <= 0 {
		return 0
	}
	chars := len(markup) + systemPromptChars + criteriaCount*perCriterionOverheadChars
	return EstimateTokensFromChars(chars)
}
