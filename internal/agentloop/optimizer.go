package agentloop

import (
	"regexp"
	"strings"
)

// compressionThreshold is the fraction of context_window at which the
// optimizer considers the prompt in need of compression.
const compressionThreshold = 0.7

// approxTokensPerChar approximates token count from rune count; good
// enough for a budget heuristic, not for billing.
const approxTokensPerChar = 0.25

func approxTokens(s string) int {
	return int(float64(len([]rune(s))) * approxTokensPerChar)
}

// NeedsCompression reports whether promptTokens exceeds
// compressionThreshold of contextWindow.
func NeedsCompression(promptTokens, contextWindow int) bool {
	if contextWindow <= 0 {
		return false
	}
	return float64(promptTokens) > compressionThreshold*float64(contextWindow)
}

var sentenceSplitRe = regexp.MustCompile(`(?:[.!?]\s+|\n+)`)

func splitSentences(text string) []string {
	raw := sentenceSplitRe.Split(text, -1)
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func jaccardSimilarity(a, b string) float64 {
	wordsA := tokenSet(a)
	wordsB := tokenSet(b)
	if len(wordsA) == 0 && len(wordsB) == 0 {
		return 1
	}
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}
	intersection := 0
	for w := range wordsA {
		if wordsB[w] {
			intersection++
		}
	}
	union := len(wordsA) + len(wordsB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}

// jaccardDedupThreshold is the similarity above which two sentences are
// considered duplicates; only the first of such a pair is kept.
const jaccardDedupThreshold = 0.75

// DeduplicateAddenda removes sentences from addenda that are near
// duplicates (Jaccard similarity > 0.75) of an already-kept sentence,
// preserving first-seen order.
func DeduplicateAddenda(addenda []string) []string {
	var kept []string
	for _, addendum := range addenda {
		for _, sentence := range splitSentences(addendum) {
			duplicate := false
			for _, existing := range kept {
				if jaccardSimilarity(sentence, existing) > jaccardDedupThreshold {
					duplicate = true
					break
				}
			}
			if !duplicate {
				kept = append(kept, sentence)
			}
		}
	}
	return kept
}

// TruncateToBudget truncates sentences at sentence boundaries to fit
// within tokenBudget, keeping leading sentences first.
func TruncateToBudget(sentences []string, tokenBudget int) []string {
	var out []string
	used := 0
	for _, s := range sentences {
		cost := approxTokens(s)
		if used+cost > tokenBudget {
			break
		}
		out = append(out, s)
		used += cost
	}
	return out
}

// DistributeBudget splits totalBudget across addenda proportionally to
// each addendum's residual (post-dedup) size.
func DistributeBudget(addenda []string, totalBudget int) []int {
	sizes := make([]int, len(addenda))
	total := 0
	for i, a := range addenda {
		sizes[i] = approxTokens(a)
		total += sizes[i]
	}
	budgets := make([]int, len(addenda))
	if total == 0 {
		return budgets
	}
	for i, size := range sizes {
		budgets[i] = int(float64(size) / float64(total) * float64(totalBudget))
	}
	return budgets
}

// headingOrTableRow matches lines that structural content: markdown
// headings and table rows, always preserved by StripIrrelevantSections.
var headingOrTableRow = regexp.MustCompile(`^\s*(#{1,6}\s|\|.*\|)`)

// StripIrrelevantSections drops non-structural lines containing any
// exclusion keyword (case-insensitive); heading and table-row lines
// are always preserved regardless of keyword content.
func StripIrrelevantSections(text string, exclusions []string) string {
	if len(exclusions) == 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		if headingOrTableRow.MatchString(line) {
			kept = append(kept, line)
			continue
		}
		lower := strings.ToLower(line)
		excluded := false
		for _, kw := range exclusions {
			if kw == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw)) {
				excluded = true
				break
			}
		}
		if !excluded {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// OptimizePrompt runs the full addendum pipeline: dedup, then truncate
// each addendum's allotted share of totalBudget.
func OptimizePrompt(addenda []string, totalBudget int) []string {
	deduped := DeduplicateAddenda(addenda)
	if len(deduped) == 0 {
		return nil
	}
	budgets := DistributeBudget(deduped, totalBudget)
	out := make([]string, 0, len(deduped))
	for i, sentence := range deduped {
		truncated := TruncateToBudget([]string{sentence}, budgets[i])
		out = append(out, truncated...)
	}
	return out
}
