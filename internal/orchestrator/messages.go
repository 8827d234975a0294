package orchestrator

import (
	"fmt"
	"sort"
	"strings"
)

// Outgoing message templates and reply intent matching. Matching is
// deliberately coarse: these are short human replies in promo groups, not
// structured input.

var agreementWords = []string{"yes", "ok", "okay", "deal", "agreed", "sure", "sounds good", "lets do it", "let's do it", "done deal"}
var rejectionWords = []string{"no thanks", "not interested", "no thank", "pass", "stop messaging", "leave me alone"}
var doneWords = []string{"done", "finished", "i did", "completed", "all set"}

func isAgreement(text string) bool {
	return matchesAny(text, agreementWords)
}

func isRejection(text string) bool {
	return matchesAny(text, rejectionWords)
}

func claimsDone(text string) bool {
	return matchesAny(text, doneWords)
}

func matchesAny(text string, words []string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, w := range words {
		if lower == w || strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// formatTerms renders terms in a stable order so outgoing messages are
// reproducible.
func formatTerms(terms map[string]int) string {
	keys := make([]string, 0, len(terms))
	for k, v := range terms {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := terms[k]
		switch k {
		case "likes":
			parts = append(parts, fmt.Sprintf("%d likes", v))
		case "subs":
			parts = append(parts, fmt.Sprintf("%d sub", v))
		case "comments":
			parts = append(parts, fmt.Sprintf("%d comment", v))
		case "watch_seconds":
			parts = append(parts, fmt.Sprintf("%ds watch time", v))
		default:
			parts = append(parts, fmt.Sprintf("%d %s", v, k))
		}
	}
	return strings.Join(parts, ", ")
}

func proposalText(ourVideoURL string, terms map[string]int) string {
	return fmt.Sprintf(
		"Hey! Saw your post, I'm up for an exchange: %s on each other's videos. Mine is %s. Deal?",
		formatTerms(terms), ourVideoURL)
}

func counterText(terms map[string]int) string {
	return fmt.Sprintf("Works for me, so we're on: %s each. Confirm and I'll start right away.", formatTerms(terms))
}

func confirmText(terms map[string]int) string {
	return fmt.Sprintf("Deal! %s it is. Starting my part now, will message you when done.", formatTerms(terms))
}

func askVideoText() string {
	return "Great! Drop your video link and I'll get started."
}

func donePartText(ourVideoURL string) string {
	return fmt.Sprintf("My part is done, go check! Yours is %s, message me when you're finished.", ourVideoURL)
}

func thanksText() string {
	return "Verified, all good on my end too. Thanks, let's do it again sometime!"
}

func relaunchText(ourVideoURL string, terms map[string]int) string {
	return fmt.Sprintf(
		"Hey, it's been a while! Up for another round? Same as before: %s each. My video: %s",
		formatTerms(terms), ourVideoURL)
}
