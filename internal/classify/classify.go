// Package classify decides whether a raw message expresses like4like intent.
// Everything here is a pure function of the input text: no randomness, no
// hidden state, no errors. The scorer is additive keyword weighting with a
// hard URL gate, deliberately favoring precision over recall.
package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Result is the structured classification of one message.
type Result struct {
	IsLike4Like bool
	Confidence  float64
	YouTubeURLs []string
	Terms       map[string]int
	Reasons     []string
}

// minConfidence is the acceptance threshold. A message below it, or any
// message without a YouTube URL, is not treated as like4like regardless of
// keyword score.
const minConfidence = 0.3

var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https?://(?:www\.|m\.)?youtube\.com/watch\?v=[\w-]+`),
	regexp.MustCompile(`https?://youtu\.be/[\w-]+`),
	regexp.MustCompile(`https?://(?:www\.|m\.)?youtube\.com/playlist\?list=[\w-]+`),
	regexp.MustCompile(`https?://(?:www\.|m\.)?youtube\.com/channel/[\w-]+`),
	regexp.MustCompile(`https?://(?:www\.|m\.)?youtube\.com/@[\w.-]+`),
}

var strongTerms = []string{"like4like", "l4l", "sub4sub", "s4s"}
var mediumTerms = []string{"subscribe", "support", "check out"}
var weakTerms = []string{"music", "artist", "track", "video", "song", "channel"}
var excludeTerms = []string{"spam", "scam", "selling", "buy followers", "crypto", "bitcoin", "nft", "forex", "onlyfans"}

var numUnitRe = regexp.MustCompile(`(?i)\b(\d+)\s*(likes?|subscribers?|subs?|comments?|seconds?|secs?|minutes?|mins?)\b`)
var watchNumRe = regexp.MustCompile(`(?i)\bwatch\s*(\d+)\b`)

// Classify scores text for like4like intent. Total over all inputs,
// including the empty string; calling it twice yields identical results.
func Classify(text string) Result {
	res := Result{Terms: map[string]int{}}

	res.YouTubeURLs = extractURLs(text)

	// Keyword and term scanning happen on the text with URLs removed, so
	// video ids cannot masquerade as keywords or counts. This also means the
	// "?" inside a watch URL never counts toward the question bonus; only
	// punctuation in the prose does.
	stripped := text
	for _, u := range res.YouTubeURLs {
		stripped = strings.ReplaceAll(stripped, u, " ")
	}
	lower := strings.ToLower(stripped)

	conf := 0.0
	if len(res.YouTubeURLs) > 0 {
		conf += 0.4
		res.Reasons = append(res.Reasons, fmt.Sprintf("%d youtube url(s) +0.4", len(res.YouTubeURLs)))
	}

	conf += scanTerms(lower, strongTerms, 0.3, &res.Reasons)
	conf += scanTerms(lower, mediumTerms, 0.2, &res.Reasons)
	conf += scanTerms(lower, weakTerms, 0.1, &res.Reasons)
	conf -= scanTerms(lower, excludeTerms, 0.3, &res.Reasons)

	if len(strings.Fields(text)) > 5 {
		conf += 0.1
		res.Reasons = append(res.Reasons, "long message +0.1")
	}
	if strings.Contains(lower, "?") || strings.Contains(lower, "help") || strings.Contains(lower, "please") {
		conf += 0.1
		res.Reasons = append(res.Reasons, "question/request +0.1")
	}

	res.Terms = extractTerms(lower)

	res.Confidence = clamp01(conf)
	res.IsLike4Like = res.Confidence >= minConfidence && len(res.YouTubeURLs) > 0
	return res
}

func extractURLs(text string) []string {
	var urls []string
	seen := map[string]bool{}
	for _, re := range urlPatterns {
		for _, m := range re.FindAllString(text, -1) {
			if !seen[m] {
				seen[m] = true
				urls = append(urls, m)
			}
		}
	}
	return urls
}

// scanTerms adds weight once per term present (not per occurrence) and
// returns the total contribution.
func scanTerms(lower string, terms []string, weight float64, reasons *[]string) float64 {
	total := 0.0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			total += weight
			*reasons = append(*reasons, fmt.Sprintf("term %q %+.1f", term, weight))
		}
	}
	return total
}

// extractTerms pulls requested action counts out of the text. Canonical keys
// are likes, subs, comments and watch_seconds. Minutes normalize to seconds;
// a bare "watch N" below 10 is read as minutes too, since nobody asks for a
// nine second watch.
func extractTerms(lower string) map[string]int {
	terms := map[string]int{}

	for _, m := range numUnitRe.FindAllStringSubmatch(lower, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(m[2], "like"):
			terms["likes"] = n
		case strings.HasPrefix(m[2], "sub"):
			terms["subs"] = n
		case strings.HasPrefix(m[2], "comment"):
			terms["comments"] = n
		case strings.HasPrefix(m[2], "sec"):
			terms["watch_seconds"] = n
		case strings.HasPrefix(m[2], "min"):
			terms["watch_seconds"] = n * 60
		}
	}

	if m := watchNumRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			if n < 10 {
				n *= 60
			}
			terms["watch_seconds"] = n
		}
	}

	return terms
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
