package classify

import (
	"reflect"
	"testing"
)

func TestPositiveExample(t *testing.T) {
	res := Classify("Hey check out my new track https://youtube.com/watch?v=abc12345678 like4like?")
	if !res.IsLike4Like {
		t.Errorf("IsLike4Like = false, want true (confidence %.2f, reasons %v)", res.Confidence, res.Reasons)
	}
	want := []string{"https://youtube.com/watch?v=abc12345678"}
	if !reflect.DeepEqual(res.YouTubeURLs, want) {
		t.Errorf("YouTubeURLs = %v, want %v", res.YouTubeURLs, want)
	}
	if res.Confidence != 1.0 {
		t.Errorf("Confidence = %.2f, want 1.0 (clamped)", res.Confidence)
	}
}

// TestURLGating verifies the precision-over-recall policy: keyword score
// alone never classifies a message without a URL as like4like.
func TestURLGating(t *testing.T) {
	res := Classify("sub4sub anyone? l4l music support")
	if res.Confidence < minConfidence {
		t.Fatalf("Confidence = %.2f, want >= %.1f from keywords alone", res.Confidence, minConfidence)
	}
	if len(res.YouTubeURLs) != 0 {
		t.Fatalf("YouTubeURLs = %v, want none", res.YouTubeURLs)
	}
	if res.IsLike4Like {
		t.Error("IsLike4Like = true, want false without a URL")
	}
}

func TestDeterminism(t *testing.T) {
	inputs := []string{
		"",
		"sub4sub anyone? l4l music support",
		"Hey check out my new track https://youtube.com/watch?v=abc12345678 like4like?",
		"5 likes for 5 likes https://youtu.be/xyz987 please",
	}
	for _, in := range inputs {
		a := Classify(in)
		b := Classify(in)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("Classify(%q) not deterministic:\n%+v\n%+v", in, a, b)
		}
	}
}

func TestEmptyInput(t *testing.T) {
	res := Classify("")
	if res.IsLike4Like {
		t.Error("empty string classified as like4like")
	}
	if res.Confidence != 0 {
		t.Errorf("Confidence = %.2f, want 0", res.Confidence)
	}
	if res.Terms == nil {
		t.Error("Terms should be an empty map, not nil")
	}
}

func TestExclusionsDragScoreDown(t *testing.T) {
	res := Classify("buy followers crypto spam https://youtu.be/abc123 subscribe")
	if res.IsLike4Like {
		t.Errorf("scammy message classified as like4like (confidence %.2f)", res.Confidence)
	}
	if res.Confidence != 0 {
		t.Errorf("Confidence = %.2f, want 0 (clamped from negative)", res.Confidence)
	}
}

func TestConfidenceClampedToUnitInterval(t *testing.T) {
	msgs := []string{
		"like4like l4l sub4sub s4s subscribe support check out music artist https://youtu.be/a1 please?",
		"spam scam selling crypto bitcoin nft forex",
	}
	for _, m := range msgs {
		res := Classify(m)
		if res.Confidence < 0 || res.Confidence > 1 {
			t.Errorf("Classify(%q).Confidence = %v, want within [0,1]", m, res.Confidence)
		}
	}
}

func TestTermExtraction(t *testing.T) {
	res := Classify("5 likes and 1 comment 2 minutes watch please https://youtu.be/abcdEFG")
	want := map[string]int{"likes": 5, "comments": 1, "watch_seconds": 120}
	if !reflect.DeepEqual(res.Terms, want) {
		t.Errorf("Terms = %v, want %v", res.Terms, want)
	}
}

func TestWatchNumberBelowTenIsMinutes(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"watch 3 https://youtu.be/abc", 180},
		{"watch 45 https://youtu.be/abc", 45},
		{"90 seconds https://youtu.be/abc", 90},
		{"2 mins https://youtu.be/abc", 120},
	}
	for _, tt := range tests {
		res := Classify(tt.text)
		if res.Terms["watch_seconds"] != tt.want {
			t.Errorf("Classify(%q) watch_seconds = %d, want %d", tt.text, res.Terms["watch_seconds"], tt.want)
		}
	}
}

func TestURLForms(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"see https://www.youtube.com/watch?v=dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"see https://youtu.be/dQw4w9WgXcQ", "https://youtu.be/dQw4w9WgXcQ"},
		{"see https://youtube.com/playlist?list=PL123abc", "https://youtube.com/playlist?list=PL123abc"},
		{"see https://youtube.com/channel/UCabc123", "https://youtube.com/channel/UCabc123"},
		{"see https://youtube.com/@somehandle", "https://youtube.com/@somehandle"},
	}
	for _, tt := range tests {
		res := Classify(tt.text)
		if len(res.YouTubeURLs) != 1 || res.YouTubeURLs[0] != tt.want {
			t.Errorf("Classify(%q).YouTubeURLs = %v, want [%s]", tt.text, res.YouTubeURLs, tt.want)
		}
	}
}

// TestQuestionMarkInsideURLIsNotAQuestion: the "?" in a watch URL is query
// syntax, not a request, so a bare link scores the URL weight and nothing
// else.
func TestQuestionMarkInsideURLIsNotAQuestion(t *testing.T) {
	res := Classify("https://youtube.com/watch?v=abc12345678")
	if res.Confidence != 0.4 {
		t.Errorf("Confidence = %.2f, want 0.4 from the URL alone", res.Confidence)
	}
}

// TestVideoIDDigitsAreNotTerms guards against a video id bleeding into term
// extraction: "v=abc12345678 like4like" must not read as "12345678 likes".
func TestVideoIDDigitsAreNotTerms(t *testing.T) {
	res := Classify("https://youtube.com/watch?v=abc12345678 like4like")
	if _, ok := res.Terms["likes"]; ok {
		t.Errorf("Terms = %v, video id digits extracted as likes", res.Terms)
	}
}
