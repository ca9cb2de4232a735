package scrub

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPageURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain path unchanged", "https://example.com/blog/post-1", "https://example.com/blog/post-1"},
		{"whitespace trimmed", "  /about  ", "/about"},
		{"query string ampersands survive", "/search?q=go&page=2", "/search?q=go&page=2"},
		{"script stripped", `/page<script>alert(1)</script>`, "/page"},
		{"tags stripped", `<img src=x onerror=alert(1)>/home`, "/home"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PageURL(tt.input); got != tt.want {
				t.Errorf("PageURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestUserAgent(t *testing.T) {
	ua := "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"

	if got := UserAgent(ua, 512); got != ua {
		t.Errorf("UserAgent() = %q, want unchanged", got)
	}

	if got := UserAgent("UA<script>x</script>", 512); got != "UA" {
		t.Errorf("UserAgent() = %q, want %q", got, "UA")
	}

	long := strings.Repeat("a", 600)
	if got := UserAgent(long, 512); len(got) != 512 {
		t.Errorf("UserAgent() len = %d, want 512", len(got))
	}
}

func TestUserAgent_TruncationKeepsValidUTF8(t *testing.T) {
	// 3-byte runes so the cap lands mid-sequence.
	long := strings.Repeat("日", 200) // 600 bytes
	got := UserAgent(long, 512)

	if len(got) > 512 {
		t.Fatalf("len = %d, want <= 512", len(got))
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncated value is not valid UTF-8")
	}
	if len(got) != 510 { // 170 full runes
		t.Errorf("len = %d, want 510 (rune boundary below cap)", len(got))
	}
}
