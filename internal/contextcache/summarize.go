package contextcache

import (
	"fmt"
	"regexp"
	"strings"
)

// ElisionMarker separates the kept regions of summarized content.
const ElisionMarker = "// ... (content summarized) ..."

var keyLinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(export|import|package|class|interface|func|function|type|const|let|var|def)\s+`),
	regexp.MustCompile(`^/\*\*.*\*/`),
	regexp.MustCompile(`^//\s*(TODO|FIXME|NOTE|WARNING):`),
	regexp.MustCompile(`^(if|for|while|switch|select|try|catch)\b`),
}

// Summarizer performs lossy line-based compaction of long text. It is
// unrelated to the reversible compression applied to stored entries.
type Summarizer struct {
	// MinBytes: content this short or shorter is never summarized.
	MinBytes      int
	LineThreshold int
	HeadLines     int
	TailLines     int
	MaxKeyLines   int
}

// DefaultSummarizer keeps the first and last fifty lines plus up to twenty
// structurally significant lines from the middle of anything over a hundred lines.
func DefaultSummarizer() Summarizer {
	return Summarizer{
		MinBytes:      10000,
		LineThreshold: 100,
		HeadLines:     50,
		TailLines:     50,
		MaxKeyLines:   20,
	}
}

// Summarize returns content unchanged when it is short, otherwise the head
// lines, the key lines found between head and tail, and the tail lines,
// separated by ElisionMarker.
func (s Summarizer) Summarize(content string) string {
	if len(content) <= s.MinBytes {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) <= s.LineThreshold || len(lines) <= s.HeadLines+s.TailLines {
		return content
	}

	head := lines[:s.HeadLines]
	middle := lines[s.HeadLines : len(lines)-s.TailLines]
	tail := lines[len(lines)-s.TailLines:]
	key := s.keyLines(middle)

	out := make([]string, 0, len(head)+len(key)+len(tail)+2)
	out = append(out, head...)
	out = append(out, ElisionMarker)
	out = append(out, key...)
	out = append(out, ElisionMarker)
	out = append(out, tail...)
	return strings.Join(out, "\n")
}

func (s Summarizer) keyLines(lines []string) []string {
	var key []string
	for _, line := range lines {
		if len(key) >= s.MaxKeyLines {
			break
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		for _, p := range keyLinePatterns {
			if p.MatchString(trimmed) {
				key = append(key, line)
				break
			}
		}
	}
	return key
}

// Describe reports the effect of Summarize for logging.
func (s Summarizer) Describe(before, after string) string {
	return fmt.Sprintf("%d -> %d lines", strings.Count(before, "\n")+1, strings.Count(after, "\n")+1)
}
