package chunker

import (
	"regexp"
	"strings"
)

// SentenceChunker splits text into sentence-grouped chunks with a fixed
// number of overlapping sentences between neighbours. Splitting is pure and
// deterministic: the same text and settings always produce the same ordered
// chunk sequence.
type SentenceChunker struct {
	splitLength  int
	splitOverlap int
	splitter     *regexp.Regexp
}

// New returns a chunker grouping splitLength sentences per chunk with
// splitOverlap sentences repeated between adjacent chunks. Out-of-range
// settings fall back to safe values rather than failing, mirroring how the
// configuration layer validates upstream.
func New(splitLength, splitOverlap int) *SentenceChunker {
	if splitLength <= 0 {
		splitLength = 10
	}
	if splitOverlap < 0 {
		splitOverlap = 0
	}
	if splitOverlap >= splitLength {
		splitOverlap = splitLength - 1
	}
	return &SentenceChunker{
		splitLength:  splitLength,
		splitOverlap: splitOverlap,
		splitter:     regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?]+)`),
	}
}

// Split returns the ordered chunk texts for text. Empty or whitespace-only
// input yields an empty sequence.
func (c *SentenceChunker) Split(text string) []string {
	sentences := c.sentences(text)
	if len(sentences) == 0 {
		return nil
	}

	stride := c.splitLength - c.splitOverlap
	var chunks []string
	for i := 0; i < len(sentences); i += stride {
		end := i + c.splitLength
		if end > len(sentences) {
			end = len(sentences)
		}
		chunks = append(chunks, strings.Join(sentences[i:end], " "))
		if end == len(sentences) {
			break
		}
	}
	return chunks
}

func (c *SentenceChunker) sentences(text string) []string {
	matches := c.splitter.FindAllStringIndex(text, -1)

	var out []string
	last := 0
	for _, m := range matches {
		if s := strings.TrimSpace(text[m[0]:m[1]]); s != "" {
			out = append(out, s)
		}
		last = m[1]
	}
	// A trailing fragment with no terminal punctuation is still a sentence.
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		out = append(out, tail)
	}
	return out
}
