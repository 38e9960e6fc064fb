package improve

import "strings"

// DefaultChunkSize is the character budget for a single improvement
// call. Transcripts at or under this length go out as one chunk.
const DefaultChunkSize = 6000

// SplitChunks splits text into chunks of at most max characters,
// breaking on paragraph boundaries and, for paragraphs that alone
// exceed the budget, on sentence boundaries. A single sentence longer
// than max is irreducible and is returned whole. Chunk order follows
// input order, and paragraphs inside a chunk keep their newlines.
func SplitChunks(text string, max int) []string {
	if max <= 0 {
		max = DefaultChunkSize
	}
	if len(text) <= max {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, paragraph := range strings.Split(text, "\n") {
		if len(paragraph) > max {
			flush()
			for _, sentence := range splitSentences(paragraph) {
				if current.Len() > 0 && current.Len()+len(sentence)+1 > max {
					flush()
				}
				if current.Len() > 0 {
					current.WriteByte(' ')
				}
				current.WriteString(sentence)
			}
			flush()
			continue
		}

		if current.Len() > 0 && current.Len()+len(paragraph)+1 > max {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(paragraph)
	}

	flush()
	return chunks
}

// splitSentences breaks a paragraph at sentence terminators (., !, ?),
// keeping any run of terminators and trailing closing quotes or
// brackets with the sentence they end.
func splitSentences(paragraph string) []string {
	runes := []rune(paragraph)

	var sentences []string
	start := 0
	i := 0
	for i < len(runes) {
		if !isTerminator(runes[i]) {
			i++
			continue
		}

		for i < len(runes) && isTerminator(runes[i]) {
			i++
		}
		for i < len(runes) && isClosing(runes[i]) {
			i++
		}

		sentence := strings.TrimSpace(string(runes[start:i]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isClosing(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '»':
		return true
	}
	return false
}
