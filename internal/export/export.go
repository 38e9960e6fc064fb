// Package export renders a recording's text into downloadable
// documents: plain text, minimal RTF, or Word-compatible HTML.
package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf16"
)

// Format is the output document type.
type Format string

const (
	FormatText Format = "txt"
	FormatRTF  Format = "rtf"
	FormatWord Format = "doc"
)

// Document selects which of a recording's texts to export.
type Document string

const (
	DocTranscript Document = "transcript"
	DocImproved   Document = "improved"
	DocSummary    Document = "summary"
)

// File is a rendered export ready to serve as a download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9-_ ]+`)

// Render produces the export file for the given text. The filename is
// derived deterministically from the sanitized title plus the document
// suffix.
func Render(title string, doc Document, format Format, text string) (File, error) {
	name := Filename(title, doc, format)

	switch format {
	case FormatText:
		return File{Name: name, ContentType: "text/plain; charset=utf-8", Data: []byte(text)}, nil
	case FormatRTF:
		return File{Name: name, ContentType: "application/rtf", Data: []byte(renderRTF(text))}, nil
	case FormatWord:
		return File{Name: name, ContentType: "application/msword", Data: []byte(renderWordHTML(title, text))}, nil
	default:
		return File{}, fmt.Errorf("unknown export format %q", format)
	}
}

// Filename builds "<sanitized title>-<doc>.<ext>". An empty or fully
// unsafe title falls back to "recording".
func Filename(title string, doc Document, format Format) string {
	base := unsafeFilename.ReplaceAllString(title, "_")
	base = strings.Trim(base, " _")
	if base == "" {
		base = "recording"
	}
	return fmt.Sprintf("%s-%s.%s", base, doc, format)
}

// renderRTF emits a minimal RTF document. Non-ASCII runes are escaped
// as \uN? unicode control words (signed 16-bit decimal, per the RTF
// spec), so the output stays pure ASCII.
func renderRTF(text string) string {
	var b strings.Builder
	b.WriteString(`{\rtf1\ansi\deff0{\fonttbl{\f0 Helvetica;}}\f0\fs24 `)

	for _, r := range text {
		switch r {
		case '\\', '{', '}':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\par `)
		case '\r':
		default:
			if r < 0x80 {
				b.WriteRune(r)
				continue
			}
			// RTF \u takes signed 16-bit values, one per UTF-16 unit.
			for _, unit := range utf16.Encode([]rune{r}) {
				fmt.Fprintf(&b, `\u%d?`, int16(unit))
			}
		}
	}

	b.WriteString("}")
	return b.String()
}

// renderWordHTML wraps the text in the Office namespace markup Word
// accepts as a .doc file.
func renderWordHTML(title, text string) string {
	var body strings.Builder
	for _, paragraph := range strings.Split(text, "\n") {
		if strings.TrimSpace(paragraph) == "" {
			continue
		}
		body.WriteString("<p>")
		body.WriteString(html.EscapeString(paragraph))
		body.WriteString("</p>\n")
	}

	return fmt.Sprintf(`<html xmlns:o='urn:schemas-microsoft-com:office:office' xmlns:w='urn:schemas-microsoft-com:office:word' xmlns='http://www.w3.org/TR/REC-html40'>
<head><meta charset="utf-8"><title>%s</title></head>
<body>
%s</body>
</html>
`, html.EscapeString(title), body.String())
}
