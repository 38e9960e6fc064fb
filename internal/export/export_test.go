package export

import (
	"strings"
	"testing"
)

func TestFilenameSanitized(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Standup notes", "Standup notes-transcript.txt"},
		{"q3/budget: review!", "q3_budget_ review-transcript.txt"},
		{"///", "recording-transcript.txt"},
		{"", "recording-transcript.txt"},
	}
	for _, tc := range cases {
		got := Filename(tc.title, DocTranscript, FormatText)
		if got != tc.want {
			t.Fatalf("Filename(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestRenderText(t *testing.T) {
	f, err := Render("Notes", DocSummary, FormatText, "plain body")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if string(f.Data) != "plain body" {
		t.Fatalf("unexpected data %q", f.Data)
	}
	if f.Name != "Notes-summary.txt" {
		t.Fatalf("unexpected name %q", f.Name)
	}
	if !strings.HasPrefix(f.ContentType, "text/plain") {
		t.Fatalf("unexpected content type %q", f.ContentType)
	}
}

func TestRenderRTFEscapesUnicode(t *testing.T) {
	f, err := Render("Notes", DocTranscript, FormatRTF, "café\nline {two}")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	rtf := string(f.Data)
	if !strings.HasPrefix(rtf, `{\rtf1`) || !strings.HasSuffix(rtf, "}") {
		t.Fatalf("not an RTF document: %q", rtf)
	}
	if !strings.Contains(rtf, `caf\u233?`) {
		t.Fatalf("expected unicode escape for é, got %q", rtf)
	}
	if !strings.Contains(rtf, `\par `) {
		t.Fatalf("expected paragraph break, got %q", rtf)
	}
	if !strings.Contains(rtf, `\{two\}`) {
		t.Fatalf("expected brace escaping, got %q", rtf)
	}

	for _, r := range rtf {
		if r >= 0x80 {
			t.Fatalf("RTF output is not pure ASCII: %q", rtf)
		}
	}
}

func TestRenderRTFAstralPlane(t *testing.T) {
	f, err := Render("Notes", DocTranscript, FormatRTF, "ok \U0001F600")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	// Emoji encodes as a UTF-16 surrogate pair, both units signed.
	if !strings.Contains(string(f.Data), `\u-10179?\u-8704?`) {
		t.Fatalf("expected surrogate pair escapes, got %q", f.Data)
	}
}

func TestRenderWordHTML(t *testing.T) {
	f, err := Render("Notes & plans", DocImproved, FormatWord, "first <line>\n\nsecond")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	doc := string(f.Data)
	if !strings.Contains(doc, "urn:schemas-microsoft-com:office:word") {
		t.Fatalf("expected Word namespace, got %q", doc)
	}
	if !strings.Contains(doc, "<p>first &lt;line&gt;</p>") {
		t.Fatalf("expected escaped paragraph, got %q", doc)
	}
	if !strings.Contains(doc, "<title>Notes &amp; plans</title>") {
		t.Fatalf("expected escaped title, got %q", doc)
	}
	if f.Name != "Notes _ plans-improved.doc" {
		t.Fatalf("unexpected name %q", f.Name)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	if _, err := Render("x", DocTranscript, Format("pdf"), "body"); err == nil {
		t.Fatal("expected unknown format error")
	}
}
