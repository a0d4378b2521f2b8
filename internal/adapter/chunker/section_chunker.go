// Package chunker splits chapter source text into heading-scoped
// passages for retrieval indexing.
package chunker

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"ragtutor/internal/domain"
)

const (
	// defaultSectionTitle labels content that appears before the
	// first heading.
	defaultSectionTitle = "Introduction"

	// frontmatterMarker delimits an optional leading metadata block.
	frontmatterMarker = "---"

	// minPassageLen is the minimum passage text length in bytes.
	// Shorter fragments (a heading immediately followed by another
	// heading) produce no passage.
	minPassageLen = 100
)

// SectionChunker splits markdown-style chapter text on ## and ###
// headings. Chunking is deterministic: the same input always yields
// the same passages, which makes re-ingestion safe.
type SectionChunker struct{}

func NewSectionChunker() *SectionChunker {
	return &SectionChunker{}
}

func (c *SectionChunker) Chunk(documentID, rawText string) ([]domain.Passage, error) {
	lines := strings.Split(stripFrontmatter(rawText), "\n")

	var passages []domain.Passage
	title := defaultSectionTitle
	var body []string

	emit := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]
		if text == "" {
			return
		}
		text = "Section: " + title + "\n\n" + text
		if len(text) < minPassageLen {
			return
		}
		order := len(passages)
		passages = append(passages, domain.Passage{
			ID:           passageID(documentID, order),
			DocumentID:   documentID,
			SectionTitle: title,
			Text:         text,
			OrderIndex:   order,
		})
	}

	for _, line := range lines {
		if heading, ok := headingTitle(line); ok {
			emit()
			title = heading
			continue
		}
		body = append(body, line)
	}
	emit()

	return passages, nil
}

// headingTitle reports whether the line is a markdown heading with two
// or three leading # markers, returning the heading text.
func headingTitle(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, "#")
	hashes := len(line) - len(trimmed)
	if hashes < 2 || hashes > 3 {
		return "", false
	}
	if !strings.HasPrefix(trimmed, " ") && !strings.HasPrefix(trimmed, "\t") {
		return "", false
	}
	title := strings.TrimSpace(trimmed)
	if title == "" {
		return "", false
	}
	return title, true
}

// stripFrontmatter removes a leading metadata block delimited by a
// pair of "---" marker lines, if present.
func stripFrontmatter(text string) string {
	rest, ok := strings.CutPrefix(text, frontmatterMarker+"\n")
	if !ok {
		return text
	}
	for _, end := range []string{"\n" + frontmatterMarker + "\n", "\n" + frontmatterMarker} {
		if idx := strings.Index(rest, end); idx >= 0 {
			return rest[idx+len(end):]
		}
	}
	return text
}

// passageID derives a stable UUID from the document and emission
// order, so re-chunking the same input reproduces the same IDs.
func passageID(documentID string, order int) string {
	name := documentID + "#" + strconv.Itoa(order)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
