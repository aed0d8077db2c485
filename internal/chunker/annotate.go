package chunker

import (
	"regexp"
	"strings"

	"github.com/corpusworks/docindex/internal/domain"
)

// Annotator derives a short contextual prefix for each chunk: document
// title and type, the section the chunk falls under (or a coarse position
// label) and a content-category guess. The prefix is embedded together with
// the chunk text to improve retrieval quality; the raw text is kept
// separately for display.
type Annotator struct {
	maxTitleLen int
}

// NewAnnotator creates an Annotator with default settings.
func NewAnnotator() *Annotator {
	return &Annotator{maxTitleLen: 80}
}

var (
	markdownHeading = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	numberedHeading = regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+\S.*$`)
)

// categoryKeywords maps coarse content categories to indicator terms.
// The category with the highest keyword density wins, if any term matched
// at least twice.
var categoryKeywords = map[string][]string{
	"legal":          {"agreement", "contract", "party", "parties", "clause", "liability", "hereby", "pursuant", "jurisdiction", "warranty"},
	"financial":      {"invoice", "payment", "amount", "total", "balance", "tax", "revenue", "expense", "budget", "fiscal"},
	"administrative": {"memo", "policy", "procedure", "department", "approval", "request", "form", "schedule", "meeting", "minutes"},
	"technical":      {"system", "server", "configuration", "software", "database", "version", "install", "protocol", "api", "error"},
	"dates":          {"january", "february", "march", "april", "june", "july", "august", "september", "october", "november", "december", "deadline"},
	"lists":          {"item", "list", "checklist", "steps", "bullet", "enumerated"},
}

// Annotate builds the contextualized content for one piece: a bracketed
// prefix followed by the original text.
func (a *Annotator) Annotate(doc *domain.Document, p Piece, totalPieces int, fullText string) string {
	parts := []string{a.documentContext(doc)}

	if section := a.sectionContext(fullText, p.StartChar); section != "" {
		parts = append(parts, "Section: "+section)
	} else {
		parts = append(parts, a.positionLabel(p.Index, totalPieces))
	}

	if category := a.contentCategory(p.Text); category != "" {
		parts = append(parts, category+" content")
	}

	return "[" + strings.Join(parts, " | ") + "]\n\n" + p.Text
}

func (a *Annotator) documentContext(doc *domain.Document) string {
	title := strings.TrimSpace(doc.Title)
	if runes := []rune(title); len(runes) > a.maxTitleLen {
		title = string(runes[:a.maxTitleLen]) + "..."
	}

	ctx := "Document: " + title
	if fileType := doc.Metadata["content_type"]; fileType != "" {
		ctx += " (" + fileType + ")"
	}
	return ctx
}

// sectionContext scans backwards from the chunk's offset for the nearest
// preceding heading line. Recognizes markdown headings, numbered headings,
// underlined headings and short ALL-CAPS lines.
func (a *Annotator) sectionContext(fullText string, startChar int) string {
	runes := []rune(fullText)
	if startChar > len(runes) {
		startChar = len(runes)
	}

	lines := strings.Split(string(runes[:startChar]), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		if m := markdownHeading.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1])
		}
		if i+1 < len(lines) {
			underline := strings.TrimSpace(lines[i+1])
			if len(underline) >= 3 && (strings.Trim(underline, "=") == "" || strings.Trim(underline, "-") == "") {
				return line
			}
		}
		if isAllCapsHeading(line) {
			return line
		}
		if numberedHeading.MatchString(line) && len([]rune(line)) <= 80 {
			return line
		}
	}
	return ""
}

func (a *Annotator) positionLabel(index, total int) string {
	if total <= 1 {
		return "full document"
	}
	relative := float64(index) / float64(total-1)
	switch {
	case relative < 0.2:
		return "start of document"
	case relative > 0.8:
		return "end of document"
	default:
		return "middle of document"
	}
}

// contentCategory guesses the dominant content category by keyword count.
// Categories are checked in a fixed order so ties resolve deterministically.
func (a *Annotator) contentCategory(text string) string {
	lower := strings.ToLower(text)

	best := ""
	bestCount := 1 // require at least two hits
	for _, category := range []string{"legal", "financial", "administrative", "technical", "dates", "lists"} {
		count := 0
		for _, kw := range categoryKeywords[category] {
			count += strings.Count(lower, kw)
		}
		if count > bestCount {
			best = category
			bestCount = count
		}
	}
	return best
}

func isAllCapsHeading(line string) bool {
	runes := []rune(line)
	if len(runes) < 3 || len(runes) > 60 {
		return false
	}
	letters := 0
	for _, r := range runes {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			letters++
		}
	}
	return letters >= 3
}
