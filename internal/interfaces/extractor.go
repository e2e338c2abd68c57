package interfaces

import "github.com/ternarybob/dno-gatherer/internal/model"

// Features are the harvested signals used by pattern recognition and by
// operator rules to disambiguate tariff fields.
type Features struct {
	Emails        []string
	Phones        []string
	Headings      map[int][]string // level (1-3) -> headings, capped at 5 each
	Description   string
	Keywords      string
	FederalStates []string
	VoltageKM     []string // raw "NN kV" / "NN km" matches
}

// Bundle is the structured output of extracting one document.
type Bundle struct {
	GridCharges  []model.GridChargeRecord
	LoadWindows  []model.LoadWindowRecord
	Links        []string
	Features     Features
	RawTextHash  string
	// Markdown is an HTML source's secondary artifact form, used only for
	// logs/diffing; empty for non-HTML sources or if conversion failed.
	Markdown string
}

// Extractor parses an HTML document or PDF into a structured Bundle. mime
// selects the HTML or PDF path; operatorKey selects the operator-specific
// field mapping.
type Extractor interface {
	Extract(body []byte, mime string, operatorKey string) (*Bundle, error)
}

// PDFExtractor is the narrow external interface the Extractor delegates PDF
// text extraction to (spec §4.2: "out of scope", specified only at its
// interface -- here backed by pdfcpu).
type PDFExtractor interface {
	ExtractText(body []byte) ([]PDFPage, error)
}

// PDFPage is one page of extracted PDF text.
type PDFPage struct {
	N    int
	Text string
}
