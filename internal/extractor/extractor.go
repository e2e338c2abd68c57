// Package extractor turns fetched bytes into a structured Bundle: tariff
// records (via operator-specific rules), outbound links, and the
// cross-cutting features pattern recognition relies on.
package extractor

import (
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dno-gatherer/internal/interfaces"
	"github.com/ternarybob/dno-gatherer/internal/model"
)

// Extractor is the default interfaces.Extractor implementation: DOM-based
// HTML parsing, pdfcpu-delegated PDF text extraction, and a shared feature
// harvesting + rule application pass over the resulting plain text.
type Extractor struct {
	rules       *RuleStore
	pdf         interfaces.PDFExtractor
	logger      arbor.ILogger
	maxHeadings int
}

var _ interfaces.Extractor = (*Extractor)(nil)

// New constructs an Extractor with the default per-level heading cap (5).
// rules may be an empty store (every operator then yields
// NoRulesForOperator); pdf may be nil if PDF bodies are never expected.
func New(rules *RuleStore, pdf interfaces.PDFExtractor, logger arbor.ILogger) *Extractor {
	return &Extractor{rules: rules, pdf: pdf, logger: logger, maxHeadings: defaultMaxHeadingsPerLevel}
}

// NewWithMaxHeadings is New with an explicit per-level heading cap, wired
// from config.ExtractorConfig.MaxHeadings.
func NewWithMaxHeadings(rules *RuleStore, pdf interfaces.PDFExtractor, logger arbor.ILogger, maxHeadings int) *Extractor {
	e := New(rules, pdf, logger)
	if maxHeadings > 0 {
		e.maxHeadings = maxHeadings
	}
	return e
}

// Extract dispatches on mime, harvests features, and applies operatorKey's
// rules to the resulting text.
func (e *Extractor) Extract(body []byte, mime string, operatorKey string) (*interfaces.Bundle, error) {
	switch {
	case strings.Contains(mime, "html"):
		return e.extractHTML(body, operatorKey)
	case strings.Contains(mime, "pdf"):
		return e.extractPDF(body, operatorKey)
	default:
		// Unknown MIME: treat as plain text, same feature harvesting and
		// rule application, no links.
		text := collapseWhitespace(string(body))
		return e.finish(text, nil, operatorKey)
	}
}

func (e *Extractor) extractHTML(body []byte, operatorKey string) (*interfaces.Bundle, error) {
	parsed, err := parseHTML(body, "", e.maxHeadings)
	if err != nil {
		return nil, model.NewParse("html parse failed: " + err.Error())
	}
	if markdown, mdErr := htmlToMarkdown(body); mdErr == nil {
		parsed.Markdown = markdown
	} else if e.logger != nil {
		e.logger.Warn().Err(mdErr).Msg("html to markdown conversion failed, continuing without it")
	}
	bundle, err := e.finishParsed(parsed, operatorKey)
	if err != nil {
		return nil, err
	}
	return bundle, nil
}

func (e *Extractor) extractPDF(body []byte, operatorKey string) (*interfaces.Bundle, error) {
	if e.pdf == nil {
		return nil, model.NewParse("no pdf extractor configured")
	}
	pages, err := e.pdf.ExtractText(body)
	if err != nil {
		return nil, model.NewParse("pdf extraction failed: " + err.Error())
	}
	var builder strings.Builder
	for i, page := range pages {
		if i > 0 {
			builder.WriteString(" ")
		}
		builder.WriteString(page.Text)
	}
	text := collapseWhitespace(builder.String())
	return e.finish(text, nil, operatorKey)
}

func (e *Extractor) finishParsed(parsed *parsedHTML, operatorKey string) (*interfaces.Bundle, error) {
	gridCharges, loadWindows, err := e.rules.Apply(parsed.Text, operatorKey)
	if err != nil {
		return &interfaces.Bundle{
			Links:       parsed.Links,
			Features:    parsed.Features,
			RawTextHash: parsed.RawTextHash,
		}, err
	}
	return &interfaces.Bundle{
		GridCharges: gridCharges,
		LoadWindows: loadWindows,
		Links:       parsed.Links,
		Features:    parsed.Features,
		RawTextHash: parsed.RawTextHash,
		Markdown:    parsed.Markdown,
	}, nil
}

func (e *Extractor) finish(text string, links []string, operatorKey string) (*interfaces.Bundle, error) {
	features := extractFeatures(text, map[int][]string{}, "", "")
	hash := textHash(text)
	gridCharges, loadWindows, err := e.rules.Apply(text, operatorKey)
	if err != nil {
		return &interfaces.Bundle{Links: links, Features: features, RawTextHash: hash}, err
	}
	return &interfaces.Bundle{
		GridCharges: gridCharges,
		LoadWindows: loadWindows,
		Links:       links,
		Features:    features,
		RawTextHash: hash,
	}, nil
}
