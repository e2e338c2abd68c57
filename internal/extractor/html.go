package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/dno-gatherer/internal/interfaces"
)

// parsedHTML is the intermediate result of walking one HTML document, before
// operator rules are applied to its text.
type parsedHTML struct {
	Text        string
	Links       []string
	Features    interfaces.Features
	RawTextHash string
	Markdown    string
}

// parseHTML parses body as HTML, rooted at sourceURL for link resolution, and
// harvests text, links and cross-cutting features from it.
func parseHTML(body []byte, sourceURL string, maxHeadings int) (*parsedHTML, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	doc.Find("script, style").Remove()

	var textBuilder strings.Builder
	walkText(doc.Selection, &textBuilder)
	text := collapseWhitespace(textBuilder.String())

	headings := make(map[int][]string)
	for level := 1; level <= 3; level++ {
		tag := "h" + strconv.Itoa(level)
		doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
			headings[level] = append(headings[level], strings.TrimSpace(s.Text()))
		})
	}

	description, _ := doc.Find(`meta[name="description"]`).Attr("content")
	keywords, _ := doc.Find(`meta[name="keywords"]`).Attr("content")

	links := extractLinks(doc, sourceURL)
	features := extractFeatures(text, capHeadings(headings, maxHeadings), strings.TrimSpace(description), strings.TrimSpace(keywords))

	return &parsedHTML{
		Text:        text,
		Links:       links,
		Features:    features,
		RawTextHash: textHash(text),
	}, nil
}

// walkText walks the DOM depth-first appending every text node, mirroring
// the teacher's recursive markdown-conversion walk but collecting plain text
// rather than markup.
func walkText(sel *goquery.Selection, out *strings.Builder) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "#text" {
			text := strings.TrimSpace(s.Text())
			if text != "" {
				out.WriteString(text)
				out.WriteString(" ")
			}
			return
		}
		walkText(s, out)
	})
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func textHash(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// extractLinks discovers outbound <a href> links, resolving relative URLs
// against sourceURL and deduplicating while preserving discovery order.
func extractLinks(doc *goquery.Document, sourceURL string) []string {
	var links []string
	seen := make(map[string]bool)

	baseURL, err := url.Parse(sourceURL)
	if err != nil {
		baseURL = nil
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" || shouldSkipLink(href) {
			return
		}
		resolved := resolveURL(href, baseURL)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		links = append(links, resolved)
	})

	return links
}

func shouldSkipLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "sms:", "ftp:", "data:"} {
		if strings.HasPrefix(href, prefix) {
			return true
		}
	}
	return false
}

func resolveURL(href string, baseURL *url.URL) string {
	if baseURL == nil {
		if parsed, err := url.Parse(href); err == nil && parsed.IsAbs() {
			return parsed.String()
		}
		return ""
	}
	resolved, err := baseURL.Parse(href)
	if err != nil {
		return ""
	}
	return resolved.String()
}
