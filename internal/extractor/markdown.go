package extractor

import (
	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

// markdownConverter renders HTML documents into Markdown as a secondary
// artifact form, kept alongside the extracted Bundle purely for
// human-readable logs and diffing between two fetches of the same URL --
// it never feeds field extraction, which runs off parseHTML's plain text.
var markdownConverter = newMarkdownConverter()

func newMarkdownConverter() *md.Converter {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	return conv
}

// htmlToMarkdown converts an HTML body to Markdown. A conversion failure is
// non-fatal to extraction: the caller logs it and proceeds without the
// secondary artifact.
func htmlToMarkdown(body []byte) (string, error) {
	return markdownConverter.ConvertString(string(body))
}
