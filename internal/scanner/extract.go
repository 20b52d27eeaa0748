package scanner

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Features holds the layered texts pulled from a fetched document.
type Features struct {
	// Title is the verbatim document title, for reporting.
	Title string
	// Combined concatenates the high-signal zones (title, meta descriptions,
	// headings, bold, preformatted/code), lower-cased.
	Combined string
	// Body is the full visible text with tags stripped and whitespace
	// normalized.
	Body string
}

// extractFeatures parses raw HTML and assembles the matching texts.
func extractFeatures(raw []byte) (Features, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return Features{}, fmt.Errorf("parse document: %w", err)
	}

	title := normalizeSpace(doc.Find("title").First().Text())

	var metaParts []string
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		if content, ok := sel.Attr("content"); ok && content != "" {
			metaParts = append(metaParts, content)
		}
	})
	meta := normalizeSpace(strings.Join(metaParts, " "))

	headings := selectionText(doc, "h1, h2, h3")
	bold := selectionText(doc, "b, strong")
	pre := selectionText(doc, "pre, code")

	// Script/style text is invisible; drop it before reading the body.
	doc.Find("script, style, noscript").Remove()
	body := normalizeSpace(doc.Find("body").Text())
	if body == "" {
		body = normalizeSpace(doc.Text())
	}

	combined := strings.ToLower(strings.Join([]string{title, meta, headings, bold, pre}, " "))
	return Features{
		Title:    title,
		Combined: normalizeSpace(combined),
		Body:     body,
	}, nil
}

func selectionText(doc *goquery.Document, selector string) string {
	var parts []string
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if text := normalizeSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
