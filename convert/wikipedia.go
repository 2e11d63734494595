package convert

import (
	"strings"

	"golang.org/x/net/html"
)

// wikipediaChromeSelectors are stripped by outer-HTML replacement before
// the remaining content is converted to Markdown.
var wikipediaChromeSelectors = []string{
	".mw-editsection", ".reference", "#toc", ".toc", ".navbox",
	".sistersitebox", ".sidebar", ".infobox", ".metadata", ".hatnote",
	".mbox-small", "sup.reference", ".reflist", ".refbegin", ".external",
	"style", "script",
}

type wikipediaHandler struct {
	cfg Config
}

func (wikipediaHandler) Name() string { return "wikipedia" }

func (wikipediaHandler) Accepts(d StreamDescriptor) bool {
	return strings.Contains(d.URL, "wikipedia.org")
}

// Convert applies a site-specific selector set narrower than the
// general HTML cascade, since Wikipedia's markup is stable and known
// in advance.
func (h wikipediaHandler) Convert(data []byte, d StreamDescriptor) (ConversionResult, error) {
	doc, err := parseHTMLDoc(data)
	if err != nil {
		return ConversionResult{}, conversionFailed("wikipedia", "failed to parse HTML", err)
	}

	title := firstMatchText(doc, []string{"h1#firstHeading", ".firstHeading"})

	content := firstMatch(doc, []string{"#mw-content-text .mw-parser-output"})
	var fragmentHTML string
	if content != nil {
		fragmentHTML = innerHTML(content)
	} else {
		fragmentHTML = outerHTML(doc)
	}

	noisy := querySelectorAllInFragment(fragmentHTML, wikipediaChromeSelectors)
	fragmentHTML = stripFragmentsByOuterHTML(fragmentHTML, noisy)

	markdown := h.renderMarkdown(fragmentHTML)

	result := newResult(markdown)
	if title != "" {
		result = result.withTitle(title)
	}
	return result.withMetadata("source_url", d.URL), nil
}

func (h wikipediaHandler) renderMarkdown(fragment string) string {
	return (htmlHandler{cfg: h.cfg}).renderMarkdown(fragment)
}

func firstMatch(doc *html.Node, selectors []string) *html.Node {
	for _, sel := range selectors {
		if matches := querySelectorAll(doc, sel); len(matches) > 0 {
			return matches[0]
		}
	}
	return nil
}

func firstMatchText(doc *html.Node, selectors []string) string {
	if n := firstMatch(doc, selectors); n != nil {
		return strings.TrimSpace(collectCleanText(n))
	}
	return ""
}

func querySelectorAllInFragment(fragmentHTML string, selectors []string) []*html.Node {
	frag, err := parseHTMLDoc([]byte(fragmentHTML))
	if err != nil {
		return nil
	}
	var nodes []*html.Node
	for _, sel := range selectors {
		nodes = append(nodes, querySelectorAll(frag, sel)...)
	}
	return nodes
}
