package convert

import (
	"encoding/xml"
	"io"
	"strings"
)

type feedHandler struct{}

func (feedHandler) Name() string { return "feed" }

func (feedHandler) Accepts(d StreamDescriptor) bool {
	switch d.MIMEType {
	case "application/rss+xml", "application/atom+xml", "application/xml", "text/xml":
		return true
	}
	switch strings.ToLower(d.Ext) {
	case "rss", "atom", "feed":
		return true
	}
	return false
}

type feedEntry struct {
	title       string
	link        string
	description string
	pubDate     string
}

// Convert sniffs the root element, then walks with a token-based
// xml.Decoder — the same state-machine idiom this package's DOCX/ODT
// handlers use — dispatching text on the innermost open element.
func (feedHandler) Convert(data []byte, _ StreamDescriptor) (ConversionResult, error) {
	isAtom := strings.Contains(string(data), "<feed") && strings.Contains(string(data), `xmlns="http://www.w3.org/2005/Atom"`)

	var title string
	var entries []feedEntry
	var err error
	if isAtom {
		title, entries, err = parseAtom(data)
	} else {
		title, entries, err = parseRSS(data)
	}
	if err != nil {
		return ConversionResult{}, conversionFailed("feed", "xml parse error", err)
	}

	return formatFeed(title, entries), nil
}

func parseRSS(data []byte) (string, []feedEntry, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))

	var feedTitle string
	var entries []feedEntry
	var inChannel, inItem bool
	var currentTag string
	var cur feedEntry

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "channel":
				inChannel = true
			case "item":
				inItem = true
				cur = feedEntry{}
			default:
				currentTag = t.Name.Local
			}
		case xml.CharData:
			text := string(t)
			if inItem {
				switch currentTag {
				case "title":
					cur.title = text
				case "link":
					cur.link = text
				case "description":
					cur.description = text
				case "pubDate":
					cur.pubDate = text
				}
			} else if inChannel && currentTag == "title" {
				feedTitle = text
			}
		case xml.EndElement:
			if t.Name.Local == "item" {
				entries = append(entries, cur)
				inItem = false
			}
			currentTag = ""
		}
	}

	return feedTitle, entries, nil
}

func parseAtom(data []byte) (string, []feedEntry, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))

	var feedTitle string
	var entries []feedEntry
	var inEntry, inFeedTitle bool
	var currentTag string
	var cur feedEntry

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "entry":
				inEntry = true
				cur = feedEntry{}
			case "link":
				if inEntry && cur.link == "" {
					for _, attr := range t.Attr {
						if attr.Name.Local == "href" {
							cur.link = attr.Value
						}
					}
				}
			case "title":
				if !inEntry {
					inFeedTitle = true
				} else {
					currentTag = "title"
				}
			default:
				currentTag = t.Name.Local
			}
		case xml.CharData:
			text := string(t)
			if inFeedTitle {
				feedTitle = text
				inFeedTitle = false
			} else if inEntry {
				switch currentTag {
				case "title":
					cur.title = text
				case "summary", "content":
					cur.description = text
				case "updated", "published":
					cur.pubDate = text
				}
			}
		case xml.EndElement:
			if t.Name.Local == "entry" {
				entries = append(entries, cur)
				inEntry = false
			}
			currentTag = ""
			inFeedTitle = false
		}
	}

	return feedTitle, entries, nil
}

func formatFeed(title string, entries []feedEntry) ConversionResult {
	var sb strings.Builder

	if title != "" {
		sb.WriteString("# ")
		sb.WriteString(title)
		sb.WriteString("\n\n")
	}

	for _, e := range entries {
		if e.title != "" {
			if e.link != "" {
				sb.WriteString("## [")
				sb.WriteString(e.title)
				sb.WriteString("](")
				sb.WriteString(e.link)
				sb.WriteString(")\n\n")
			} else {
				sb.WriteString("## ")
				sb.WriteString(e.title)
				sb.WriteString("\n\n")
			}
		}

		if e.pubDate != "" {
			sb.WriteString("*")
			sb.WriteString(e.pubDate)
			sb.WriteString("*\n\n")
		}

		if e.description != "" {
			sb.WriteString(stripHTMLTags(e.description))
			sb.WriteString("\n\n")
		}

		sb.WriteString("---\n\n")
	}

	result := newResult(sb.String())
	if title != "" {
		result = result.withTitle(title)
	}
	return result
}

// stripHTMLTags is a single-pass `<...>` elision, not a full parser —
// feed descriptions are typically simple escaped HTML.
func stripHTMLTags(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
