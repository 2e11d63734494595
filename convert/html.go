package convert

import (
	"regexp"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`display\s*:\s*none`),
	regexp.MustCompile(`visibility\s*:\s*hidden`),
}

// mainSelectors is tier 2's fixed, ordered candidate list.
var mainSelectors = []string{
	"article#content-container",
	"article[role='main']",
	"main article",
	"main",
	"article",
	"[role='main']",
}

// noiseSelectors is tier 3's union of boilerplate selectors, stripped by
// outer-HTML string replacement before the density pass runs.
var noiseSelectors = []string{
	".cookie", "#cookie", ".consent", "#consent", ".gdpr", "#gdpr",
	"nav", "header", "footer", "aside",
	"[role='banner']", "[role='navigation']", "[role='contentinfo']",
	".sidebar", "#sidebar",
	".overlay", ".modal", ".popup",
	"script", "style", "noscript", "svg",
}

type htmlHandler struct {
	cfg Config
}

func (htmlHandler) Name() string { return "html" }

func (htmlHandler) Accepts(d StreamDescriptor) bool {
	switch d.MIMEType {
	case "text/html", "application/xhtml+xml":
		return true
	}
	switch strings.ToLower(d.Ext) {
	case "html", "htm", "xhtml":
		return true
	}
	return false
}

// Convert runs a three-tier extraction cascade. The first tier to
// yield non-trivial content wins.
func (h htmlHandler) Convert(data []byte, d StreamDescriptor) (ConversionResult, error) {
	doc, err := parseHTMLDoc(data)
	if err != nil {
		return ConversionResult{}, conversionFailed("html", "failed to parse HTML", err)
	}
	title := findHTMLTitle(doc)

	if body := extractNextRSCPayload(data); len(body) >= 200 {
		return withHTMLTier(newResult(body), title, "rsc"), nil
	}

	if body, ok := h.extractMainElement(doc); ok {
		return withHTMLTier(newResult(body), title, "selector"), nil
	}

	if body, ok := h.extractReadability(doc); ok {
		return withHTMLTier(newResult(body), title, "density"), nil
	}

	return ConversionResult{}, conversionFailed("html", "no content extracted", nil)
}

func withHTMLTier(r ConversionResult, title, tier string) ConversionResult {
	if title != "" {
		r = r.withTitle(title)
	}
	return r.withMetadata("extraction_tier", tier)
}

// --- Tier 2: direct main element extraction -------------------------------

func (h htmlHandler) extractMainElement(doc *html.Node) (string, bool) {
	n := largestBySelectors(doc, mainSelectors)
	if n == nil {
		return "", false
	}
	inner := innerHTML(n)
	if len(inner) <= 200 {
		return "", false
	}

	noisy := findAllByTag(n, "script", "style", "noscript", "svg")
	inner = stripFragmentsByOuterHTML(inner, noisy)

	markdown := h.renderMarkdown(inner)
	if len(markdown) <= 100 {
		return "", false
	}
	if isMostlyNav(markdown) {
		return "", false
	}
	return markdown, true
}

var linkLineRe = regexp.MustCompile(`\]\(`)

var navTextLines = map[string]bool{
	"expand menu":   true,
	"collapse menu": true,
	"toggle":        true,
	"menu":          true,
}

// isMostlyNav post-checks the rendered Markdown: with at least 10
// non-empty lines, reject when link+nav lines dominate and no line
// reads as real prose.
func isMostlyNav(markdown string) bool {
	lines := strings.Split(markdown, "\n")

	var total, linkCount, navCount int
	var longestProse int

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		total++

		content := strings.TrimPrefix(line, "- ")
		content = strings.TrimPrefix(content, "* ")

		isLink := strings.HasPrefix(content, "[") && strings.HasSuffix(content, ")") && linkLineRe.MatchString(content)
		if isLink {
			linkCount++
			continue
		}
		if navTextLines[strings.ToLower(content)] {
			navCount++
			continue
		}
		if len(content) > longestProse {
			longestProse = len(content)
		}
	}

	if total < 10 {
		return false
	}
	ratio := float64(linkCount+navCount) / float64(total)
	return ratio > 0.45 && longestProse < 120
}

// --- Tier 3: readability fallback -----------------------------------------

func (h htmlHandler) extractReadability(doc *html.Node) (string, bool) {
	body := findBody(doc)
	if body == nil {
		body = doc
	}

	var noisy []*html.Node
	for _, sel := range noiseSelectors {
		noisy = append(noisy, querySelectorAll(body, sel)...)
	}
	cleanedHTML := stripFragmentsByOuterHTML(outerHTML(body), noisy)

	cleanedDoc, err := parseHTMLDoc([]byte(cleanedHTML))
	if err != nil {
		cleanedDoc = body
	}

	article := findDensestNode(cleanedDoc, 100)
	var fragment string
	if article != nil {
		fragment = innerHTML(article)
	} else {
		fragment = cleanedHTML
	}

	markdown := h.renderMarkdown(fragment)
	if strings.TrimSpace(markdown) == "" {
		return "", false
	}
	return markdown, true
}

// renderMarkdown optionally sanitizes the fragment with bluemonday as a
// secondary noise/XSS pass, then converts it to Markdown via the
// html-to-markdown converter configured with the base, commonmark, and
// table plugins.
func (h htmlHandler) renderMarkdown(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	if h.cfg.RemoveNoiseWithBluemonday {
		fragment = bluemondaySanitize(fragment)
	}

	conv := md.NewConverter(md.WithPlugins(base.NewBasePlugin(), commonmark.NewCommonmarkPlugin(), table.NewTablePlugin()))
	out, err := conv.ConvertString(fragment)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

var bluemondayPolicy = bluemonday.UGCPolicy()

func bluemondaySanitize(fragment string) string {
	return bluemondayPolicy.Sanitize(fragment)
}

// --- Tier 1: Next.js React Server Components payload recovery -----------
//
// Next.js App Router pages embed the server-rendered React tree as a
// stream of self.__next_f.push([1,"..."]) calls inside <script> tags.
// The pushed payload is an escaped flight-protocol fragment carrying a
// React element tree as nested JSON-like arrays; recovering its text
// nodes gets at the server-rendered content without running JavaScript.

const rscScanLimit = 200_000

var rscAnchorKeys = []string{
	`"id":"page-content"`,
	`"id": "page-content"`,
	`"id":"content"`,
	`"phase":"content"`,
}

var rscPushChunkRe = regexp.MustCompile(`self\.__next_f\.push\(\[1,"((?:[^"\\]|\\.)*)"\]\)`)

var rscElementMarkerRe = regexp.MustCompile(`"\$","(\w+)"`)

var rscHeadingTags = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

var rscContentTags = map[string]bool{
	"p": true, "li": true, "span": true, "strong": true, "em": true,
	"code": true, "pre": true, "td": true, "th": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

var rscSkipTags = map[string]bool{
	"svg": true, "path": true, "script": true, "style": true,
	"noscript": true, "img": true,
}

// extractNextRSCPayload concatenates every pushed chunk, unescapes it,
// locates the content anchor, and walks forward extracting text from
// React element markers. Returns "" if no payload is present or it
// yields no usable Markdown.
func extractNextRSCPayload(data []byte) string {
	if !strings.Contains(string(data), `self.__next_f.push([1,"`) {
		return ""
	}

	matches := rscPushChunkRe.FindAllSubmatch(data, -1)
	if len(matches) == 0 {
		return ""
	}

	var payload strings.Builder
	for _, m := range matches {
		payload.Write(m[1])
	}
	unescaped := jsUnescape(payload.String())

	anchorIdx := -1
	for _, key := range rscAnchorKeys {
		if idx := strings.Index(unescaped, key); idx >= 0 {
			anchorIdx = idx
			break
		}
	}
	if anchorIdx < 0 {
		anchorIdx = 0
	}

	end := anchorIdx + rscScanLimit
	if end > len(unescaped) {
		end = len(unescaped)
	}
	window := unescaped[anchorIdx:end]

	seen := make(map[string]bool)
	var sb strings.Builder

	markerLocs := rscElementMarkerRe.FindAllStringSubmatchIndex(window, -1)
	for _, loc := range markerLocs {
		tag := window[loc[2]:loc[3]]
		if rscSkipTags[tag] {
			continue
		}
		if !rscContentTags[tag] {
			continue
		}

		childrenIdx := strings.Index(window[loc[1]:], `"children":`)
		if childrenIdx < 0 {
			continue
		}
		childrenStart := loc[1] + childrenIdx + len(`"children":`)
		text := extractRSCChildrenText(window[childrenStart:])
		if text == "" || isRSCNoise(text) {
			continue
		}
		if seen[text] {
			continue
		}
		seen[text] = true

		switch {
		case rscHeadingTags[tag] > 0:
			sb.WriteString(strings.Repeat("#", rscHeadingTags[tag]))
			sb.WriteByte(' ')
			sb.WriteString(text)
		case tag == "li":
			sb.WriteString("- ")
			sb.WriteString(text)
		case tag == "code" || tag == "pre":
			sb.WriteByte('`')
			sb.WriteString(text)
			sb.WriteByte('`')
		default:
			sb.WriteString(text)
		}
		sb.WriteString("\n\n")
	}

	return strings.TrimSpace(sb.String())
}

// extractRSCChildrenText reads the value following a "children": key:
// either a direct quoted string, or a bracketed array from which
// top-level (depth 0) quoted strings are concatenated with a space.
func extractRSCChildrenText(rest string) string {
	i := 0
	for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t') {
		i++
	}
	if i >= len(rest) {
		return ""
	}

	switch rest[i] {
	case '"':
		s, _ := readJSONStringLiteral(rest[i:])
		return s
	case '[':
		return extractArrayTopLevelStrings(rest[i:])
	default:
		return ""
	}
}

// readJSONStringLiteral reads a double-quoted, backslash-escaped string
// starting at s[0] == '"', returning its decoded content and the byte
// length consumed (including both quotes).
func readJSONStringLiteral(s string) (string, int) {
	if len(s) == 0 || s[0] != '"' {
		return "", 0
	}
	var raw strings.Builder
	i := 1
	for i < len(s) {
		if s[i] == '\\' && i+1 < len(s) {
			raw.WriteByte(s[i])
			raw.WriteByte(s[i+1])
			i += 2
			continue
		}
		if s[i] == '"' {
			i++
			break
		}
		raw.WriteByte(s[i])
		i++
	}
	return jsUnescape(raw.String()), i
}

func extractArrayTopLevelStrings(s string) string {
	if len(s) == 0 || s[0] != '[' {
		return ""
	}
	depth := 0
	var parts []string
	i := 0
	for i < len(s) {
		switch s[i] {
		case '[', '{':
			depth++
			i++
		case ']', '}':
			depth--
			i++
			if depth == 0 {
				return filterAndJoinRSCStrings(parts)
			}
		case '"':
			if depth == 1 {
				str, n := readJSONStringLiteral(s[i:])
				if !strings.HasPrefix(str, "$") && !strings.HasPrefix(str, "geist") && !isRSCNoise(str) {
					parts = append(parts, str)
				}
				i += n
				continue
			}
			_, n := readJSONStringLiteral(s[i:])
			i += n
		default:
			i++
		}
	}
	return filterAndJoinRSCStrings(parts)
}

func filterAndJoinRSCStrings(parts []string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "")
}

var rscCSSModuleRe = regexp.MustCompile(`^[a-zA-Z_-]+_[a-zA-Z0-9]{5,}$`)
var rscSVGPathDataRe = regexp.MustCompile(`^[MLHVCSQTAZmlhvcsqtaz0-9.,\s-]+$`)

var rscPropNames = map[string]bool{
	"className": true, "onClick": true, "onChange": true, "children": true,
	"style": true, "href": true, "src": true, "alt": true, "key": true,
}

// isRSCNoise filters structural/framework strings (CSS module names,
// React prop names, SVG path data, geist font tokens, asset paths) out
// of recovered text.
func isRSCNoise(s string) bool {
	if strings.HasPrefix(s, "$") || strings.HasPrefix(s, "geist") {
		return true
	}
	if rscPropNames[s] {
		return true
	}
	if rscCSSModuleRe.MatchString(s) {
		return true
	}
	if len(s) > 10 && rscSVGPathDataRe.MatchString(s) {
		return true
	}
	for _, key := range []string{"/_next/", "webpack", "static/chunks", "data:image"} {
		if strings.Contains(s, key) {
			return true
		}
	}
	return false
}

// jsUnescape undoes the handful of JS string escapes the flight
// protocol payload uses: \n \t \" \\ \/ and \uXXXX.
func jsUnescape(s string) string {
	var sb strings.Builder
	i := 0
	for i < len(s) {
		if s[i] != '\\' || i+1 >= len(s) {
			sb.WriteByte(s[i])
			i++
			continue
		}
		switch s[i+1] {
		case 'n':
			sb.WriteByte('\n')
			i += 2
		case 't':
			sb.WriteByte('\t')
			i += 2
		case '"':
			sb.WriteByte('"')
			i += 2
		case '\\':
			sb.WriteByte('\\')
			i += 2
		case '/':
			sb.WriteByte('/')
			i += 2
		case 'u':
			if i+6 <= len(s) {
				if v, err := strconv.ParseInt(s[i+2:i+6], 16, 32); err == nil {
					sb.WriteRune(rune(v))
					i += 6
					continue
				}
			}
			sb.WriteByte(s[i])
			i++
		default:
			sb.WriteByte(s[i])
			i++
		}
	}
	return sb.String()
}
