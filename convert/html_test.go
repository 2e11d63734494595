package convert

import (
	"strings"
	"testing"
)

func TestHTMLHandlerCookieBannerPlusArticle(t *testing.T) {
	h := htmlHandler{cfg: Config{RemoveNoiseWithBluemonday: true}}
	input := `<html><head><title>Real Article Page</title></head><body>
<div class="cookie-consent">We use cookies to improve your experience and store analytics data about your visit to this site. Please accept our cookie policy to continue browsing.</div>
<article>
<h1>Real Article</h1>
<p>Content. This is a fairly long paragraph of real prose that describes the subject matter in enough detail to push the extracted fragment past the minimum length threshold this handler's direct element tier requires before it accepts a candidate.</p>
</article>
</body></html>`

	result, err := h.Convert([]byte(input), StreamDescriptor{Ext: "html"})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.Contains(result.Body, "Real Article") {
		t.Errorf("expected body to contain %q:\n%s", "Real Article", result.Body)
	}
	if strings.Contains(strings.ToLower(result.Body), "cookie") {
		t.Errorf("expected body to exclude cookie banner text:\n%s", result.Body)
	}
	if result.Title != "Real Article Page" {
		t.Errorf("Title = %q, want %q", result.Title, "Real Article Page")
	}
}

func TestHTMLHandlerNavArticleFooter(t *testing.T) {
	h := htmlHandler{}
	input := `<html><body>
<nav><a href="/">Home</a><a href="/about">About</a></nav>
<article>
<h1>Main Content</h1>
<p>This article body contains enough real prose to clear the direct main element tier's minimum length thresholds so the extraction does not fall through to the readability fallback tier instead.</p>
</article>
<footer>Copyright 2025</footer>
</body></html>`

	result, err := h.Convert([]byte(input), StreamDescriptor{Ext: "html"})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.Contains(result.Body, "Main Content") {
		t.Errorf("expected body to contain %q:\n%s", "Main Content", result.Body)
	}
	if strings.Contains(result.Body, "Copyright") {
		t.Errorf("expected body to exclude footer text:\n%s", result.Body)
	}
}

func TestExtractNextRSCPayload(t *testing.T) {
	input := `<html><body><script>self.__next_f.push([1,"4e:[[\"$\",\"div\",null,{\"id\":\"page-content\",\"children\":[[\"$\",\"h1\",null,{\"children\":\"Getting Started with the Framework\"}],[\"$\",\"p\",null,{\"children\":\"Welcome to the documentation\"}]]}]]"])</script></body></html>`

	body := extractNextRSCPayload([]byte(input))
	if !strings.Contains(body, "Getting Started") {
		t.Errorf("expected recovered text to contain %q:\n%s", "Getting Started", body)
	}
	if !strings.Contains(body, "Welcome to the documentation") {
		t.Errorf("expected recovered text to contain %q:\n%s", "Welcome to the documentation", body)
	}
}

func TestHTMLHandlerReadabilityFallback(t *testing.T) {
	h := htmlHandler{}
	input := `<html><body>
<div class="sidebar"><ul><li><a href="/x">Link one</a></li><li><a href="/y">Link two</a></li></ul></div>
<div class="page-body">
<h2>Deep Dive Into The Subject</h2>
<p>Background and mechanism explained here in plain prose sentences.</p>
<p>Consequences and supporting argument follow in this second passage.</p>
</div>
</body></html>`

	result, err := h.Convert([]byte(input), StreamDescriptor{Ext: "html"})
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if !strings.Contains(result.Body, "Deep Dive") {
		t.Errorf("expected body to contain %q:\n%s", "Deep Dive", result.Body)
	}
}

func TestIsMostlyNav(t *testing.T) {
	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines, "[Link text here](https://example.com/page)")
	}
	navHeavy := strings.Join(lines, "\n")
	if !isMostlyNav(navHeavy) {
		t.Error("expected link-dominated markdown to be flagged mostly-nav")
	}

	prose := "# Title\n\nThis is a documentation page with a code block and paragraphs of real explanatory prose.\n\n```go\nfunc main() {}\n```\n\nAnother paragraph of substantive content follows here to round things out."
	if isMostlyNav(prose) {
		t.Error("expected prose-heavy markdown to not be flagged mostly-nav")
	}
}

func TestHTMLHandlerAccepts(t *testing.T) {
	h := htmlHandler{}
	if !h.Accepts(StreamDescriptor{MIMEType: "text/html"}) {
		t.Error("expected to accept text/html")
	}
	if !h.Accepts(StreamDescriptor{Ext: "htm"}) {
		t.Error("expected to accept .htm")
	}
	if h.Accepts(StreamDescriptor{MIMEType: "application/pdf"}) {
		t.Error("did not expect to accept application/pdf")
	}
}
