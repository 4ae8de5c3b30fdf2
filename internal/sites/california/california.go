// Package california adapts leginfo.legislature.ca.gov to the crawl
// engine's Site interface. The legislature's code browser is a JSF
// application: branch pages expand a table of contents tree, and leaf
// pages list sections behind javascript: pseudo-links that postback to
// the full section text.
package california

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/openlex/lexcrawl/internal/crawl"
	"github.com/openlex/lexcrawl/internal/fetcher/static"
	"github.com/openlex/lexcrawl/internal/hash/sha256"
	"github.com/openlex/lexcrawl/internal/pool"
	"github.com/openlex/lexcrawl/internal/retry"
)

// Jurisdiction tags every record produced by this site.
const Jurisdiction = "CA"

const (
	branchLinksSelector = "#expandedbranchcodesid a"
	leafMarkerID        = "manylawsections"
	sectionContainerID  = "codeLawSectionNoHead"
)

// browserHandle is what the site needs from a pooled handle.
type browserHandle interface {
	Run(ctx context.Context, actions ...chromedp.Action) error
}

// Site implements crawl.Site for California. Branch pages are probed
// with a plain HTTP fetch first; the browser handle is only spent when
// the probe comes back without the server-rendered tree.
type Site struct {
	probe  *static.Fetcher
	logger *zap.Logger
}

// New builds the site adapter. probe may be nil to always render.
func New(probe *static.Fetcher, logger *zap.Logger) *Site {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Site{probe: probe, logger: logger}
}

// Fetch classifies a frontier page: the branch links it expands to and
// whether it carries the leaf section list.
func (s *Site) Fetch(ctx context.Context, h pool.Handle, t crawl.Target) (crawl.FetchResult, error) {
	if s.probe != nil {
		res, ok := s.probeFetch(ctx, t)
		if ok {
			return res, nil
		}
	}
	return s.renderFetch(ctx, h, t)
}

// probeFetch tries the cheap path. The second return value is false when
// the probe failed or came back inconclusive, meaning the page needs a
// real render.
func (s *Site) probeFetch(ctx context.Context, t crawl.Target) (crawl.FetchResult, bool) {
	doc, err := s.probe.Get(ctx, t.URL)
	if err != nil {
		s.logger.Debug("static probe failed, rendering",
			zap.String("url", t.URL), zap.Error(err))
		return crawl.FetchResult{}, false
	}

	base, err := url.Parse(t.URL)
	if err != nil {
		return crawl.FetchResult{}, false
	}
	var links []string
	doc.Find(branchLinksSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" || strings.HasPrefix(href, "javascript:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		links = append(links, base.ResolveReference(ref).String())
	})
	isLeaf := doc.Find("#"+leafMarkerID).Length() > 0

	if len(links) == 0 && !isLeaf {
		// JSF pages often ship an empty shell to non-browser clients.
		return crawl.FetchResult{}, false
	}
	return crawl.FetchResult{Links: links, IsLeaf: isLeaf}, true
}

type renderedPage struct {
	Links []string `json:"links"`
	Leaf  bool     `json:"leaf"`
}

const classifyJS = `(() => {
	const links = [];
	document.querySelectorAll('#expandedbranchcodesid a[href]').forEach(a => {
		if (!a.getAttribute('href').startsWith('javascript:')) {
			links.push(a.href);
		}
	});
	return { links: links, leaf: document.getElementById('manylawsections') !== null };
})()`

func (s *Site) renderFetch(ctx context.Context, h pool.Handle, t crawl.Target) (crawl.FetchResult, error) {
	tab, ok := h.(browserHandle)
	if !ok {
		return crawl.FetchResult{}, retry.Permanent(fmt.Errorf("california: handle %T cannot run browser actions", h))
	}
	var page renderedPage
	err := tab.Run(ctx,
		chromedp.Navigate(t.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(classifyJS, &page),
	)
	if err != nil {
		return crawl.FetchResult{}, fmt.Errorf("california: fetch %s: %w", t.URL, err)
	}
	return crawl.FetchResult{Links: page.Links, IsLeaf: page.Leaf}, nil
}

const sectionLinksJS = `Array.from(
	document.querySelectorAll('#manylawsections a[href]')
).map(a => a.getAttribute('href')).filter(h => h !== '')`

// Sections enumerates the javascript: pseudo-links of a leaf page's
// section list. Each returned string is fed back to Extract.
func (s *Site) Sections(ctx context.Context, h pool.Handle, leaf crawl.Target) ([]string, error) {
	tab, ok := h.(browserHandle)
	if !ok {
		return nil, retry.Permanent(fmt.Errorf("california: handle %T cannot run browser actions", h))
	}
	var hrefs []string
	err := tab.Run(ctx,
		chromedp.Navigate(leaf.URL),
		chromedp.WaitReady("#"+leafMarkerID, chromedp.ByQuery),
		chromedp.Evaluate(sectionLinksJS, &hrefs),
	)
	if err != nil {
		return nil, fmt.Errorf("california: sections of %s: %w", leaf.URL, err)
	}
	return hrefs, nil
}

// sectionDiv is the browser-side snapshot of one top-level div inside
// the section container, carrying just enough computed style to
// classify it.
type sectionDiv struct {
	TextTransform string   `json:"textTransform"`
	TextIndent    string   `json:"textIndent"`
	Display       string   `json:"display"`
	Text          string   `json:"text"`
	Bold          string   `json:"bold"`
	Italic        string   `json:"italic"`
	H6            string   `json:"h6"`
	Paragraphs    []string `json:"paragraphs"`
}

const scanSectionJS = `(() => {
	const container = document.getElementById('codeLawSectionNoHead');
	if (container === null) { return []; }
	const pick = (el, tag) => {
		const c = el.querySelector(tag);
		return c === null ? '' : c.textContent.trim();
	};
	return Array.from(container.children).filter(el => el.tagName === 'DIV').map(el => {
		const style = window.getComputedStyle(el);
		return {
			textTransform: style.textTransform,
			textIndent: style.textIndent,
			display: style.display,
			text: el.textContent.trim(),
			bold: pick(el, 'b'),
			italic: pick(el, 'i'),
			h6: pick(el, 'h6'),
			paragraphs: Array.from(el.querySelectorAll('p')).map(p => p.textContent.trim()),
		};
	});
})()`

// Extract runs one section's postback script and builds the Record from
// the resulting page.
func (s *Site) Extract(ctx context.Context, h pool.Handle, leaf crawl.Target, section string) (crawl.Record, error) {
	tab, ok := h.(browserHandle)
	if !ok {
		return crawl.Record{}, retry.Permanent(fmt.Errorf("california: handle %T cannot run browser actions", h))
	}

	script := section
	if i := strings.Index(script, ":"); i >= 0 {
		script = script[i+1:]
	}

	var (
		discard    bool
		currentURL string
		divs       []sectionDiv
	)
	err := tab.Run(ctx,
		chromedp.Navigate(leaf.URL),
		chromedp.WaitReady("#"+leafMarkerID, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf("(() => { %s; return true; })()", script), &discard),
		chromedp.WaitReady("#"+sectionContainerID, chromedp.ByQuery),
		chromedp.Location(&currentURL),
		chromedp.Evaluate(scanSectionJS, &divs),
	)
	if err != nil {
		return crawl.Record{}, fmt.Errorf("california: extract %s: %w", leaf.URL, err)
	}

	rec, err := buildRecord(currentURL, divs)
	if err != nil {
		return crawl.Record{}, err
	}
	return rec, nil
}

// headingLevels maps the label prefix of an indented div to its level in
// the code hierarchy, most specific prefix first.
var headingLevels = []struct {
	prefix string
	level  string
}{
	{"TITLE", "title"},
	{"DIVISION", "division"},
	{"PART", "part"},
	{"CHAPTER", "chapter"},
	{"ARTICLE", "article"},
	{"GENERAL PROVISIONS", "provisions"},
	{"PROVISIONS", "provisions"},
}

// buildRecord classifies the scanned divs into the heading chain, the
// section number, and the law text. It is pure so the classification
// rules stay testable without a browser.
func buildRecord(pageURL string, divs []sectionDiv) (crawl.Record, error) {
	rec := crawl.Record{
		URL:          pageURL,
		Jurisdiction: Jurisdiction,
		CollectedAt:  time.Now().UTC(),
	}

	for _, div := range divs {
		switch {
		case div.TextTransform == "uppercase":
			rec.Headings = append(rec.Headings, crawl.Heading{Level: "code", Text: div.Text})
		case indented(div.TextIndent) || div.Display == "inline":
			level := classifyLabel(div.Text)
			if level == "" {
				rec.Headings = append(rec.Headings, crawl.Heading{Level: "unknown", Text: div.Text})
				continue
			}
			rec.Headings = append(rec.Headings, crawl.Heading{Level: level, Text: div.Bold, Note: div.Italic})
		default:
			rec.Section = div.H6
			if div.Italic != "" {
				rec.Headings = append(rec.Headings, crawl.Heading{Level: "section-note", Text: div.H6, Note: div.Italic})
			}
			rec.Text = strings.Join(div.Paragraphs, "\n")
		}
	}

	if rec.Text == "" {
		// The postback landed on a page without law text; retrying the
		// same script will not change that.
		return crawl.Record{}, retry.Permanent(fmt.Errorf("california: no law text at %s", pageURL))
	}
	rec.Key = sha256.Key(rec.URL, rec.Text)
	return rec, nil
}

func indented(textIndent string) bool {
	return textIndent != "" && textIndent != "0px"
}

func classifyLabel(text string) string {
	for _, hl := range headingLevels {
		if strings.HasPrefix(text, hl.prefix) {
			return hl.level
		}
	}
	return ""
}
