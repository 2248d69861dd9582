package goquery

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/newsgrab"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// Ensure Segmenter implements newsgrab.Segmenter at compile time.
var _ newsgrab.Segmenter = (*Segmenter)(nil)

// DefaultExclude lists the boilerplate removed from every article body:
// share bars, related posts, comments, author boxes and tables of contents.
var DefaultExclude = []string{
	"script", "style", "noscript", "iframe", "form", "nav", "aside", "footer",
	".share", ".sharedaddy", ".social-share",
	".related", ".related-posts",
	".comments", "#comments", ".comment-respond",
	".author-box",
	".toc", "#toc", ".ez-toc-container", "#ez-toc-container",
}

// DefaultImageSelectors match the image constructs of common CMS markup.
var DefaultImageSelectors = []string{"figure", "div.wp-block-image", "img"}

// DefaultBlockedHosts are ad and tracking hosts whose images are dropped.
var DefaultBlockedHosts = []string{
	"doubleclick.net",
	"googlesyndication.com",
	"googleadservices.com",
	"google-analytics.com",
	"googletagmanager.com",
	"facebook.com",
	"yektanet.com",
	"mediaad.org",
	"tapsell.ir",
	"adivery.com",
}

// alwaysExcluded never carries article text.
var alwaysExcluded = []string{"script", "style", "noscript", "template"}

var (
	placeholderRe = regexp.MustCompile(`\*\*IMAGE_PLACEHOLDER_img\d+\*\*`)
	strictPolicy  = bluemonday.StrictPolicy()
)

// Segmenter turns article body markup into an ordered content map.
//
// Processing runs in a fixed order: paragraph balancing, removal of the
// excluded elements, blockquote cleanup, image placeholder substitution
// and the segmentation walk.
type Segmenter struct {
	// Exclude lists selectors removed before segmentation.
	// Defaults to DefaultExclude when nil.
	Exclude []string

	// ImageSelectors match image-bearing constructs.
	// Defaults to DefaultImageSelectors when nil.
	ImageSelectors []string

	// BlockedHosts lists hosts (and their subdomains) whose images are
	// dropped. Defaults to DefaultBlockedHosts when nil.
	BlockedHosts []string
}

// NewSegmenter creates a Segmenter for a site. Site selectors extend the
// defaults.
func NewSegmenter(site *newsgrab.Site) *Segmenter {
	s := &Segmenter{
		Exclude:        DefaultExclude,
		ImageSelectors: DefaultImageSelectors,
		BlockedHosts:   DefaultBlockedHosts,
	}
	if site == nil {
		return s
	}
	if len(site.Exclude) > 0 {
		s.Exclude = append(append([]string{}, DefaultExclude...), site.Exclude...)
	}
	if len(site.ImageSelectors) > 0 {
		s.ImageSelectors = site.ImageSelectors
	}
	return s
}

// Segment balances, cleans and segments bodyHTML. Image sources are
// resolved against baseURL before they are deduplicated.
func (s *Segmenter) Segment(bodyHTML, baseURL string) (*newsgrab.SegmentResult, error) {
	var base *url.URL
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, newsgrab.Errorf(newsgrab.EINVALID, "invalid base URL %q: %v", baseURL, err)
		}
		base = u
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(Balance(bodyHTML)))
	if err != nil {
		return nil, newsgrab.Errorf(newsgrab.EEXTRACT, "parsing body: %v", err)
	}
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	removeAll(root, alwaysExcluded)
	removeAll(root, s.exclude())
	inlineBlockquotes(root)
	images, placeholders := s.replaceImages(root, base)

	w := &walker{counters: make(map[string]int), placeholders: placeholders}
	for _, n := range root.Nodes {
		w.walk(n, false)
	}

	if images == nil {
		images = []*newsgrab.Image{}
	}
	return &newsgrab.SegmentResult{Content: w.content, Images: images}, nil
}

func (s *Segmenter) exclude() []string {
	if s.Exclude == nil {
		return DefaultExclude
	}
	return s.Exclude
}

func (s *Segmenter) imageSelectors() []string {
	if s.ImageSelectors == nil {
		return DefaultImageSelectors
	}
	return s.ImageSelectors
}

func (s *Segmenter) blockedHosts() []string {
	if s.BlockedHosts == nil {
		return DefaultBlockedHosts
	}
	return s.BlockedHosts
}

func removeAll(root *goquery.Selection, selectors []string) {
	for _, sel := range selectors {
		root.Find(sel).Remove()
	}
}

// inlineBlockquotes replaces links and bold text inside blockquotes with
// their text plus a trailing space, then unwraps paragraphs so a quote
// never contributes top-level paragraphs.
func inlineBlockquotes(root *goquery.Selection) {
	for {
		inline := root.Find("blockquote a, blockquote strong, blockquote b").First()
		if inline.Length() == 0 {
			break
		}
		inline.ReplaceWithNodes(&html.Node{Type: html.TextNode, Data: inline.Text() + " "})
	}
	for {
		p := root.Find("blockquote p").First()
		if p.Length() == 0 {
			break
		}
		p.ReplaceWithSelection(p.Contents())
	}
}

// replaceImages swaps every distinct image construct for a placeholder
// figure and returns the images in placeholder order along with the
// inserted placeholder nodes. Constructs inside blockquotes stay part of
// the quote markup.
func (s *Segmenter) replaceImages(root *goquery.Selection, base *url.URL) ([]*newsgrab.Image, map[*html.Node]string) {
	var images []*newsgrab.Image
	placeholders := make(map[*html.Node]string)
	seen := make(map[string]bool)

	root.Find(strings.Join(s.imageSelectors(), ", ")).Each(func(_ int, c *goquery.Selection) {
		if !attached(c.Nodes[0]) || c.Closest("blockquote").Length() > 0 {
			return
		}
		img := c
		if goquery.NodeName(c) != "img" {
			img = c.Find("img").First()
		}
		if img.Length() == 0 {
			return
		}

		src := resolve(base, ImageSource(img))
		if src == "" || s.blocked(src) || seen[src] {
			c.Remove()
			return
		}
		seen[src] = true

		id := "img" + strconv.Itoa(len(images))
		images = append(images, &newsgrab.Image{
			ID:      id,
			URL:     src,
			Caption: caption(c),
			Type:    imageType(c),
		})
		node := placeholderNode(id)
		placeholders[node] = id
		c.ReplaceWithNodes(node)
	})
	return images, placeholders
}

func (s *Segmenter) blocked(src string) bool {
	if strings.HasPrefix(src, "data:") {
		return true
	}
	u, err := url.Parse(src)
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range s.blockedHosts() {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// ImageSource returns the best source URL of an img element, preferring
// lazy-loading attributes over src and skipping data: URLs when a real
// URL exists.
func ImageSource(img *goquery.Selection) string {
	var fallback string
	for _, attr := range []string{"data-lazy-src", "data-src", "data-original", "src"} {
		v := strings.TrimSpace(img.AttrOr(attr, ""))
		if v == "" {
			continue
		}
		if !strings.HasPrefix(v, "data:") {
			return v
		}
		fallback = v
	}
	for _, attr := range []string{"data-lazy-srcset", "data-srcset", "srcset"} {
		if v := firstSrcsetURL(img.AttrOr(attr, "")); v != "" && !strings.HasPrefix(v, "data:") {
			return v
		}
	}
	return fallback
}

func firstSrcsetURL(srcset string) string {
	first, _, _ := strings.Cut(srcset, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func caption(c *goquery.Selection) string {
	fc := c.Find("figcaption").First()
	if fc.Length() == 0 {
		return ""
	}
	inner, err := fc.Html()
	if err != nil {
		return ""
	}
	return CleanText(html.UnescapeString(strictPolicy.Sanitize(inner)))
}

func imageType(c *goquery.Selection) newsgrab.ImageType {
	if goquery.NodeName(c) == "figure" || c.Find("figure, figcaption").Length() > 0 {
		return newsgrab.ImageFigure
	}
	return newsgrab.ImageInline
}

func placeholderNode(id string) *html.Node {
	fig := &html.Node{Type: html.ElementNode, Data: "figure", DataAtom: atom.Figure}
	fig.AppendChild(&html.Node{Type: html.TextNode, Data: newsgrab.Placeholder(id)})
	return fig
}

// attached reports whether n is still part of a document.
func attached(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n.Type == html.DocumentNode {
			return true
		}
	}
	return false
}

// walker emits content keys in document order. Only the figures inserted
// by replaceImages become image keys.
type walker struct {
	content      newsgrab.Content
	counters     map[string]int
	placeholders map[*html.Node]string
}

// walk visits the element children of n. Once a text block has been
// emitted its descendants only contribute placeholder figures.
func (w *walker) walk(n *html.Node, consumed bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Figure:
			if id, ok := w.placeholders[c]; ok {
				w.content.Set(id, newsgrab.Placeholder(id))
				continue
			}
			w.walk(c, consumed)
		case atom.Blockquote:
			if !consumed && textOf(c) != "" {
				w.content.Set(w.next("blockquote"), innerHTML(c))
			}
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			if !consumed {
				w.emitText(c.Data+"_", c)
			}
			w.walk(c, true)
		case atom.P, atom.Li:
			if !consumed {
				w.emitText(c.Data, c)
			}
			w.walk(c, true)
		default:
			w.walk(c, consumed)
		}
	}
}

func (w *walker) emitText(prefix string, n *html.Node) {
	if text := textOf(n); text != "" {
		w.content.Set(w.next(prefix), text)
	}
}

func (w *walker) next(prefix string) string {
	k := prefix + strconv.Itoa(w.counters[prefix])
	w.counters[prefix]++
	return k
}

// textOf joins the text nodes under n with single spaces and removes
// image placeholders.
func textOf(n *html.Node) string {
	var parts []string
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return CleanText(placeholderRe.ReplaceAllString(strings.Join(parts, " "), " "))
}

func innerHTML(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

// CleanText applies NFKC normalization and collapses whitespace.
func CleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}
