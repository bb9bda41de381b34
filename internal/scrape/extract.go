// Package scrape implements the background ingestion pipeline: fetch a
// tracked page, extract article records from its HTML, embed each record,
// and upsert it into the vector index. The Supervisor owns one loop per
// tracked URL and keeps ingestion failures away from the request path.
package scrape

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/davrd/semsearch/internal/search"
)

// Extract parses rawHTML and returns one article record per <article>
// element that carries the expected structure: a headline in the first <h2>,
// a link in the first <a href>, and a summary in the first <p>. Elements
// missing any of the three are skipped. A page with no usable articles
// yields an empty slice — that is a content observation, not an error.
func Extract(rawHTML []byte) ([]search.Article, error) {
	doc, err := html.Parse(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("scrape: parse html: %w", err)
	}

	var articles []search.Article
	for _, node := range findAll(doc, atom.Article) {
		a, ok := articleFromNode(node)
		if !ok {
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// articleFromNode builds an Article from one <article> element.
// Returns false when the element lacks a title, link, or summary.
func articleFromNode(node *html.Node) (search.Article, bool) {
	a := search.Article{}

	if h2 := findFirst(node, atom.H2); h2 != nil {
		a.Title = strings.TrimSpace(collectText(h2))
	}
	if link := findFirst(node, atom.A); link != nil {
		a.Link = strings.TrimSpace(attr(link, "href"))
	}
	if p := findFirst(node, atom.P); p != nil {
		a.Summary = strings.TrimSpace(collectText(p))
	}

	if a.Title == "" || a.Link == "" || a.Summary == "" {
		return search.Article{}, false
	}
	return a, true
}

// findAll returns every element of the given tag under root, in document order.
func findAll(root *html.Node, tag atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == tag {
			out = append(out, n)
			// Nested same-tag elements are not treated as separate records.
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// findFirst returns the first element of the given tag under root, or nil.
func findFirst(root *html.Node, tag atom.Atom) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == tag {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return found
}

// collectText concatenates all text nodes under n.
func collectText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// attr returns the value of the named attribute on n, or empty string.
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
