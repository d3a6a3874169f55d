package scraper

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/doulist-movies/internal/movie"
)

// ErrMalformedItem marks a listing item whose markup lacks a required block.
var ErrMalformedItem = errors.New("malformed listing item")

// ParsedPage is the result of parsing one listing page.
type ParsedPage struct {
	Items     []movie.Item
	Malformed []error
}

// Containers returns how many item blocks were found, parseable or not.
func (p ParsedPage) Containers() int {
	return len(p.Items) + len(p.Malformed)
}

// ParsePage extracts every div.doulist-item from a listing page body.
func ParsePage(body []byte) (ParsedPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ParsedPage{}, fmt.Errorf("parse listing html: %w", err)
	}
	var page ParsedPage
	doc.Find("div.doulist-item").Each(func(i int, sel *goquery.Selection) {
		item, err := ParseItem(sel)
		if err != nil {
			page.Malformed = append(page.Malformed, fmt.Errorf("item %d: %w", i, err))
			return
		}
		page.Items = append(page.Items, item)
	})
	return page, nil
}

// ParseItem reads one div.doulist-item. Missing optional parts become empty
// strings; a missing actions block or a poster without src is malformed.
func ParseItem(sel *goquery.Selection) (movie.Item, error) {
	var item movie.Item

	item.Title = strings.TrimSpace(sel.Find("div.title").First().Find("a").First().Text())
	item.Rating = strings.TrimSpace(sel.Find("span.rating_nums").First().Text())

	if img := sel.Find("div.post").First().Find("img").First(); img.Length() > 0 {
		src, ok := img.Attr("src")
		if !ok {
			return movie.Item{}, fmt.Errorf("%w: poster image has no src (title %q)", ErrMalformedItem, item.Title)
		}
		item.Image = src
	}

	if abstract := sel.Find("div.abstract").First(); abstract.Length() > 0 {
		item.Abstract = strings.Join(strippedStrings(abstract), "\n")
	}

	actions := sel.Find("div.actions").First()
	if actions.Length() == 0 {
		return movie.Item{}, fmt.Errorf("%w: missing actions block (title %q)", ErrMalformedItem, item.Title)
	}
	item.Time = strings.TrimSpace(actions.Find("time.time").First().Text())

	return item, nil
}

// strippedStrings returns every descendant text node, trimmed, with blank
// nodes dropped, in document order.
func strippedStrings(sel *goquery.Selection) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				out = append(out, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return out
}
