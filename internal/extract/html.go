package extract

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// paragraphText parses an HTML document and joins the text of all
// paragraph elements with newlines. Whitespace inside a paragraph is
// collapsed to single spaces, and paragraphs that are empty after
// collapsing are dropped.
func paragraphText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var paragraphs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "p" {
			if text := strings.Join(strings.Fields(nodeText(n)), " "); text != "" {
				paragraphs = append(paragraphs, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(paragraphs, "\n"), nil
}

// nodeText concatenates every text node under n.
func nodeText(n *html.Node) string {
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
