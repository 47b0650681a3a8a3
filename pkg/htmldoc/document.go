// Package htmldoc extracts the comparable content of a rendered paper:
// its embedded images in document order and its visible text as tokens.
package htmldoc

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TokenKind classifies a text token
type TokenKind int

const (
	// Word is a run of visible non-space characters
	Word TokenKind = iota
	// Boundary separates block-level content
	Boundary
	// Anchor marks the position of an embedded image
	Anchor
)

// Token is one unit of visible content
type Token struct {
	Kind TokenKind
	Text string
	// Image is the 1-based image index of an Anchor token
	Image int
}

// Image is one embedded image reference
type Image struct {
	// Index is the 1-based position in document order
	Index int
	Src   string
	Alt   string
}

// Document is the parsed, comparable content of an HTML page
type Document struct {
	Title  string
	Images []Image
	Tokens []Token
}

// skipped elements never contribute text or images
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Iframe:   true,
	atom.Object:   true,
}

// block elements separate the text around them
var block = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Caption: true, atom.Dd: true, atom.Details: true, atom.Div: true,
	atom.Dl: true, atom.Dt: true, atom.Figcaption: true, atom.Figure: true,
	atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true, atom.Hr: true,
	atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true, atom.P: true,
	atom.Pre: true, atom.Section: true, atom.Summary: true, atom.Table: true,
	atom.Tbody: true, atom.Td: true, atom.Tfoot: true, atom.Th: true, atom.Thead: true,
	atom.Tr: true, atom.Ul: true,
}

// Parse reads an HTML document
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc := &Document{}
	var pending strings.Builder

	// flush turns the text gathered since the last boundary into words,
	// so inline markup never splits or joins words
	flush := func() {
		for _, word := range strings.FieldsFunc(pending.String(), unicode.IsSpace) {
			doc.Tokens = append(doc.Tokens, Token{Kind: Word, Text: word})
		}
		pending.Reset()
	}
	boundary := func() {
		flush()
		doc.boundary()
	}

	var walk func(*html.Node, bool)
	walk = func(n *html.Node, inBody bool) {
		if n.Type == html.ElementNode {
			if n.DataAtom == atom.Head {
				doc.Title = strings.Join(strings.Fields(titleOf(n)), " ")
				return
			}
			if skipped[n.DataAtom] {
				return
			}
			if n.DataAtom == atom.Body {
				inBody = true
			}
			if n.DataAtom == atom.Img {
				if src := strings.TrimSpace(getAttr(n, "src")); src != "" {
					img := Image{Index: len(doc.Images) + 1, Src: src, Alt: getAttr(n, "alt")}
					doc.Images = append(doc.Images, img)
					boundary()
					doc.Tokens = append(doc.Tokens, Token{Kind: Anchor, Image: img.Index})
					doc.boundary()
				}
				return
			}
			if block[n.DataAtom] {
				boundary()
			}
		}

		if n.Type == html.TextNode && inBody {
			pending.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody)
		}

		if n.Type == html.ElementNode && block[n.DataAtom] {
			boundary()
		}
	}
	walk(root, false)
	flush()
	doc.trim()

	return doc, nil
}

// ParseBytes parses an in-memory HTML document
func ParseBytes(data []byte) (*Document, error) {
	return Parse(bytes.NewReader(data))
}

// Text returns the visible words joined by single spaces,
// with block boundaries rendered as newlines
func (d *Document) Text() string {
	var b strings.Builder
	sep := ""
	for _, t := range d.Tokens {
		switch t.Kind {
		case Word:
			b.WriteString(sep)
			b.WriteString(t.Text)
			sep = " "
		case Boundary:
			if b.Len() > 0 {
				sep = "\n"
			}
		}
	}
	return b.String()
}

// Words returns the number of word tokens
func (d *Document) Words() int {
	n := 0
	for _, t := range d.Tokens {
		if t.Kind == Word {
			n++
		}
	}
	return n
}

// boundary appends a Boundary unless the stream is empty or already ends in one
func (d *Document) boundary() {
	if len(d.Tokens) == 0 || d.Tokens[len(d.Tokens)-1].Kind == Boundary {
		return
	}
	d.Tokens = append(d.Tokens, Token{Kind: Boundary})
}

// trim drops a trailing boundary so equal content yields equal streams
func (d *Document) trim() {
	if n := len(d.Tokens); n > 0 && d.Tokens[n-1].Kind == Boundary {
		d.Tokens = d.Tokens[:n-1]
	}
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// titleOf returns the text of the first <title> below n
func titleOf(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		var b strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
		return b.String()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := titleOf(c); t != "" {
			return t
		}
	}
	return ""
}
