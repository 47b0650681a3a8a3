package compare

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/o2r-project/erc-checker/pkg/htmldoc"
)

// CSS classes of the annotated text fragment
const (
	DeletedClass  = "erc-del"
	InsertedClass = "erc-ins"
)

// ImageMarker returns the placeholder standing for image n in a text fragment
func ImageMarker(n int) string {
	return "<!--erc-image:" + strconv.Itoa(n) + "-->"
}

// TextComparator diffs the visible words of two HTML documents.
// Markup and whitespace never count as differences.
type TextComparator struct{}

// NewTextComparator creates a text comparator
func NewTextComparator() *TextComparator {
	return &TextComparator{}
}

// Name returns the comparator name
func (c *TextComparator) Name() string {
	return "text"
}

// Compare parses both documents and diffs their token streams
func (c *TextComparator) Compare(ctx context.Context, original, reproduced []byte) (*TextCompareResult, error) {
	origDoc, err := htmldoc.ParseBytes(original)
	if err != nil {
		return nil, fmt.Errorf("original document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reprDoc, err := htmldoc.ParseBytes(reproduced)
	if err != nil {
		return nil, fmt.Errorf("reproduced document: %w", err)
	}
	return DiffTokens(origDoc.Tokens, reprDoc.Tokens), nil
}

// DiffTokens diffs two token streams.
// Only words and image anchors take part in the diff; block boundaries
// are kept aside and only place line breaks in the fragment.
// Differences counts maximal runs of changed tokens whose deleted and
// inserted words differ.
func DiffTokens(original, reproduced []htmldoc.Token) *TextCompareResult {
	origContent, origBreaks := splitBoundaries(original)
	reprContent, reprBreaks := splitBoundaries(reproduced)

	enc := newTokenEncoder()
	a := enc.encode(origContent)
	b := enc.encode(reprContent)

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0 // deterministic output regardless of machine speed
	diffs := dmp.DiffMainRunes(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	res := &TextCompareResult{}
	w := newFragmentWriter()
	var ch change
	ia, ib := 0, 0

	for _, d := range diffs {
		n := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if ch.differs() {
				res.Differences++
			}
			ch = change{}
			w.write(origContent[ia:ia+n], origBreaks[ia:ia+n], "")
			ia += n
			ib += n
		case diffmatchpatch.DiffDelete:
			ch.deleted = appendWords(ch.deleted, origContent[ia:ia+n])
			w.write(origContent[ia:ia+n], origBreaks[ia:ia+n], DeletedClass)
			ia += n
		case diffmatchpatch.DiffInsert:
			ch.inserted = appendWords(ch.inserted, reprContent[ib:ib+n])
			w.write(reprContent[ib:ib+n], reprBreaks[ib:ib+n], InsertedClass)
			ib += n
		}
	}
	if ch.differs() {
		res.Differences++
	}

	res.Fragment = w.String()
	return res
}

// splitBoundaries drops Boundary tokens and marks the tokens that followed one
func splitBoundaries(tokens []htmldoc.Token) ([]htmldoc.Token, []bool) {
	content := make([]htmldoc.Token, 0, len(tokens))
	breaks := make([]bool, 0, len(tokens))
	pending := false
	for _, t := range tokens {
		if t.Kind == htmldoc.Boundary {
			pending = true
			continue
		}
		content = append(content, t)
		breaks = append(breaks, pending)
		pending = false
	}
	return content, breaks
}

// change collects the words of one run of deletions and insertions
type change struct {
	deleted  []string
	inserted []string
}

func (c change) differs() bool {
	if len(c.deleted) != len(c.inserted) {
		return true
	}
	for i := range c.deleted {
		if c.deleted[i] != c.inserted[i] {
			return true
		}
	}
	return false
}

func appendWords(words []string, tokens []htmldoc.Token) []string {
	for _, t := range tokens {
		if t.Kind == htmldoc.Word {
			words = append(words, t.Text)
		}
	}
	return words
}

// tokenEncoder maps each distinct token to one rune so that the
// character-level diff works on whole tokens
type tokenEncoder struct {
	runes map[string]rune
	next  rune
}

func newTokenEncoder() *tokenEncoder {
	return &tokenEncoder{runes: make(map[string]rune), next: 0x100}
}

func (e *tokenEncoder) encode(tokens []htmldoc.Token) []rune {
	out := make([]rune, len(tokens))
	for i, t := range tokens {
		key := tokenKey(t)
		r, ok := e.runes[key]
		if !ok {
			r = e.next
			e.next++
			if e.next == 0xD800 {
				// surrogates are not valid runes
				e.next = 0xE000
			}
			e.runes[key] = r
		}
		out[i] = r
	}
	return out
}

func tokenKey(t htmldoc.Token) string {
	switch t.Kind {
	case htmldoc.Anchor:
		return "a" + strconv.Itoa(t.Image)
	default:
		return "w" + t.Text
	}
}

// fragmentWriter renders tokens as annotated HTML.
// Each image marker is written once even when both sides carry it.
type fragmentWriter struct {
	b         strings.Builder
	open      string
	needSpace bool
	atBreak   bool
	images    map[int]bool
}

func newFragmentWriter() *fragmentWriter {
	return &fragmentWriter{images: make(map[int]bool)}
}

// write renders tokens; breaks[i] puts a line break before tokens[i]
func (w *fragmentWriter) write(tokens []htmldoc.Token, breaks []bool, class string) {
	for i, t := range tokens {
		if breaks[i] {
			w.lineBreak()
		}
		switch t.Kind {
		case htmldoc.Word:
			if w.open != class {
				w.close()
				if w.needSpace {
					w.b.WriteByte(' ')
					w.needSpace = false
				}
				if class != "" {
					w.b.WriteString(`<` + tagOf(class) + ` class="` + class + `">`)
					w.open = class
				}
			} else if w.needSpace {
				w.b.WriteByte(' ')
			}
			w.b.WriteString(html.EscapeString(t.Text))
			w.needSpace = true
			w.atBreak = false
		case htmldoc.Anchor:
			w.close()
			if !w.images[t.Image] {
				w.images[t.Image] = true
				w.b.WriteString(ImageMarker(t.Image))
				w.atBreak = false
			}
			w.needSpace = false
		}
	}
}

// lineBreak writes one <br> unless the fragment is empty or already ends in one
func (w *fragmentWriter) lineBreak() {
	if w.atBreak || w.b.Len() == 0 {
		return
	}
	w.close()
	w.b.WriteString("<br>\n")
	w.needSpace = false
	w.atBreak = true
}

func (w *fragmentWriter) close() {
	if w.open != "" {
		w.b.WriteString("</" + tagOf(w.open) + ">")
		w.open = ""
	}
}

func (w *fragmentWriter) String() string {
	w.close()
	return w.b.String()
}

func tagOf(class string) string {
	if class == DeletedClass {
		return "del"
	}
	return "ins"
}
