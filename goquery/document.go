package goquery

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/wikifuse"
	"golang.org/x/net/html"
)

// MaxDocumentSize is the largest page accepted by ParseDocument.
const MaxDocumentSize = 10 << 20

// Document is a parsed page. It is safe for concurrent reads.
type Document struct {
	root *html.Node
	doc  *goquery.Document

	textOnce sync.Once
	text     string
}

// ParseDocument parses page content. Returns EPARSE if the content is empty,
// too large, not valid UTF-8 or binary.
func ParseDocument(content string) (*Document, error) {
	if strings.TrimSpace(content) == "" {
		return nil, wikifuse.Errorf(wikifuse.EPARSE, "empty document")
	}
	if len(content) > MaxDocumentSize {
		return nil, wikifuse.Errorf(wikifuse.EPARSE, "document exceeds %d bytes", MaxDocumentSize)
	}
	if !utf8.ValidString(content) {
		return nil, wikifuse.Errorf(wikifuse.EPARSE, "document is not valid UTF-8")
	}
	if strings.IndexByte(content, 0) >= 0 {
		return nil, wikifuse.Errorf(wikifuse.EPARSE, "document contains binary data")
	}

	root, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, wikifuse.Errorf(wikifuse.EPARSE, "failed to parse HTML: %v", err)
	}

	return &Document{
		root: root,
		doc:  goquery.NewDocumentFromNode(root),
	}, nil
}

// Text returns the whitespace-collapsed text of the document body.
func (d *Document) Text() string {
	d.textOnce.Do(func() {
		body := d.doc.Find("body").Clone()
		body.Find("script, style, noscript").Remove()
		d.text = strings.Join(strings.Fields(body.Text()), " ")
	})
	return d.text
}
