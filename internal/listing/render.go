package listing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// Renderer writes listing pages.
type Renderer struct {
	// Readme is the file name looked up in each listed directory and rendered
	// as Markdown below the entries (e.g. "README.md"). Empty disables it.
	Readme string

	logger *slog.Logger
	md     goldmark.Markdown
}

// NewRenderer returns a Renderer. readme may be empty. A README that exists
// but cannot be rendered is reported to logger and left out of the page.
func NewRenderer(readme string, logger *slog.Logger) *Renderer {
	return &Renderer{
		Readme: readme,
		logger: logger,
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Render writes the listing page of dir, requested as requestPath, to w.
//
// Each entry becomes a link to requestPath joined with its name. Directory
// links and labels carry a trailing slash.
func (r *Renderer) Render(w io.Writer, dir, requestPath string, entries []Entry) error {
	list := element(atom.Ul)
	for _, e := range entries {
		list.AppendChild(entryItem(requestPath, e))
	}

	body := element(atom.Body)
	h1 := element(atom.H1)
	h1.AppendChild(text(Title))
	body.AppendChild(h1)
	body.AppendChild(list)

	readme, err := r.readme(dir, body)
	if err != nil {
		r.logger.Warn("skipping readme", "dir", dir, "error", err)
	} else if readme != nil {
		body.AppendChild(readme)
	}

	title := element(atom.Title)
	title.AppendChild(text(Title))
	meta := element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"})
	head := element(atom.Head)
	head.AppendChild(meta)
	head.AppendChild(title)

	root := element(atom.Html)
	root.AppendChild(head)
	root.AppendChild(body)

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	doc.AppendChild(root)

	return html.Render(w, doc)
}

// entryItem builds <li><a href="...">name</a> <span class="size">...</span></li>.
func entryItem(requestPath string, e Entry) *html.Node {
	href := path.Join(requestPath, e.Name)
	label := norm.NFC.String(e.Name)
	if e.IsDir {
		href += "/"
		label += "/"
	}

	a := element(atom.A, html.Attribute{Key: "href", Val: (&url.URL{Path: href}).EscapedPath()})
	a.AppendChild(text(label))

	li := element(atom.Li)
	li.AppendChild(a)
	if !e.IsDir {
		size := element(atom.Span, html.Attribute{Key: "class", Val: "size"})
		size.AppendChild(text(humanize.IBytes(uint64(e.Size))))
		li.AppendChild(text(" "))
		li.AppendChild(size)
	}
	return li
}

// readme renders the configured README of dir, or returns nil when there is none.
func (r *Renderer) readme(dir string, context *html.Node) (*html.Node, error) {
	if r.Readme == "" {
		return nil, nil
	}

	src, err := os.ReadFile(filepath.Join(dir, r.Readme))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.Readme, err)
	}

	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", r.Readme, err)
	}

	nodes, err := html.ParseFragment(&buf, context)
	if err != nil {
		return nil, fmt.Errorf("parse rendered %s: %w", r.Readme, err)
	}

	section := element(atom.Section, html.Attribute{Key: "class", Val: "readme"})
	for _, n := range nodes {
		section.AppendChild(n)
	}
	return section, nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
