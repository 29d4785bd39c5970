// Package books resolves configured book names to their text sources.
package books

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// ErrUnknownBook reports a book name with no configured source. This
// is a configuration error and fatal at chunking time.
var ErrUnknownBook = errors.New("unknown book name")

// Library maps book names to source paths. Plain-text sources are read
// as-is; HTML sources (Project Gutenberg exports and the like) are
// stripped to their visible text before chunking.
type Library struct {
	sources map[string]string
}

// NewLibrary creates a library over the configured name-to-path map.
func NewLibrary(sources map[string]string) *Library {
	return &Library{sources: sources}
}

// Names returns the configured book names, sorted.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.sources))
	for name := range l.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the source path for a book name.
func (l *Library) Resolve(name string) (string, error) {
	path, ok := l.sources[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownBook, name)
	}
	return path, nil
}

// Open resolves a book name and returns a reader over its text
// content, with HTML sources already stripped.
func (l *Library) Open(name string) (io.ReadCloser, error) {
	path, err := l.Resolve(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open book source: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		defer func() { _ = f.Close() }()
		doc, err := html.Parse(f)
		if err != nil {
			return nil, fmt.Errorf("parse html source %s: %w", path, err)
		}
		return io.NopCloser(strings.NewReader(visibleText(doc))), nil
	default:
		return f, nil
	}
}

// visibleText extracts text nodes from HTML, skipping scripts/styles.
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}
