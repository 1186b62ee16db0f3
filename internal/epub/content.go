package epub

import (
	"bytes"
	"fmt"
	"path"

	"github.com/PuerkitoBio/goquery"
)

// Content represents a parsed XHTML content file
type Content struct {
	ID        string            // Manifest ID
	Path      string            // File path
	Document  *goquery.Document // Parsed HTML document
	Title     string
	CSSLinks  []string // Referenced CSS file paths
	ImageRefs []string // Referenced image paths, in document order
	Anchors   []string // id attributes of <a> elements, in document order
}

// LoadContent loads and parses an XHTML content file
// id: manifest item ID
// filePath: file path within EPUB (used for relative path resolution)
// content: XHTML file content
func LoadContent(id, filePath string, content []byte) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse XHTML: %w", err)
	}

	c := &Content{
		ID:        id,
		Path:      filePath,
		Document:  doc,
		Title:     doc.Find("head title").First().Text(),
		CSSLinks:  []string{},
		ImageRefs: []string{},
		Anchors:   []string{},
	}

	baseDir := path.Dir(filePath)

	doc.Find("link[rel='stylesheet']").Each(func(i int, s *goquery.Selection) {
		if href, exists := s.Attr("href"); exists {
			c.CSSLinks = append(c.CSSLinks, resolvePath(baseDir, href))
		}
	})

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		if src, exists := s.Attr("src"); exists {
			c.ImageRefs = append(c.ImageRefs, resolvePath(baseDir, src))
		}
	})

	doc.Find("a[id]").Each(func(i int, s *goquery.Selection) {
		c.Anchors = append(c.Anchors, s.AttrOr("id", ""))
	})

	return c, nil
}

// resolvePath resolves a relative path against a base directory
// baseDir: base directory (e.g., "text" for "text/chapter1.xhtml")
// relPath: relative path (e.g., "../images/photo.jpg")
// returns: resolved path (e.g., "images/photo.jpg")
func resolvePath(baseDir, relPath string) string {
	return path.Clean(path.Join(baseDir, relPath))
}
