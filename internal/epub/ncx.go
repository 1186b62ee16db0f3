package epub

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// NCX represents the parsed navigation control structure
type NCX struct {
	UID       string
	Depth     int
	DocTitle  string
	NavPoints []NavPoint
}

// NavPoint represents a single navigation point in the table of contents
type NavPoint struct {
	ID          string
	PlayOrder   int
	Label       string
	ContentPath string // fragment-free, absolute path within EPUB
	Fragment    string // fragment identifier (without #)
	Children    []NavPoint
}

type ncxDocument struct {
	XMLName xml.Name `xml:"ncx"`
	Head    struct {
		Meta []struct {
			Name    string `xml:"name,attr"`
			Content string `xml:"content,attr"`
		} `xml:"meta"`
	} `xml:"head"`
	DocTitle struct {
		Text string `xml:"text"`
	} `xml:"docTitle"`
	NavMap struct {
		NavPoints []ncxNavPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type ncxNavPoint struct {
	ID        string `xml:"id,attr"`
	PlayOrder string `xml:"playOrder,attr"`
	Label     struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

// ParseNCX parses a toc.ncx document. ncxDir is the archive directory of the
// NCX file; content sources are resolved against it
func ParseNCX(content []byte, ncxDir string) (*NCX, error) {
	var doc ncxDocument
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse NCX XML: %w", err)
	}

	ncx := &NCX{DocTitle: strings.TrimSpace(doc.DocTitle.Text)}
	for _, m := range doc.Head.Meta {
		switch m.Name {
		case "dtb:uid":
			ncx.UID = m.Content
		case "dtb:depth":
			ncx.Depth, _ = strconv.Atoi(m.Content)
		}
	}

	ncx.NavPoints = convertNavPoints(doc.NavMap.NavPoints, ncxDir)
	return ncx, nil
}

func convertNavPoints(points []ncxNavPoint, ncxDir string) []NavPoint {
	if len(points) == 0 {
		return nil
	}
	result := make([]NavPoint, 0, len(points))
	for _, p := range points {
		contentPath, fragment := splitFragment(p.Content.Src)
		if contentPath != "" {
			contentPath = joinPath(ncxDir, contentPath)
		}
		order, _ := strconv.Atoi(p.PlayOrder)
		result = append(result, NavPoint{
			ID:          p.ID,
			PlayOrder:   order,
			Label:       strings.TrimSpace(p.Label.Text),
			ContentPath: contentPath,
			Fragment:    fragment,
			Children:    convertNavPoints(p.Children, ncxDir),
		})
	}
	return result
}

// splitFragment splits a source path into the path and fragment identifier
func splitFragment(src string) (path, fragment string) {
	path, fragment, _ = strings.Cut(src, "#")
	return path, fragment
}
