package epub

import (
	"fmt"
	"path"
	"strings"
)

// Report summarizes a verified EPUB
type Report struct {
	Path       string
	Title      string
	Identifier string
	Entries    int
	Manifest   int
	Images     int // <img> references across spine documents
	Problems   []string
}

// OK reports whether no problems were found
func (r *Report) OK() bool {
	return len(r.Problems) == 0
}

func (r *Report) addf(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Verify opens an EPUB and checks the package invariants:
//   - mimetype is the first, stored entry with the exact content (see Open)
//   - every manifest item and spine reference resolves to an archive entry
//   - every archive entry besides mimetype and container.xml is in the manifest
//   - the NCX exists, parses and points at existing documents
//   - every image referenced by a spine document exists
//
// Structural errors that prevent reading the package are returned directly
// Invariant violations are collected in the report and returned as an
// error wrapping ErrInvalidPackage
func Verify(epubPath string) (*Report, error) {
	r, err := Open(epubPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	report := &Report{Path: epubPath, Entries: len(r.Names())}

	opfData, err := r.ReadFile(r.OPFPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read OPF: %w", err)
	}
	opfDir := path.Dir(r.OPFPath())
	opf, err := ParseOPF(opfData, opfDir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OPF: %w", err)
	}

	report.Title = opf.Metadata.Title
	report.Identifier = opf.Metadata.Identifier
	report.Manifest = len(opf.Manifest)

	referenced := map[string]struct{}{
		MimetypePath:  {},
		ContainerPath: {},
		r.OPFPath():   {},
	}
	for _, item := range opf.Items() {
		referenced[item.Href] = struct{}{}
		if !r.Has(item.Href) {
			report.addf("manifest item %q references missing entry %q", item.ID, item.Href)
		}
	}
	for _, name := range r.Names() {
		if strings.HasSuffix(name, "/") {
			continue
		}
		if _, ok := referenced[name]; !ok {
			report.addf("archive entry %q is not listed in the manifest", name)
		}
	}

	if len(opf.Spine) == 0 {
		report.addf("spine is empty")
	}
	for _, ref := range opf.Spine {
		item, ok := opf.Manifest[ref.IDRef]
		if !ok {
			report.addf("spine references unknown id %q", ref.IDRef)
			continue
		}
		if item.MediaType != MediaTypeXHTML || !r.Has(item.Href) {
			continue
		}
		verifyContent(r, item, report)
	}

	verifyNCX(r, opf, report)

	if !report.OK() {
		return report, fmt.Errorf("%w: %s", ErrInvalidPackage, strings.Join(report.Problems, "; "))
	}
	return report, nil
}

func verifyContent(r *Reader, item ManifestItem, report *Report) {
	data, err := r.ReadFile(item.Href)
	if err != nil {
		report.addf("failed to read %q: %v", item.Href, err)
		return
	}
	content, err := LoadContent(item.ID, item.Href, data)
	if err != nil {
		report.addf("failed to parse %q: %v", item.Href, err)
		return
	}

	report.Images += len(content.ImageRefs)
	for _, ref := range content.ImageRefs {
		if !r.Has(ref) {
			report.addf("%q references missing image %q", item.Href, ref)
		}
	}
	for _, css := range content.CSSLinks {
		if !r.Has(css) {
			report.addf("%q references missing stylesheet %q", item.Href, css)
		}
	}
}

func verifyNCX(r *Reader, opf *OPF, report *Report) {
	if opf.SpineTOC == "" {
		report.addf("spine has no toc attribute")
		return
	}
	if opf.NCXPath == "" {
		report.addf("spine toc %q is not in the manifest", opf.SpineTOC)
		return
	}

	data, err := r.ReadFile(opf.NCXPath)
	if err != nil {
		// already reported as a missing manifest entry
		return
	}
	ncx, err := ParseNCX(data, path.Dir(opf.NCXPath))
	if err != nil {
		report.addf("failed to parse NCX: %v", err)
		return
	}
	if ncx.UID != opf.Metadata.Identifier {
		report.addf("NCX uid %q does not match package identifier %q", ncx.UID, opf.Metadata.Identifier)
	}
	if len(ncx.NavPoints) == 0 {
		report.addf("NCX has no navigation points")
	}

	var walk func(points []NavPoint)
	walk = func(points []NavPoint) {
		for _, p := range points {
			if p.ContentPath != "" && !r.Has(p.ContentPath) {
				report.addf("NCX navPoint %q points at missing %q", p.ID, p.ContentPath)
			}
			walk(p.Children)
		}
	}
	walk(ncx.NavPoints)
}
