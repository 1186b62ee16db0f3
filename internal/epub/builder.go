package epub

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Fixed archive paths and manifest ids of the generated book
const (
	MimetypePath   = "mimetype"
	ContainerPath  = "META-INF/container.xml"
	OPFPath        = "content.opf"
	NCXPath        = "toc.ncx"
	ContentPath    = "index.html"
	PageStylesPath = "page_styles.css"
	StylesheetPath = "stylesheet.css"

	contentID    = "id1"
	pageStylesID = "page_css"
	stylesheetID = "css"
	ncxID        = "ncx"
)

const (
	defaultLanguage  = "en"
	defaultGenerator = "pdf2epub"
)

// File is one named blob of a bundle
type File struct {
	Name string
	Data []byte
}

// Bundle is the in-memory content of an EPUB before it is archived
// Files are in archive order with mimetype first
type Bundle struct {
	Title      string
	Identifier string
	Created    time.Time
	Files      []File

	manifest []ManifestItem
	spine    []string
}

// Manifest returns the OPF manifest entries in document order
func (b *Bundle) Manifest() []ManifestItem {
	return b.manifest
}

// Spine returns the reading order as manifest ids
func (b *Bundle) Spine() []string {
	return b.spine
}

// File returns the content of the named file
func (b *Bundle) File(name string) ([]byte, bool) {
	for _, f := range b.Files {
		if f.Name == name {
			return f.Data, true
		}
	}
	return nil, false
}

// Validate checks the manifest against the files of the bundle
func (b *Bundle) Validate() error {
	if len(b.Files) == 0 || b.Files[0].Name != MimetypePath {
		return fmt.Errorf("%w: first file must be %s", ErrAssembly, MimetypePath)
	}

	names := make(map[string]struct{}, len(b.Files))
	for _, f := range b.Files {
		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("%w: duplicate file %q", ErrAssembly, f.Name)
		}
		names[f.Name] = struct{}{}
	}

	ids := make(map[string]struct{}, len(b.manifest))
	for _, item := range b.manifest {
		if _, dup := ids[item.ID]; dup {
			return fmt.Errorf("%w: duplicate manifest id %q", ErrAssembly, item.ID)
		}
		ids[item.ID] = struct{}{}
		if _, ok := names[item.Href]; !ok {
			return fmt.Errorf("%w: manifest item %q references missing file %q", ErrAssembly, item.ID, item.Href)
		}
	}

	for _, idref := range b.spine {
		if _, ok := ids[idref]; !ok {
			return fmt.Errorf("%w: spine references unknown id %q", ErrAssembly, idref)
		}
	}

	return nil
}

// Builder generates the scaffold, content document and metadata of an
// image-only EPUB 2 book
type Builder struct {
	Language   string
	Creator    string
	Generator  string
	Clock      func() time.Time
	Identifier IdentifierFunc
}

// NewBuilder creates a builder with default metadata, the wall clock and
// timestamp identifiers
func NewBuilder() *Builder {
	return &Builder{
		Language:   defaultLanguage,
		Generator:  defaultGenerator,
		Clock:      time.Now,
		Identifier: TimestampIdentifier,
	}
}

// ImageName returns the archive name of the i-th (1-based) page image
func ImageName(i int) string {
	return fmt.Sprintf("index-%d_1.jpg", i)
}

// Build assembles a bundle whose content document shows images in order
// Images must already be JPEG encoded
func (b *Builder) Build(title string, images [][]byte) (*Bundle, error) {
	now := b.now()
	identifier := b.identifier()(now)
	if strings.TrimSpace(identifier) == "" {
		return nil, fmt.Errorf("%w: empty package identifier", ErrAssembly)
	}

	data := templateData{
		Title:       title,
		Language:    orDefault(b.Language, defaultLanguage),
		Creator:     b.Creator,
		Generator:   orDefault(b.Generator, defaultGenerator),
		Date:        formatDate(now),
		Identifier:  identifier,
		ContentHref: ContentPath,
		NCXID:       ncxID,
		Images:      make([]imageRef, len(images)),
		Spine:       []string{contentID},
	}

	data.Manifest = append(data.Manifest, ManifestItem{ID: contentID, Href: ContentPath, MediaType: MediaTypeXHTML})
	for i := range images {
		ref := imageRef{Index: i + 1, Href: ImageName(i + 1)}
		data.Images[i] = ref
		data.Manifest = append(data.Manifest, ManifestItem{
			ID:        fmt.Sprintf("id%d", i+2),
			Href:      ref.Href,
			MediaType: MediaTypeJPEG,
		})
	}
	data.Manifest = append(data.Manifest,
		ManifestItem{ID: pageStylesID, Href: PageStylesPath, MediaType: MediaTypeCSS},
		ManifestItem{ID: stylesheetID, Href: StylesheetPath, MediaType: MediaTypeCSS},
		ManifestItem{ID: ncxID, Href: NCXPath, MediaType: MediaTypeNCX},
	)

	content, err := render(contentTemplate, data)
	if err != nil {
		return nil, err
	}
	ncx, err := render(ncxTemplate, data)
	if err != nil {
		return nil, err
	}
	opf, err := render(opfTemplate, data)
	if err != nil {
		return nil, err
	}

	files := make([]File, 0, len(images)+7)
	files = append(files,
		File{Name: MimetypePath, Data: []byte(mimetypeContent)},
		File{Name: ContainerPath, Data: []byte(containerXML)},
		File{Name: OPFPath, Data: opf},
		File{Name: NCXPath, Data: ncx},
		File{Name: PageStylesPath, Data: []byte(pageStylesCSS)},
		File{Name: StylesheetPath, Data: []byte(stylesheetCSS)},
		File{Name: ContentPath, Data: content},
	)
	for i, img := range images {
		files = append(files, File{Name: data.Images[i].Href, Data: img})
	}

	bundle := &Bundle{
		Title:      title,
		Identifier: identifier,
		Created:    now,
		Files:      files,
		manifest:   data.Manifest,
		spine:      data.Spine,
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}

	return bundle, nil
}

func (b *Builder) now() time.Time {
	if b.Clock == nil {
		return time.Now()
	}
	return b.Clock()
}

func (b *Builder) identifier() IdentifierFunc {
	if b.Identifier == nil {
		return TimestampIdentifier
	}
	return b.Identifier
}

func render(tmpl *template.Template, data templateData) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: render %s: %w", ErrAssembly, tmpl.Name(), err)
	}
	return buf.Bytes(), nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
