package epub

// Media types used in the package document
const (
	MediaTypeEPUB  = "application/epub+zip"
	MediaTypeOPF   = "application/oebps-package+xml"
	MediaTypeXHTML = "application/xhtml+xml"
	MediaTypeJPEG  = "image/jpeg"
	MediaTypeCSS   = "text/css"
	MediaTypeNCX   = "application/x-dtbncx+xml"
)

// OPF represents the parsed Open Package Format document
type OPF struct {
	Version       string
	UniqueID      string
	Metadata      Metadata
	Manifest      map[string]ManifestItem // id -> item
	ManifestOrder []string                // ids in document order
	Spine         []SpineItem
	SpineTOC      string // idref of the NCX item
	NCXPath       string
}

// Metadata represents the metadata section of the OPF
type Metadata struct {
	Title      string
	Creators   []Creator
	Language   string
	Identifier string
	Scheme     string // opf:scheme of the unique identifier
	Date       string
	Generator  string
}

// Creator represents a creator (author, editor, etc.) of the book
type Creator struct {
	Name   string
	Role   string // e.g., "aut" for author
	FileAs string
}

// ManifestItem represents an item in the manifest
type ManifestItem struct {
	ID        string
	Href      string
	MediaType string
}

// SpineItem represents an item reference in the spine
type SpineItem struct {
	IDRef  string
	Linear bool
}
