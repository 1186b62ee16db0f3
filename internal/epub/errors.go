package epub

import "errors"

var (
	// Reading
	ErrInvalidMimetype    = errors.New("invalid mimetype: must be 'application/epub+zip'")
	ErrMimetypeCompressed = errors.New("mimetype must not be compressed")
	ErrMimetypeNotFound   = errors.New("mimetype file not found")
	ErrMimetypeNotFirst   = errors.New("mimetype must be the first archive entry")
	ErrContainerNotFound  = errors.New("META-INF/container.xml not found")
	ErrOPFPathNotFound    = errors.New("OPF path not found in container.xml")
	ErrInvalidPackage     = errors.New("invalid EPUB package")

	// Writing
	ErrAssembly  = errors.New("failed to assemble EPUB")
	ErrPackaging = errors.New("failed to package EPUB")
)
