package epub

import (
	"encoding/xml"
	"strings"
	"text/template"
)

const mimetypeContent = MediaTypeEPUB

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
   <rootfiles>
      <rootfile full-path="content.opf" media-type="application/oebps-package+xml"/>
   </rootfiles>
</container>`

const pageStylesCSS = `@page {
  margin-bottom: 5pt;
  margin-top: 5pt;
}`

const stylesheetCSS = `.calibre {
  display: block;
  font-size: 1em;
  padding-left: 0;
  padding-right: 0;
  margin: 0 5pt;
}
.calibre1 {
  display: block;
  margin: 0 0;
}
.calibre2 {
  height: auto;
  width: auto;
}`

var templateFuncs = template.FuncMap{
	"xml": escapeXML,
}

var contentTemplate = template.Must(template.New("index.html").Funcs(templateFuncs).Parse(
	`<?xml version='1.0' encoding='utf-8'?>
<html xmlns="http://www.w3.org/1999/xhtml" lang="{{xml .Language}}" xml:lang="{{xml .Language}}">
  <head>
    <title>{{xml .Title}}</title>
    <meta name="generator" content="{{xml .Generator}}"/>
{{- if .Creator}}
    <meta name="author" content="{{xml .Creator}}"/>
{{- end}}
    <meta name="date" content="{{.Date}}"/>
    <meta http-equiv="Content-Type" content="text/html; charset=utf-8"/>
    <link rel="stylesheet" type="text/css" href="stylesheet.css"/>
    <link rel="stylesheet" type="text/css" href="page_styles.css"/>
  </head>
  <body class="calibre">
{{- range .Images}}
<p class="calibre1"><a id="p{{.Index}}"></a><img src="{{.Href}}" alt="Image {{.Index}}" class="calibre2"/></p>
<p class="calibre1"></p>
{{- end}}
  </body>
</html>`))

var ncxTemplate = template.Must(template.New("toc.ncx").Funcs(templateFuncs).Parse(
	`<?xml version='1.0' encoding='utf-8'?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1" xml:lang="{{xml .Language}}">
  <head>
    <meta name="dtb:uid" content="{{xml .Identifier}}"/>
    <meta name="dtb:depth" content="2"/>
    <meta name="dtb:generator" content="{{xml .Generator}}"/>
    <meta name="dtb:totalPageCount" content="0"/>
    <meta name="dtb:maxPageNumber" content="0"/>
  </head>
  <docTitle>
    <text>{{xml .Title}}</text>
  </docTitle>
  <navMap>
    <navPoint id="start" playOrder="1">
      <navLabel>
        <text>Start</text>
      </navLabel>
      <content src="{{.ContentHref}}"/>
    </navPoint>
  </navMap>
</ncx>`))

var opfTemplate = template.Must(template.New("content.opf").Funcs(templateFuncs).Parse(
	`<?xml version='1.0' encoding='utf-8'?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="uuid_id">
  <metadata xmlns:opf="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:language>{{xml .Language}}</dc:language>
    <dc:title>{{xml .Title}}</dc:title>
{{- if .Creator}}
    <dc:creator opf:file-as="{{xml .Creator}}" opf:role="aut">{{xml .Creator}}</dc:creator>
{{- end}}
    <dc:date>{{.Date}}</dc:date>
    <dc:identifier id="uuid_id" opf:scheme="uuid">{{xml .Identifier}}</dc:identifier>
    <meta name="generator" content="{{xml .Generator}}"/>
  </metadata>
  <manifest>
{{- range .Manifest}}
    <item id="{{xml .ID}}" href="{{xml .Href}}" media-type="{{xml .MediaType}}"/>
{{- end}}
  </manifest>
  <spine toc="{{.NCXID}}">
{{- range .Spine}}
    <itemref idref="{{xml .}}"/>
{{- end}}
  </spine>
</package>`))

// templateData feeds every generated document of a bundle
type templateData struct {
	Title       string
	Language    string
	Creator     string
	Generator   string
	Date        string
	Identifier  string
	ContentHref string
	NCXID       string
	Images      []imageRef
	Manifest    []ManifestItem
	Spine       []string
}

type imageRef struct {
	Index int
	Href  string
}

func escapeXML(s string) string {
	var b strings.Builder
	// strings.Builder never returns a write error
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
