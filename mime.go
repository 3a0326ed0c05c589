package epub

import (
	"path"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// mimeRefinement upgrades a generic sniffed type to the precise type implied
// by a file extension.
type mimeRefinement struct {
	sniffed []string
	result  string
}

var (
	xmlLike  = []string{"text/xml", "application/xml", "text/html", "text/plain", "application/xhtml+xml"}
	textLike = []string{"text/plain", "application/octet-stream"}
)

// mimeRefinements is keyed by lowercase extension without the dot.
var mimeRefinements = map[string]mimeRefinement{
	"xhtml": {sniffed: xmlLike, result: "application/xhtml+xml"},
	"xht":   {sniffed: xmlLike, result: "application/xhtml+xml"},
	"opf":   {sniffed: xmlLike, result: "application/oebps-package+xml"},
	"ncx":   {sniffed: xmlLike, result: "application/x-dtbncx+xml"},
	"epub":  {sniffed: []string{"application/zip", "application/epub+zip"}, result: "application/epub+zip"},
	"css":   {sniffed: textLike, result: "text/css"},
	"js":    {sniffed: append([]string{"text/javascript", "application/javascript"}, textLike...), result: "application/javascript"},
	"json":  {sniffed: append([]string{"application/json"}, textLike...), result: "application/json"},
	"svg":   {sniffed: append([]string{"image/svg+xml"}, xmlLike...), result: "image/svg+xml"},
}

// detectMediaType classifies data by its magic signature and refines the
// guess with name's extension. It fails with an *UnknownFileFormatError when
// neither gives a usable type.
func detectMediaType(data []byte, name string) (string, error) {
	sniffed := baseMediaType(mimetype.Detect(data).String())
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))

	if r, ok := mimeRefinements[ext]; ok && slices.Contains(r.sniffed, sniffed) {
		return r.result, nil
	}
	if sniffed == "" || sniffed == "application/octet-stream" {
		return "", &UnknownFileFormatError{Path: name}
	}
	return sniffed, nil
}
