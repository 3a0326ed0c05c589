package epub

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Cover detects and returns the cover image using multiple strategies.
// Strategies are tried in priority order:
//  1. manifest item with properties="cover-image"
//  2. legacy <meta name="cover" content="ID"/>, either the image itself or
//     an XHTML cover page whose first <img> is used
//  3. manifest item whose ID or path contains "cover" with image/* media-type
//  4. first spine item's XHTML → first <img>
//
// Returns ErrNoCover if no strategy succeeds.
func (d *Document) Cover() (CoverImage, error) {
	strategies := []func() (ManifestItem, bool){
		d.coverFromManifestProperties,
		d.coverFromMetaCover,
		d.coverFromManifestHeuristic,
		d.coverFromFirstSpine,
	}
	for _, find := range strategies {
		if item, ok := find(); ok {
			return d.loadCoverImage(item)
		}
	}
	return CoverImage{}, ErrNoCover
}

func (d *Document) coverFromManifestProperties() (ManifestItem, bool) {
	for _, id := range d.manifestOrder {
		if item := d.manifest[id]; item.HasProperty("cover-image") {
			return item, true
		}
	}
	return ManifestItem{}, false
}

func (d *Document) coverFromMetaCover() (ManifestItem, bool) {
	for _, m := range d.metadata {
		if !strings.EqualFold(m.Property, "cover") || m.Value == "" {
			continue
		}
		item, ok := d.manifest[m.Value]
		if !ok {
			continue
		}
		if isImageMediaType(item.MediaType) {
			return item, true
		}
		// Non-image item: treat it as an XHTML cover page.
		if img, ok := d.firstImageOf(item); ok {
			return img, true
		}
	}
	return ManifestItem{}, false
}

func (d *Document) coverFromManifestHeuristic() (ManifestItem, bool) {
	for _, id := range d.manifestOrder {
		item := d.manifest[id]
		if !isImageMediaType(item.MediaType) {
			continue
		}
		if containsFold(item.ID, "cover") || containsFold(item.Path, "cover") {
			return item, true
		}
	}
	return ManifestItem{}, false
}

func (d *Document) coverFromFirstSpine() (ManifestItem, bool) {
	if len(d.spine) == 0 {
		return ManifestItem{}, false
	}
	item, ok := d.manifest[d.spine[0].IDRef]
	if !ok {
		return ManifestItem{}, false
	}
	return d.firstImageOf(item)
}

// firstImageOf reads an XHTML page and resolves its first image to a manifest
// image item.
func (d *Document) firstImageOf(page ManifestItem) (ManifestItem, bool) {
	data, err := d.readResource(page.Path)
	if err != nil {
		return ManifestItem{}, false
	}
	src := findFirstImageInHTML(data)
	if src == "" {
		return ManifestItem{}, false
	}
	imgPath, err := NormalizePath(dirOf(page.Path), hrefWithoutFragment(src))
	if err != nil {
		return ManifestItem{}, false
	}
	for _, id := range d.manifestOrder {
		item := d.manifest[id]
		if isImageMediaType(item.MediaType) && strings.EqualFold(item.Path, imgPath) {
			return item, true
		}
	}
	return ManifestItem{}, false
}

func (d *Document) loadCoverImage(item ManifestItem) (CoverImage, error) {
	data, err := d.readResource(item.Path)
	if err != nil {
		return CoverImage{}, err
	}
	return CoverImage{
		Path:      item.Path,
		MediaType: item.MediaType,
		Data:      data,
	}, nil
}

// findFirstImageInHTML returns the raw src of the first <img>, or the href of
// the first SVG <image>, in htmlData. It returns "" when there is none.
func findFirstImageInHTML(htmlData []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(htmlData))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			if !hasAttr {
				continue
			}
			var keys []string
			switch atom.Lookup(tn) {
			case atom.Img:
				keys = []string{"src"}
			case atom.Image:
				keys = []string{"href", "xlink:href"}
			default:
				continue
			}
			for {
				key, val, more := tokenizer.TagAttr()
				k := string(key)
				for _, want := range keys {
					if k == want && len(val) > 0 {
						return string(val)
					}
				}
				if !more {
					break
				}
			}
		}
	}
}

// isImageMediaType returns true if the media type starts with "image/".
func isImageMediaType(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}

// containsFold reports whether s contains substr, case-insensitively.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
