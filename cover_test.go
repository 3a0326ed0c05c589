package epub

import (
	"bytes"
	"errors"
	"testing"
)

func coverFiles(manifest, spine string, extra map[string]string) map[string]string {
	files := map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf": packageWith(`
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>`+manifest, spine),
		"OEBPS/nav.xhtml": `<html><body><nav epub:type="toc"><ol><li><span>x</span></li></ol></nav></body></html>`,
	}
	for k, v := range extra {
		files[k] = v
	}
	return files
}

func TestCover_Strategies(t *testing.T) {
	img := string(testJPEG)
	tests := []struct {
		name     string
		files    map[string]string
		wantPath string
	}{
		{
			name: "cover-image property",
			files: coverFiles(`
    <item id="other" href="images/cover-old.jpg" media-type="image/jpeg"/>
    <item id="img" href="images/front.jpg" media-type="image/jpeg" properties="cover-image"/>`, "",
				map[string]string{"OEBPS/images/front.jpg": img, "OEBPS/images/cover-old.jpg": img}),
			wantPath: "OEBPS/images/front.jpg",
		},
		{
			name: "heuristic by name",
			files: coverFiles(`
    <item id="pic" href="images/pic.jpg" media-type="image/jpeg"/>
    <item id="img" href="images/Cover.jpg" media-type="image/jpeg"/>`, "",
				map[string]string{"OEBPS/images/Cover.jpg": img, "OEBPS/images/pic.jpg": img}),
			wantPath: "OEBPS/images/Cover.jpg",
		},
		{
			name: "first spine page image",
			files: coverFiles(`
    <item id="p1" href="text/p1.xhtml" media-type="application/xhtml+xml"/>
    <item id="img" href="images/front.jpg" media-type="image/jpeg"/>`, `<itemref idref="p1"/>`,
				map[string]string{
					"OEBPS/text/p1.xhtml":    `<html><body><img src="../images/front.jpg" alt=""/></body></html>`,
					"OEBPS/images/front.jpg": img,
				}),
			wantPath: "OEBPS/images/front.jpg",
		},
		{
			name: "svg image element",
			files: coverFiles(`
    <item id="p1" href="p1.xhtml" media-type="application/xhtml+xml"/>
    <item id="img" href="front.jpg" media-type="image/jpeg"/>`, `<itemref idref="p1"/>`,
				map[string]string{
					"OEBPS/p1.xhtml":  `<html><body><svg><image xlink:href="front.jpg"/></svg></body></html>`,
					"OEBPS/front.jpg": img,
				}),
			wantPath: "OEBPS/front.jpg",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := openTestDocument(t, tt.files)
			cover, err := doc.Cover()
			if err != nil {
				t.Fatalf("Cover() error = %v", err)
			}
			if cover.Path != tt.wantPath {
				t.Errorf("Cover().Path = %q; want %q", cover.Path, tt.wantPath)
			}
			if cover.MediaType != "image/jpeg" || !bytes.Equal(cover.Data, testJPEG) {
				t.Errorf("Cover() = %s, %d bytes", cover.MediaType, len(cover.Data))
			}
		})
	}
}

func TestCover_LegacyMeta(t *testing.T) {
	doc := openTestDocument(t, v2Files())
	cover, err := doc.Cover()
	if err != nil {
		t.Fatalf("Cover() error = %v", err)
	}
	if cover.Path != "OEBPS/images/cover.jpg" {
		t.Errorf("Cover().Path = %q", cover.Path)
	}
}

func TestCover_None(t *testing.T) {
	doc := openTestDocument(t, v3Files())
	if _, err := doc.Cover(); !errors.Is(err, ErrNoCover) {
		t.Errorf("Cover() error = %v; want ErrNoCover", err)
	}
}

func TestFindFirstImageInHTML(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"img", `<p><img src="a.png"/></p>`, "a.png"},
		{"first wins", `<img src="a.png"><img src="b.png">`, "a.png"},
		{"svg href", `<svg><image href="c.jpg"/></svg>`, "c.jpg"},
		{"xlink", `<svg><image xlink:href="d.jpg"/></svg>`, "d.jpg"},
		{"empty src skipped", `<img src=""><img src="e.png">`, "e.png"},
		{"none", `<p>text</p>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findFirstImageInHTML([]byte(tt.html)); got != tt.want {
				t.Errorf("findFirstImageInHTML() = %q; want %q", got, tt.want)
			}
		})
	}
}
