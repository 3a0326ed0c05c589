package epub

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

const testContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testPackageV3 = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="pub-id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="pub-id">urn:uuid:0b7d5c4e-8c1f-4b2a-9d3e-1f2a3b4c5d6e</dc:identifier>
    <dc:title id="t1">Test Book</dc:title>
    <dc:language>en</dc:language>
    <dc:creator id="c1">Jane Doe</dc:creator>
    <meta refines="#c1" property="role" scheme="marc:relators">aut</meta>
    <meta refines="#c1" property="file-as">Doe, Jane</meta>
    <meta property="dcterms:modified">2024-01-01T00:00:00Z</meta>
    <link rel="record" href="meta/record.xml" media-type="application/marcxml+xml"/>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="css" href="style.css" media-type="text/css"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`

const testNavXHTML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Navigation</title></head>
<body>
  <nav epub:type="toc">
    <h1>Contents</h1>
    <ol>
      <li><a href="text/ch1.xhtml">Chapter 1</a>
        <ol>
          <li><a href="text/ch1.xhtml#s1">Section 1.1</a></li>
        </ol>
      </li>
      <li><a href="text/ch2.xhtml">Chapter 2</a></li>
    </ol>
  </nav>
</body>
</html>`

const testChapter1 = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>One</title></head>
<body><h1 id="s1">Chapter 1</h1><p>First.</p></body></html>`

const testChapter2 = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>Two</title></head>
<body><h1>Chapter 2</h1><p>Second.</p></body></html>`

const testPackageV2 = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="BookId">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Legacy Book</dc:title>
    <dc:creator id="author" opf:role="aut" opf:file-as="Smith, John">John Smith</dc:creator>
    <dc:language>en</dc:language>
    <dc:identifier id="BookId" opf:scheme="ISBN">9780000000000</dc:identifier>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="ch1" href="ch1.html" media-type="application/xhtml+xml"/>
    <item id="cover-img" href="images/cover.jpg" media-type="image/jpeg"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="ch1"/>
  </spine>
</package>`

const testNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head/>
  <docTitle><text>Legacy Book</text></docTitle>
  <navMap>
    <navPoint id="p2" playOrder="2">
      <navLabel><text>Second</text></navLabel>
      <content src="ch1.html#b"/>
    </navPoint>
    <navPoint id="p1" playOrder="1">
      <navLabel><text>First</text></navLabel>
      <content src="ch1.html"/>
      <navPoint id="p1a" playOrder="3">
        <navLabel><text>Nested</text></navLabel>
        <content src="ch1.html#n"/>
      </navPoint>
    </navPoint>
  </navMap>
</ncx>`

// testJPEG is a JPEG signature followed by filler; enough for sniffing.
var testJPEG = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, bytes.Repeat([]byte{0x42}, 64)...)

// v3Files returns a small, valid modern publication.
func v3Files() map[string]string {
	return map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      testPackageV3,
		"OEBPS/nav.xhtml":        testNavXHTML,
		"OEBPS/text/ch1.xhtml":   testChapter1,
		"OEBPS/text/ch2.xhtml":   testChapter2,
		"OEBPS/style.css":        "body { margin: 0; }",
	}
}

// v2Files returns a small, valid legacy publication.
func v2Files() map[string]string {
	return map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf":      testPackageV2,
		"OEBPS/toc.ncx":          testNCX,
		"OEBPS/ch1.html":         `<html><body><p id="b">Hello</p><p id="n">World</p></body></html>`,
		"OEBPS/images/cover.jpg": string(testJPEG),
	}
}

// buildTestEPubBytes writes files into a ZIP archive. The mimetype entry,
// when present, is written first and stored; the rest follow in name order.
func buildTestEPubBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	if mt, ok := files["mimetype"]; ok {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
		if err != nil {
			t.Fatalf("buildTestEPubBytes: create mimetype: %v", err)
		}
		if _, err := io.WriteString(fw, mt); err != nil {
			t.Fatalf("buildTestEPubBytes: write mimetype: %v", err)
		}
	}

	names := make([]string, 0, len(files))
	for name := range files {
		if name != "mimetype" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("buildTestEPubBytes: create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, files[name]); err != nil {
			t.Fatalf("buildTestEPubBytes: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildTestEPubBytes: close writer: %v", err)
	}
	return buf.Bytes()
}

// buildTestZip returns a *zip.Reader over files.
func buildTestZip(t *testing.T, files map[string]string) *zip.Reader {
	t.Helper()
	data := buildTestEPubBytes(t, files)
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("buildTestZip: open reader: %v", err)
	}
	return r
}

// buildTestEPubFile writes files as an archive in a temporary directory and
// returns its path.
func buildTestEPubFile(t *testing.T, files map[string]string) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), "test.epub")
	if err := os.WriteFile(fp, buildTestEPubBytes(t, files), 0o644); err != nil {
		t.Fatalf("buildTestEPubFile: write file: %v", err)
	}
	return fp
}

// openTestDocument parses files in memory.
func openTestDocument(t *testing.T, files map[string]string, opts ...Option) *Document {
	t.Helper()
	data := buildTestEPubBytes(t, files)
	doc, err := NewReader(bytes.NewReader(data), int64(len(data)), opts...)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	t.Cleanup(func() { doc.Close() })
	return doc
}

// openTestDocumentErr parses files in memory and returns the error.
func openTestDocumentErr(t *testing.T, files map[string]string) error {
	t.Helper()
	data := buildTestEPubBytes(t, files)
	doc, err := NewReader(bytes.NewReader(data), int64(len(data)))
	if err == nil {
		doc.Close()
	}
	return err
}

// packageWith returns a v3 package document with the given manifest and
// spine bodies and a fixed metadata block.
func packageWith(manifest, spine string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="pub-id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="pub-id">urn:test</dc:identifier>
    <dc:title>T</dc:title>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>` + manifest + `</manifest>
  <spine>` + spine + `</spine>
</package>`
}
