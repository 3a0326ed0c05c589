package epub

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func encryptionXML(records ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<encryption xmlns="urn:oasis:names:tc:opendocument:xmlns:container"
            xmlns:enc="http://www.w3.org/2001/04/xmlenc#">` + strings.Join(records, "") + `</encryption>`
}

func encryptedData(method, uri, keyInfo string) string {
	return `<enc:EncryptedData>
  <enc:EncryptionMethod Algorithm="` + method + `"/>` + keyInfo + `
  <enc:CipherData><enc:CipherReference URI="` + uri + `"/></enc:CipherData>
</enc:EncryptedData>`
}

func TestParseEncryption(t *testing.T) {
	data := encryptionXML(
		encryptedData(IDPFObfuscationMethod, "OEBPS/fonts/a.otf", ""),
		encryptedData(AdobeObfuscationMethod, "/OEBPS/fonts/b.otf", ""),
	)
	records, err := parseEncryption([]byte(data))
	if err != nil {
		t.Fatalf("parseEncryption() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records; want 2", len(records))
	}
	if records[0].Method != IDPFObfuscationMethod || records[0].Path != "OEBPS/fonts/a.otf" {
		t.Errorf("records[0] = %+v", records[0].EncryptionData)
	}
	if records[1].Path != "OEBPS/fonts/b.otf" {
		t.Errorf("records[1].Path = %q; want OEBPS/fonts/b.otf", records[1].Path)
	}
	for _, r := range records {
		if w := r.drmWarning(); w != "" {
			t.Errorf("obfuscation record produced warning %q", w)
		}
	}
}

func TestParseEncryption_Errors(t *testing.T) {
	tests := []struct {
		name    string
		xml     string
		wantErr error
	}{
		{
			name:    "missing algorithm",
			xml:     encryptionXML(`<enc:EncryptedData><enc:EncryptionMethod/><enc:CipherData><enc:CipherReference URI="a"/></enc:CipherData></enc:EncryptedData>`),
			wantErr: ErrMissingAttribute,
		},
		{
			name:    "missing method",
			xml:     encryptionXML(`<enc:EncryptedData><enc:CipherData><enc:CipherReference URI="a"/></enc:CipherData></enc:EncryptedData>`),
			wantErr: ErrNonCanonical,
		},
		{
			name:    "missing uri",
			xml:     encryptionXML(`<enc:EncryptedData><enc:EncryptionMethod Algorithm="x"/><enc:CipherData><enc:CipherReference/></enc:CipherData></enc:EncryptedData>`),
			wantErr: ErrMissingAttribute,
		},
		{
			name:    "uri escapes container",
			xml:     encryptionXML(encryptedData(IDPFObfuscationMethod, "../evil.otf", "")),
			wantErr: ErrLinkLeakage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseEncryption([]byte(tt.xml)); !errors.Is(err, tt.wantErr) {
				t.Errorf("parseEncryption() error = %v; want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncryptionRecord_DRMWarning(t *testing.T) {
	adept := encryptionRecord{
		EncryptionData: EncryptionData{Method: "http://www.w3.org/2001/04/xmlenc#aes128-cbc", Path: "OEBPS/ch1.xhtml"},
		keyInfo:        `<KeyInfo xmlns="http://www.w3.org/2000/09/xmldsig#"><resource xmlns="http://ns.adobe.com/adept">x</resource></KeyInfo>`,
	}
	if w := adept.drmWarning(); !strings.Contains(w, "DRM") {
		t.Errorf("adept warning = %q; want DRM mention", w)
	}

	plain := encryptionRecord{EncryptionData: EncryptionData{Method: "urn:custom", Path: "a"}}
	if w := plain.drmWarning(); !strings.Contains(w, "unsupported method") {
		t.Errorf("custom warning = %q; want unsupported method", w)
	}
}

func TestDeobfuscate_Unsupported(t *testing.T) {
	_, err := deobfuscate("urn:custom", []byte("x"), "uid")
	var ue *UnsupportedEncryptionError
	if !errors.As(err, &ue) || ue.Method != "urn:custom" {
		t.Fatalf("deobfuscate() error = %v; want *UnsupportedEncryptionError", err)
	}
}

func TestDocument_ObfuscatedFont(t *testing.T) {
	uid := "urn:uuid:0b7d5c4e-8c1f-4b2a-9d3e-1f2a3b4c5d6e"
	font := bytes.Repeat([]byte("OTTO font data "), 100)

	files := v3Files()
	files["OEBPS/content.opf"] = strings.Replace(testPackageV3,
		`<item id="css"`,
		`<item id="font" href="fonts/a.otf" media-type="font/otf"/>
    <item id="css"`, 1)
	files["OEBPS/fonts/a.otf"] = string(IDPFObfuscate(font, uid))
	files["META-INF/encryption.xml"] = encryptionXML(encryptedData(IDPFObfuscationMethod, "OEBPS/fonts/a.otf", ""))

	doc := openTestDocument(t, files)
	if !doc.HasEncryption() {
		t.Fatal("HasEncryption() = false; want true")
	}
	if len(doc.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", doc.Warnings())
	}

	res, err := doc.Resource("font")
	if err != nil {
		t.Fatalf("Resource() error = %v", err)
	}
	if !bytes.Equal(res.Data, font) {
		t.Error("Resource() did not return the deobfuscated font")
	}

	raw, err := doc.ReadFile("OEBPS/fonts/a.otf")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if bytes.Equal(raw, font) {
		t.Error("ReadFile() returned deobfuscated bytes; want raw bytes")
	}
}

func TestDocument_UnsupportedEncryption(t *testing.T) {
	files := v3Files()
	files["META-INF/encryption.xml"] = encryptionXML(encryptedData("http://www.w3.org/2001/04/xmlenc#aes128-cbc", "OEBPS/text/ch2.xhtml", ""))

	doc := openTestDocument(t, files)
	if len(doc.Warnings()) == 0 {
		t.Error("expected a warning for the encrypted resource")
	}
	if _, err := doc.Resource("ch2"); !errors.Is(err, ErrUnsupportedEncryption) {
		t.Errorf("Resource(ch2) error = %v; want ErrUnsupportedEncryption", err)
	}
	if _, err := doc.Resource("ch1"); err != nil {
		t.Errorf("Resource(ch1) error = %v", err)
	}
}

func TestDocument_SinfWarning(t *testing.T) {
	files := v3Files()
	files["META-INF/sinf.xml"] = "<sinf/>"

	doc := openTestDocument(t, files)
	found := false
	for _, w := range doc.Warnings() {
		if strings.Contains(w, "FairPlay") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings %v; want a FairPlay warning", doc.Warnings())
	}
}
