package epub

import (
	"fmt"
	"strings"

	"github.com/antchfx/xpath"

	"github.com/simp-lee/epub/v2/internal/xmltree"
)

// encryptionFilePath is the standard path for the encryption descriptor.
const encryptionFilePath = "META-INF/encryption.xml"

// sinfFilePath is the path that indicates Apple FairPlay DRM.
const sinfFilePath = "META-INF/sinf.xml"

// Font obfuscation algorithm URIs.
const (
	IDPFObfuscationMethod  = "http://www.idpf.org/2008/embedding"
	AdobeObfuscationMethod = "http://ns.adobe.com/pdf/enc#RC"
)

// Known DRM namespace prefixes found in KeyInfo child elements or algorithm URIs.
var drmSignatures = []string{
	"http://ns.adobe.com/adept",      // Adobe ADEPT
	"http://readium.org/2014/01/lcp", // Readium LCP
}

var (
	encryptedDataExpr    = xpath.MustCompile("//*[local-name()='EncryptedData']")
	encryptionMethodExpr = xpath.MustCompile("./*[local-name()='EncryptionMethod']")
	cipherReferenceExpr  = xpath.MustCompile(".//*[local-name()='CipherReference']")
	keyInfoExpr          = xpath.MustCompile(".//*[local-name()='KeyInfo']")
)

// encryptionRecord is an EncryptionData plus the hints used to classify it.
type encryptionRecord struct {
	EncryptionData
	keyInfo string
}

// parseEncryption reads every EncryptedData record of encryption.xml. Cipher
// reference URIs are relative to the container root.
func parseEncryption(data []byte) ([]encryptionRecord, error) {
	root, err := xmltree.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("epub: parse encryption.xml: %w", err)
	}

	nodes := root.Select(encryptedDataExpr)
	records := make([]encryptionRecord, 0, len(nodes))
	for _, n := range nodes {
		method := n.SelectFirst(encryptionMethodExpr)
		if method == nil {
			return nil, &NonCanonicalError{Tag: "EncryptionMethod"}
		}
		algorithm, ok := method.Attr("Algorithm")
		if !ok {
			return nil, &MissingAttributeError{Tag: "EncryptionMethod", Attribute: "Algorithm"}
		}

		ref := n.SelectFirst(cipherReferenceExpr)
		if ref == nil {
			return nil, &NonCanonicalError{Tag: "CipherReference"}
		}
		uri, ok := ref.Attr("URI")
		if !ok {
			return nil, &MissingAttributeError{Tag: "CipherReference", Attribute: "URI"}
		}
		p, err := NormalizePath("", strings.TrimSpace(uri))
		if err != nil {
			return nil, err
		}

		rec := encryptionRecord{EncryptionData: EncryptionData{
			Method: strings.TrimSpace(algorithm),
			Path:   p,
		}}
		if ki := n.SelectFirst(keyInfoExpr); ki != nil {
			rec.keyInfo = ki.XML()
		}
		records = append(records, rec)
	}
	return records, nil
}

// isObfuscationMethod reports whether method is one of the two font
// obfuscation algorithms this package can reverse.
func isObfuscationMethod(method string) bool {
	return method == IDPFObfuscationMethod || method == AdobeObfuscationMethod
}

// drmWarning describes a record whose content cannot be read back, or
// returns "" for font obfuscation.
func (r encryptionRecord) drmWarning() string {
	if isObfuscationMethod(r.Method) {
		return ""
	}
	for _, sig := range drmSignatures {
		if strings.Contains(r.Method, sig) || strings.Contains(r.keyInfo, sig) {
			return fmt.Sprintf("resource %s is DRM protected (%s)", r.Path, sig)
		}
	}
	return fmt.Sprintf("resource %s is encrypted with unsupported method %s", r.Path, r.Method)
}

// deobfuscate reverses the transform named by method using the
// publication's unique identifier as key.
func deobfuscate(method string, data []byte, uid string) ([]byte, error) {
	switch method {
	case IDPFObfuscationMethod:
		return IDPFObfuscate(data, uid), nil
	case AdobeObfuscationMethod:
		return AdobeObfuscate(data, uid), nil
	default:
		return nil, &UnsupportedEncryptionError{Method: method}
	}
}
