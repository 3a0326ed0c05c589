package epub

import "crypto/sha1"

const (
	idpfKeyLength    = 1040
	adobeKeyLength   = 16
	adobeObfuscation = 1024
)

// IDPFObfuscate applies the IDPF font obfuscation transform keyed by the
// publication's unique identifier. The transform is its own inverse.
//
// The key is the SHA-1 digest of uid repeated to 1040 bytes; the first
// min(1040, len(data)) bytes are XORed with it. data is not modified.
func IDPFObfuscate(data []byte, uid string) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	if len(out) == 0 {
		return out
	}

	digest := sha1.Sum([]byte(uid))
	n := min(idpfKeyLength, len(out))
	for i := range n {
		out[i] ^= digest[i%len(digest)]
	}
	return out
}

// AdobeObfuscate applies the Adobe font obfuscation transform keyed by the
// publication's unique identifier. The transform is its own inverse.
//
// The key is the bytes of uid repeated to 16 bytes; the first
// min(1024, len(data)) bytes are XORed with key[i%16]. An empty uid leaves
// the data unchanged. data is not modified.
func AdobeObfuscate(data []byte, uid string) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	if len(out) == 0 || uid == "" {
		return out
	}

	var key [adobeKeyLength]byte
	for i := range key {
		key[i] = uid[i%len(uid)]
	}
	n := min(adobeObfuscation, len(out))
	for i := range n {
		out[i] ^= key[i%adobeKeyLength]
	}
	return out
}
