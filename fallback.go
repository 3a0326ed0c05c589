package epub

import (
	"slices"
	"strings"
)

// ValidateFallbackChain follows the fallback links starting at id. It fails
// with a *CircularFallbackError when an id repeats and with a
// *FallbackNotFoundError when a fallback target is not in manifest. A chain
// ends successfully at an item without a fallback.
//
// The function has no side effects; callers decide whether a failure is a
// warning or fatal.
func ValidateFallbackChain(manifest map[string]ManifestItem, id string) error {
	var visited []string
	current := id
	for {
		if slices.Contains(visited, current) {
			return &CircularFallbackError{Chain: append(visited, current)}
		}
		visited = append(visited, current)

		item, ok := manifest[current]
		if !ok {
			prev := id
			if len(visited) > 1 {
				prev = visited[len(visited)-2]
			}
			return &FallbackNotFoundError{ID: prev, Fallback: current}
		}
		if item.Fallback == "" {
			return nil
		}
		current = item.Fallback
	}
}

// ValidateFallbackChains validates the chain of every item that declares a
// fallback, visiting ids in the given order, and returns every failure.
func ValidateFallbackChains(manifest map[string]ManifestItem, order []string) []error {
	var errs []error
	for _, id := range order {
		item, ok := manifest[id]
		if !ok || item.Fallback == "" {
			continue
		}
		if err := ValidateFallbackChain(manifest, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// resolveFallback walks the fallback chain from id and returns the first item
// whose media type is in accept. Media types compare case-insensitively and
// ignore parameters.
func resolveFallback(manifest map[string]ManifestItem, id string, accept []string) (ManifestItem, error) {
	item, ok := manifest[id]
	if !ok {
		return ManifestItem{}, &ResourceIDError{ID: id}
	}

	var visited []string
	for {
		if slices.Contains(visited, item.ID) {
			return ManifestItem{}, &CircularFallbackError{Chain: append(visited, item.ID)}
		}
		visited = append(visited, item.ID)

		if mediaTypeAccepted(item.MediaType, accept) {
			return item, nil
		}
		if item.Fallback == "" {
			return ManifestItem{}, ErrNoSupportedFormat
		}
		next, ok := manifest[item.Fallback]
		if !ok {
			return ManifestItem{}, &FallbackNotFoundError{ID: item.ID, Fallback: item.Fallback}
		}
		item = next
	}
}

func mediaTypeAccepted(mediaType string, accept []string) bool {
	mt := baseMediaType(mediaType)
	for _, a := range accept {
		if baseMediaType(a) == mt {
			return true
		}
	}
	return false
}

func baseMediaType(mt string) string {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return strings.ToLower(strings.TrimSpace(mt))
}
