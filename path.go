package epub

import (
	"path"
	"strings"
)

// NormalizePath converts ref, a reference found in a document located in
// baseDir, into a path relative to the container root.
//
// A leading run of "../" segments pops that many components off baseDir;
// popping past the root fails with a *LinkLeakageError naming ref. A leading
// "/" makes ref root-relative. Anything else is joined to baseDir. The
// result is cleaned and must stay inside the container.
//
// baseDir is itself container-root-relative; "" and "." both denote the
// root.
func NormalizePath(baseDir, ref string) (string, error) {
	dir := cleanDir(baseDir)

	var joined string
	switch {
	case strings.HasPrefix(ref, "../"):
		rest := ref
		depth := 0
		for strings.HasPrefix(rest, "../") {
			depth++
			rest = rest[len("../"):]
		}
		parts := splitDir(dir)
		if depth > len(parts) {
			return "", &LinkLeakageError{Path: ref}
		}
		joined = path.Join(append(parts[:len(parts)-depth:len(parts)-depth], rest)...)
	case strings.HasPrefix(ref, "/"):
		joined = strings.TrimLeft(ref, "/")
	default:
		joined = path.Join(dir, ref)
	}

	cleaned := path.Clean(joined)
	if cleaned == "." {
		cleaned = ""
	}
	if !isSafePath(cleaned) {
		return "", &LinkLeakageError{Path: ref}
	}
	return cleaned, nil
}

// relativeHref is the inverse of NormalizePath: it returns the href that a
// document in baseDir uses to reach the container-root-relative target.
func relativeHref(baseDir, target string) string {
	dir := cleanDir(baseDir)
	if dir == "" {
		return target
	}
	from := splitDir(dir)
	to := strings.Split(target, "/")

	common := 0
	for common < len(from) && common < len(to)-1 && from[common] == to[common] {
		common++
	}

	var sb strings.Builder
	for range from[common:] {
		sb.WriteString("../")
	}
	sb.WriteString(strings.Join(to[common:], "/"))
	return sb.String()
}

// isSafePath checks whether p is a safe ZIP-internal path that does not
// escape the archive root via path traversal (e.g., "../../../etc/passwd").
func isSafePath(p string) bool {
	if p == "" {
		return true
	}
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	return true
}

// dirOf returns the container-root-relative directory of p, "" for the root.
func dirOf(p string) string {
	return cleanDir(path.Dir(p))
}

func cleanDir(dir string) string {
	dir = strings.Trim(path.Clean("/"+dir), "/")
	return dir
}

func splitDir(dir string) []string {
	if dir == "" {
		return nil
	}
	return strings.Split(dir, "/")
}

// hrefWithoutFragment returns the href with the fragment (#...) removed.
func hrefWithoutFragment(href string) string {
	if idx := strings.IndexByte(href, '#'); idx >= 0 {
		return href[:idx]
	}
	return href
}
