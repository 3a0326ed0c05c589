package epub

import (
	"strings"

	"github.com/simp-lee/epub/v2/internal/xmltree"
)

// detectVersion classifies a package element. An explicit "2.0" or "3.0"
// version attribute wins; otherwise a spine "toc" attribute means legacy and
// a manifest item with id "nav" means modern.
func detectVersion(pkg *xmltree.Element) (Version, error) {
	switch strings.TrimSpace(pkg.AttrValue("version", "")) {
	case "2.0":
		return Version2, nil
	case "3.0":
		return Version3, nil
	}

	spine := pkg.Find("spine")
	if spine == nil {
		return 0, &NonCanonicalError{Tag: "spine"}
	}
	if _, ok := spine.Attr("toc"); ok {
		return Version2, nil
	}

	manifest := pkg.Find("manifest")
	if manifest == nil {
		return 0, &NonCanonicalError{Tag: "manifest"}
	}
	for _, item := range manifest.Children() {
		if id, _ := item.Attr("id"); id == "nav" {
			return Version3, nil
		}
	}

	return 0, ErrUnrecognizedVersion
}
