package epub

import (
	"fmt"
	"strings"

	"github.com/antchfx/xpath"

	"github.com/simp-lee/epub/v2/internal/xmltree"
)

// containerPath is the well-known location of container.xml in an ePub archive.
const containerPath = "META-INF/container.xml"

// rootfileExpr selects every rootfile element regardless of namespace.
var rootfileExpr = xpath.MustCompile("//*[local-name()='rootfile']")

// parseContainer returns the full-path of the first rootfile declared in
// container.xml.
func parseContainer(data []byte) (string, error) {
	root, err := xmltree.Parse(data)
	if err != nil {
		return "", fmt.Errorf("epub: parse container.xml: %w", err)
	}

	rootfile := root.SelectFirst(rootfileExpr)
	if rootfile == nil {
		return "", &NonCanonicalError{Tag: "rootfile"}
	}

	fullPath, ok := rootfile.Attr("full-path")
	if !ok {
		return "", &MissingAttributeError{Tag: "rootfile", Attribute: "full-path"}
	}
	return strings.TrimSpace(fullPath), nil
}
