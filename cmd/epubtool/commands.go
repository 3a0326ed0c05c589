package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/simp-lee/epub/v2"
)

// InspectCmd prints an overview of a publication.
type InspectCmd struct {
	File string `arg:"" help:"Publication to inspect" type:"existingfile"`
}

func (c *InspectCmd) Run(rc *runContext) error {
	doc, err := epub.Open(c.File, epub.WithLogger(rc.logger))
	if err != nil {
		return err
	}
	defer doc.Close()

	w := rc.out
	md := doc.Metadata()
	fmt.Fprintf(w, "version:    %s\n", doc.Version())
	fmt.Fprintf(w, "identifier: %s\n", doc.UniqueIdentifier())
	fmt.Fprintf(w, "package:    %s\n", doc.PackagePath())
	for _, t := range md.Titles {
		fmt.Fprintf(w, "title:      %s\n", t)
	}
	for _, a := range md.Authors {
		if a.Role != "" {
			fmt.Fprintf(w, "author:     %s (%s)\n", a.Name, a.Role)
		} else {
			fmt.Fprintf(w, "author:     %s\n", a.Name)
		}
	}
	if len(md.Language) > 0 {
		fmt.Fprintf(w, "language:   %s\n", strings.Join(md.Language, ", "))
	}

	fmt.Fprintln(w, "\nmanifest:")
	for _, item := range doc.Manifest() {
		fmt.Fprintf(w, "  %-20s %-40s %s", item.ID, item.Path, item.MediaType)
		if item.Properties != "" {
			fmt.Fprintf(w, " [%s]", item.Properties)
		}
		if item.Fallback != "" {
			fmt.Fprintf(w, " -> %s", item.Fallback)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "\nspine:")
	for i, s := range doc.Spine() {
		linear := ""
		if !s.Linear {
			linear = " (non-linear)"
		}
		fmt.Fprintf(w, "  %3d %s%s\n", i, s.IDRef, linear)
	}

	if enc := doc.Encryption(); len(enc) > 0 {
		fmt.Fprintln(w, "\nencryption:")
		for _, e := range enc {
			fmt.Fprintf(w, "  %s %s\n", e.Path, e.Method)
		}
	}

	if warnings := doc.Warnings(); len(warnings) > 0 {
		fmt.Fprintln(w, "\nwarnings:")
		for _, msg := range warnings {
			fmt.Fprintf(w, "  %s\n", msg)
		}
	}
	return nil
}

// TOCCmd prints the table of contents as an indented tree.
type TOCCmd struct {
	File string `arg:"" help:"Publication to read" type:"existingfile"`
}

func (c *TOCCmd) Run(rc *runContext) error {
	doc, err := epub.Open(c.File, epub.WithLogger(rc.logger))
	if err != nil {
		return err
	}
	defer doc.Close()

	if title := doc.CatalogTitle(); title != "" {
		fmt.Fprintln(rc.out, title)
	}
	return printNavPoints(rc.out, doc, doc.Catalog(), 0)
}

func printNavPoints(w io.Writer, doc *epub.Document, points []epub.NavPoint, depth int) error {
	indent := strings.Repeat("  ", depth)
	for _, np := range points {
		target, err := doc.ResolveContent(np)
		if err != nil {
			return err
		}
		if target != "" {
			fmt.Fprintf(w, "%s- %s (%s)\n", indent, np.Label, target)
		} else {
			fmt.Fprintf(w, "%s- %s\n", indent, np.Label)
		}
		if err := printNavPoints(w, doc, np.Children, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// ExtractCmd writes a resource, deobfuscated, to a file or stdout.
type ExtractCmd struct {
	File   string   `arg:"" help:"Publication to read" type:"existingfile"`
	ID     string   `arg:"" help:"Manifest item id"`
	Output string   `short:"o" help:"Output file (default stdout)" type:"path"`
	Accept []string `help:"Acceptable media types; follows the fallback chain until one matches" sep:","`
}

func (c *ExtractCmd) Run(rc *runContext) error {
	doc, err := epub.Open(c.File, epub.WithLogger(rc.logger))
	if err != nil {
		return err
	}
	defer doc.Close()

	var res epub.Resource
	if len(c.Accept) > 0 {
		res, err = doc.ResourceWithFallback(c.ID, c.Accept...)
	} else {
		res, err = doc.Resource(c.ID)
	}
	if err != nil {
		return err
	}
	rc.logger.Debug("extracted resource", zap.String("id", res.ID), zap.String("path", res.Path), zap.Int("bytes", len(res.Data)))

	if c.Output == "" {
		_, err = rc.out.Write(res.Data)
		return err
	}
	return os.WriteFile(c.Output, res.Data, 0o644)
}

// UpgradeCmd rewrites a publication through the builder, producing a
// version 3.0 package with a generated navigation document.
type UpgradeCmd struct {
	Input  string `arg:"" help:"Publication to read" type:"existingfile"`
	Output string `arg:"" help:"Destination file" type:"path"`
}

func (c *UpgradeCmd) Run(rc *runContext) error {
	doc, err := epub.Open(c.Input, epub.WithLogger(rc.logger))
	if err != nil {
		return err
	}
	defer doc.Close()

	b, err := epub.From(doc, epub.WithLogger(rc.logger))
	if err != nil {
		return err
	}
	defer b.Close()

	promoteIdentifier(b, doc)
	if !doc.HasTOC() {
		b.SetCatalog(catalogFromSpine(doc))
	}

	if err := b.MakeFile(c.Output); err != nil {
		return err
	}
	fmt.Fprintf(rc.out, "wrote %s\n", c.Output)
	return nil
}

// promoteIdentifier gives the publication's unique identifier the id the
// builder requires. Without a usable identifier a fresh one is generated.
func promoteIdentifier(b *epub.Builder, doc *epub.Document) {
	const pubID = "pub-id"

	idents := doc.MetadataByProperty("identifier")
	for _, m := range idents {
		if m.ID == pubID {
			return
		}
	}

	b.RemoveMetadata("identifier")
	promoted := false
	for _, m := range idents {
		if !promoted && m.Value == doc.UniqueIdentifier() && m.Value != "" {
			renamed := epub.NewMetadataItem("identifier", m.Value).WithID(pubID).WithLang(m.Lang)
			for _, r := range m.Refinements {
				renamed = renamed.AppendRefinement(r)
			}
			m = renamed
			promoted = true
		}
		b.AddMetadata(m)
	}
	if !promoted {
		b.AddMetadata(epub.NewMetadataItem("identifier", epub.NewIdentifier()).WithID(pubID))
	}
}

// catalogFromSpine lists the linear spine entries, for publications that
// have no table of contents.
func catalogFromSpine(doc *epub.Document) []epub.NavPoint {
	var points []epub.NavPoint
	rootDir := doc.BaseDir()
	for _, s := range doc.Spine() {
		if !s.Linear {
			continue
		}
		item, ok := doc.ManifestItem(s.IDRef)
		if !ok {
			continue
		}
		href, err := filepath.Rel(filepath.FromSlash(rootDir), filepath.FromSlash(item.Path))
		if err != nil {
			continue
		}
		points = append(points, epub.NewNavPoint(s.IDRef).WithContent(filepath.ToSlash(href)))
	}
	return points
}
