package epub_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/simp-lee/epub/v2"
)

func ExampleOpen() {
	doc, err := epub.Open("book.epub")
	if err != nil {
		log.Fatal(err)
	}
	defer doc.Close()

	md := doc.Metadata()
	fmt.Println(md.Titles[0], doc.Version())
}

func ExampleDocument_Catalog() {
	doc, err := epub.Open("book.epub")
	if err != nil {
		log.Fatal(err)
	}
	defer doc.Close()

	for _, np := range doc.Catalog() {
		target, err := doc.ResolveContent(np)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%s -> %s\n", np.Label, target)
	}
}

func ExampleDocument_Next() {
	doc, err := epub.Open("book.epub")
	if err != nil {
		log.Fatal(err)
	}
	defer doc.Close()

	res, err := doc.Navigate(0)
	for err == nil {
		fmt.Printf("%s: %d bytes\n", res.ID, len(res.Data))
		res, err = doc.Next()
	}
}

func ExampleNormalizePath() {
	p, err := epub.NormalizePath("OEBPS/text", "../images/cover.jpg")
	fmt.Println(p, err)

	_, err = epub.NormalizePath("OEBPS", "../../outside.xhtml")
	fmt.Println(err)
	// Output:
	// OEBPS/images/cover.jpg <nil>
	// epub: relative link leakage: path "../../outside.xhtml" is out of container range
}

func ExampleBuilder() {
	dir, err := os.MkdirTemp("", "epub-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	b, err := epub.NewBuilder(epub.WithWorkspaceDir(dir))
	if err != nil {
		log.Fatal(err)
	}
	defer b.Close()

	if err := b.AddRootfile("OEBPS/content.opf"); err != nil {
		log.Fatal(err)
	}
	b.AddMetadata(epub.NewMetadataItem("title", "A Small Book")).
		AddMetadata(epub.NewMetadataItem("language", "en")).
		AddMetadata(epub.NewMetadataItem("identifier", epub.NewIdentifier()).WithID("pub-id"))

	page := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>One</title></head><body><p>Hello</p></body></html>`)
	if err := b.AddManifestData(page, epub.NewManifestItem("one", "one.xhtml")); err != nil {
		log.Fatal(err)
	}
	b.AddSpine(epub.NewSpineItem("one")).
		AddCatalogItem(epub.NewNavPoint("Chapter One").WithContent("one.xhtml"))

	doc, err := b.Build(filepath.Join(dir, "small.epub"))
	if err != nil {
		log.Fatal(err)
	}
	defer doc.Close()

	title, _ := doc.Title()
	fmt.Println(title[0], doc.Version(), len(doc.Manifest()))
	// Output: A Small Book 3.0 2
}
