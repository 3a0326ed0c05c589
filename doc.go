// Package epub reads and writes EPUB 2 and EPUB 3 publications.
//
// The reader parses the container, the package document, the table of
// contents (NCX or navigation document) and the encryption descriptor. It
// gives random and sequential access to resources, reverses font
// obfuscation, and follows manifest fallback chains. The builder stages
// resources in a temporary workspace and writes a version 3.0 package with a
// generated navigation document.
//
// # Opening a publication
//
// Use [Open] to open a file by path, or [NewReader] to read from an [io.ReaderAt]:
//
//	doc, err := epub.Open("book.epub")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer doc.Close()
//
// Recoverable defects (a wrong mimetype entry, a broken fallback chain, an
// unsupported encryption method) do not fail Open. They are collected in
// [Document.Warnings] and logged through the [zap.Logger] passed with
// [WithLogger].
//
// # Metadata
//
// [Document.MetadataItems] returns every metadata entry with its refinements
// merged in. [Document.Metadata] summarizes the common Dublin Core fields:
//
//	md := doc.Metadata()
//	fmt.Println(md.Titles[0], md.Authors[0].Role)
//
// # Table of contents and reading order
//
// [Document.Catalog] returns the table of contents as a tree of [NavPoint]
// values whose Content hrefs are relative to the table of contents document;
// [Document.ResolveContent] turns one into an archive path. The spine cursor
// ([Document.Navigate], [Document.Next], [Document.Prev]) walks linear entries
// in reading order.
//
// # Building
//
// A [Builder] collects rootfiles, metadata, manifest resources, the spine and
// the table of contents, then writes the archive with [Builder.Make],
// [Builder.MakeFile] or [Builder.Build]. [From] seeds a builder from an open
// [Document]:
//
//	b, err := epub.From(doc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Close()
//	if err := b.MakeFile("out.epub"); err != nil {
//	    log.Fatal(err)
//	}
//
// Finalizing requires a title, a language and an identifier with id
// "pub-id", exactly one navigation document and acyclic fallback chains.
//
// # Error handling
//
// Failures wrap sentinel errors such as [ErrNonCanonical], [ErrLinkLeakage],
// [ErrCircularFallback] and [ErrMissingNecessaryMetadata]; test them with
// [errors.Is]. Typed errors like [*MissingAttributeError] carry the
// offending element or path.
package epub
