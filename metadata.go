package epub

import (
	"sort"
	"strconv"
	"strings"
)

// summarizeMetadata folds the raw metadata items into the Metadata summary.
// Attribute-style (legacy) and meta-refines (modern) refinements are both
// stored as item refinements, so one lookup serves either version.
func summarizeMetadata(version Version, items []MetadataItem) Metadata {
	md := Metadata{Version: version.String()}

	var titles []MetadataItem
	for _, item := range items {
		v := strings.TrimSpace(item.Value)
		if v == "" {
			continue
		}
		switch item.Property {
		case "title":
			titles = append(titles, item)
		case "creator":
			a := Author{Name: v}
			a.FileAs, _ = item.Refinement("file-as")
			a.Role, _ = item.Refinement("role")
			md.Authors = append(md.Authors, a)
		case "language":
			md.Language = append(md.Language, v)
		case "identifier":
			ident := Identifier{Value: v, ID: item.ID}
			if s, ok := item.Refinement("scheme"); ok {
				ident.Scheme = s
			} else if s, ok := item.Refinement("identifier-type"); ok {
				ident.Scheme = s
			}
			md.Identifiers = append(md.Identifiers, ident)
		case "subject":
			md.Subjects = append(md.Subjects, v)
		case "publisher":
			setFirst(&md.Publisher, v)
		case "date":
			setFirst(&md.Date, v)
		case "description":
			setFirst(&md.Description, v)
		case "rights":
			setFirst(&md.Rights, v)
		case "source":
			setFirst(&md.Source, v)
		case "dcterms:modified":
			setFirst(&md.Modified, v)
		}
	}
	md.Titles = orderTitles(titles)
	return md
}

func setFirst(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// orderTitles sorts titles by display-seq when any title has one. Titles
// without a sequence number keep their document order after those with one.
func orderTitles(titles []MetadataItem) []string {
	if len(titles) == 0 {
		return nil
	}

	type titleEntry struct {
		value string
		seq   int
	}

	entries := make([]titleEntry, len(titles))
	hasSeq := false
	for i, t := range titles {
		entries[i] = titleEntry{value: strings.TrimSpace(t.Value)}
		if s, ok := t.Refinement("display-seq"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n > 0 {
				entries[i].seq = n
				hasSeq = true
			}
		}
	}

	if hasSeq {
		sort.SliceStable(entries, func(i, j int) bool {
			si, sj := entries[i].seq, entries[j].seq
			switch {
			case si == 0:
				return false
			case sj == 0:
				return true
			default:
				return si < sj
			}
		})
	}

	result := make([]string, len(entries))
	for i, e := range entries {
		result[i] = e.value
	}
	return result
}

func copyMetadata(in Metadata) Metadata {
	out := in
	out.Titles = append([]string(nil), in.Titles...)
	out.Authors = append([]Author(nil), in.Authors...)
	out.Language = append([]string(nil), in.Language...)
	out.Identifiers = append([]Identifier(nil), in.Identifiers...)
	out.Subjects = append([]string(nil), in.Subjects...)
	return out
}
