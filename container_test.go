package epub

import (
	"errors"
	"strings"
	"testing"
)

func TestParseContainer(t *testing.T) {
	tests := []struct {
		name    string
		xml     string
		want    string
		wantErr error
	}{
		{
			name: "valid",
			xml:  testContainerXML,
			want: "OEBPS/content.opf",
		},
		{
			name: "first of several",
			xml: `<container xmlns="urn:oasis:names:tc:opendocument:xmlns:container"><rootfiles>
				<rootfile full-path="a.opf" media-type="application/oebps-package+xml"/>
				<rootfile full-path="b.opf" media-type="application/oebps-package+xml"/>
			</rootfiles></container>`,
			want: "a.opf",
		},
		{
			name: "no namespace",
			xml:  `<container><rootfiles><rootfile full-path=" root.opf "/></rootfiles></container>`,
			want: "root.opf",
		},
		{
			name:    "no rootfile",
			xml:     `<container><rootfiles/></container>`,
			wantErr: ErrNonCanonical,
		},
		{
			name:    "missing full-path",
			xml:     `<container><rootfiles><rootfile media-type="x"/></rootfiles></container>`,
			wantErr: ErrMissingAttribute,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseContainer([]byte(tt.xml))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("parseContainer() error = %v; want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseContainer() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("parseContainer() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestParseContainer_Malformed(t *testing.T) {
	if _, err := parseContainer([]byte(`<container><rootfiles>`)); err == nil {
		t.Error("parseContainer() error = nil; want parse error")
	}
}

func TestMarshalContainer_RoundTrip(t *testing.T) {
	data, err := marshalContainer([]string{"OEBPS/content.opf", "alt/other.opf"})
	if err != nil {
		t.Fatalf("marshalContainer() error = %v", err)
	}
	got, err := parseContainer(data)
	if err != nil {
		t.Fatalf("parseContainer() error = %v", err)
	}
	if got != "OEBPS/content.opf" {
		t.Errorf("first rootfile = %q; want OEBPS/content.opf", got)
	}
	if !strings.Contains(string(data), `full-path="alt/other.opf"`) {
		t.Errorf("container document lost the second rootfile:\n%s", data)
	}
}
