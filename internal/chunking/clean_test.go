package chunking

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses blank lines", "one\n\n\n\ntwo", "one\n\ntwo"},
		{"collapses spaces", "a    b", "a b"},
		{"strips page numbers", "end of page\n  12  \nnext page", "end of page\nnext page"},
		{"trims lines", "  left\nright   ", "left\nright"},
		{"keeps inline numbers", "Article 21 applies", "Article 21 applies"},
		{"whitespace only", " \n\n \n", ""},
		{"combined", "Title\n\n\n\nBody  text\n  12  \nMore", "Title\n\nBody text\nMore"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
