package normalize

import (
	"testing"
)

// Test table covers each stage and combined pipelines.
func TestNormalize_Table(t *testing.T) {
	n := New()

	tests := []struct {
		name string
		in   string
		out  string
	}{
		{
			name: "identity ascii",
			in:   "customers in seoul",
			out:  "customers in seoul",
		},
		{
			name: "utf8 repair drops invalid bytes",
			in:   string([]byte{0xff, 'f', 'o', 'o', 0x80, ' ', 'b', 'a', 'r'}),
			out:  "foo bar",
		},
		{
			name: "case fold",
			in:   "Customers Named KIM",
			out:  "customers named kim",
		},
		{
			name: "remove zero-widths",
			in:   "se​o‍ul",
			out:  "seoul",
		},
		{
			name: "remove combining marks",
			in:   "café owners", // combining acute accent
			out:  "cafe owners",
		},
		{
			name: "width fold fullwidth",
			in:   "ＶＩＰ customers",
			out:  "vip customers",
		},
		{
			name: "korean preserved",
			in:   "홍길동 고객의 메모",
			out:  "홍길동 고객의 메모",
		},
		{
			name: "numbers preserved",
			in:   "30대 customers with 1000 points",
			out:  "30대 customers with 1000 points",
		},
		{
			name: "collapse whitespace",
			in:   "a\t\tb\nc   d",
			out:  "a b c d",
		},
		{
			name: "trim edges",
			in:   "  customers  \t\n",
			out:  "customers",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := n.Normalize(tc.in)
			if got != tc.out {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.out)
			}
			// every output must be a fixed point
			if again := n.Normalize(got); again != got {
				t.Fatalf("not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestNormalize_EmptyAndSpaceOnly(t *testing.T) {
	n := New()
	if got := n.Normalize(""); got != "" {
		t.Fatalf("empty input: got %q", got)
	}
	if got := n.Normalize(" \t\n "); got != "" {
		t.Fatalf("whitespace only: got %q", got)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{"clean passes through", "고객 목록", "고객 목록"},
		{"nul dropped", "a\x00b", "ab"},
		{"bell dropped tab kept", "a\x07b\tc", "ab\tc"},
		{"del dropped", "a\x7fb", "ab"},
		{"c1 control dropped", "ab", "ab"},
		{"invalid utf8 dropped", string([]byte{'a', 0xfe, 'b'}), "ab"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := Sanitize(tc.in); got != tc.out {
				t.Fatalf("Sanitize(%q) = %q, want %q", tc.in, got, tc.out)
			}
		})
	}
}
