package pricing

import (
	"encoding/json"
	"testing"
)

func TestParsePriceText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$120", "120"},
		{"USD 1,250.50", "1250.5"},
		{"€ 99.9 / person", "99.9"},
		{"", ""},
		{"call us", ""},
		{"1.2.3", ""},
	}
	for _, tc := range tests {
		got := parsePriceText(tc.in)
		if tc.want == "" {
			if got != nil {
				t.Fatalf("parsePriceText(%q) = %v, want nil", tc.in, got)
			}
			continue
		}
		if got == nil || got.String() != tc.want {
			t.Fatalf("parsePriceText(%q) = %v, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseExtracted(t *testing.T) {
	if got := parseExtracted(json.RawMessage(`42.5`)); got == nil || got.String() != "42.5" {
		t.Fatalf("unexpected %v", got)
	}
	if got := parseExtracted(json.RawMessage(`"17"`)); got == nil || got.String() != "17" {
		t.Fatalf("unexpected %v", got)
	}
	if got := parseExtracted(json.RawMessage(`null`)); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if got := parseExtracted(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestCleanLink(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://Shop.Example.com/item?b=2&a=1&gclid=x#reviews", "https://shop.example.com/item?a=1&b=2"},
		{"javascript:alert(1)", ""},
		{"/relative/path", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := cleanLink(tc.in); got != tc.want {
			t.Fatalf("cleanLink(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCleanText(t *testing.T) {
	if got := cleanText(`  <p>Party <script>x()</script>Tent</p> `); got != "Party Tent" {
		t.Fatalf("unexpected %q", got)
	}
}
