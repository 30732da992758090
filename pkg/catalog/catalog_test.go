package catalog

import (
	"errors"
	"sort"
	"testing"
)

func TestCatalogCodesAreUniqueTwoLetter(t *testing.T) {
	seenNames := make(map[string]bool)
	seenCodes := make(map[string]bool)

	for _, e := range Entries() {
		if len(e.Code) != 2 {
			t.Errorf("code %q for %q is not 2 letters", e.Code, e.Name)
		}
		if seenNames[e.Name] {
			t.Errorf("duplicate display name %q", e.Name)
		}
		if seenCodes[e.Code] {
			t.Errorf("duplicate code %q", e.Code)
		}
		seenNames[e.Name] = true
		seenCodes[e.Code] = true
	}

	if got := len(Entries()); got != 28 {
		t.Errorf("catalog has %d entries, want 28", got)
	}
}

func TestCodeNameRoundTrip(t *testing.T) {
	for _, e := range Entries() {
		code, err := CodeOf(e.Name)
		if err != nil {
			t.Fatalf("CodeOf(%q) returned error: %v", e.Name, err)
		}
		if code != e.Code {
			t.Errorf("CodeOf(%q) = %q, want %q", e.Name, code, e.Code)
		}

		name, err := NameOf(code)
		if err != nil {
			t.Fatalf("NameOf(%q) returned error: %v", code, err)
		}
		if name != e.Name {
			t.Errorf("NameOf(%q) = %q, want %q", code, name, e.Name)
		}
	}
}

func TestDisplayNamesStableAndSorted(t *testing.T) {
	first := DisplayNames()
	second := DisplayNames()

	if len(first) != len(second) {
		t.Fatalf("DisplayNames length changed between calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("DisplayNames order changed at %d: %q vs %q", i, first[i], second[i])
		}
	}

	if !sort.StringsAreSorted(first) {
		t.Errorf("DisplayNames is not alphabetical: %v", first)
	}
}

func TestUnknownLookups(t *testing.T) {
	tests := []struct {
		name  string
		probe func() error
	}{
		{
			name: "unknown display name",
			probe: func() error {
				_, err := CodeOf("Klingon")
				return err
			},
		},
		{
			name: "unknown code",
			probe: func() error {
				_, err := NameOf("xx")
				return err
			},
		},
		{
			name: "empty display name",
			probe: func() error {
				_, err := CodeOf("")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.probe()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrUnknownLanguage) {
				t.Errorf("error %v does not wrap ErrUnknownLanguage", err)
			}
		})
	}

	if Has("xx") {
		t.Error("Has(\"xx\") = true, want false")
	}
	if !Has("en") {
		t.Error("Has(\"en\") = false, want true")
	}
}
