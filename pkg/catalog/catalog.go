// Package catalog holds the fixed table of languages the UI can offer.
// The table is a startup constant: display names and ISO 639-1 codes
// are both unique, and nothing is added or removed at runtime.
package catalog

import (
	"errors"
	"fmt"
)

// ErrUnknownLanguage is returned when a display name or code is not in
// the catalog. With a UI populated from DisplayNames this should be
// unreachable; the check exists for direct API callers.
var ErrUnknownLanguage = errors.New("unknown language")

// Entry pairs a human-readable language name with its ISO 639-1 code.
type Entry struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// entries is the full catalog, in display order (alphabetical).
var entries = []Entry{
	{Name: "Arabic", Code: "ar"},
	{Name: "Bulgarian", Code: "bg"},
	{Name: "Chinese", Code: "zh"},
	{Name: "Czech", Code: "cs"},
	{Name: "Danish", Code: "da"},
	{Name: "Dutch", Code: "nl"},
	{Name: "English", Code: "en"},
	{Name: "Finnish", Code: "fi"},
	{Name: "French", Code: "fr"},
	{Name: "German", Code: "de"},
	{Name: "Greek", Code: "el"},
	{Name: "Hebrew", Code: "he"},
	{Name: "Hindi", Code: "hi"},
	{Name: "Hungarian", Code: "hu"},
	{Name: "Indonesian", Code: "id"},
	{Name: "Italian", Code: "it"},
	{Name: "Japanese", Code: "ja"},
	{Name: "Korean", Code: "ko"},
	{Name: "Polish", Code: "pl"},
	{Name: "Portuguese", Code: "pt"},
	{Name: "Romanian", Code: "ro"},
	{Name: "Russian", Code: "ru"},
	{Name: "Spanish", Code: "es"},
	{Name: "Swedish", Code: "sv"},
	{Name: "Thai", Code: "th"},
	{Name: "Turkish", Code: "tr"},
	{Name: "Ukrainian", Code: "uk"},
	{Name: "Vietnamese", Code: "vi"},
}

var (
	codeByName = make(map[string]string, len(entries))
	nameByCode = make(map[string]string, len(entries))
)

func init() {
	for _, e := range entries {
		codeByName[e.Name] = e.Code
		nameByCode[e.Code] = e.Name
	}
}

// Entries returns a copy of the full catalog in display order.
func Entries() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// DisplayNames returns the language names in display order. The order
// is stable across calls so both UI selectors render identically.
func DisplayNames() []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// CodeOf resolves a display name to its ISO 639-1 code.
func CodeOf(displayName string) (string, error) {
	code, ok := codeByName[displayName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, displayName)
	}
	return code, nil
}

// NameOf resolves an ISO 639-1 code back to its display name.
func NameOf(code string) (string, error) {
	name, ok := nameByCode[code]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
	}
	return name, nil
}

// Has reports whether the code is part of the catalog.
func Has(code string) bool {
	_, ok := nameByCode[code]
	return ok
}
