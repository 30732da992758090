package server

import (
	"net/http"

	"golang.org/x/text/language"

	"github.com/caffe-cappuccino/dl/pkg/catalog"
)

// defaultSourceName is used when the Accept-Language header matches
// nothing in the catalog.
const defaultSourceName = "English"

var languageMatcher language.Matcher

func init() {
	// English first: the matcher falls back to the first tag.
	tags := []language.Tag{language.English}
	for _, e := range catalog.Entries() {
		if e.Code == "en" {
			continue
		}
		tags = append(tags, language.Make(e.Code))
	}
	languageMatcher = language.NewMatcher(tags)
}

// DetectSourceLanguage picks a default source language for the UI from
// the request's Accept-Language header. Purely a convenience: the user
// can always switch selectors.
func DetectSourceLanguage(r *http.Request) string {
	accept := r.Header.Get("Accept-Language")
	if accept == "" {
		return defaultSourceName
	}

	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return defaultSourceName
	}

	tag, _, _ := languageMatcher.Match(tags...)
	base, _ := tag.Base()

	code := base.String()
	if !catalog.Has(code) {
		return defaultSourceName
	}
	name, _ := catalog.NameOf(code)
	return name
}
