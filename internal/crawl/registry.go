package crawl

import (
	"strings"

	"github.com/ternarybob/atsforge/internal/interfaces"
)

// ExtractorRegistry selects an Extractor by ATS family, falling back to
// the generic page-scraping/LLM path for every other family.
type ExtractorRegistry struct {
	byFamily map[string]interfaces.Extractor
	generic  interfaces.Extractor
}

// NewExtractorRegistry builds the family -> Extractor table from the
// concrete extractors the caller has already constructed.
func NewExtractorRegistry(generic interfaces.Extractor, families ...interfaces.Extractor) *ExtractorRegistry {
	r := &ExtractorRegistry{byFamily: make(map[string]interfaces.Extractor, len(families)), generic: generic}
	for _, e := range families {
		r.byFamily[e.Family()] = e
	}
	return r
}

func (r *ExtractorRegistry) For(family string) interfaces.Extractor {
	if e, ok := r.byFamily[strings.ToLower(family)]; ok {
		return e
	}
	return r.generic
}
