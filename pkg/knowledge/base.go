// FILE: pkg/knowledge/base.go
// PURPOSE: Static domain knowledge for the electrical catalog: synonyms,
// brand detection and product type detection. Pure and read-only, safe
// under unlimited concurrent reads.

package knowledge

import "strings"

// Known product types (canonical, lower-case).
const (
	TypeDifferential = "diferencial"
	TypeBreaker      = "magnetotermico"
	TypeCable        = "cable"
	TypeLamp         = "lampara"
	TypeSocket       = "enchufe"
	TypeContactor    = "contactor"
	TypeSwitch       = "interruptor"
)

// synonymTable maps a canonical term to its domain synonyms. Entries are
// used both for query expansion and for product type detection.
var synonymTable = map[string][]string{
	TypeDifferential: {"interruptor diferencial", "proteccion diferencial", "dispositivo diferencial", "id", "llave diferencial"},
	TypeBreaker:      {"magnetotérmico", "automatico", "pia", "interruptor automatico", "llave termica", "disyuntor"},
	TypeCable:        {"manguera", "hilo", "conductor", "cableado"},
	TypeLamp:         {"lámpara", "luminaria", "bombilla", "foco", "downlight", "luz"},
	TypeSocket:       {"toma de corriente", "base de enchufe", "schuko", "toma"},
	TypeContactor:    {"contactor modular", "rele de potencia", "telerruptor"},
	TypeSwitch:       {"conmutador", "pulsador", "llave de luz"},
}

// reverseSynonyms maps every synonym back to its canonical term.
var reverseSynonyms = buildReverseSynonyms()

func buildReverseSynonyms() map[string]string {
	out := make(map[string]string)
	for canonical, syns := range synonymTable {
		out[canonical] = canonical
		for _, s := range syns {
			out[Normalize(s)] = canonical
		}
	}
	return out
}

// knownBrands lists the brands carried in the catalog, lower-case.
var knownBrands = []string{
	"schneider", "abb", "legrand", "siemens", "hager",
	"chint", "simon", "bticino", "gewiss", "jung",
}

// accentReplacer folds the accented vowels common in Spanish input.
var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u",
)

// Normalize lowercases, trims and folds accents. Every lookup in this
// package goes through it, so callers can feed raw user text.
func Normalize(text string) string {
	return accentReplacer.Replace(strings.ToLower(strings.TrimSpace(text)))
}

// Synonyms returns the expansion terms for a term, or nil when the term
// is not part of the domain vocabulary.
func Synonyms(term string) []string {
	canonical, ok := reverseSynonyms[Normalize(term)]
	if !ok {
		return nil
	}
	// Copy to keep the table immutable for callers.
	out := make([]string, len(synonymTable[canonical]))
	copy(out, synonymTable[canonical])
	return out
}

// DetectBrand returns the first known brand mentioned in the text, or ""
// when none is present.
func DetectBrand(text string) string {
	norm := " " + Normalize(text) + " "
	for _, brand := range knownBrands {
		if strings.Contains(norm, " "+brand+" ") {
			return brand
		}
	}
	return ""
}

// DetectProductType returns the canonical product type mentioned in the
// text, or "" when none is recognized. Multi-word synonyms are checked
// before single tokens so "interruptor diferencial" resolves to the
// differential, not the plain switch.
func DetectProductType(text string) string {
	norm := Normalize(text)

	for synonym, canonical := range reverseSynonyms {
		if strings.Contains(synonym, " ") && strings.Contains(norm, synonym) {
			return canonical
		}
	}

	for _, token := range strings.Fields(norm) {
		if canonical, ok := reverseSynonyms[token]; ok {
			return canonical
		}
	}

	return ""
}

// KnownBrands returns the brand vocabulary.
func KnownBrands() []string {
	out := make([]string, len(knownBrands))
	copy(out, knownBrands)
	return out
}
