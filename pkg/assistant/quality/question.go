// FILE: pkg/assistant/quality/question.go
// PURPOSE: Builds the single clarifying question, enumerating values
// actually observed in the candidate set.

package quality

import (
	"fmt"
	"strings"

	"shop-assistant-be/pkg/assistant/understanding"
	"shop-assistant-be/pkg/knowledge"
	"shop-assistant-be/pkg/store"
)

const rephraseQuestion = "No he encontrado nada con esa descripción. ¿Puedes contármelo con otras palabras, por ejemplo con el tipo de producto o la marca?"

const maxListedValues = 4

// buildQuestion picks the most useful clarifying question for the set:
// brand first when it is missing and the set spans several brands, then
// the defining attribute of the product type, always enumerating values
// present in the candidates.
func buildQuestion(pu *understanding.ProductUnderstanding, candidates []store.Candidate, missing []string) string {
	facets := store.ComputeFacets(candidates)

	wantsBrand := pu.Brand == "" && (len(missing) == 0 || contains(missing, "brand"))
	if wantsBrand && len(facets.Brands) >= 3 {
		return brandQuestion(facets.Brands)
	}

	// An attribute the oracle flagged as missing wins when we have real
	// values for it.
	for _, key := range missing {
		if key == "brand" {
			continue
		}
		if values := facets.Attributes[key]; len(values) >= 2 {
			return attributeQuestion(key, values)
		}
	}

	if q := typeQuestion(pu.ProductType, facets); q != "" {
		return q
	}
	if len(facets.Brands) >= 2 {
		return brandQuestion(facets.Brands)
	}
	return "Hay bastantes opciones. ¿Puedes darme algún detalle más, como la marca o alguna característica?"
}

// typeQuestion asks for the defining attribute of each product type.
func typeQuestion(productType string, facets store.Facets) string {
	keys := definingSpecs(productType)
	for _, key := range keys {
		if values := facets.Attributes[key]; len(values) >= 2 {
			return attributeQuestion(key, values)
		}
	}
	return ""
}

// definingSpecs returns the attributes worth asking about for a type,
// most useful first.
func definingSpecs(productType string) []string {
	switch productType {
	case knowledge.TypeBreaker:
		return []string{knowledge.SpecCurrent, knowledge.SpecPoles}
	case knowledge.TypeDifferential:
		return []string{knowledge.SpecSensitivity, knowledge.SpecPoles, knowledge.SpecCurrent}
	case knowledge.TypeCable:
		return []string{knowledge.SpecSection}
	case knowledge.TypeLamp:
		return []string{knowledge.SpecPower, knowledge.SpecIP}
	default:
		return []string{knowledge.SpecCurrent, knowledge.SpecPower}
	}
}

func brandQuestion(brands []string) string {
	return fmt.Sprintf("¿Tienes preferencia de marca? Tenemos %s.", enumerate(brands))
}

func attributeQuestion(key string, values []string) string {
	listed := enumerate(values)
	switch key {
	case knowledge.SpecCurrent:
		return fmt.Sprintf("¿De cuántos amperios lo necesitas? Hay de %s.", listed)
	case knowledge.SpecSensitivity:
		return fmt.Sprintf("¿Qué sensibilidad necesitas? Hay de %s.", listed)
	case knowledge.SpecSection:
		return fmt.Sprintf("¿Qué sección de cable buscas? Hay de %s.", listed)
	case knowledge.SpecPower:
		return fmt.Sprintf("¿De cuántos vatios la quieres? Hay de %s.", listed)
	case knowledge.SpecPoles:
		return fmt.Sprintf("¿De cuántos polos lo necesitas? Hay de %s.", listed)
	case knowledge.SpecIP:
		return fmt.Sprintf("¿Es para interior o exterior? Hay protecciones %s.", listed)
	case knowledge.SpecCurve:
		return fmt.Sprintf("¿Qué curva necesitas? Hay %s.", listed)
	default:
		return fmt.Sprintf("¿Qué %s buscas? Hay %s.", key, listed)
	}
}

// enumerate joins up to maxListedValues values in natural Spanish.
func enumerate(values []string) string {
	listed := values
	if len(listed) > maxListedValues {
		listed = listed[:maxListedValues]
	}
	if len(listed) == 1 {
		return listed[0]
	}
	return strings.Join(listed[:len(listed)-1], ", ") + " y " + listed[len(listed)-1]
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
