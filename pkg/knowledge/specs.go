// FILE: pkg/knowledge/specs.go
// PURPOSE: Deterministic extraction of technical specifications from
// free text (current rating, voltage, power, cable section, sensitivity,
// pole count, IP rating, curve letter).

package knowledge

import (
	"fmt"
	"regexp"
	"strings"
)

// Specification keys produced by ExtractSpecs.
const (
	SpecCurrent     = "current"     // "40A"
	SpecVoltage     = "voltage"     // "230V"
	SpecPower       = "power"       // "60W"
	SpecSection     = "section"     // "2.5mm"
	SpecSensitivity = "sensitivity" // "30mA"
	SpecPoles       = "poles"       // "2P"
	SpecIP          = "ip"          // "IP65"
	SpecCurve       = "curve"       // "C"
)

var (
	sensitivityRe = regexp.MustCompile(`(\d+)\s*ma\b`)
	currentRe     = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:amperios?|amps?|a)\b`)
	voltageRe     = regexp.MustCompile(`(\d+)\s*(?:voltios?|v)\b`)
	powerRe       = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:vatios?|w)\b`)
	sectionRe     = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*mm2?\b`)
	polesRe       = regexp.MustCompile(`(\d)\s*p(?:olos?)?\b`)
	ipRe          = regexp.MustCompile(`\bip\s?(\d{2})\b`)
	curveRe       = regexp.MustCompile(`\b(?:curva|tipo|clase)\s+([abcd])\b`)
)

// ExtractSpecs pulls every recognizable specification out of the text.
// Values are normalized ("40A", "30mA", "2.5mm"). Missing specs are
// simply absent from the map; the map is never nil.
func ExtractSpecs(text string) map[string]string {
	specs := make(map[string]string)
	norm := Normalize(text)

	// Sensitivity first: its matches are blanked out so "30mA" cannot be
	// re-read as a 30A current rating ("ma" ends in the ampere suffix).
	if m := sensitivityRe.FindStringSubmatch(norm); m != nil {
		specs[SpecSensitivity] = m[1] + "mA"
		norm = sensitivityRe.ReplaceAllString(norm, " ")
	}

	// Section before current for the same reason: "2.5mm" must not lose
	// its suffix to a shorter match.
	if m := sectionRe.FindStringSubmatch(norm); m != nil {
		specs[SpecSection] = decimal(m[1]) + "mm"
		norm = sectionRe.ReplaceAllString(norm, " ")
	}

	if m := currentRe.FindStringSubmatch(norm); m != nil {
		specs[SpecCurrent] = decimal(m[1]) + "A"
	}
	if m := voltageRe.FindStringSubmatch(norm); m != nil {
		specs[SpecVoltage] = m[1] + "V"
	}
	if m := powerRe.FindStringSubmatch(norm); m != nil {
		specs[SpecPower] = decimal(m[1]) + "W"
	}
	if m := polesRe.FindStringSubmatch(norm); m != nil {
		specs[SpecPoles] = m[1] + "P"
	}
	if m := ipRe.FindStringSubmatch(norm); m != nil {
		specs[SpecIP] = "IP" + m[1]
	}
	if m := curveRe.FindStringSubmatch(norm); m != nil {
		specs[SpecCurve] = strings.ToUpper(m[1])
	}

	return specs
}

// decimal normalizes the Spanish decimal comma to a dot.
func decimal(value string) string {
	return strings.ReplaceAll(value, ",", ".")
}

// FormatSpec renders a key/value pair for inclusion in a query string.
func FormatSpec(key, value string) string {
	if key == SpecCurve {
		return fmt.Sprintf("curva %s", value)
	}
	return value
}
