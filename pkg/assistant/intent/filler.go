package intent

import "strings"

// fillerTokens are greeting/courtesy/desire words that carry no search
// signal. They are stripped from the START of the utterance only; once a
// non-filler token appears the rest of the text is kept verbatim.
var fillerTokens = map[string]bool{
	// greetings
	"hola": true, "buenas": true, "buenos": true, "dias": true, "días": true,
	"tardes": true, "noches": true, "hey": true, "oye": true, "mira": true,
	// courtesy
	"por": true, "favor": true, "porfa": true, "gracias": true,
	"perdona": true, "disculpa": true,
	// desire verbs
	"quiero": true, "quisiera": true, "necesito": true, "busco": true,
	"dame": true, "ponme": true, "tienes": true, "teneis": true, "tenéis": true,
	"hay": true, "me": true, "gustaria": true, "gustaría": true,
	// articles
	"un": true, "una": true, "unos": true, "unas": true,
	"el": true, "la": true, "los": true, "las": true,
	"algun": true, "algún": true, "alguna": true,
}

// stripLeadingFiller removes leading filler tokens and returns the
// cleaned text plus the removed tokens. The original text is returned
// unchanged when every token is filler: an all-filler utterance (plain
// greeting) is still meaningful to the terminal responder.
func stripLeadingFiller(text string) (string, []string) {
	fields := strings.Fields(text)
	var removed []string

	i := 0
	for i < len(fields) {
		token := strings.ToLower(strings.Trim(fields[i], ",.!¡¿?"))
		if !fillerTokens[token] {
			break
		}
		removed = append(removed, fields[i])
		i++
	}

	if i == len(fields) {
		return strings.TrimSpace(text), nil
	}

	return strings.Join(fields[i:], " "), removed
}
