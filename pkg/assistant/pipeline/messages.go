// FILE: pkg/assistant/pipeline/messages.go
// PURPOSE: Terminal natural-language responses. The customer never sees
// a raw error code or an empty reply.

package pipeline

import (
	"fmt"

	"shop-assistant-be/pkg/assistant/intent"
)

const (
	msgGreeting = "¡Hola! Soy el asistente de la tienda de material eléctrico. Dime qué necesitas: diferenciales, magnetotérmicos, cable, iluminación..."

	msgConfirmation = "¡Perfecto! Si necesitas algo más, aquí estoy."

	msgHelp = "Puedo ayudarte a encontrar material eléctrico. Dime el producto y, si lo sabes, la marca o alguna característica, por ejemplo: \"diferencial schneider 40A\"."

	msgComplaint = "Siento mucho el problema. He pasado tu mensaje al equipo de atención al cliente y te contactarán lo antes posible."

	msgOrderInquiry = "Para consultas de pedidos necesito el número de pedido. Escríbelo y lo revisamos, o consulta el estado desde tu cuenta en la web."

	msgGeneral = "No estoy seguro de haberte entendido. Dime qué producto buscas y te enseño lo que tenemos."

	msgApology = "Vaya, algo ha fallado por mi parte. ¿Puedes repetírmelo? Lo intento de nuevo."

	msgNoResults = "No he encontrado productos que encajen. Prueba con otras palabras o dime el tipo de producto y la marca."

	msgIndexDown = "Ahora mismo no puedo consultar el catálogo. Inténtalo de nuevo en un momento, por favor."
)

// terminalMessage picks the canned response for intents that bypass
// retrieval.
func terminalMessage(label string) string {
	switch label {
	case intent.IntentGreeting:
		return msgGreeting
	case intent.IntentConfirmation:
		return msgConfirmation
	case intent.IntentHelp:
		return msgHelp
	case intent.IntentComplaint:
		return msgComplaint
	case intent.IntentOrderInquiry:
		return msgOrderInquiry
	default:
		return msgGeneral
	}
}

// resultsMessage heads a shown result set.
func resultsMessage(count int) string {
	if count == 1 {
		return "He encontrado este producto:"
	}
	return fmt.Sprintf("He encontrado %d productos que encajan:", count)
}

// noMatchMessage is the explicit outcome when a refinement filtered
// everything out.
func noMatchMessage(brand string) string {
	if brand != "" {
		return fmt.Sprintf("No tengo nada de %s con esas características. ¿Quieres ver otras marcas?", brand)
	}
	return "No queda nada con esas características. ¿Probamos con otros datos?"
}
