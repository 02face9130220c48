package constant

const (
	ChatMessageRoleUser  = "user"
	ChatMessageRoleModel = "model"

	// Greeting seeded into every new session.
	ChatMessageGreeting = "¡Hola! Soy tu asistente de material eléctrico. ¿Qué producto estás buscando?"

	// Default title until the first user message replaces it.
	ChatSessionDefaultTitle = "Nueva consulta"

	// How many of the latest persisted messages feed the intent classifier.
	HistoryWindowSize = 10

	// Maximum characters of the first message used as the session title.
	SessionTitleMaxLength = 60
)
