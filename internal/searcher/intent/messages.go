package intent

var messages = map[string]map[string]string{
	"es": {
		"empty":          "¿Qué te gustaría comer? Pregúntame por las opciones, los extras o un ingrediente.",
		"greeting":       "¡Hola! Puedo ayudarte a elegir del menú. Pregúntame por las opciones, los extras o un ingrediente.",
		"off_topic":      "Solo puedo ayudarte con el menú. ¿Qué te gustaría pedir?",
		"list_options":   "Estas son nuestras opciones:",
		"list_extras":    "Puedes agregar estos extras:",
		"option_price":   "%s cuesta %s.",
		"no_such_option": "No tenemos la opción %d. Hay %d opciones en el menú.",
		"results":        "Esto es lo que encontré:",
		"no_results":     "No encontré nada parecido en el menú. Prueba con otro ingrediente.",
	},
	"en": {
		"empty":          "What would you like to eat? Ask me about the options, the extras or an ingredient.",
		"greeting":       "Hi! I can help you pick from the menu. Ask me about the options, the extras or an ingredient.",
		"off_topic":      "I can only help with the menu. What would you like to order?",
		"list_options":   "These are our options:",
		"list_extras":    "You can add these extras:",
		"option_price":   "%s costs %s.",
		"no_such_option": "We don't have option %d. There are %d options on the menu.",
		"results":        "Here is what I found:",
		"no_results":     "I couldn't find anything like that on the menu. Try another ingredient.",
	},
}

// text falls back to Spanish for languages without replies.
func text(lang, key string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	return messages["es"][key]
}
