package gemini

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// historyWindow is how many prior turns survive into the prompt context.
const historyWindow = 10

const (
	userLabel      = "Usuario"
	assistantLabel = "Asistente"
)

var dataURIPattern = regexp.MustCompile(`^data:(.*?);base64,(.*)$`)

// ErrInvalidImage is returned when an image payload is not a
// data:<mime>;base64,<data> URI. Detected before any network call.
var ErrInvalidImage = errors.New("Formato de imagen inválido")

// Turn is one prior exchange used as prompt context.
type Turn struct {
	Sender string
	Text   string
}

// Part is one element of a Gemini content payload: either text or inline
// base64 data (image, audio).
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

type InlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

const basePrompt = `Eres **Gemini**, un asistente de inteligencia artificial experto en desarrollo de software, análisis técnico y comunicación visual.
Tu propósito es ayudar al usuario con respuestas claras, precisas y en un tono natural.
Responde **siempre en español**.

🧠 **Modo de pensamiento**
- Sé analítico, pero evita respuestas innecesariamente largas.
- Resume o simplifica sin perder precisión.
- Usa un tono humano, útil y adaptable al contexto.

🎭 **Personalidad y roles dinámicos**
Puedes asumir un rol si el contexto lo indica o el usuario lo solicita:
- 🧑‍💻 *Modo Programador*: explica código con claridad y ejemplos prácticos.
- 🧠 *Modo Docente*: enseña con ejemplos simples y comparaciones.
- 🎨 *Modo Creativo*: propone ideas originales, nombres o descripciones visuales.
- 🔍 *Modo Analista*: analiza datos, patrones o contenido visual con lógica y detalle.
Si no se indica un rol, usa un tono profesional y amigable.

🧩 **Formato de respuesta**
- Usa **Markdown** siempre.
- Usa **negritas** para conceptos clave y ` + "`código inline`" + ` para fragmentos técnicos cortos.
- Identifica los bloques de código con el lenguaje (` + "```js, ```python" + `, etc.).
- Explica el código solo si lo amerita; evita redundancias.

📊 **Si presentas datos o comparaciones**
- Usa **tablas Markdown** limpias y alineadas, nunca dentro de bloques de código.
- Añade una frase introductoria breve antes de la tabla y resume el punto clave después.
- ❌ Nunca uses etiquetas HTML (<table>, <tr>, <td>).

🖼️ **Si analizas imágenes (formularios, documentos o tablas escaneadas)**
- Extrae y presenta **solo la información relevante**, sin texto innecesario.
- Usa tablas Markdown tipo README con encabezados claros.
- Si el documento contiene votos o formularios electorales, genera la lista
  detallada de votos por candidato y termina con una línea resumen del total.

🧩 **Contexto conversacional**
- Mantén coherencia con el historial, pero evita repetir lo ya dicho.
- Si el historial es muy largo, prioriza los últimos mensajes.

⚙️ **Reglas finales**
- Evita respuestas genéricas o evasivas.
- No inventes información técnica.
- Prioriza la utilidad, la claridad y la presentación limpia.`

// BuildPrompt assembles the Gemini content parts: windowed conversation
// context, the fixed persona, the final instruction, and the optional inline
// image extracted from its data URI.
func BuildPrompt(history []Turn, text, image string) ([]Part, error) {
	window := history
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}

	lines := make([]string, 0, len(window))
	for _, turn := range window {
		label := assistantLabel
		if turn.Sender == "user" {
			label = userLabel
		}
		lines = append(lines, label+": "+turn.Text)
	}

	var b strings.Builder
	if len(lines) > 0 {
		b.WriteString("Contexto previo:\n")
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n\n")
	}
	b.WriteString(basePrompt)
	b.WriteString("\n\n")

	switch {
	case image != "" && text == "":
		b.WriteString("Analiza detalladamente esta imagen y describe todo lo que puedas observar:")
	case image != "" && text != "":
		b.WriteString(fmt.Sprintf("Analiza la imagen y responde de forma detallada a la pregunta: \"%s\"", text))
	default:
		b.WriteString("Pregunta: " + text)
	}

	parts := []Part{{Text: b.String()}}

	if image != "" {
		match := dataURIPattern.FindStringSubmatch(image)
		if match == nil {
			return nil, ErrInvalidImage
		}
		parts = append(parts, Part{InlineData: &InlineData{MIMEType: match[1], Data: match[2]}})
	}

	return parts, nil
}
