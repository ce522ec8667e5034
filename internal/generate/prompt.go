// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"text/template"
)

// SystemPrompt fixes the section layout of every generated study document.
const SystemPrompt = `You are an expert study assistant. Your task is to help students
learn by processing their notes and creating study materials.

Always structure your output in clear Markdown sections with the following format:

# Summary
[Concise summary of main concepts, max 300 words]

# Key Points
- [Important point 1]
- [Important point 2]
- [etc.]

# Study Questions
1. **Question:** [Question text]
   **Answer:** [Detailed answer]

[Repeat for 10 questions]

# Flashcards
**Card 1**
- **Front:** [Question]
- **Back:** [Answer]

[Repeat for multiple cards]

Be precise, educational, and focus on understanding core concepts.`

// userPromptTmpl wraps the note text between delimiter lines.
var userPromptTmpl = template.Must(template.New("user").Parse(`Please process these lecture notes and create comprehensive study materials:

---
{{.Note}}
---

Create the output following the structure I specified in the system prompt.`))

// BuildPrompt renders the user message for one note.
func BuildPrompt(note string) (string, error) {
	var buf bytes.Buffer
	if err := userPromptTmpl.Execute(&buf, struct{ Note string }{Note: note}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
