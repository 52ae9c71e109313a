package openai

import "fmt"

const summaryResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "summary": {
      "type": "string",
      "minLength": 1
    }
  },
  "required": ["summary"],
  "additionalProperties": false
}`

const summaryPromptTemplate = `Summarize the conversation excerpt given by the user and return the summary as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Use at most %d words.
- Describe what was discussed, asked, and decided. Keep names, numbers, and code identifiers exactly as written.
- Write in the third person and past tense ("The user asked...", "The assistant explained...").
- Do not add facts that are not in the excerpt.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "User: how do i reverse a list in python\n\nAssistant: use reversed() or slice with [::-1]"
Output:
{"summary":"The user asked how to reverse a Python list. The assistant suggested reversed() or the [::-1] slice."}`

// buildSystemPrompt creates the system prompt with the word limit embedded.
func buildSystemPrompt(maxWords int) string {
	return fmt.Sprintf(summaryPromptTemplate, summaryResponseSchema, maxWords)
}
