package gemini

import (
	"fmt"
	"strings"

	"solaudit/internal/models"
)

// ResponseSchema is the strict output schema sent with every completion
// request. It mirrors the report shape the parser accepts.
const ResponseSchema = `{
  "type": "object",
  "properties": {
    "score": {"type": "integer"},
    "summary": {"type": "string"},
    "categories": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "score": {"type": "integer"},
          "max_score": {"type": "integer"},
          "description": {"type": "string"},
          "issues": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "severity": {"type": "string", "enum": ["high", "medium", "low", "info", "safe"]},
                "code_reference": {"type": "string"},
                "recommendation": {"type": "string"}
              },
              "required": ["title", "description", "severity", "recommendation"]
            }
          }
        },
        "required": ["name", "score", "max_score", "description", "issues"]
      }
    }
  },
  "required": ["score", "summary", "categories"]
}`

// BuildPrompt embeds the source code in the fixed audit instruction
func BuildPrompt(code string) string {
	var sb strings.Builder

	sb.WriteString("You are an expert Solidity smart contract auditor. ")
	sb.WriteString("Analyze the following contract source code for security vulnerabilities, ")
	sb.WriteString("correctness problems, gas inefficiencies, and code quality issues.\n\n")

	sb.WriteString("Score the contract in exactly these categories with exactly these maximum scores:\n")
	for _, w := range models.CategoryWeights {
		fmt.Fprintf(&sb, "- %s (max_score %d)\n", w.Name, w.MaxScore)
	}

	sb.WriteString("\nFor every category report a score between 0 and its max_score, a short ")
	sb.WriteString("description of the assessment, and a list of issues. Each issue carries a ")
	sb.WriteString("title, a description, a severity (one of: high, medium, low, info, safe), ")
	sb.WriteString("an optional code_reference pointing at the affected location, and a concrete ")
	sb.WriteString("recommendation. A category without findings gets an empty issues list.\n")
	sb.WriteString("Also provide an overall score from 0 to 100 and a free-text summary.\n\n")
	sb.WriteString("Respond ONLY with a JSON object matching the requested schema, ")
	sb.WriteString("without any additional text or markdown formatting.\n\n")

	sb.WriteString("Contract source:\n```solidity\n")
	sb.WriteString(code)
	sb.WriteString("\n```\n")

	return sb.String()
}
