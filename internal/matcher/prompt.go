// File path: internal/matcher/prompt.go
package matcher

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"

	"github.com/orderflow/workorder-engine/internal/recipe"
)

var selectionTemplate = prompts.NewPromptTemplate(
	"You are choosing which change recipe best matches a work order.\n"+
		"Recipes:\n{{.catalog}}\n\n"+
		"Work order: {{.user_text}}\n\n"+
		"Reply with a single JSON object: "+
		`{"matched_index": <1-based integer>, "confidence": <float 0..1>, "reasoning": <string>}. `+
		"No other text.",
	[]string{"catalog", "user_text"},
)

var extractionTemplate = prompts.NewPromptTemplate(
	"Extract the parameters this recipe needs from the work order text.\n"+
		"Recipe: {{.recipe_type}}: {{.description}}\n"+
		"Work order: {{.user_text}}\n\n"+
		"Reply with a single JSON object mapping parameter name to extracted value. "+
		"No other text.",
	[]string{"recipe_type", "description", "user_text"},
)

// buildSelectionPrompt renders the recipe-selection prompt enumerating the
// catalog as "<ordinal>. <work_order_type>: <description>".
func buildSelectionPrompt(userText string, catalog []*recipe.Recipe) string {
	var b strings.Builder
	for i, r := range catalog {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, r.WorkOrderType, r.Description)
	}
	text, err := selectionTemplate.Format(map[string]interface{}{
		"catalog":   b.String(),
		"user_text": userText,
	})
	if err != nil {
		// prompts.PromptTemplate.Format only fails on template construction
		// bugs, never on runtime input; falling back keeps Match usable.
		return b.String() + "\n" + userText
	}
	return text
}

func buildExtractionPrompt(userText string, chosen *recipe.Recipe) string {
	text, err := extractionTemplate.Format(map[string]interface{}{
		"recipe_type": chosen.WorkOrderType,
		"description": chosen.Description,
		"user_text":   userText,
	})
	if err != nil {
		return fmt.Sprintf("Recipe: %s: %s\nWork order: %s", chosen.WorkOrderType, chosen.Description, userText)
	}
	return text
}
