package gemini

import (
	"google.golang.org/genai"

	"align-bot/internal/campaign"
)

// toSchema renders a campaign schema as an object of required string properties,
// keeping the declared field order.
func toSchema(s campaign.Schema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Fields))
	order := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = &genai.Schema{Type: genai.TypeString, Description: f.Description}
		order = append(order, f.Name)
	}
	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       props,
		PropertyOrdering: order,
		Required:         s.Required(),
	}
}
