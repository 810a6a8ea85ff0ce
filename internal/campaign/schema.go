package campaign

// StrategySchema is the structured output contract of the strategist.
var StrategySchema = Schema{
	Name: "strategy",
	Fields: []Field{
		{Name: "marketAnalysis", Description: "Brief analysis of the current market context for this topic."},
		{Name: "strategicAngle", Description: "The unique angle we will take to stand out."},
		{Name: "alignmentCheck", Description: "Confirming this aligns with brand mission. Flag potential risks."},
		{Name: "toneInstruction", Description: "Specific instructions for the copywriter."},
	},
}

// ContentSchema is the structured output contract of the executor.
var ContentSchema = Schema{
	Name: "content",
	Fields: []Field{
		{Name: "headline"},
		{Name: "body"},
		{Name: "imagePrompt", Description: "A highly detailed prompt for an image generator."},
		{Name: "rationale", Description: "Why this content is safe and aligned."},
	},
}
