// Package prompts holds the message templates sent to the language model.
package prompts

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

const ToolExtractionSystem = `You are a tech researcher. Extract specific tool, library, platform, or service names from articles.
Focus on actual products/tools that developers can use, not general concepts or features.`

const ToolAnalysisSystem = `You are analyzing developer tools and programming technologies.
Focus on extracting information relevant to programmers and software developers.
Pay special attention to programming languages, frameworks, APIs, SDKs, and development workflows.`

const RecommendationsSystem = `You are a senior software engineer providing quick, concise tech recommendations.
Keep responses brief and actionable - maximum 3-4 sentences total.`

// ToolExtraction asks the model for one tool name per line found in the article content.
func ToolExtraction(query, content string) []llms.MessageContent {
	user := fmt.Sprintf(`Query: %s
Article Content: %s

Extract a list of specific tool/service names mentioned in this content that are relevant to "%s".

Rules:
- Only include actual product names, not generic terms
- Focus on tools developers can directly use/implement
- Include both open source and commercial options
- Limit to the 5 most relevant tools
- Return just the tool names, one per line, no descriptions

Example format:
Supabase
PlanetScale
Railway
Appwrite
Nhost`, query, content, query)

	return []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, ToolExtractionSystem),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}
}

// ToolAnalysis asks the model for a CompanyAnalysis JSON object describing the scraped page.
func ToolAnalysis(content string) []llms.MessageContent {
	return []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, ToolAnalysisSystem+"\n\n# Response Format: \n\n"+CompanyAnalysisSchema()),
		llms.TextParts(llms.ChatMessageTypeHuman, content),
	}
}

// Recommendations asks for a short recommendation over the serialized company data.
func Recommendations(query, companyData string) []llms.MessageContent {
	user := fmt.Sprintf(`Developer Query: %s
Tools/Technologies Analyzed: %s

Provide a brief recommendation (3-4 sentences max) covering:
- Which tool is best and why
- Key cost/pricing consideration
- Main technical advantage

Be concise and direct - no long explanations needed.`, query, companyData)

	return []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, RecommendationsSystem),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}
}

func CompanyAnalysisSchema() string {
	return `Return the JSON object directly without any formatting or additional text. The JSON object should have the following structure as defined in the schema. Make sure to answer in valid json and include all necessary properties:{
  "type": "object",
  "properties": {
    "pricing_model": {
      "type": "string",
      "description": "Free, Freemium, Paid, Enterprise, or Unknown"
    },
    "is_open_source": {
      "type": ["boolean", "null"],
      "description": "Whether the tool is open source, null if unknown"
    },
    "tech_stack": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Technologies, languages and frameworks the tool is built with or supports"
    },
    "description": {
      "type": "string",
      "description": "Brief 1-sentence description focusing on what the tool does for developers"
    },
    "api_available": {
      "type": ["boolean", "null"],
      "description": "Whether a REST API, GraphQL, SDK or programmatic access is mentioned, null if unknown"
    },
    "language_support": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Programming languages explicitly supported"
    },
    "integration_capabilities": {
      "type": "array",
      "items": {"type": "string"},
      "description": "Tools and platforms it integrates with (GitHub, VS Code, Docker, AWS, ...)"
    }
  },
  "required": ["pricing_model", "is_open_source", "tech_stack", "description", "api_available", "language_support", "integration_capabilities"]
}`
}
