package scoring

import (
	"fmt"
	"strings"

	"github.com/hyperengineering/postrater/internal/types"
)

const jsonShape = `{
  "rating": integer between 0-100,
  "justification": "detailed explanation",
  "sentimentAnalysisLabel": "One of: %s",
  "sentimentAnalysisScore": float between 0-1,
  "biasDetectionScore": float between 0-1,
  "biasDetectionDirection": "One of: %s",
  "originalityScore": float between 0-1,
  "similarityScore": float between 0-1,
  "readabilityFleschKincaid": float representing grade level,
  "readabilityGunningFog": float representing index score,
  "mainTopic": "primary subject",
  "secondaryTopics": ["topic1", "topic2", "topic3"]
}`

const systemTemplate = `You are an expert content evaluator with experience in journalism, SEO, and content marketing.

Evaluate this content objectively, considering clarity, coherence, accuracy, and value.
Base your evaluation solely on the provided content. Remain objective regardless of subject matter.

IMPORTANT: Your response MUST be valid JSON that matches this structure:

%s

secondaryTopics must contain between 2 and 4 entries.
Do NOT include any explanations, markdown formatting, or other text outside the JSON structure.
Ensure all values conform to the specified types and ranges.
`

// SystemPrompt is the instruction sent ahead of every post.
var SystemPrompt = fmt.Sprintf(systemTemplate, fmt.Sprintf(jsonShape, sentimentList(), biasList()))

// UserPrompt formats a post for the scoring model.
func UserPrompt(title, content string) string {
	return "Title: " + title + "\n\nContent: " + content
}

func sentimentList() string {
	labels := make([]string, len(types.SentimentLabels))
	for i, l := range types.SentimentLabels {
		labels[i] = string(l)
	}
	return strings.Join(labels, ", ")
}

func biasList() string {
	dirs := make([]string, len(types.BiasDirections))
	for i, d := range types.BiasDirections {
		dirs[i] = string(d)
	}
	return strings.Join(dirs, ", ")
}
