package advice

import (
	"fmt"
	"strings"

	"github.com/hpungsan/flourish/internal/analysis"
)

// promptContext is the subset of an analysis the prompts reference.
type promptContext struct {
	name       string
	scientific string
	confidence float64
	healthy    bool
	diseases   []string
}

func newPromptContext(plant *analysis.PlantInfo, health *analysis.HealthInfo) promptContext {
	pc := promptContext{
		name:       "Unknown plant",
		scientific: "Unknown species",
		healthy:    true,
	}
	if plant != nil {
		if plant.Name != "" {
			pc.name = plant.Name
		}
		if plant.ScientificName != "" {
			pc.scientific = plant.ScientificName
		}
		pc.confidence = plant.Confidence
	}
	if health != nil {
		pc.healthy = health.IsHealthy
		pc.diseases = health.DiseaseNames()
	}
	return pc
}

func initialPrompt(pc promptContext) string {
	health := "Healthy"
	if !pc.healthy {
		health = "Issues Detected: " + strings.Join(pc.diseases, ", ")
	}

	var b strings.Builder
	b.WriteString("You are an expert plant care advisor. Provide helpful, actionable advice with a warm, encouraging tone.\n\n")
	b.WriteString("IMPORTANT: Format your response using Markdown. Use bold for headings (e.g., **Plant Care Summary**). Use bullet points for lists.\n\n")
	fmt.Fprintf(&b, "PLANT ID: %s (%s), Confidence: %.1f%%\n", pc.name, pc.scientific, pc.confidence*100)
	fmt.Fprintf(&b, "HEALTH: %s\n\n", health)
	b.WriteString("Please provide your response in this exact format:\n")
	b.WriteString("**Plant Care Summary**\n[Brief summary]\n")
	b.WriteString("**Care Recommendations**\n[Bullet points]\n")
	b.WriteString("**General Care Tips**\n[Bullet points]\n")
	b.WriteString("**Encouragement**\n[Motivational message]\n")
	return b.String()
}

func chatPrompt(pc promptContext, question string) string {
	health := "Healthy"
	if !pc.healthy {
		health = "Has issues"
	}

	var b strings.Builder
	b.WriteString("You are a friendly, knowledgeable plant care expert in a conversation.\n")
	fmt.Fprintf(&b, "PLANT CONTEXT: %s (%s), Health: %s.\n", pc.name, pc.scientific, health)
	fmt.Fprintf(&b, "USER'S QUESTION: %s\n", question)
	b.WriteString("INSTRUCTIONS: Give a direct, helpful, and concise answer (2-4 sentences max). Do not repeat full care advice.\n")
	return b.String()
}

// fallbackName is the plant name interpolated into fallback text.
func fallbackName(plant *analysis.PlantInfo) string {
	if plant != nil && strings.TrimSpace(plant.Name) != "" {
		return plant.Name
	}
	return "plant"
}

// FallbackAdvice is the locally generated initial advice.
func FallbackAdvice(name string) string {
	return fmt.Sprintf(`**Plant Care Summary**
Your %s is ready for some TLC!

**Care Recommendations**
- Check soil moisture regularly.
- Ensure proper drainage to prevent root rot.

**General Care Tips**
- Water when the top inch of soil feels dry.
- Provide bright, indirect light.

**Encouragement**
Plant care is a journey of learning and growth. Keep going!

*Note: AI advisor is temporarily unavailable, but these general guidelines should help.*
`, name)
}

// FallbackChat is the locally generated follow-up reply.
func FallbackChat(name string) string {
	return fmt.Sprintf("I'm having trouble accessing my full knowledge right now, but I can help with general questions about your %s! What would you like to know?", name)
}
