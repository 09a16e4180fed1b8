package gpt

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Persona is a chat character with its own tone and sampling temperature
type Persona struct {
	Name          string
	Title         string
	Temperature   float32
	ResponseStyle string
	TopicFocus    string
	DefaultPrompt string
	// Analysis is the analysis type the persona leans towards
	Analysis AnalysisType
}

// DefaultPersona is used when a chat has not picked one
const DefaultPersona = "nova"

var personas = map[string]Persona{
	"nova": {
		Name:          "Nova",
		Title:         "Logic-Driven Analyst",
		Temperature:   0.3,
		ResponseStyle: "analytical",
		TopicFocus:    "data-driven analysis",
		DefaultPrompt: "I'm Nova, your Logic-Driven Analyst. How can I help you with crypto analysis today?",
		Analysis:      Comprehensive,
	},
	"luna": {
		Name:          "Luna",
		Title:         "Creative Strategist",
		Temperature:   0.7,
		ResponseStyle: "innovative",
		TopicFocus:    "creative investment strategies",
		DefaultPrompt: "Luna here! I'm excited to explore creative crypto opportunities with you. What unique possibilities shall we discover today?",
		Analysis:      Opportunity,
	},
	"vega": {
		Name:          "Vega",
		Title:         "Technical Analyst",
		Temperature:   0.4,
		ResponseStyle: "technical",
		TopicFocus:    "chart patterns and indicators",
		DefaultPrompt: "Vega online. Ready to analyze technical patterns and market indicators. What charts would you like me to examine?",
		Analysis:      Technical,
	},
	"ember": {
		Name:          "Ember",
		Title:         "Protective Guardian",
		Temperature:   0.5,
		ResponseStyle: "protective",
		TopicFocus:    "risk management",
		DefaultPrompt: "This is Ember, your protective guardian. I'm here to help you navigate crypto risks safely. What concerns can I address for you?",
		Analysis:      Risk,
	},
	"astra": {
		Name:          "Astra",
		Title:         "Visionary Explorer",
		Temperature:   0.8,
		ResponseStyle: "visionary",
		TopicFocus:    "high-risk opportunities",
		DefaultPrompt: "Astra activated! Ready to spot those high-risk, high-reward opportunities most would miss. What moonshot are we hunting today?",
		Analysis:      Opportunity,
	},
}

// LookupPersona finds a persona by case-insensitive key
func LookupPersona(key string) (Persona, bool) {
	p, ok := personas[strings.ToLower(strings.TrimSpace(key))]
	return p, ok
}

// PersonaOrDefault returns the persona for key, or Nova
func PersonaOrDefault(key string) Persona {
	if p, ok := LookupPersona(key); ok {
		return p
	}
	return personas[DefaultPersona]
}

// PersonaKeys lists persona keys in alphabetical order
func PersonaKeys() []string {
	keys := make([]string, 0, len(personas))
	for k := range personas {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ChatSystemPrompt is the system prompt for free-form chat with p
func (p Persona) ChatSystemPrompt(now time.Time) string {
	return fmt.Sprintf(`You are %s, the %s of the NOVA crypto assistant team. Your style is %s and you concentrate on %s.

When discussing cryptocurrencies:
1. Focus on data, metrics, and observable patterns
2. Cite specific metrics like market cap, volume, liquidity, developer activity when relevant
3. Acknowledge limitations in your data or analysis
4. Always mention that you are providing analysis, not financial advice

Current date: %s`, p.Name, p.Title, p.ResponseStyle, p.TopicFocus, now.Format("2006-01-02"))
}
