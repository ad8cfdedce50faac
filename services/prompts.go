package services

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

const (
	TaskResearch  = "research"
	TaskItinerary = "itinerary"
)

type searchFinding struct {
	Query   string
	Results []SearchResult
}

func buildAgentSystemPrompt(a *Agent) string {
	return fmt.Sprintf(`You are a %s.
Goal: %s
Background: %s

Use the web search results you are given when they are relevant and say so when
information could not be verified. Answer in Markdown only.`, a.Role, a.Goal, a.Backstory)
}

func buildTaskPrompt(t Task, previous []TaskOutput, findings []searchFinding) string {
	var b strings.Builder

	b.WriteString("TASK:\n")
	b.WriteString(t.Description)
	b.WriteString("\n\nEXPECTED OUTPUT:\n")
	b.WriteString(t.ExpectedOutput)
	b.WriteString("\n")

	if len(previous) > 0 {
		b.WriteString("\nCONTEXT FROM EARLIER TASKS:\n")
		for _, p := range previous {
			fmt.Fprintf(&b, "--- %s (%s) ---\n%s\n", p.Name, p.Agent, p.Raw)
		}
	}

	if len(findings) > 0 {
		b.WriteString("\nWEB SEARCH RESULTS:\n")
		for _, f := range findings {
			fmt.Fprintf(&b, "Query: %s\n", f.Query)
			for i, r := range f.Results {
				fmt.Fprintf(&b, "%d. %s (%s)\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
			}
		}
	}

	return b.String()
}

// NewTravelCrew builds the research-then-itinerary crew. Both agents share
// one model and one search tool.
func NewTravelCrew(llm LLMProvider, search SearchProvider, log zerolog.Logger) *Crew {
	researcher := &Agent{
		Role:      "Travel Research Expert",
		Goal:      "Research detailed travel info for {destination}",
		Backstory: "Expert global travel researcher.",
		LLM:       llm,
		Search:    search,
	}
	planner := &Agent{
		Role:      "Itinerary Planner",
		Goal:      "Prepare a full {days}-day itinerary for {destination}",
		Backstory: "Creates balanced itineraries for all budgets.",
		LLM:       llm,
		Search:    search,
	}

	tasks := []Task{
		{
			Name: TaskResearch,
			Description: "Research {destination}. Include:\n" +
				"- Flight ranges from {origin}\n" +
				"- Best areas to stay\n" +
				"- Local transport options\n" +
				"- Attractions matching style {style}\n" +
				"- Weather in {month}\n" +
				"- Safety/cultural tips",
			ExpectedOutput: "Structured markdown research brief.",
			SearchQueries: []string{
				"flights from {origin} to {destination} price",
				"best areas to stay in {destination}",
				"{destination} weather in {month}",
				"{destination} {style} attractions",
			},
			Agent: researcher,
		},
		{
			Name: TaskItinerary,
			Description: "Create {days}-day itinerary for {destination} for {travellers} travellers " +
				"with a total budget of {budget}.\n" +
				"- Day-wise plan\n" +
				"- Food suggestions\n" +
				"- Budget breakdown\n" +
				"- Photo spot recommendations",
			ExpectedOutput: "Full markdown itinerary.",
			SearchQueries: []string{
				"{destination} {days} day itinerary",
				"best photo spots in {destination}",
			},
			Agent: planner,
		},
	}

	return NewCrew(tasks, log)
}
