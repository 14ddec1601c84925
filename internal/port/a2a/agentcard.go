package a2a

// AgentCard is the discovery document served at /.well-known/agent.json.
// Field names and the capabilities envelope are fixed by the A2A protocol;
// only the values are ours.
type AgentCard struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	URL          string  `json:"url"`
	Version      string  `json:"version"`
	Skills       []Skill `json:"skills"`
	Capabilities struct {
		Streaming bool `json:"streaming"`
	} `json:"capabilities"`
}

// Skill advertises one council operation to peer agents. The council
// exposes consult (full deliberation) and verify (confidence verdict).
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	InputModes  []string `json:"inputModes"`
	OutputModes []string `json:"outputModes"`
}

// BuildAgentCard returns the static AgentCard for the council service.
func BuildAgentCard(baseURL string) AgentCard {
	return AgentCard{
		Name:        "LLM Council",
		Description: "Tiered multi-model deliberation and verification service",
		URL:         baseURL,
		Version:     "0.1.0",
		Skills: []Skill{
			{
				ID:          "consult",
				Name:        "Consult Council",
				Description: "Run a query through a council of models and return a synthesized answer",
				InputModes:  []string{"text"},
				OutputModes: []string{"text"},
			},
			{
				ID:          "verify",
				Name:        "Verify With Council",
				Description: "Ask the council for a pass/fail verdict with confidence",
				InputModes:  []string{"text"},
				OutputModes: []string{"text"},
			},
		},
		Capabilities: struct {
			Streaming bool `json:"streaming"`
		}{Streaming: true},
	}
}
