package secrets

// Environment variables holding upstream provider API keys.
const (
	KeyOpenRouter = "OPENROUTER_API_KEY"
	KeyOpenAI     = "OPENAI_API_KEY"
	KeyAnthropic  = "ANTHROPIC_API_KEY"
	KeyGemini     = "GEMINI_API_KEY"
	KeyGoogle     = "GOOGLE_API_KEY"
)

// ProviderLoader returns a Loader covering every provider key the council
// resolves at startup.
func ProviderLoader() Loader {
	return EnvLoader(KeyOpenRouter, KeyOpenAI, KeyAnthropic, KeyGemini, KeyGoogle)
}
