package service

import (
	"fmt"
	"strings"

	"github.com/lana-info/llm-council/internal/domain/council"
)

// Prompt builders for the pipeline stages. The exact phrasing is not part
// of the council's contract; the structured bits reviewers must echo back
// (labels, the JSON ranking shape, verdict markers) are.

func answerPrompt(query string) string {
	var b strings.Builder
	b.WriteString("You are one voice on a council of independent experts. ")
	b.WriteString("Answer the question below as well as you can, on your own. ")
	b.WriteString("Do not hedge about being one of several models.\n\n")
	b.WriteString("Question:\n")
	b.WriteString(query)
	return b.String()
}

func normalizePrompt(answer string) string {
	var b strings.Builder
	b.WriteString("Rewrite the following answer in a neutral, uniform style. ")
	b.WriteString("Preserve every claim, every caveat and the full substance. ")
	b.WriteString("Remove distinctive formatting, filler phrases and stylistic flourishes. ")
	b.WriteString("Output only the rewritten answer.\n\n")
	b.WriteString(answer)
	return b.String()
}

func reviewPrompt(query string, answers []council.Answer) string {
	var b strings.Builder
	b.WriteString("You are reviewing anonymized answers from a council of experts. ")
	b.WriteString("Rank them from best to worst and score each on a 0-10 scale per dimension.\n\n")
	b.WriteString("Original question:\n")
	b.WriteString(query)
	b.WriteString("\n\n")
	for _, a := range answers {
		fmt.Fprintf(&b, "=== %s ===\n%s\n\n", a.Label, a.ReviewText())
	}
	b.WriteString("Respond with exactly this JSON, nothing else:\n")
	b.WriteString(`{"ranking": ["Response A", "..."], "rubric_scores": {"Response A": {"accuracy": 0, "relevance": 0, "completeness": 0, "conciseness": 0, "clarity": 0}}}`)
	return b.String()
}

func verifierPrompt(query string, answers []council.Answer) string {
	var b strings.Builder
	b.WriteString("Sanity-check the following answers to a question. ")
	b.WriteString("Note factual errors, contradictions between answers, and anything that looks unsafe or unsupported. ")
	b.WriteString("Be brief.\n\n")
	b.WriteString("Question:\n")
	b.WriteString(query)
	b.WriteString("\n\n")
	for _, a := range answers {
		fmt.Fprintf(&b, "=== %s ===\n%s\n\n", a.Label, a.ReviewText())
	}
	return b.String()
}

func synthesisPrompt(query string, answers []council.Answer, rankings []council.AggregateRanking, verifierNote string) string {
	var b strings.Builder
	b.WriteString("You are the chairman of a council of experts. ")
	b.WriteString("Synthesize the council's answers into one final, self-contained answer to the question. ")
	b.WriteString("Prefer claims the council agrees on; flag real disagreements instead of papering over them.\n\n")
	b.WriteString("Question:\n")
	b.WriteString(query)
	b.WriteString("\n\n")
	for _, a := range answers {
		fmt.Fprintf(&b, "=== %s ===\n%s\n\n", a.Label, a.ReviewText())
	}
	if len(rankings) > 0 {
		b.WriteString("Peer ranking (best first):\n")
		for i, r := range rankings {
			fmt.Fprintf(&b, "%d. %s (score %d across %d ballots)\n", i+1, r.Label, r.BordaScore, r.BallotCount)
		}
		b.WriteString("\n")
	}
	if verifierNote != "" {
		b.WriteString("Verifier notes:\n")
		b.WriteString(verifierNote)
		b.WriteString("\n\n")
	}
	b.WriteString("Final answer:")
	return b.String()
}

// verifyQuery frames an arbitrary claim or work product as a verification
// question so the synthesis carries the verdict markers the extractor
// scans for.
func verifyQuery(query string) string {
	var b strings.Builder
	b.WriteString("Verify the following and reach an explicit verdict. ")
	b.WriteString("State clearly whether it is APPROVED or REJECTED, and list any blocking ")
	b.WriteString("issues as lines starting with CRITICAL:, MAJOR: or MINOR:.\n\n")
	b.WriteString(query)
	return b.String()
}
