package council

import (
	"testing"
)

func labels3() map[string]string {
	return map[string]string{
		"Response A": "model/a",
		"Response B": "model/b",
		"Response C": "model/c",
	}
}

func TestAggregateBordaCounts(t *testing.T) {
	reviews := []Review{
		{Reviewer: "model/x", Ranking: []string{"Response A", "Response B", "Response C"}},
		{Reviewer: "model/y", Ranking: []string{"Response B", "Response A", "Response C"}},
		{Reviewer: "model/z", Ranking: []string{"Response A", "Response C", "Response B"}},
	}

	out := AggregateBorda(reviews, labels3(), false)
	if len(out) != 3 {
		t.Fatalf("got %d entries, want 3", len(out))
	}

	want := []struct {
		label string
		score int
	}{
		{"Response A", 5},
		{"Response B", 3},
		{"Response C", 1},
	}
	for i, w := range want {
		if out[i].Label != w.label || out[i].BordaScore != w.score {
			t.Errorf("position %d = %s/%d, want %s/%d", i, out[i].Label, out[i].BordaScore, w.label, w.score)
		}
	}
	if out[0].Model != "model/a" {
		t.Errorf("winner model = %q, want model/a", out[0].Model)
	}
	if out[0].BallotCount != 3 {
		t.Errorf("winner ballot count = %d, want 3", out[0].BallotCount)
	}
}

func TestAggregateBordaTieBreakIsLexical(t *testing.T) {
	reviews := []Review{
		{Reviewer: "model/x", Ranking: []string{"Response B", "Response A"}},
		{Reviewer: "model/y", Ranking: []string{"Response A", "Response B"}},
	}
	valid := map[string]string{"Response A": "model/a", "Response B": "model/b"}

	out := AggregateBorda(reviews, valid, false)
	if out[0].Label != "Response A" || out[1].Label != "Response B" {
		t.Errorf("tie order = [%s, %s], want lexical [Response A, Response B]", out[0].Label, out[1].Label)
	}
}

func TestAggregateBordaExcludesSelfVotes(t *testing.T) {
	// model/a ranks itself first; with exclusion its ballot reduces to
	// [B, C], so A earns nothing from its own ballot.
	reviews := []Review{
		{Reviewer: "model/a", Ranking: []string{"Response A", "Response B", "Response C"}},
	}

	out := AggregateBorda(reviews, labels3(), true)
	for _, entry := range out {
		switch entry.Label {
		case "Response A":
			if entry.BordaScore != 0 || entry.BallotCount != 0 {
				t.Errorf("self-voted candidate scored %d over %d ballots, want 0/0", entry.BordaScore, entry.BallotCount)
			}
		case "Response B":
			if entry.BordaScore != 1 {
				t.Errorf("Response B score = %d, want 1", entry.BordaScore)
			}
		case "Response C":
			if entry.BordaScore != 0 {
				t.Errorf("Response C score = %d, want 0", entry.BordaScore)
			}
		}
	}
}

func TestAggregateBordaEmptiedBallot(t *testing.T) {
	valid := map[string]string{"Response A": "model/a"}
	reviews := []Review{
		{Reviewer: "model/a", Ranking: []string{"Response A"}},
	}

	out := AggregateBorda(reviews, valid, true)
	if len(out) != 1 {
		t.Fatalf("got %d entries, want 1", len(out))
	}
	if out[0].BordaScore != 0 || out[0].BallotCount != 0 {
		t.Errorf("emptied ballot produced score %d over %d ballots", out[0].BordaScore, out[0].BallotCount)
	}
}

func TestAggregateBordaAverageRank(t *testing.T) {
	reviews := []Review{
		{Reviewer: "model/x", Ranking: []string{"Response A", "Response B", "Response C"}},
		{Reviewer: "model/y", Ranking: []string{"Response B", "Response A", "Response C"}},
	}

	out := AggregateBorda(reviews, labels3(), false)
	for _, entry := range out {
		if entry.Label == "Response A" && entry.AverageRank != 1.5 {
			t.Errorf("Response A average rank = %v, want 1.5", entry.AverageRank)
		}
		if entry.Label == "Response C" && entry.AverageRank != 3 {
			t.Errorf("Response C average rank = %v, want 3", entry.AverageRank)
		}
	}
}

func TestAggregateRubric(t *testing.T) {
	reviews := []Review{
		{Reviewer: "model/x", Entries: []RankingEntry{
			{Label: "Response A", Scores: map[Dimension]float64{DimAccuracy: 8, DimClarity: 7}},
		}},
		{Reviewer: "model/y", Entries: []RankingEntry{
			{Label: "Response A", Scores: map[Dimension]float64{DimAccuracy: 9, DimClarity: 11}},
		}},
	}

	out := AggregateRubric(reviews)
	if got := out[DimAccuracy]; got != 8.5 {
		t.Errorf("accuracy = %v, want 8.5", got)
	}
	// 11 is out of range and discarded, not clamped: only the 7 remains.
	if got := out[DimClarity]; got != 7 {
		t.Errorf("clarity = %v, want 7 (out-of-range score discarded)", got)
	}
	if _, ok := out[DimRelevance]; ok {
		t.Error("relevance has no scores and must be absent, not zero")
	}
}

func TestAggregateRubricRounding(t *testing.T) {
	reviews := []Review{
		{Entries: []RankingEntry{{Label: "Response A", Scores: map[Dimension]float64{DimAccuracy: 7}}}},
		{Entries: []RankingEntry{{Label: "Response A", Scores: map[Dimension]float64{DimAccuracy: 8}}}},
		{Entries: []RankingEntry{{Label: "Response A", Scores: map[Dimension]float64{DimAccuracy: 8}}}},
	}

	out := AggregateRubric(reviews)
	if got := out[DimAccuracy]; got != 7.7 {
		t.Errorf("accuracy = %v, want 7.7", got)
	}
}

func TestSampleReviewers(t *testing.T) {
	models := []string{"a", "b", "c", "d"}

	if got := SampleReviewers(models, 0); len(got) != 4 {
		t.Errorf("max 0 should stay exhaustive, got %d reviewers", len(got))
	}
	if got := SampleReviewers(models, 2); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("max 2 = %v, want [a b]", got)
	}
	if got := SampleReviewers(models, 10); len(got) != 4 {
		t.Errorf("max above pool size should stay exhaustive, got %d", len(got))
	}
}

func TestLabel(t *testing.T) {
	cases := map[int]string{
		0:  "Response A",
		1:  "Response B",
		25: "Response Z",
		26: "Response AA",
		27: "Response AB",
	}
	for i, want := range cases {
		if got := Label(i); got != want {
			t.Errorf("Label(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestAssignLabels(t *testing.T) {
	answers := []Answer{
		{Model: "model/a"},
		{Model: "model/b"},
	}
	mapping := AssignLabels(answers)

	if answers[0].Label != "Response A" || answers[1].Label != "Response B" {
		t.Errorf("labels = [%s, %s], want pool order A, B", answers[0].Label, answers[1].Label)
	}
	if mapping["Response A"] != "model/a" || mapping["Response B"] != "model/b" {
		t.Errorf("mapping = %v", mapping)
	}
}
