package council

import (
	"math"
	"sort"
)

// AggregateRanking is the consensus standing of one candidate after Borda
// reduction of all ballots.
type AggregateRanking struct {
	Label       string  `json:"label"`
	Model       string  `json:"model"`
	BordaScore  int     `json:"borda_score"`
	AverageRank float64 `json:"average_rank"`
	BallotCount int     `json:"rankings_count"`
}

// AggregateBorda reduces reviewer ballots into one consensus ordering.
// Each ballot awards a candidate at position p among M ranked candidates
// M-1-p points; aggregate score is the sum across ballots. When
// excludeSelfVotes is set, a reviewer's entry for its own answer is
// dropped from the ballot before scoring, using the label->model mapping
// established before labels were concealed. A ballot emptied by exclusion
// is skipped. Ties break by label lexical order so identical inputs always
// produce the same total order.
func AggregateBorda(reviews []Review, labelToModel map[string]string, excludeSelfVotes bool) []AggregateRanking {
	points := make(map[string]int)
	rankSum := make(map[string]int)
	ballots := make(map[string]int)

	for _, rv := range reviews {
		ballot := rv.Ranking
		if excludeSelfVotes {
			ballot = withoutSelfVote(ballot, rv.Reviewer, labelToModel)
		}
		m := len(ballot)
		if m == 0 {
			continue
		}
		for pos, label := range ballot {
			points[label] += m - 1 - pos
			rankSum[label] += pos + 1
			ballots[label]++
		}
	}

	out := make([]AggregateRanking, 0, len(labelToModel))
	for label, model := range labelToModel {
		entry := AggregateRanking{
			Label:       label,
			Model:       model,
			BordaScore:  points[label],
			BallotCount: ballots[label],
		}
		if entry.BallotCount > 0 {
			avg := float64(rankSum[label]) / float64(entry.BallotCount)
			entry.AverageRank = math.Round(avg*100) / 100
		}
		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].BordaScore != out[j].BordaScore {
			return out[i].BordaScore > out[j].BordaScore
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// withoutSelfVote returns ballot minus any label mapped to the reviewer's
// own model. The original slice is never modified.
func withoutSelfVote(ballot []string, reviewer string, labelToModel map[string]string) []string {
	out := make([]string, 0, len(ballot))
	for _, label := range ballot {
		if labelToModel[label] == reviewer {
			continue
		}
		out = append(out, label)
	}
	return out
}

// AggregateRubric averages rubric scores per dimension across all
// reviewers' entries. Only numeric scores within [0,10] count; anything
// out of range is discarded rather than clamped. A dimension nobody scored
// is absent from the result, never zero.
func AggregateRubric(reviews []Review) map[Dimension]float64 {
	collected := make(map[Dimension][]float64)
	for _, rv := range reviews {
		for _, entry := range rv.Entries {
			for dim, score := range entry.Scores {
				if score < 0 || score > 10 {
					continue
				}
				collected[dim] = append(collected[dim], score)
			}
		}
	}

	out := make(map[Dimension]float64, len(collected))
	for _, dim := range Dimensions() {
		scores := collected[dim]
		if len(scores) == 0 {
			continue
		}
		var sum float64
		for _, s := range scores {
			sum += s
		}
		out[dim] = math.Round(sum/float64(len(scores))*10) / 10
	}
	return out
}

// SampleReviewers caps the reviewer set for stratified peer review. With
// max <= 0 review stays exhaustive. The cap takes survivors in pool order,
// keeping call volume at O(reviewers x candidates) and the selection
// reproducible.
func SampleReviewers(models []string, max int) []string {
	if max <= 0 || len(models) <= max {
		return models
	}
	return models[:max]
}
