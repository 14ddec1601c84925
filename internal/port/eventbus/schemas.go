package eventbus

// DeliberationStartedPayload is the schema for council.deliberation.started messages.
type DeliberationStartedPayload struct {
	DeliberationID string   `json:"deliberation_id"`
	Tier           string   `json:"tier"`
	Query          string   `json:"query"`
	Models         []string `json:"models"`
}

// StageCompletedPayload is the schema for council.stage.completed messages.
// Stage is one of "answers", "normalization", "review" or "synthesis".
type StageCompletedPayload struct {
	DeliberationID string   `json:"deliberation_id"`
	Stage          string   `json:"stage"`
	Models         []string `json:"models"`
	FailedModels   []string `json:"failed_models"`
	DurationMS     int64    `json:"duration_ms"`
}

// DeliberationCompletedPayload is the schema for council.deliberation.completed messages.
type DeliberationCompletedPayload struct {
	DeliberationID string `json:"deliberation_id"`
	Tier           string `json:"tier"`
	WinnerModel    string `json:"winner_model"`
	AnswerCount    int    `json:"answer_count"`
	FromCache      bool   `json:"from_cache"`
	DurationMS     int64  `json:"duration_ms"`
}

// DeliberationFailedPayload is the schema for council.deliberation.failed messages.
type DeliberationFailedPayload struct {
	DeliberationID string `json:"deliberation_id"`
	Tier           string `json:"tier"`
	Reason         string `json:"reason"`
}
