package models

// CoupletPair is an upper line and the lower line answering it
type CoupletPair struct {
	UpText   string `json:"up_text"`
	DownText string `json:"down_text"`
}

// EvaluationResult is the scored verdict on a couplet.
// ContentScore is nil when the model did not supply it, and is then omitted from JSON.
type EvaluationResult struct {
	Score         int    `json:"score"`
	DuizhangScore int    `json:"duizhang_score"`
	PingzeScore   int    `json:"pingze_score"`
	ContentScore  *int   `json:"content_score,omitempty"`
	Detail        string `json:"detail"`
}

// Explanation is the free-form answer to a question about a couplet
type Explanation struct {
	Explanation string `json:"explanation"`
}
