package model

// Recommendation is the discrete label derived from a total score.
type Recommendation string

const (
	StrongBuy  Recommendation = "Strong Buy"
	Buy        Recommendation = "Buy"
	Hold       Recommendation = "Hold"
	Sell       Recommendation = "Sell"
	StrongSell Recommendation = "Strong Sell"
)

// CriterionScore is a single scoring rule outcome.
type CriterionScore struct {
	Name   string `json:"name"`
	Value  Metric `json:"value"`
	Points int    `json:"points"`
}

// ScoreBreakdown is the full scoring result for one symbol.
type ScoreBreakdown struct {
	Symbol            string           `json:"symbol"`
	Fundamental       []CriterionScore `json:"fundamental"`
	Technical         []CriterionScore `json:"technical"`
	FundamentalPoints int              `json:"fundamental_points"`
	TechnicalPoints   int              `json:"technical_points"`
	Score             int              `json:"score"`
	Recommendation    Recommendation   `json:"recommendation"`
}
