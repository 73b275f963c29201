package types

// FeedbackType classifies a feedback item
type FeedbackType string

const (
	FeedbackImprovement FeedbackType = "improvement"
	FeedbackWarning     FeedbackType = "warning"
	FeedbackPositive    FeedbackType = "positive"
)

// FeedbackTarget is the wizard field whose text is being critiqued
type FeedbackTarget string

const (
	TargetProductDescription FeedbackTarget = "productDescription"
	TargetIdealUser          FeedbackTarget = "idealUser"
	TargetUserEndgame        FeedbackTarget = "userEndgame"
	TargetChallenge          FeedbackTarget = "challenge"
	TargetSolution           FeedbackTarget = "solution"
)

var feedbackCategories = map[FeedbackTarget][]string{
	TargetProductDescription: {"clarity", "specificity", "value-proposition", "differentiation", "audience"},
	TargetIdealUser:          {"clarity", "specificity", "motivation", "ability", "segmentation"},
	TargetUserEndgame:        {"clarity", "measurability", "outcome", "timeframe"},
	TargetChallenge:          {"clarity", "specificity", "severity", "scope"},
	TargetSolution:           {"clarity", "feasibility", "impact", "alignment"},
}

// Valid checks if the feedback target is known
func (t FeedbackTarget) Valid() bool {
	_, ok := feedbackCategories[t]
	return ok
}

// Categories returns the feedback categories allowed for the target
func (t FeedbackTarget) Categories() []string {
	return append([]string(nil), feedbackCategories[t]...)
}

// FeedbackItem is a critique anchored to a span of the analyzed text.
// StartIndex and EndIndex are rune offsets.
type FeedbackItem struct {
	ID         string       `json:"id"`
	Text       string       `json:"text"`
	Suggestion string       `json:"suggestion"`
	Type       FeedbackType `json:"type"`
	Category   string       `json:"category"`
	StartIndex int          `json:"startIndex"`
	EndIndex   int          `json:"endIndex"`
}
