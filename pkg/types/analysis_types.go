package types

import "time"

// DeepScore is the four-dimension DEEP rating of a strategy, each within [0,10]
type DeepScore struct {
	Desirability  float64 `json:"desirability"`
	Effectiveness float64 `json:"effectiveness"`
	Efficiency    float64 `json:"efficiency"`
	Polish        float64 `json:"polish"`
}

// Average returns the mean of the four dimensions
func (d DeepScore) Average() float64 {
	return (d.Desirability + d.Effectiveness + d.Efficiency + d.Polish) / 4
}

// Component names used for componentScores and componentFeedback
const (
	ComponentProductDescription = "productDescription"
	ComponentIdealUser          = "idealUser"
	ComponentUserEndgame        = "userEndgame"
	ComponentChallenges         = "challenges"
	ComponentSolutions          = "solutions"
	ComponentModelSelection     = "modelSelection"
	ComponentPackageDesign      = "packageDesign"
	ComponentPricingStrategy    = "pricingStrategy"
)

// Components returns the scored components in wizard order
func Components() []string {
	return []string{
		ComponentProductDescription,
		ComponentIdealUser,
		ComponentUserEndgame,
		ComponentChallenges,
		ComponentSolutions,
		ComponentModelSelection,
		ComponentPackageDesign,
		ComponentPricingStrategy,
	}
}

// ComponentFeedback is the qualitative review of one component
type ComponentFeedback struct {
	Strengths       []string `json:"strengths"`
	Recommendations []string `json:"recommendations"`
	Analysis        string   `json:"analysis,omitempty"`
	Considerations  []string `json:"considerations,omitempty"`
}

// ActionPlan buckets next steps by time horizon and by people/process/technology
type ActionPlan struct {
	Immediate  []string `json:"immediate"`
	Medium     []string `json:"medium"`
	Long       []string `json:"long"`
	People     []string `json:"people"`
	Process    []string `json:"process"`
	Technology []string `json:"technology"`
}

// ABTest is a suggested experiment
type ABTest struct {
	Hypothesis    string   `json:"hypothesis"`
	Variants      []string `json:"variants"`
	SuccessMetric string   `json:"successMetric"`
}

// Metric is a suggested success metric
type Metric struct {
	Name      string `json:"name"`
	Target    string `json:"target"`
	Timeframe string `json:"timeframe"`
}

// Testing groups the experiments and metrics of an analysis
type Testing struct {
	ABTests []ABTest `json:"abTests"`
	Metrics []Metric `json:"metrics"`
}

// JourneyStageAnalysis reviews one stage of the user journey
type JourneyStageAnalysis struct {
	Score       float64  `json:"score"`
	Analysis    string   `json:"analysis"`
	Strengths   []string `json:"strengths"`
	Suggestions []string `json:"suggestions"`
}

// JourneyAnalysis reviews all five journey stages
type JourneyAnalysis struct {
	Discovery  JourneyStageAnalysis `json:"discovery"`
	Signup     JourneyStageAnalysis `json:"signup"`
	Activation JourneyStageAnalysis `json:"activation"`
	Engagement JourneyStageAnalysis `json:"engagement"`
	Conversion JourneyStageAnalysis `json:"conversion"`
}

// Stage returns the analysis of the given stage
func (j JourneyAnalysis) Stage(stage JourneyStage) JourneyStageAnalysis {
	switch stage {
	case StageDiscovery:
		return j.Discovery
	case StageSignup:
		return j.Signup
	case StageActivation:
		return j.Activation
	case StageEngagement:
		return j.Engagement
	default:
		return j.Conversion
	}
}

// Analysis is the validated strategic analysis of an AnalysisInput
type Analysis struct {
	ID                string                       `json:"id"`
	DeepScore         DeepScore                    `json:"deepScore"`
	Summary           string                       `json:"summary"`
	Strengths         []string                     `json:"strengths"`
	Weaknesses        []string                     `json:"weaknesses"`
	Recommendations   []string                     `json:"recommendations"`
	ComponentScores   map[string]int               `json:"componentScores"`
	ComponentFeedback map[string]ComponentFeedback `json:"componentFeedback"`
	ActionPlan        ActionPlan                   `json:"actionPlan"`
	Testing           Testing                      `json:"testing"`
	JourneyAnalysis   JourneyAnalysis              `json:"journeyAnalysis"`
	CreatedAt         time.Time                    `json:"createdAt"`
}
