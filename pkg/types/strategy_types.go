// Package types provides the domain data structures shared by the strategy gateway.
package types

// Level segments a target user's sophistication
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
)

// Valid checks if the level is valid
func (l Level) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// Levels returns all levels in progression order
func Levels() []Level {
	return []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}
}

// Rating is a coarse Low/Medium/High rating used by the ideal user profile
type Rating string

const (
	RatingLow    Rating = "Low"
	RatingMedium Rating = "Medium"
	RatingHigh   Rating = "High"
)

// Valid checks if the rating is valid
func (r Rating) Valid() bool {
	return r == RatingLow || r == RatingMedium || r == RatingHigh
}

// IdealUser describes the target user profile
type IdealUser struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Motivation  Rating   `json:"motivation" yaml:"motivation" validate:"omitempty,oneof=Low Medium High"`
	Ability     Rating   `json:"ability" yaml:"ability" validate:"omitempty,oneof=Low Medium High"`
	Traits      []string `json:"traits" yaml:"traits"`
	Impact      string   `json:"impact" yaml:"impact"`
}

// IsEmpty reports whether no identifying field of the profile is set
func (u *IdealUser) IsEmpty() bool {
	return u == nil || (u.Title == "" && u.Description == "")
}

// UserOutcome is the endgame the user reaches at a given level
type UserOutcome struct {
	Level Level  `json:"level" yaml:"level" validate:"required,oneof=beginner intermediate advanced"`
	Text  string `json:"text" yaml:"text"`
}

// BeginnerEndgame returns the beginner-level outcome text, if any
func BeginnerEndgame(outcomes []UserOutcome) string {
	for _, o := range outcomes {
		if o.Level == LevelBeginner {
			return o.Text
		}
	}
	return ""
}

// Challenge is an obstacle the user faces at a given level
type Challenge struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Level       Level  `json:"level" yaml:"level" validate:"required,oneof=beginner intermediate advanced"`
	Magnitude   int    `json:"magnitude" yaml:"magnitude" validate:"min=1,max=5"`
}

// SolutionType classifies how a solution is delivered
type SolutionType string

const (
	SolutionTypeProduct  SolutionType = "product"
	SolutionTypeResource SolutionType = "resource"
	SolutionTypeContent  SolutionType = "content"
)

// Valid checks if the solution type is valid
func (t SolutionType) Valid() bool {
	return t == SolutionTypeProduct || t == SolutionTypeResource || t == SolutionTypeContent
}

// Scale is a low/medium/high estimate used for cost and impact
type Scale string

const (
	ScaleLow    Scale = "low"
	ScaleMedium Scale = "medium"
	ScaleHigh   Scale = "high"
)

// Valid checks if the scale is valid
func (s Scale) Valid() bool {
	return s == ScaleLow || s == ScaleMedium || s == ScaleHigh
}

// Solution addresses a challenge
type Solution struct {
	ID          string       `json:"id" yaml:"id"`
	ChallengeID string       `json:"challengeId,omitempty" yaml:"challengeId,omitempty"`
	Text        string       `json:"text" yaml:"text" validate:"required"`
	Type        SolutionType `json:"type" yaml:"type" validate:"required,oneof=product resource content"`
	Cost        Scale        `json:"cost" yaml:"cost" validate:"required,oneof=low medium high"`
	Impact      Scale        `json:"impact" yaml:"impact" validate:"required,oneof=low medium high"`
}

// ModelType is one of the monetization models a product can adopt
type ModelType string

const (
	ModelOptInTrial         ModelType = "opt-in-trial"
	ModelOptOutTrial        ModelType = "opt-out-trial"
	ModelUsageTrial         ModelType = "usage-trial"
	ModelFreemium           ModelType = "freemium"
	ModelNewProductFreemium ModelType = "new-product-freemium"
	ModelSandbox            ModelType = "sandbox"
)

// ModelTypes returns all monetization models
func ModelTypes() []ModelType {
	return []ModelType{
		ModelOptInTrial,
		ModelOptOutTrial,
		ModelUsageTrial,
		ModelFreemium,
		ModelNewProductFreemium,
		ModelSandbox,
	}
}

// Valid checks if the model type is valid
func (m ModelType) Valid() bool {
	for _, candidate := range ModelTypes() {
		if m == candidate {
			return true
		}
	}
	return false
}

// FeatureCategory groups package features by the role they play
type FeatureCategory string

const (
	CategoryCore        FeatureCategory = "core"
	CategoryValueDemo   FeatureCategory = "value-demo"
	CategoryConnection  FeatureCategory = "connection"
	CategoryEducational FeatureCategory = "educational"
)

// Tier separates free and paid features
type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

// FeatureLimit caps a free feature
type FeatureLimit struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// PackageFeature is a feature placed in the free or paid package
type PackageFeature struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name" validate:"required"`
	Description string          `json:"description" yaml:"description"`
	Category    FeatureCategory `json:"category" yaml:"category" validate:"required,oneof=core value-demo connection educational"`
	Tier        Tier            `json:"tier" yaml:"tier" validate:"required,oneof=free paid"`
	Limits      *FeatureLimit   `json:"limits,omitempty" yaml:"limits,omitempty"`
}

// PricingModel is the packaging model of the pricing strategy
type PricingModel string

const (
	PricingFreemium  PricingModel = "freemium"
	PricingFreeTrial PricingModel = "free-trial"
	PricingOpenCore  PricingModel = "open-core"
)

// PricingBasis is what the paid package charges for
type PricingBasis string

const (
	BasisPerUser  PricingBasis = "per-user"
	BasisPerUsage PricingBasis = "per-usage"
	BasisFlatRate PricingBasis = "flat-rate"
)

// FreePackage describes the free offering
type FreePackage struct {
	Features        []string `json:"features" yaml:"features"`
	Limitations     []string `json:"limitations" yaml:"limitations"`
	ConversionGoals []string `json:"conversionGoals" yaml:"conversionGoals"`
}

// PaidPackage describes the paid offering
type PaidPackage struct {
	Features         []string `json:"features" yaml:"features"`
	ValueMetrics     []string `json:"valueMetrics" yaml:"valueMetrics"`
	TargetConversion float64  `json:"targetConversion" yaml:"targetConversion" validate:"min=0,max=100"`
}

// PricingStrategy ties the packages to a pricing model
type PricingStrategy struct {
	Model       PricingModel `json:"model" yaml:"model" validate:"required,oneof=freemium free-trial open-core"`
	Basis       PricingBasis `json:"basis" yaml:"basis" validate:"required,oneof=per-user per-usage flat-rate"`
	FreePackage FreePackage  `json:"freePackage" yaml:"freePackage"`
	PaidPackage PaidPackage  `json:"paidPackage" yaml:"paidPackage"`
}

// Packages holds the designed features and their pricing
type Packages struct {
	Features        []PackageFeature `json:"features" yaml:"features" validate:"dive"`
	PricingStrategy *PricingStrategy `json:"pricingStrategy,omitempty" yaml:"pricingStrategy,omitempty"`
}

// JourneyStage is one step of the user journey
type JourneyStage string

const (
	StageDiscovery  JourneyStage = "discovery"
	StageSignup     JourneyStage = "signup"
	StageActivation JourneyStage = "activation"
	StageEngagement JourneyStage = "engagement"
	StageConversion JourneyStage = "conversion"
)

// JourneyStages returns the five stages in journey order
func JourneyStages() []JourneyStage {
	return []JourneyStage{StageDiscovery, StageSignup, StageActivation, StageEngagement, StageConversion}
}

// UserJourney maps each stage to the user's description of it
type UserJourney map[JourneyStage]string

// AnalysisInput is everything the user entered in the wizard
type AnalysisInput struct {
	ProductDescription string        `json:"productDescription" yaml:"productDescription"`
	IdealUser          *IdealUser    `json:"idealUser,omitempty" yaml:"idealUser,omitempty"`
	UserEndgame        []UserOutcome `json:"userEndgame" yaml:"userEndgame" validate:"dive"`
	Challenges         []Challenge   `json:"challenges" yaml:"challenges" validate:"dive"`
	Solutions          []Solution    `json:"solutions" yaml:"solutions" validate:"dive"`
	SelectedModel      ModelType     `json:"selectedModel" yaml:"selectedModel" validate:"omitempty,oneof=opt-in-trial opt-out-trial usage-trial freemium new-product-freemium sandbox"`
	Packages           Packages      `json:"packages" yaml:"packages"`
	UserJourney        UserJourney   `json:"userJourney,omitempty" yaml:"userJourney,omitempty"`
}

// ChallengeByID returns the challenge with the given id
func ChallengeByID(challenges []Challenge, id string) (Challenge, bool) {
	for _, c := range challenges {
		if c.ID == id {
			return c, true
		}
	}
	return Challenge{}, false
}

// AdvancedSolutions returns the solutions whose referenced challenge is advanced, in input order
func AdvancedSolutions(challenges []Challenge, solutions []Solution) []Solution {
	var out []Solution
	for _, s := range solutions {
		if s.ChallengeID == "" {
			continue
		}
		if c, ok := ChallengeByID(challenges, s.ChallengeID); ok && c.Level == LevelAdvanced {
			out = append(out, s)
		}
	}
	return out
}

// ChallengesAtLevel returns the challenges of one level, in input order
func ChallengesAtLevel(challenges []Challenge, level Level) []Challenge {
	var out []Challenge
	for _, c := range challenges {
		if c.Level == level {
			out = append(out, c)
		}
	}
	return out
}
