package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Strategy is the persisted record of a completed or in-progress wizard
type Strategy struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title" validate:"max=200"`
	ProductDescription string           `json:"product_description"`
	IdealUser          *IdealUser       `json:"ideal_user,omitempty" validate:"omitempty"`
	Outcomes           []UserOutcome    `json:"outcomes" validate:"dive"`
	Challenges         []Challenge      `json:"challenges" validate:"dive"`
	Solutions          []Solution       `json:"solutions" validate:"dive"`
	SelectedModel      ModelType        `json:"selected_model,omitempty" validate:"omitempty,oneof=opt-in-trial opt-out-trial usage-trial freemium new-product-freemium sandbox"`
	Features           []PackageFeature `json:"features" validate:"dive"`
	UserJourney        UserJourney      `json:"user_journey,omitempty"`
	AnalysisResults    *Analysis        `json:"analysis_results,omitempty"`
	PricingStrategy    *PricingStrategy `json:"pricing_strategy,omitempty" validate:"omitempty"`
	ShareID            string           `json:"share_id"`
	IsPublic           bool             `json:"is_public"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// StrategyFromInput builds a record from the wizard input and an optional analysis
func StrategyFromInput(title string, input *AnalysisInput, analysis *Analysis) *Strategy {
	return &Strategy{
		Title:              title,
		ProductDescription: input.ProductDescription,
		IdealUser:          input.IdealUser,
		Outcomes:           input.UserEndgame,
		Challenges:         input.Challenges,
		Solutions:          input.Solutions,
		SelectedModel:      input.SelectedModel,
		Features:           input.Packages.Features,
		UserJourney:        input.UserJourney,
		AnalysisResults:    analysis,
		PricingStrategy:    input.Packages.PricingStrategy,
	}
}

// Input reconstructs the wizard input held by the record
func (s *Strategy) Input() AnalysisInput {
	return AnalysisInput{
		ProductDescription: s.ProductDescription,
		IdealUser:          s.IdealUser,
		UserEndgame:        s.Outcomes,
		Challenges:         s.Challenges,
		Solutions:          s.Solutions,
		SelectedModel:      s.SelectedModel,
		Packages: Packages{
			Features:        s.Features,
			PricingStrategy: s.PricingStrategy,
		},
		UserJourney: s.UserJourney,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct runs the struct tag validation and flattens the result into one error
// naming every offending field.
func ValidateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// Validate checks enum, range and reference constraints of the input. It does not
// require any field to be filled in; see gateway.MissingRequiredFields for that.
func (in *AnalysisInput) Validate() error {
	if err := ValidateStruct(in); err != nil {
		return err
	}
	for _, s := range in.Solutions {
		if s.ChallengeID == "" {
			continue
		}
		if _, ok := ChallengeByID(in.Challenges, s.ChallengeID); !ok {
			return fmt.Errorf("solution %q references unknown challenge %q", s.ID, s.ChallengeID)
		}
	}
	return nil
}
