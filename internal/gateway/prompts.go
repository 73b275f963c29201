package gateway

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"product-strategy-gateway/pkg/types"
)

// NotSpecified replaces every optional value the user has not provided
const NotSpecified = "Not specified"

var modelDescriptions = map[types.ModelType]string{
	types.ModelOptInTrial:         "Time-limited full access without payment details up front",
	types.ModelOptOutTrial:        "Time-limited full access that converts to paid unless cancelled",
	types.ModelUsageTrial:         "Full access until a usage allowance is consumed",
	types.ModelFreemium:           "A permanently free tier with paid upgrades",
	types.ModelNewProductFreemium: "A free new product that upsells into an existing paid product",
	types.ModelSandbox:            "A demo environment with sample data to explore the product",
}

// Label title-cases an enum value for display: "opt-in-trial" becomes "Opt In Trial"
// and "idealUser" becomes "Ideal User".
func Label(value string) string {
	if value == "" {
		return NotSpecified
	}
	var words strings.Builder
	for i, r := range value {
		switch {
		case r == '-' || r == '_':
			words.WriteRune(' ')
		case i > 0 && unicode.IsUpper(r):
			words.WriteRune(' ')
			words.WriteRune(r)
		default:
			words.WriteRune(r)
		}
	}
	// Casers are stateful, so each call gets its own
	return cases.Title(language.English).String(words.String())
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotSpecified
	}
	return s
}

func joinOrNotSpecified(items []string) string {
	var kept []string
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return NotSpecified
	}
	return strings.Join(kept, ", ")
}

// brief accumulates labelled prompt sections
type brief struct {
	sb strings.Builder
}

func (b *brief) section(title string) {
	if b.sb.Len() > 0 {
		b.sb.WriteString("\n")
	}
	b.sb.WriteString("## ")
	b.sb.WriteString(title)
	b.sb.WriteString("\n")
}

func (b *brief) line(format string, args ...interface{}) {
	fmt.Fprintf(&b.sb, format, args...)
	b.sb.WriteString("\n")
}

func (b *brief) notSpecified() {
	b.line(NotSpecified)
}

func (b *brief) String() string {
	return b.sb.String()
}

func (b *brief) idealUser(u *types.IdealUser) {
	b.section("Ideal User")
	if u == nil {
		b.notSpecified()
		return
	}
	b.line("Title: %s", orNotSpecified(u.Title))
	b.line("Description: %s", orNotSpecified(u.Description))
	b.line("Motivation: %s", orNotSpecified(string(u.Motivation)))
	b.line("Ability: %s", orNotSpecified(string(u.Ability)))
	b.line("Traits: %s", joinOrNotSpecified(u.Traits))
	b.line("Impact: %s", orNotSpecified(u.Impact))
}

func (b *brief) outcomes(outcomes []types.UserOutcome) {
	b.section("User Endgame")
	if len(outcomes) == 0 {
		b.notSpecified()
		return
	}
	for _, o := range outcomes {
		b.line("- %s: %s", Label(string(o.Level)), orNotSpecified(o.Text))
	}
}

func (b *brief) challenges(title string, challenges []types.Challenge) {
	b.section(title)
	if len(challenges) == 0 {
		b.notSpecified()
		return
	}
	for i, c := range challenges {
		if c.Description != "" {
			b.line("%d. [%s, magnitude %d/5] %s: %s", i+1, Label(string(c.Level)), c.Magnitude, orNotSpecified(c.Title), c.Description)
		} else {
			b.line("%d. [%s, magnitude %d/5] %s", i+1, Label(string(c.Level)), c.Magnitude, orNotSpecified(c.Title))
		}
	}
}

func (b *brief) solutions(title string, solutions []types.Solution, challenges []types.Challenge) {
	b.section(title)
	if len(solutions) == 0 {
		b.notSpecified()
		return
	}
	for i, s := range solutions {
		addresses := NotSpecified
		if c, ok := types.ChallengeByID(challenges, s.ChallengeID); ok {
			addresses = c.Title
		}
		b.line("%d. %s (type: %s, cost: %s, impact: %s, addresses: %s)",
			i+1, orNotSpecified(s.Text),
			orNotSpecified(string(s.Type)), orNotSpecified(string(s.Cost)), orNotSpecified(string(s.Impact)),
			addresses)
	}
}

func (b *brief) features(title string, features []types.PackageFeature) {
	b.section(title)
	if len(features) == 0 {
		b.notSpecified()
		return
	}
	for _, f := range features {
		limit := ""
		if f.Limits != nil {
			limit = fmt.Sprintf("; limit: %s %s", f.Limits.Type, f.Limits.Value)
		}
		b.line("- %s (%s, %s): %s%s", orNotSpecified(f.Name), orNotSpecified(string(f.Category)), orNotSpecified(string(f.Tier)),
			orNotSpecified(f.Description), limit)
	}
}

func (b *brief) pricing(p *types.PricingStrategy) {
	b.section("Pricing Strategy")
	if p == nil {
		b.notSpecified()
		return
	}
	b.line("Model: %s", Label(string(p.Model)))
	b.line("Basis: %s", Label(string(p.Basis)))
	b.line("Free package features: %s", joinOrNotSpecified(p.FreePackage.Features))
	b.line("Free package limitations: %s", joinOrNotSpecified(p.FreePackage.Limitations))
	b.line("Conversion goals: %s", joinOrNotSpecified(p.FreePackage.ConversionGoals))
	b.line("Paid package features: %s", joinOrNotSpecified(p.PaidPackage.Features))
	b.line("Value metrics: %s", joinOrNotSpecified(p.PaidPackage.ValueMetrics))
	b.line("Target conversion: %g%%", p.PaidPackage.TargetConversion)
}

func (b *brief) journey(j types.UserJourney) {
	b.section("User Journey")
	if len(j) == 0 {
		b.notSpecified()
		return
	}
	for _, stage := range types.JourneyStages() {
		b.line("- %s: %s", Label(string(stage)), orNotSpecified(j[stage]))
	}
}

func (b *brief) model(m types.ModelType) {
	b.section("Monetization Model")
	if m == "" {
		b.notSpecified()
		return
	}
	if desc, ok := modelDescriptions[m]; ok {
		b.line("%s: %s", Label(string(m)), desc)
		return
	}
	b.line("%s", Label(string(m)))
}

const analysisSystemPrompt = `You are a senior product-led growth strategist. Evaluate the product strategy below with the DEEP framework:
- Desirability: how much the ideal user wants the outcome the product promises
- Effectiveness: how well the solutions remove the user's challenges
- Efficiency: how quickly and cheaply the user reaches value
- Polish: how coherent the packaging, pricing and journey are

Score each DEEP dimension from 0 to 10. Score each strategy component and each journey stage from 0 to 100.
Component names are: productDescription, idealUser, userEndgame, challenges, solutions, modelSelection, packageDesign, pricingStrategy.
Be specific and actionable. Sections marked "Not specified" were left empty by the user; treat them as gaps.
Answer only by calling the provided function.`

// BuildAnalysisPrompt serializes the whole wizard input for the DEEP analysis
func BuildAnalysisPrompt(input types.AnalysisInput) Prompt {
	var b brief
	b.section("Product")
	b.line("%s", orNotSpecified(input.ProductDescription))
	b.idealUser(input.IdealUser)
	b.outcomes(input.UserEndgame)
	b.challenges("Challenges", input.Challenges)
	b.solutions("Solutions", input.Solutions, input.Challenges)
	b.model(input.SelectedModel)
	b.features("Package Features", input.Packages.Features)
	b.pricing(input.Packages.PricingStrategy)
	b.journey(input.UserJourney)

	return Prompt{System: analysisSystemPrompt, User: b.String()}
}

// BuildFeedbackPrompt asks for span-anchored critique of one wizard field
func BuildFeedbackPrompt(req FeedbackRequest) Prompt {
	system := fmt.Sprintf(`You are an editor reviewing the %s section of a product strategy.
Return feedback items that each quote a span of the text. startIndex and endIndex are character offsets into the text, counting Unicode characters, with endIndex exclusive.
Use type "improvement" for things to strengthen, "warning" for risks or vague claims and "positive" for what already works.
Allowed categories: %s.
Answer only by calling the provided function.`, Label(string(req.Target)), strings.Join(req.Target.Categories(), ", "))

	var b brief
	b.section("Text")
	b.line("%s", orNotSpecified(req.Text))
	b.section("Context")
	b.line("%s", orNotSpecified(req.Context))

	return Prompt{System: system, User: b.String()}
}

const chatDescriptionSystemPrompt = `You turn a conversation with a founder into a concise product description.
Write two to four sentences that state what the product does, who it is for and the outcome it delivers.
List the key points you relied on. Do not invent facts the founder did not state.
Answer only by calling the provided function.`

// BuildChatDescriptionPrompt renders a transcript turn by turn
func BuildChatDescriptionPrompt(req ChatDescriptionRequest) Prompt {
	var b brief
	b.section("Transcript")
	if len(req.Transcript) == 0 {
		b.notSpecified()
	}
	for _, turn := range req.Transcript {
		speaker := "Founder"
		if turn.Role == "assistant" {
			speaker = "Interviewer"
		}
		b.line("%s: %s", speaker, orNotSpecified(turn.Text))
	}
	return Prompt{System: chatDescriptionSystemPrompt, User: b.String()}
}

// BuildModelSuggestionPrompt lists the six monetization models as candidates
func BuildModelSuggestionPrompt(req ModelSuggestionRequest) Prompt {
	var models strings.Builder
	for _, m := range types.ModelTypes() {
		fmt.Fprintf(&models, "- %s: %s\n", m, modelDescriptions[m])
	}
	system := `You recommend a product-led monetization model.
Choose exactly one of these models and explain why; name up to two alternatives:
` + models.String() + `Answer only by calling the provided function.`

	var b brief
	b.section("Product")
	b.line("%s", orNotSpecified(req.ProductDescription))
	b.idealUser(req.IdealUser)
	b.outcomes(req.Outcomes)

	return Prompt{System: system, User: b.String()}
}

// BuildChallengeSuggestionPrompt asks for challenges at one level, or all levels when none is given
func BuildChallengeSuggestionPrompt(req ChallengeSuggestionRequest) Prompt {
	scope := "at every level (beginner, intermediate and advanced)"
	if req.Level != "" {
		scope = fmt.Sprintf("at the %s level", req.Level)
	}
	system := fmt.Sprintf(`You identify the challenges that stop users from reaching their desired outcome.
Suggest three to five distinct challenges %s. Rate each challenge's magnitude from 1 (minor) to 5 (blocking).
Do not repeat existing challenges.
Answer only by calling the provided function.`, scope)

	var b brief
	b.section("Product")
	b.line("%s", orNotSpecified(req.ProductDescription))
	b.idealUser(req.IdealUser)
	b.outcomes(req.Outcomes)
	b.challenges("Existing Challenges", req.Existing)

	return Prompt{System: system, User: b.String()}
}

const solutionSystemPrompt = `You design solutions that remove a user challenge.
Suggest two to four solutions. Classify each as "product" (a feature), "resource" (a template, tool or service) or "content" (education).
Estimate cost and impact as low, medium or high. Do not repeat existing solutions.
Answer only by calling the provided function.`

// BuildSolutionSuggestionPrompt focuses on one challenge
func BuildSolutionSuggestionPrompt(req SolutionSuggestionRequest) Prompt {
	var b brief
	b.section("Product")
	b.line("%s", orNotSpecified(req.ProductDescription))
	b.challenges("Challenge", []types.Challenge{req.Challenge})
	b.solutions("Existing Solutions", req.Existing, []types.Challenge{req.Challenge})

	return Prompt{System: solutionSystemPrompt, User: b.String()}
}

const packageSystemPrompt = `You design the free and paid packages of a product-led offering.
Place features that demonstrate core value in the free tier and features that serve advanced needs in the paid tier.
Categories: core, value-demo, connection, educational. Limit free features where a limit drives upgrades.
Propose a pricing strategy whose model is freemium, free-trial or open-core and whose basis is per-user, per-usage or flat-rate, with a target conversion between 0 and 100 percent.
Do not repeat existing features.
Answer only by calling the provided function.`

// BuildPackageSuggestionPrompt renders only the solutions to advanced challenges as paid-tier candidates
func BuildPackageSuggestionPrompt(req PackageSuggestionRequest) Prompt {
	var b brief
	b.section("Product")
	b.line("%s", orNotSpecified(req.ProductDescription))
	b.idealUser(req.IdealUser)
	b.model(req.SelectedModel)
	b.challenges("Challenges", req.Challenges)
	b.solutions("Paid-Tier Candidates", types.AdvancedSolutions(req.Challenges, req.Solutions), req.Challenges)
	b.features("Existing Features", req.Existing)

	return Prompt{System: packageSystemPrompt, User: b.String()}
}
