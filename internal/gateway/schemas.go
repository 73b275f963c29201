package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"product-strategy-gateway/internal/ai"
	"product-strategy-gateway/pkg/types"
)

// Schema is the structured-output contract of one task
type Schema struct {
	Task         Task
	Name         string // function name the model must call
	Description  string
	Definition   *openapi3.Schema
	ParseMessage string // the one message every parse failure of the task carries
}

// Required returns the required top-level keys
func (s Schema) Required() []string {
	return s.Definition.Required
}

// Function converts the schema into the transport's function definition
func (s Schema) Function() (*ai.FunctionSchema, error) {
	params, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s schema: %w", s.Task, err)
	}
	return &ai.FunctionSchema{
		Name:        s.Name,
		Description: s.Description,
		Parameters:  params,
	}, nil
}

// TaskSchema returns the schema of a task
func TaskSchema(task Task) (Schema, error) {
	switch task {
	case TaskAnalysis:
		return analysisSchema(), nil
	case TaskFeedback:
		return FeedbackSchema(""), nil
	case TaskChatDescription:
		return chatDescriptionSchema(), nil
	case TaskModelSuggestion:
		return modelSuggestionSchema(), nil
	case TaskChallengeSuggestion:
		return challengeSuggestionSchema(), nil
	case TaskSolutionSuggestion:
		return solutionSuggestionSchema(), nil
	case TaskPackageSuggestion:
		return packageSuggestionSchema(), nil
	}
	return Schema{}, fmt.Errorf("unknown task: %s", task)
}

// Schema building blocks

func str() *openapi3.Schema {
	return openapi3.NewStringSchema()
}

func stringList() *openapi3.Schema {
	return openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
}

func enum[T ~string](values ...T) *openapi3.Schema {
	items := make([]interface{}, len(values))
	for i, v := range values {
		items[i] = string(v)
	}
	return openapi3.NewStringSchema().WithEnum(items...)
}

func number(lo, hi float64) *openapi3.Schema {
	return openapi3.NewFloat64Schema().WithMin(lo).WithMax(hi)
}

func integer(lo, hi float64) *openapi3.Schema {
	return openapi3.NewIntegerSchema().WithMin(lo).WithMax(hi)
}

func object(required []string, properties map[string]*openapi3.Schema) *openapi3.Schema {
	return openapi3.NewObjectSchema().WithProperties(properties).WithRequired(required)
}

func arrayOf(item *openapi3.Schema) *openapi3.Schema {
	return openapi3.NewArraySchema().WithItems(item)
}

func mapOf(value *openapi3.Schema) *openapi3.Schema {
	return openapi3.NewObjectSchema().WithAdditionalProperties(value)
}

func levelSchema() *openapi3.Schema {
	return enum(types.Levels()...)
}

func scaleSchema() *openapi3.Schema {
	return enum(types.ScaleLow, types.ScaleMedium, types.ScaleHigh)
}

func journeyStageSchema() *openapi3.Schema {
	return object([]string{"score", "analysis", "strengths", "suggestions"}, map[string]*openapi3.Schema{
		"score":       number(0, 100),
		"analysis":    str(),
		"strengths":   stringList(),
		"suggestions": stringList(),
	})
}

func analysisSchema() Schema {
	componentScores := map[string]*openapi3.Schema{}
	for _, name := range types.Components() {
		componentScores[name] = integer(0, 100)
	}

	journey := map[string]*openapi3.Schema{}
	var stages []string
	for _, stage := range types.JourneyStages() {
		journey[string(stage)] = journeyStageSchema()
		stages = append(stages, string(stage))
	}

	definition := object(
		[]string{
			"deepScore", "summary", "strengths", "weaknesses", "recommendations",
			"componentScores", "componentFeedback", "actionPlan", "testing", "journeyAnalysis",
		},
		map[string]*openapi3.Schema{
			"deepScore": object([]string{"desirability", "effectiveness", "efficiency", "polish"}, map[string]*openapi3.Schema{
				"desirability":  number(0, 10),
				"effectiveness": number(0, 10),
				"efficiency":    number(0, 10),
				"polish":        number(0, 10),
			}),
			"summary":         str(),
			"strengths":       stringList(),
			"weaknesses":      stringList(),
			"recommendations": stringList(),
			"componentScores": object(nil, componentScores).WithAdditionalProperties(integer(0, 100)),
			"componentFeedback": mapOf(object([]string{"strengths", "recommendations"}, map[string]*openapi3.Schema{
				"strengths":       stringList(),
				"recommendations": stringList(),
				"analysis":        str(),
				"considerations":  stringList(),
			})),
			"actionPlan": object([]string{"immediate", "medium", "long"}, map[string]*openapi3.Schema{
				"immediate":  stringList(),
				"medium":     stringList(),
				"long":       stringList(),
				"people":     stringList(),
				"process":    stringList(),
				"technology": stringList(),
			}),
			"testing": object([]string{"abTests", "metrics"}, map[string]*openapi3.Schema{
				"abTests": arrayOf(object([]string{"hypothesis", "variants", "successMetric"}, map[string]*openapi3.Schema{
					"hypothesis":    str(),
					"variants":      stringList(),
					"successMetric": str(),
				})),
				"metrics": arrayOf(object([]string{"name", "target", "timeframe"}, map[string]*openapi3.Schema{
					"name":      str(),
					"target":    str(),
					"timeframe": str(),
				})),
			}),
			"journeyAnalysis": object(stages, journey),
		},
	)

	return Schema{
		Task:         TaskAnalysis,
		Name:         "submit_strategy_analysis",
		Description:  "Submit the DEEP analysis of the product strategy",
		Definition:   definition,
		ParseMessage: "Failed to parse analysis result",
	}
}

// FeedbackSchema returns the feedback schema; a known target restricts the category enum
func FeedbackSchema(target types.FeedbackTarget) Schema {
	category := str()
	if target.Valid() {
		category = enum(target.Categories()...)
	}

	item := object([]string{"text", "suggestion", "type", "category", "startIndex", "endIndex"}, map[string]*openapi3.Schema{
		"text":       str(),
		"suggestion": str(),
		"type":       enum(types.FeedbackImprovement, types.FeedbackWarning, types.FeedbackPositive),
		"category":   category,
		"startIndex": openapi3.NewIntegerSchema().WithMin(0),
		"endIndex":   openapi3.NewIntegerSchema().WithMin(0),
	})

	return Schema{
		Task:         TaskFeedback,
		Name:         "submit_text_feedback",
		Description:  "Submit span-anchored feedback on the text",
		Definition:   object([]string{"feedback"}, map[string]*openapi3.Schema{"feedback": arrayOf(item)}),
		ParseMessage: "Failed to parse feedback result",
	}
}

func chatDescriptionSchema() Schema {
	return Schema{
		Task:        TaskChatDescription,
		Name:        "submit_product_description",
		Description: "Submit the product description distilled from the conversation",
		Definition: object([]string{"description"}, map[string]*openapi3.Schema{
			"description": openapi3.NewStringSchema().WithMinLength(1),
			"keyPoints":   stringList(),
		}),
		ParseMessage: "Failed to parse description result",
	}
}

func modelSuggestionSchema() Schema {
	return Schema{
		Task:        TaskModelSuggestion,
		Name:        "submit_model_suggestion",
		Description: "Submit the recommended monetization model",
		Definition: object([]string{"model", "reasoning"}, map[string]*openapi3.Schema{
			"model":          enum(types.ModelTypes()...),
			"reasoning":      str(),
			"considerations": stringList(),
			"alternatives": arrayOf(object([]string{"model", "reasoning"}, map[string]*openapi3.Schema{
				"model":     enum(types.ModelTypes()...),
				"reasoning": str(),
			})),
		}),
		ParseMessage: "Failed to parse model suggestion",
	}
}

func challengeSuggestionSchema() Schema {
	item := object([]string{"title", "level", "magnitude"}, map[string]*openapi3.Schema{
		"title":       openapi3.NewStringSchema().WithMinLength(1),
		"description": str(),
		"level":       levelSchema(),
		"magnitude":   integer(1, 5),
	})
	return Schema{
		Task:         TaskChallengeSuggestion,
		Name:         "submit_challenges",
		Description:  "Submit suggested user challenges",
		Definition:   object([]string{"challenges"}, map[string]*openapi3.Schema{"challenges": arrayOf(item)}),
		ParseMessage: "Failed to parse challenge suggestions",
	}
}

func solutionSuggestionSchema() Schema {
	item := object([]string{"text", "type", "cost", "impact"}, map[string]*openapi3.Schema{
		"text":   openapi3.NewStringSchema().WithMinLength(1),
		"type":   enum(types.SolutionTypeProduct, types.SolutionTypeResource, types.SolutionTypeContent),
		"cost":   scaleSchema(),
		"impact": scaleSchema(),
	})
	return Schema{
		Task:         TaskSolutionSuggestion,
		Name:         "submit_solutions",
		Description:  "Submit suggested solutions for the challenge",
		Definition:   object([]string{"solutions"}, map[string]*openapi3.Schema{"solutions": arrayOf(item)}),
		ParseMessage: "Failed to parse solution suggestions",
	}
}

func packageSuggestionSchema() Schema {
	feature := object([]string{"name", "description", "category", "tier"}, map[string]*openapi3.Schema{
		"name":        openapi3.NewStringSchema().WithMinLength(1),
		"description": str(),
		"category":    enum(types.CategoryCore, types.CategoryValueDemo, types.CategoryConnection, types.CategoryEducational),
		"tier":        enum(types.TierFree, types.TierPaid),
		"limits": object([]string{"type", "value"}, map[string]*openapi3.Schema{
			"type":  str(),
			"value": str(),
		}),
	})

	pricing := object([]string{"model", "basis", "freePackage", "paidPackage"}, map[string]*openapi3.Schema{
		"model": enum(types.PricingFreemium, types.PricingFreeTrial, types.PricingOpenCore),
		"basis": enum(types.BasisPerUser, types.BasisPerUsage, types.BasisFlatRate),
		"freePackage": object([]string{"features", "limitations", "conversionGoals"}, map[string]*openapi3.Schema{
			"features":        stringList(),
			"limitations":     stringList(),
			"conversionGoals": stringList(),
		}),
		"paidPackage": object([]string{"features", "valueMetrics", "targetConversion"}, map[string]*openapi3.Schema{
			"features":         stringList(),
			"valueMetrics":     stringList(),
			"targetConversion": number(0, 100),
		}),
	})

	return Schema{
		Task:        TaskPackageSuggestion,
		Name:        "submit_package_design",
		Description: "Submit the package features and pricing strategy",
		Definition: object([]string{"features", "pricingStrategy"}, map[string]*openapi3.Schema{
			"features":        arrayOf(feature),
			"pricingStrategy": pricing,
		}),
		ParseMessage: "Failed to parse package suggestions",
	}
}
