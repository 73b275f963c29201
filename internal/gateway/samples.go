package gateway

import (
	"fmt"

	"product-strategy-gateway/internal/ai"
)

// Canned schema-conforming replies. The CLI's offline mode and the tests replay them
// through ai.MockTransport.
var samplePayloads = map[Task]string{
	TaskAnalysis: `{
  "deepScore": {"desirability": 7.5, "effectiveness": 6, "efficiency": 8, "polish": 5.5},
  "summary": "A focused CRM with a clear beginner outcome; pricing needs a sharper value metric.",
  "strengths": ["Clear target user", "Fast time to value"],
  "weaknesses": ["Paid tier lacks a compelling upgrade trigger"],
  "recommendations": ["Gate team collaboration behind the paid tier"],
  "componentScores": {
    "productDescription": 80, "idealUser": 75, "userEndgame": 70, "challenges": 65,
    "solutions": 60, "modelSelection": 85, "packageDesign": 55, "pricingStrategy": 50
  },
  "componentFeedback": {
    "productDescription": {"strengths": ["Specific audience"], "recommendations": ["State the outcome in numbers"]},
    "pricingStrategy": {"strengths": ["Simple basis"], "recommendations": ["Tie price to active clients"], "analysis": "Per-user pricing penalizes solo freelancers.", "considerations": ["Annual discount"]}
  },
  "actionPlan": {
    "immediate": ["Interview five churned trial users"],
    "medium": ["Ship client portal"],
    "long": ["Launch agency plan"],
    "people": ["Hire a lifecycle marketer"],
    "process": ["Weekly activation review"],
    "technology": ["Instrument the onboarding funnel"]
  },
  "testing": {
    "abTests": [{"hypothesis": "A guided import raises activation", "variants": ["guided", "blank"], "successMetric": "activation rate"}],
    "metrics": [{"name": "Activation rate", "target": "40%", "timeframe": "90 days"}]
  },
  "journeyAnalysis": {
    "discovery": {"score": 70, "analysis": "Strong referral loop.", "strengths": ["Word of mouth"], "suggestions": ["Add templates gallery"]},
    "signup": {"score": 80, "analysis": "Low friction.", "strengths": ["Social login"], "suggestions": ["Skip email verification"]},
    "activation": {"score": 60, "analysis": "Import is slow.", "strengths": ["Sample data"], "suggestions": ["One-click CSV import"]},
    "engagement": {"score": 65, "analysis": "Weekly reminders help.", "strengths": ["Digest email"], "suggestions": ["Mobile push"]},
    "conversion": {"score": 50, "analysis": "Upgrade moment is unclear.", "strengths": ["Visible limits"], "suggestions": ["Usage-based nudges"]}
  }
}`,
	TaskFeedback: `{
  "feedback": [
    {"text": "for freelancers", "suggestion": "Name the kind of freelancer.", "type": "improvement", "category": "specificity", "startIndex": 6, "endIndex": 21},
    {"text": "A CRM", "suggestion": "Lead with the outcome, not the category.", "type": "warning", "category": "value-proposition", "startIndex": 0, "endIndex": 5}
  ]
}`,
	TaskChatDescription: `{
  "description": "A lightweight CRM that helps freelance designers track every client conversation and get paid on time.",
  "keyPoints": ["freelance designers", "client conversations", "late payments"]
}`,
	TaskModelSuggestion: `{
  "model": "freemium",
  "reasoning": "Freelancers adopt tools bottom-up and need ongoing free value before paying.",
  "considerations": ["Cap active clients on the free tier"],
  "alternatives": [{"model": "opt-in-trial", "reasoning": "Works if onboarding is short."}]
}`,
	TaskChallengeSuggestion: `{
  "challenges": [
    {"title": "Scattered client notes", "description": "Notes live in email, chat and paper.", "level": "beginner", "magnitude": 4},
    {"title": "Chasing late invoices", "level": "intermediate", "magnitude": 3},
    {"title": "Managing subcontractors", "level": "advanced", "magnitude": 2}
  ]
}`,
	TaskSolutionSuggestion: `{
  "solutions": [
    {"text": "Unified client timeline", "type": "product", "cost": "medium", "impact": "high"},
    {"text": "Client onboarding checklist template", "type": "resource", "cost": "low", "impact": "medium"}
  ]
}`,
	TaskPackageSuggestion: `{
  "features": [
    {"name": "Client timeline", "description": "Every touchpoint in one place", "category": "core", "tier": "free", "limits": {"type": "clients", "value": "5"}},
    {"name": "Subcontractor seats", "description": "Invite collaborators", "category": "connection", "tier": "paid"}
  ],
  "pricingStrategy": {
    "model": "freemium",
    "basis": "per-user",
    "freePackage": {"features": ["Client timeline"], "limitations": ["5 active clients"], "conversionGoals": ["Reach the client limit"]},
    "paidPackage": {"features": ["Subcontractor seats"], "valueMetrics": ["active clients"], "targetConversion": 4}
  }
}`,
}

// SamplePayload returns the canned reply arguments of a task
func SamplePayload(task Task) (string, bool) {
	payload, ok := samplePayloads[task]
	return payload, ok
}

// SampleResponder answers any request with the canned payload of the function it names
func SampleResponder() func(req *ai.ChatRequest) (*ai.RawReply, error) {
	byFunction := make(map[string]string, len(samplePayloads))
	for _, task := range Tasks() {
		schema, err := TaskSchema(task)
		if err != nil {
			continue
		}
		byFunction[schema.Name] = samplePayloads[task]
	}

	return func(req *ai.ChatRequest) (*ai.RawReply, error) {
		if req.Function == nil {
			return nil, fmt.Errorf("sample responder needs a function schema")
		}
		payload, ok := byFunction[req.Function.Name]
		if !ok {
			return nil, fmt.Errorf("no sample reply for function %s", req.Function.Name)
		}
		return &ai.RawReply{
			FunctionCall: &ai.FunctionCall{Name: req.Function.Name, Arguments: payload},
			FinishReason: "function_call",
			Model:        "sample",
		}, nil
	}
}
