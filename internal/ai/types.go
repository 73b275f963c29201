// Package ai provides the chat-completions transport that carries every model call
// of the gateway.
package ai

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role is the author of a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleFunction  Role = "function"
)

// Valid checks if the role is one the provider accepts
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleFunction:
		return true
	}
	return false
}

// Message is one chat turn
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// FunctionSchema forces the model to answer through a named function whose
// arguments follow Parameters, a JSON schema document.
type FunctionSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ChatRequest is a single model call. Only one function schema can be attached.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Function    *FunctionSchema
	JSONMode    bool // bare JSON object reply when no function is attached
	MaxTokens   int
	Temperature *float64
}

// Validate rejects requests the provider would refuse, before any network call
func (r *ChatRequest) Validate() error {
	if r == nil || len(r.Messages) == 0 {
		return fmt.Errorf("messages must not be empty")
	}
	for i, m := range r.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("message %d has invalid role %q", i, m.Role)
		}
	}
	if r.Function != nil && r.Function.Name == "" {
		return fmt.Errorf("function schema must be named")
	}
	return nil
}

// FunctionCall is the model's structured answer
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Usage reports token consumption
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// RawReply is the unparsed result of a model call
type RawReply struct {
	Content      string
	FunctionCall *FunctionCall
	FinishReason string
	Usage        Usage
	Model        string
	Latency      time.Duration
}

// Wire format of the chat-completions endpoint

type wireRequest struct {
	Model          string              `json:"model"`
	Messages       []Message           `json:"messages"`
	Functions      []FunctionSchema    `json:"functions,omitempty"`
	FunctionCall   *wireFunctionChoice `json:"function_call,omitempty"`
	ResponseFormat *wireResponseFormat `json:"response_format,omitempty"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    *float64            `json:"temperature,omitempty"`
}

type wireFunctionChoice struct {
	Name string `json:"name"`
}

type wireResponseFormat struct {
	Type string `json:"type"`
}

type wireResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []wireChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
	Error   *wireError   `json:"error,omitempty"`
}

type wireChoice struct {
	Index        int         `json:"index"`
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type wireMessage struct {
	Role         string        `json:"role"`
	Content      *string       `json:"content"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

type wireError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
