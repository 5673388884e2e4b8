// ABOUTME: PromptMessage is a role-tagged message sent to the LLM provider
// ABOUTME: Decouples prompt assembly from any concrete provider SDK
package models

// PromptMessage is one entry of the prompt sent to the completion provider.
type PromptMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemRole marks system-instruction prompt messages. Kept separate from the
// conversation Role constants because sessions never store system messages.
const SystemRole Role = "system"
