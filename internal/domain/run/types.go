// Package run drives one assistant invocation through its remote lifecycle:
// thread, messages, run creation, polling, required-action acknowledgment,
// and terminal outcome. It also owns the remote file lifecycle around a run.
package run

import "errors"

// Status is the raw run state reported by the assistant provider.
type Status string

const (
	StatusQueued         Status = "queued"
	StatusInProgress     Status = "in_progress"
	StatusRequiresAction Status = "requires_action"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusCancelling     Status = "cancelling"
	StatusCancelled      Status = "cancelled"
	StatusIncomplete     Status = "incomplete"
	StatusExpired        Status = "expired"

	// StatusUnknown is what a degraded status fetch reports. The poll loop
	// treats it as still pending.
	StatusUnknown Status = ""
)

// ErrRunTimeout is returned when a run never reaches a terminal state within
// the configured budget. It is the only failure the poll loop propagates.
var ErrRunTimeout = errors.New("run did not reach a terminal state in time")

// Run is one observed snapshot of a remote run.
type Run struct {
	ID             string          `json:"id"`
	ThreadID       string          `json:"thread_id"`
	Status         Status          `json:"status"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
}

// RequiredAction is a structured request from the assistant to invoke a
// configured tool before the run can complete.
type RequiredAction struct {
	Type              string            `json:"type"`
	SubmitToolOutputs SubmitToolOutputs `json:"submit_tool_outputs"`
}

// SubmitToolOutputs carries the batch of tool calls awaiting acknowledgment.
type SubmitToolOutputs struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// ToolCall is one pending function invocation inside a required action.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction names the function the assistant wants executed.
type ToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolOutput acknowledges one tool call.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// Outcome is the terminal result of one orchestrated flow.
type Outcome struct {
	RequiredAction    *RequiredAction `json:"required_action,omitempty"`
	AssistantResponse string          `json:"assistant_response,omitempty"`
	LastRun           Run             `json:"last_run_status"`
}

// Attachment binds an uploaded file to a thread message with its tool
// capabilities.
type Attachment struct {
	FileID string           `json:"file_id"`
	Tools  []AttachmentTool `json:"tools"`
}

// AttachmentTool is one tool capability granted over an attachment.
type AttachmentTool struct {
	Type string `json:"type"`
}

// DefaultAttachmentTools grants both retrieval and code execution over a file.
func DefaultAttachmentTools() []AttachmentTool {
	return []AttachmentTool{
		{Type: "file_search"},
		{Type: "code_interpreter"},
	}
}

// ThreadMessage is one message read back from a thread.
type ThreadMessage struct {
	ID      string   `json:"id"`
	Role    string   `json:"role"`
	Content []string `json:"content"`
}

// RemoteFile is an uploaded artifact in the provider's file store.
type RemoteFile struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Bytes    int64  `json:"bytes"`
	Purpose  string `json:"purpose"`
}
