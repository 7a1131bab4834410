package run

import "context"

// Provider is the capability set the orchestrator needs from an assistant
// backend. Implementations live under internal/infrastructure/assistant and
// only translate calls to their remote wire format; sequencing, batching and
// retry budgets stay here.
type Provider interface {
	// CreateThread opens a fresh conversation thread and returns its id.
	CreateThread(ctx context.Context) (string, error)

	// CreateMessage posts a plain user message to a thread.
	CreateMessage(ctx context.Context, threadID, content string) (string, error)

	// CreateMessageWithFiles posts a user message carrying file attachments.
	CreateMessageWithFiles(ctx context.Context, threadID, content string, attachments []Attachment) (string, error)

	// CreateRun starts the configured assistant on a thread and returns the
	// run id.
	CreateRun(ctx context.Context, threadID string) (string, error)

	// GetRun fetches the current snapshot of a run.
	GetRun(ctx context.Context, threadID, runID string) (*Run, error)

	// SubmitToolOutputs acknowledges the pending tool calls of a run.
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) error

	// ListMessages returns the messages of a thread, newest first.
	ListMessages(ctx context.Context, threadID string) ([]ThreadMessage, error)
}

// FileStore is the remote file and vector store capability set used by the
// file lifecycle manager.
type FileStore interface {
	// UploadFile stores content under filename and returns the remote handle.
	UploadFile(ctx context.Context, filename string, content []byte) (*RemoteFile, error)

	// ListFiles enumerates every file in the account-wide store.
	ListFiles(ctx context.Context) ([]RemoteFile, error)

	// DeleteFile removes one file from the account-wide store.
	DeleteFile(ctx context.Context, fileID string) error

	// AddVectorStoreFile attaches an uploaded file to a vector store so the
	// retrieval tool can see it.
	AddVectorStoreFile(ctx context.Context, vectorStoreID, fileID string) error

	// ListVectorStoreFiles enumerates the file ids attached to a vector store.
	ListVectorStoreFiles(ctx context.Context, vectorStoreID string) ([]string, error)

	// DeleteVectorStoreFile detaches one file from a vector store.
	DeleteVectorStoreFile(ctx context.Context, vectorStoreID, fileID string) error
}

// Client is the full assistant backend surface. Both the OpenAI and the
// Azure OpenAI clients implement it.
type Client interface {
	Provider
	FileStore
}
