// Package openai implements the assistant provider against the OpenAI
// Assistants v2 REST API.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/run"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/assistant"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/infrastructure/metrics"
)

const requestTimeout = 75 * time.Second

// Client is a Resty-backed Assistants v2 client.
type Client struct {
	httpClient  *resty.Client
	assistantID string
	runs        *assistant.RunTracker
}

// NewClient builds a client against baseURL (normally https://api.openai.com/v1).
func NewClient(baseURL, apiKey, assistantID string) *Client {
	return &Client{
		httpClient: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Authorization", "Bearer "+apiKey).
			SetHeader("OpenAI-Beta", "assistants=v2").
			SetTimeout(requestTimeout),
		assistantID: assistantID,
		runs:        assistant.NewRunTracker("openai"),
	}
}

type objectID struct {
	ID string `json:"id"`
}

type messageRequest struct {
	Role        string           `json:"role"`
	Content     string           `json:"content"`
	Attachments []run.Attachment `json:"attachments,omitempty"`
}

type runRequest struct {
	AssistantID string `json:"assistant_id"`
}

type toolOutputsRequest struct {
	ToolOutputs []run.ToolOutput `json:"tool_outputs"`
}

type runResponse struct {
	ID             string              `json:"id"`
	ThreadID       string              `json:"thread_id"`
	Status         string              `json:"status"`
	RequiredAction *run.RequiredAction `json:"required_action"`
}

type messageContent struct {
	Type string `json:"type"`
	Text struct {
		Value string `json:"value"`
	} `json:"text"`
}

type messageResponse struct {
	ID      string           `json:"id"`
	Role    string           `json:"role"`
	Content []messageContent `json:"content"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

type fileResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Bytes    int64  `json:"bytes"`
	Purpose  string `json:"purpose"`
}

// CreateThread opens a new thread.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var out objectID
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{}).
		SetResult(&out).
		Post("/threads")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("create thread: %s", resp.String())
	}
	return out.ID, nil
}

// CreateMessage posts a plain user message.
func (c *Client) CreateMessage(ctx context.Context, threadID, content string) (string, error) {
	return c.postMessage(ctx, threadID, messageRequest{Role: "user", Content: content})
}

// CreateMessageWithFiles posts a user message with attachments.
func (c *Client) CreateMessageWithFiles(ctx context.Context, threadID, content string, attachments []run.Attachment) (string, error) {
	return c.postMessage(ctx, threadID, messageRequest{Role: "user", Content: content, Attachments: attachments})
}

func (c *Client) postMessage(ctx context.Context, threadID string, body messageRequest) (string, error) {
	var out objectID
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		SetPathParam("threadID", threadID).
		Post("/threads/{threadID}/messages")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("create message: %s", resp.String())
	}
	return out.ID, nil
}

// CreateRun starts the configured assistant on a thread.
func (c *Client) CreateRun(ctx context.Context, threadID string) (string, error) {
	var out objectID
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(runRequest{AssistantID: c.assistantID}).
		SetResult(&out).
		SetPathParam("threadID", threadID).
		Post("/threads/{threadID}/runs")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("create run: %s", resp.String())
	}
	c.runs.RunCreated(out.ID)
	return out.ID, nil
}

// GetRun fetches one run snapshot.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*run.Run, error) {
	var out runResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParams(map[string]string{"threadID": threadID, "runID": runID}).
		Get("/threads/{threadID}/runs/{runID}")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get run: %s", resp.String())
	}
	c.runs.Observe(out.ID, out.Status)
	return &run.Run{
		ID:             out.ID,
		ThreadID:       out.ThreadID,
		Status:         run.Status(out.Status),
		RequiredAction: out.RequiredAction,
	}, nil
}

// SubmitToolOutputs acknowledges pending tool calls.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []run.ToolOutput) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(toolOutputsRequest{ToolOutputs: outputs}).
		SetPathParams(map[string]string{"threadID": threadID, "runID": runID}).
		Post("/threads/{threadID}/runs/{runID}/submit_tool_outputs")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("submit tool outputs: %s", resp.String())
	}
	return nil
}

// ListMessages returns the thread messages, newest first.
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]run.ThreadMessage, error) {
	var out listResponse[messageResponse]
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("threadID", threadID).
		Get("/threads/{threadID}/messages")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list messages: %s", resp.String())
	}
	messages := make([]run.ThreadMessage, 0, len(out.Data))
	for _, msg := range out.Data {
		tm := run.ThreadMessage{ID: msg.ID, Role: msg.Role}
		for _, part := range msg.Content {
			if part.Type == "text" {
				tm.Content = append(tm.Content, part.Text.Value)
			}
		}
		messages = append(messages, tm)
	}
	return messages, nil
}

// UploadFile stores content with the assistants purpose.
func (c *Client) UploadFile(ctx context.Context, filename string, content []byte) (*run.RemoteFile, error) {
	var out fileResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(content)).
		SetFormData(map[string]string{"purpose": "assistants"}).
		SetResult(&out).
		Post("/files")
	if err != nil {
		metrics.RecordFileUpload("failed")
		return nil, err
	}
	if resp.IsError() {
		metrics.RecordFileUpload("failed")
		return nil, fmt.Errorf("upload file: %s", resp.String())
	}
	metrics.RecordFileUpload("success")
	return &run.RemoteFile{ID: out.ID, Filename: out.Filename, Bytes: out.Bytes, Purpose: out.Purpose}, nil
}

// ListFiles enumerates every stored file.
func (c *Client) ListFiles(ctx context.Context) ([]run.RemoteFile, error) {
	var out listResponse[fileResponse]
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/files")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list files: %s", resp.String())
	}
	files := make([]run.RemoteFile, 0, len(out.Data))
	for _, f := range out.Data {
		files = append(files, run.RemoteFile{ID: f.ID, Filename: f.Filename, Bytes: f.Bytes, Purpose: f.Purpose})
	}
	return files, nil
}

// DeleteFile removes one stored file.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("fileID", fileID).
		Delete("/files/{fileID}")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("delete file: %s", resp.String())
	}
	return nil
}

// AddVectorStoreFile attaches an uploaded file to a vector store.
func (c *Client) AddVectorStoreFile(ctx context.Context, vectorStoreID, fileID string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"file_id": fileID}).
		SetPathParam("vectorStoreID", vectorStoreID).
		Post("/vector_stores/{vectorStoreID}/files")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("add vector store file: %s", resp.String())
	}
	return nil
}

// ListVectorStoreFiles enumerates the file ids attached to a vector store.
func (c *Client) ListVectorStoreFiles(ctx context.Context, vectorStoreID string) ([]string, error) {
	var out listResponse[objectID]
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&out).
		SetPathParam("vectorStoreID", vectorStoreID).
		Get("/vector_stores/{vectorStoreID}/files")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list vector store files: %s", resp.String())
	}
	ids := make([]string, 0, len(out.Data))
	for _, f := range out.Data {
		ids = append(ids, f.ID)
	}
	return ids, nil
}

// DeleteVectorStoreFile detaches one file from a vector store.
func (c *Client) DeleteVectorStoreFile(ctx context.Context, vectorStoreID, fileID string) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"vectorStoreID": vectorStoreID, "fileID": fileID}).
		Delete("/vector_stores/{vectorStoreID}/files/{fileID}")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("delete vector store file: %s", resp.String())
	}
	return nil
}

// Ensure interface compliance.
var _ run.Client = (*Client)(nil)
