package run

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/document"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/retry"
)

// FileManager handles the remote file lifecycle around an assistant run:
// conditioned uploads, vector store indexing, and cleanup. Images are never
// uploaded and spreadsheets are transcoded to plain text so the retrieval
// tool can index them.
type FileManager struct {
	store     FileStore
	extractor document.Extractor
	log       zerolog.Logger
	transport retry.Policy

	// SettleWait is how long Index pauses after attaching files so the
	// remote indexer catches up before a run starts.
	SettleWait time.Duration
}

// NewFileManager builds a file manager over a remote store.
func NewFileManager(store FileStore, extractor document.Extractor, settleWait time.Duration, logger zerolog.Logger) *FileManager {
	return &FileManager{
		store:      store,
		extractor:  extractor,
		transport:  retry.TransportPolicy(),
		SettleWait: settleWait,
		log:        logger.With().Str("component", "file_manager").Logger(),
	}
}

// Upload conditions one document and pushes it to the remote store. Images
// are skipped and every failure degrades to nil so the caller can drop the
// file and keep going with the rest of the batch.
func (m *FileManager) Upload(ctx context.Context, name string, content []byte) *RemoteFile {
	if document.IsImage(name) {
		m.log.Debug().Str("file", name).Msg("skipping image upload")
		return nil
	}

	if document.IsSpreadsheet(name) {
		csv, err := m.extractor.ToCSV(content)
		if err != nil {
			m.log.Warn().Err(err).Str("file", name).Msg("spreadsheet transcode failed, skipping")
			return nil
		}
		content = csv
		name = document.SpreadsheetToTextName(name)
	}

	remote, err := retry.ExecuteWithResult(ctx, m.transport, func(ctx context.Context, _ int) (*RemoteFile, error) {
		return m.store.UploadFile(ctx, name, content)
	})
	if err != nil {
		m.log.Warn().Err(err).Str("file", name).Msg("upload failed, skipping")
		return nil
	}
	m.log.Info().Str("file", name).Str("file_id", remote.ID).Msg("file uploaded")
	return remote
}

// Uploaded pairs an input document name with the remote id it received.
// The name is the original one, even when a spreadsheet was renamed for
// the transcode.
type Uploaded struct {
	Name   string
	FileID string
}

// UploadAll conditions and uploads a set of documents, returning name/id
// pairs for the ones that made it. Order follows the input; skipped and
// failed files are simply absent.
func (m *FileManager) UploadAll(ctx context.Context, files []document.File) []Uploaded {
	uploaded := make([]Uploaded, 0, len(files))
	for _, f := range files {
		if remote := m.Upload(ctx, f.Name, f.Content); remote != nil {
			uploaded = append(uploaded, Uploaded{Name: f.Name, FileID: remote.ID})
		}
	}
	return uploaded
}

// Index attaches uploaded files to the vector store and waits for the remote
// indexer to settle. Per-file failures are logged and skipped.
func (m *FileManager) Index(ctx context.Context, vectorStoreID string, fileIDs []string) error {
	attached := 0
	for _, id := range fileIDs {
		err := m.transport.Execute(ctx, func(ctx context.Context, _ int) error {
			return m.store.AddVectorStoreFile(ctx, vectorStoreID, id)
		})
		if err != nil {
			m.log.Warn().Err(err).Str("file_id", id).Msg("vector store attach failed, skipping")
			continue
		}
		attached++
	}
	m.log.Info().Int("attached", attached).Int("requested", len(fileIDs)).
		Str("vector_store_id", vectorStoreID).Msg("vector store indexing requested")

	if attached > 0 && m.SettleWait > 0 {
		if err := sleepCtx(ctx, m.SettleWait); err != nil {
			return err
		}
	}
	return nil
}

// PurgeAll removes every file from the account-wide store. Deletion errors
// are logged and skipped so one stuck file does not block the sweep.
func (m *FileManager) PurgeAll(ctx context.Context) {
	files, err := m.store.ListFiles(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("file listing failed, purge skipped")
		return
	}
	deleted := 0
	for _, f := range files {
		if err := m.store.DeleteFile(ctx, f.ID); err != nil {
			m.log.Warn().Err(err).Str("file_id", f.ID).Msg("file deletion failed")
			continue
		}
		deleted++
	}
	m.log.Info().Int("deleted", deleted).Int("total", len(files)).Msg("store purge finished")
}

// PurgeFiles removes only the given files from the store.
func (m *FileManager) PurgeFiles(ctx context.Context, fileIDs []string) {
	deleted := 0
	for _, id := range fileIDs {
		if err := m.store.DeleteFile(ctx, id); err != nil {
			m.log.Warn().Err(err).Str("file_id", id).Msg("file deletion failed")
			continue
		}
		deleted++
	}
	m.log.Info().Int("deleted", deleted).Int("requested", len(fileIDs)).Msg("scoped purge finished")
}

// PurgeVectorStore detaches every file from the vector store.
func (m *FileManager) PurgeVectorStore(ctx context.Context, vectorStoreID string) {
	ids, err := m.store.ListVectorStoreFiles(ctx, vectorStoreID)
	if err != nil {
		m.log.Warn().Err(err).Str("vector_store_id", vectorStoreID).Msg("vector store listing failed, purge skipped")
		return
	}
	detached := 0
	for _, id := range ids {
		if err := m.store.DeleteVectorStoreFile(ctx, vectorStoreID, id); err != nil {
			m.log.Warn().Err(err).Str("file_id", id).Msg("vector store detach failed")
			continue
		}
		detached++
	}
	m.log.Info().Int("detached", detached).Int("total", len(ids)).
		Str("vector_store_id", vectorStoreID).Msg("vector store purge finished")
}
