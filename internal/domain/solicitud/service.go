package solicitud

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/document"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/run"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/status"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/utils/platformerrors"
)

// Orchestrator runs one assistant invocation to its terminal outcome.
type Orchestrator interface {
	RunFlow(ctx context.Context, prompt string, fileIDs []string) (*run.Outcome, error)
}

// FileManager conditions, uploads, indexes and purges remote files.
type FileManager interface {
	UploadAll(ctx context.Context, files []document.File) []run.Uploaded
	Index(ctx context.Context, vectorStoreID string, fileIDs []string) error
	PurgeAll(ctx context.Context)
	PurgeFiles(ctx context.Context, fileIDs []string)
	PurgeVectorStore(ctx context.Context, vectorStoreID string)
}

// Queue schedules a solicitud for background evaluation.
type Queue interface {
	Enqueue(ctx context.Context, solicitudID string) error
}

// Notifier reports terminal evaluation states to interested systems.
type Notifier interface {
	SolicitudCompleted(ctx context.Context, s *Solicitud) error
	SolicitudFailed(ctx context.Context, s *Solicitud) error
}

// Options tunes the coordinator.
type Options struct {
	// VectorStoreID is the retrieval index runs search against.
	VectorStoreID string
	// MaxAttempts bounds top-level evaluation attempts per solicitud.
	MaxAttempts int
	// ScopedPurge restricts post-evaluation cleanup to the files this
	// solicitud uploaded. When false the whole remote store is swept, which
	// assumes a single active solicitud at a time.
	ScopedPurge bool
}

// CreateInput is the intake payload.
type CreateInput struct {
	CodigoProyecto     string
	ProveedorNombre    string
	ProveedorNIT       string
	EstadoGeneral      string
	UsuarioSolicitante string
	Cuestionario       document.File
	Anexos             []document.File
}

// UpdateInput carries a partial update. Nil fields are left untouched.
type UpdateInput struct {
	ProveedorNombre    *string
	ProveedorNIT       *string
	UsuarioSolicitante *string
	EstadoGeneral      *string
	Mensaje            *string
}

// Service coordinates intake, background evaluation and CRUD over
// solicitudes.
type Service struct {
	repo      Repository
	files     FileManager
	orch      Orchestrator
	unpacker  document.Unpacker
	extractor document.Extractor
	renderer  document.Renderer
	queue     Queue
	notifier  Notifier
	opts      Options
	log       zerolog.Logger
}

// NewService wires the coordinator.
func NewService(
	repo Repository,
	files FileManager,
	orch Orchestrator,
	unpacker document.Unpacker,
	extractor document.Extractor,
	renderer document.Renderer,
	queue Queue,
	notifier Notifier,
	opts Options,
	logger zerolog.Logger,
) *Service {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &Service{
		repo:      repo,
		files:     files,
		orch:      orch,
		unpacker:  unpacker,
		extractor: extractor,
		renderer:  renderer,
		queue:     queue,
		notifier:  notifier,
		opts:      opts,
		log:       logger.With().Str("component", "solicitud_service").Logger(),
	}
}

// Create runs the synchronous intake: unpack, extract, upload, index, persist
// and enqueue. The returned record is already persisted; the evaluation
// happens later on a worker.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Solicitud, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	sol := &Solicitud{
		SolicitudID:        "sol_" + uuid.NewString(),
		CodigoProyecto:     input.CodigoProyecto,
		ProveedorNombre:    input.ProveedorNombre,
		ProveedorNIT:       input.ProveedorNIT,
		UsuarioSolicitante: input.UsuarioSolicitante,
		EstadoGeneral:      EstadoEnProgreso,
		Fase:               status.PhaseReceived,
		FechaCreacion:      time.Now().UTC(),
		FechaActualizacion: time.Now().UTC(),
	}
	log := s.log.With().Str("solicitud_id", sol.SolicitudID).Logger()

	s.advance(sol, status.PhaseExtracting, log)
	unpacked, err := s.unpacker.Unpack(ctx, input.Anexos)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "could not unpack anexos", err, "")
	}

	cuestionario, err := s.extractor.ExtractText(input.Cuestionario.Content)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "could not read questionnaire workbook", err, "")
	}
	sol.Cuestionario = cuestionario

	// The store is shared account-wide. Without scoped purge, leftovers from
	// earlier solicitudes are swept before this one uploads.
	if !s.opts.ScopedPurge {
		s.files.PurgeAll(ctx)
	}

	s.advance(sol, status.PhaseUploading, log)
	uploaded := s.files.UploadAll(ctx, unpacked)
	sol.Anexos = buildAnexos(unpacked, uploaded)
	ids := sol.FileIDs()
	log.Info().Int("unpacked", len(unpacked)).Int("uploaded", len(ids)).Msg("files uploaded")

	s.advance(sol, status.PhaseIndexing, log)
	if err := s.files.Index(ctx, s.opts.VectorStoreID, ids); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeExternal, "could not index uploaded files", err, "")
	}

	if err := s.repo.Create(ctx, sol); err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, sol.SolicitudID); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeInternal, "could not schedule evaluation", err, sol.SolicitudID)
	}
	log.Info().Msg("solicitud created and scheduled")
	return sol, nil
}

// Evaluate is the worker entrypoint. It loads the persisted record, runs the
// assistant with a bounded number of attempts and persists the terminal
// state. The persisted record is the source of truth between steps.
func (s *Service) Evaluate(ctx context.Context, solicitudID string) error {
	sol, err := s.repo.GetByID(ctx, solicitudID)
	if err != nil {
		return err
	}
	log := s.log.With().Str("solicitud_id", solicitudID).Logger()

	prompt := composePrompt(sol)
	sol.Prompt = prompt
	sol.Fase = status.PhaseAwaitingAssistant
	sol.FechaActualizacion = time.Now().UTC()
	if err := s.repo.Update(ctx, sol); err != nil {
		return err
	}

	fileIDs := sol.FileIDs()
	// The purge is mandatory even when the task context was cancelled or
	// timed out mid-run, so it runs detached from the caller's deadline.
	defer s.cleanup(context.WithoutCancel(ctx), fileIDs)

	var outcome *run.Outcome
	attempts := 0
	for attempts < s.opts.MaxAttempts {
		attempts++
		attemptPrompt := prompt
		if attempts > 1 {
			attemptPrompt = fmt.Sprintf(
				"%s\n\nPor favor, responde ejecutando la función configurada en el assistant. Intento %d.",
				prompt, attempts)
		}

		result, runErr := s.orch.RunFlow(ctx, attemptPrompt, fileIDs)
		if runErr != nil {
			log.Warn().Err(runErr).Int("attempt", attempts).Msg("evaluation attempt failed")
			continue
		}
		outcome = result
		if result.RequiredAction != nil {
			break
		}
		log.Warn().Int("attempt", attempts).Msg("run finished without a structured evaluation")
	}

	// Re-read before the terminal write so concurrent CRUD updates survive.
	fresh, err := s.repo.GetByID(ctx, solicitudID)
	if err != nil {
		return err
	}
	s.applyOutcome(fresh, outcome, attempts)
	if err := s.repo.Update(ctx, fresh); err != nil {
		return err
	}

	s.notify(ctx, fresh, log)
	log.Info().Str("estado", fresh.EstadoGeneral).Int("intentos", attempts).Msg("evaluation finished")
	return nil
}

// Get returns one solicitud by its public id.
func (s *Service) Get(ctx context.Context, solicitudID string) (*Solicitud, error) {
	return s.repo.GetByID(ctx, solicitudID)
}

// List returns every solicitud, newest first.
func (s *Service) List(ctx context.Context) ([]Solicitud, error) {
	return s.repo.List(ctx)
}

// Update applies a partial update and returns the stored record.
func (s *Service) Update(ctx context.Context, solicitudID string, input UpdateInput) (*Solicitud, error) {
	sol, err := s.repo.GetByID(ctx, solicitudID)
	if err != nil {
		return nil, err
	}
	if input.ProveedorNombre != nil {
		sol.ProveedorNombre = *input.ProveedorNombre
	}
	if input.ProveedorNIT != nil {
		sol.ProveedorNIT = *input.ProveedorNIT
	}
	if input.UsuarioSolicitante != nil {
		sol.UsuarioSolicitante = *input.UsuarioSolicitante
	}
	if input.EstadoGeneral != nil {
		sol.EstadoGeneral = *input.EstadoGeneral
	}
	if input.Mensaje != nil {
		sol.Mensaje = *input.Mensaje
	}
	sol.FechaActualizacion = time.Now().UTC()
	if err := s.repo.Update(ctx, sol); err != nil {
		return nil, err
	}
	return sol, nil
}

// Delete removes one solicitud.
func (s *Service) Delete(ctx context.Context, solicitudID string) error {
	return s.repo.Delete(ctx, solicitudID)
}

// Report renders the structured evaluation as a tabular PDF.
func (s *Service) Report(ctx context.Context, solicitudID string) ([]byte, error) {
	sol, err := s.repo.GetByID(ctx, solicitudID)
	if err != nil {
		return nil, err
	}
	if !sol.Evaluated() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation, "solicitud has no evaluation yet", nil, solicitudID)
	}

	keys := make([]string, 0, len(sol.Evaluacion))
	for k := range sol.Evaluacion {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := [][]string{{"Criterio", "Resultado"}}
	for _, k := range keys {
		rows = append(rows, []string{k, fmt.Sprintf("%v", sol.Evaluacion[k])})
	}
	title := fmt.Sprintf("Evaluación %s - %s", sol.CodigoProyecto, sol.ProveedorNombre)
	return s.renderer.Render(title, []document.Sheet{{Name: "Evaluación", Rows: rows}})
}

func (s *Service) advance(sol *Solicitud, next status.Phase, log zerolog.Logger) {
	phase, err := sol.Fase.TransitionTo(next)
	if err != nil {
		log.Warn().Err(err).Str("from", string(sol.Fase)).Str("to", string(next)).Msg("phase transition rejected")
		return
	}
	sol.Fase = phase
}

// applyOutcome writes the terminal evaluation state onto the record. A nil
// outcome or one without a required action means every attempt came back
// empty.
func (s *Service) applyOutcome(sol *Solicitud, outcome *run.Outcome, attempts int) {
	now := time.Now().UTC()
	sol.Intentos = attempts
	sol.FechaActualizacion = now
	sol.FechaFinalizacion = &now

	if outcome == nil {
		sol.EstadoGeneral = EstadoFailed
		sol.Fase = status.PhaseFailed
		sol.Mensaje = "la evaluación no produjo resultados"
		return
	}

	sol.Respuesta = outcome.AssistantResponse
	if outcome.RequiredAction == nil {
		sol.EstadoGeneral = EstadoFailed
		sol.Fase = status.PhaseFailed
		sol.Mensaje = "el assistant no ejecutó la función de evaluación"
		return
	}

	sol.Evaluacion = parseEvaluation(outcome.RequiredAction)
	sol.EstadoGeneral = EstadoDone
	sol.Fase = status.PhaseDone
	sol.Mensaje = ""
}

// cleanup always runs after an evaluation, successful or not.
func (s *Service) cleanup(ctx context.Context, fileIDs []string) {
	s.files.PurgeVectorStore(ctx, s.opts.VectorStoreID)
	if s.opts.ScopedPurge {
		s.files.PurgeFiles(ctx, fileIDs)
		return
	}
	s.files.PurgeAll(ctx)
}

func (s *Service) notify(ctx context.Context, sol *Solicitud, log zerolog.Logger) {
	var err error
	if sol.EstadoGeneral == EstadoDone {
		err = s.notifier.SolicitudCompleted(ctx, sol)
	} else {
		err = s.notifier.SolicitudFailed(ctx, sol)
	}
	if err != nil {
		log.Warn().Err(err).Msg("webhook notification failed")
	}
}

func validateCreate(input CreateInput) error {
	var missing []string
	if strings.TrimSpace(input.CodigoProyecto) == "" {
		missing = append(missing, "CodigoProyecto")
	}
	if strings.TrimSpace(input.ProveedorNombre) == "" {
		missing = append(missing, "ProveedorNombre")
	}
	if strings.TrimSpace(input.ProveedorNIT) == "" {
		missing = append(missing, "ProveedorNIT")
	}
	if len(input.Cuestionario.Content) == 0 {
		missing = append(missing, "excel_file")
	}
	if len(missing) > 0 {
		return platformerrors.NewError(context.Background(), platformerrors.LayerDomain,
			platformerrors.ErrorTypeValidation,
			"missing required fields: "+strings.Join(missing, ", "), nil, "")
	}
	return nil
}

// composePrompt builds the evaluation prompt from the persisted record.
func composePrompt(sol *Solicitud) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Solicitud creada para el proyecto %s del proveedor %s (NIT %s).\n",
		sol.CodigoProyecto, sol.ProveedorNombre, sol.ProveedorNIT)
	if len(sol.Anexos) > 0 {
		b.WriteString("Anexos entregados:\n")
		for _, a := range sol.Anexos {
			fmt.Fprintf(&b, "- %s\n", a.Nombre)
		}
	}
	if sol.Cuestionario != "" {
		b.WriteString("\nCuestionario a evaluar:\n")
		b.WriteString(sol.Cuestionario)
		b.WriteString("\n")
	}
	b.WriteString("\nRevisa los archivos adjuntos y entrega la evaluación ejecutando la función configurada en el assistant.")
	return b.String()
}

// parseEvaluation decodes the arguments of the first function tool call.
// Undecodable arguments are preserved raw so nothing is lost.
func parseEvaluation(action *run.RequiredAction) map[string]any {
	for _, call := range action.SubmitToolOutputs.ToolCalls {
		if call.Function.Arguments == "" {
			continue
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(call.Function.Arguments), &parsed); err != nil {
			return map[string]any{"raw": call.Function.Arguments}
		}
		return parsed
	}
	return nil
}

// buildAnexos keeps one entry per unpacked file, attaching a remote id only
// to the files the upload actually accepted. Skipped and failed files stay
// listed without an id.
func buildAnexos(files []document.File, uploaded []run.Uploaded) []Anexo {
	ids := make(map[string]string, len(uploaded))
	for _, u := range uploaded {
		ids[u.Name] = u.FileID
	}
	anexos := make([]Anexo, 0, len(files))
	for _, f := range files {
		anexos = append(anexos, Anexo{Nombre: f.Name, FileID: ids[f.Name]})
	}
	return anexos
}
