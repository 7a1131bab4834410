package solicitud

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/document"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/run"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/status"
	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/utils/platformerrors"
)

type memoryRepo struct {
	mu      sync.Mutex
	records map[string]*Solicitud
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: map[string]*Solicitud{}}
}

func (r *memoryRepo) Create(_ context.Context, s *Solicitud) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *s
	r.records[s.SolicitudID] = &copied
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id string) (*Solicitud, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.records[id]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, "solicitud not found", nil, id)
	}
	copied := *s
	return &copied, nil
}

func (r *memoryRepo) List(context.Context) ([]Solicitud, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Solicitud, 0, len(r.records))
	for _, s := range r.records {
		out = append(out, *s)
	}
	return out, nil
}

func (r *memoryRepo) Update(ctx context.Context, s *Solicitud) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[s.SolicitudID]; !ok {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, "solicitud not found", nil, s.SolicitudID)
	}
	copied := *s
	r.records[s.SolicitudID] = &copied
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

type mockFiles struct {
	uploadFunc       func(f document.File) (string, bool)
	purgeAllCalls    int
	purgedFiles      [][]string
	purgedStores     []string
	purgeCtxErrs     []error
	uploaded         [][]string
	prePurgeBeforeUp bool
}

func (m *mockFiles) UploadAll(_ context.Context, files []document.File) []run.Uploaded {
	var out []run.Uploaded
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
		if m.uploadFunc != nil {
			if id, ok := m.uploadFunc(f); ok {
				out = append(out, run.Uploaded{Name: f.Name, FileID: id})
			}
			continue
		}
		if !document.IsImage(f.Name) {
			out = append(out, run.Uploaded{Name: f.Name, FileID: "file_" + f.Name})
		}
	}
	m.uploaded = append(m.uploaded, names)
	if m.purgeAllCalls > 0 {
		m.prePurgeBeforeUp = true
	}
	return out
}

func (m *mockFiles) Index(context.Context, string, []string) error { return nil }

func (m *mockFiles) PurgeAll(context.Context) { m.purgeAllCalls++ }

func (m *mockFiles) PurgeFiles(_ context.Context, ids []string) {
	m.purgedFiles = append(m.purgedFiles, ids)
}

func (m *mockFiles) PurgeVectorStore(ctx context.Context, id string) {
	m.purgedStores = append(m.purgedStores, id)
	m.purgeCtxErrs = append(m.purgeCtxErrs, ctx.Err())
}

type mockOrch struct {
	runFunc func(ctx context.Context, prompt string, fileIDs []string) (*run.Outcome, error)
	prompts []string
	fileIDs [][]string
}

func (m *mockOrch) RunFlow(ctx context.Context, prompt string, fileIDs []string) (*run.Outcome, error) {
	m.prompts = append(m.prompts, prompt)
	m.fileIDs = append(m.fileIDs, fileIDs)
	if m.runFunc != nil {
		return m.runFunc(ctx, prompt, fileIDs)
	}
	return &run.Outcome{}, nil
}

type passthroughUnpacker struct{}

func (passthroughUnpacker) Unpack(_ context.Context, files []document.File) ([]document.File, error) {
	// Simulates archive flattening: a zip expands to its members.
	var out []document.File
	for _, f := range files {
		if document.IsArchive(f.Name) {
			out = append(out,
				document.File{Name: "pliego_interno.pdf", Content: []byte("pdf")},
				document.File{Name: "foto_bodega.png", Content: []byte("png")},
			)
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

type staticExtractor struct{}

func (staticExtractor) ExtractText([]byte) (string, error) {
	return "=== Hoja: Preguntas ===\n¿Cumple ISO 9001? | Sí/No", nil
}
func (staticExtractor) ExtractSheets([]byte) ([]document.Sheet, error) { return nil, nil }
func (staticExtractor) ToCSV([]byte) ([]byte, error)                  { return nil, nil }

type captureRenderer struct {
	title  string
	sheets []document.Sheet
}

func (r *captureRenderer) Render(title string, sheets []document.Sheet) ([]byte, error) {
	r.title = title
	r.sheets = sheets
	return []byte("%PDF-1.4"), nil
}

type mockQueue struct {
	enqueued []string
	err      error
}

func (m *mockQueue) Enqueue(_ context.Context, id string) error {
	m.enqueued = append(m.enqueued, id)
	return m.err
}

type mockNotifier struct {
	completed []string
	failed    []string
}

func (m *mockNotifier) SolicitudCompleted(_ context.Context, s *Solicitud) error {
	m.completed = append(m.completed, s.SolicitudID)
	return nil
}

func (m *mockNotifier) SolicitudFailed(_ context.Context, s *Solicitud) error {
	m.failed = append(m.failed, s.SolicitudID)
	return nil
}

type deps struct {
	repo     *memoryRepo
	files    *mockFiles
	orch     *mockOrch
	renderer *captureRenderer
	queue    *mockQueue
	notifier *mockNotifier
}

func newTestService(opts Options) (*Service, *deps) {
	d := &deps{
		repo:     newMemoryRepo(),
		files:    &mockFiles{},
		orch:     &mockOrch{},
		renderer: &captureRenderer{},
		queue:    &mockQueue{},
		notifier: &mockNotifier{},
	}
	if opts.VectorStoreID == "" {
		opts.VectorStoreID = "vs_test"
	}
	svc := NewService(d.repo, d.files, d.orch, passthroughUnpacker{}, staticExtractor{},
		d.renderer, d.queue, d.notifier, opts, zerolog.Nop())
	return svc, d
}

func validCreateInput() CreateInput {
	return CreateInput{
		CodigoProyecto:     "PRY-001",
		ProveedorNombre:    "Aceros del Norte",
		ProveedorNIT:       "900123456-7",
		UsuarioSolicitante: "mgomez",
		Cuestionario:       document.File{Name: "cuestionario.xlsx", Content: []byte("workbook")},
		Anexos: []document.File{
			{Name: "propuesta.pdf", Content: []byte("pdf")},
			{Name: "anexos.zip", Content: []byte("zip")},
		},
	}
}

func TestCreateIntakeFlow(t *testing.T) {
	svc, d := newTestService(Options{})

	sol, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if !strings.HasPrefix(sol.SolicitudID, "sol_") {
		t.Errorf("solicitud id = %q", sol.SolicitudID)
	}
	if sol.EstadoGeneral != EstadoEnProgreso {
		t.Errorf("estado = %q, want %q", sol.EstadoGeneral, EstadoEnProgreso)
	}
	if sol.Fase != status.PhaseIndexing {
		t.Errorf("fase = %q, want indexing", sol.Fase)
	}
	if !strings.Contains(sol.Cuestionario, "ISO 9001") {
		t.Errorf("cuestionario = %q", sol.Cuestionario)
	}

	// The zip expanded into a pdf and an image; the image gets no file id.
	wantAnexos := map[string]bool{"propuesta.pdf": true, "pliego_interno.pdf": true, "foto_bodega.png": false}
	if len(sol.Anexos) != len(wantAnexos) {
		t.Fatalf("anexos = %+v", sol.Anexos)
	}
	for _, a := range sol.Anexos {
		wantID, ok := wantAnexos[a.Nombre]
		if !ok {
			t.Errorf("unexpected anexo %q", a.Nombre)
			continue
		}
		if (a.FileID != "") != wantID {
			t.Errorf("anexo %q file id = %q", a.Nombre, a.FileID)
		}
	}

	// Global purge scope sweeps the store before uploading.
	if d.files.purgeAllCalls != 1 || !d.files.prePurgeBeforeUp {
		t.Error("expected a store sweep before the upload")
	}
	if len(d.queue.enqueued) != 1 || d.queue.enqueued[0] != sol.SolicitudID {
		t.Errorf("enqueued = %v", d.queue.enqueued)
	}
	if _, err := d.repo.GetByID(context.Background(), sol.SolicitudID); err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
}

func TestCreateKeepsAnexoIDsAlignedWhenUploadDrops(t *testing.T) {
	svc, d := newTestService(Options{})
	d.files.uploadFunc = func(f document.File) (string, bool) {
		// The inner pdf is rejected by the store; no other file may
		// inherit its slot.
		if f.Name == "pliego_interno.pdf" || document.IsImage(f.Name) {
			return "", false
		}
		return "file_" + f.Name, true
	}

	sol, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	wantIDs := map[string]string{
		"propuesta.pdf":      "file_propuesta.pdf",
		"pliego_interno.pdf": "",
		"foto_bodega.png":    "",
	}
	if len(sol.Anexos) != len(wantIDs) {
		t.Fatalf("anexos = %+v", sol.Anexos)
	}
	for _, a := range sol.Anexos {
		if a.FileID != wantIDs[a.Nombre] {
			t.Errorf("anexo %q file id = %q, want %q", a.Nombre, a.FileID, wantIDs[a.Nombre])
		}
	}
}

func TestCreateValidatesRequiredFields(t *testing.T) {
	svc, _ := newTestService(Options{})

	input := validCreateInput()
	input.CodigoProyecto = ""
	input.Cuestionario = document.File{}

	_, err := svc.Create(context.Background(), input)
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "CodigoProyecto") || !strings.Contains(err.Error(), "excel_file") {
		t.Fatalf("error message = %q", err.Error())
	}
}

func seedSolicitud(t *testing.T, repo *memoryRepo) *Solicitud {
	t.Helper()
	sol := &Solicitud{
		SolicitudID:     "sol_seed",
		CodigoProyecto:  "PRY-002",
		ProveedorNombre: "Logística Andina",
		ProveedorNIT:    "800555111-2",
		EstadoGeneral:   EstadoEnProgreso,
		Fase:            status.PhaseIndexing,
		Cuestionario:    "¿Tiene cobertura nacional? | Sí/No",
		Anexos: []Anexo{
			{Nombre: "propuesta.pdf", FileID: "file_propuesta"},
			{Nombre: "foto.png"},
		},
	}
	if err := repo.Create(context.Background(), sol); err != nil {
		t.Fatalf("seeding: %v", err)
	}
	return sol
}

func TestEvaluatePersistsStructuredResult(t *testing.T) {
	svc, d := newTestService(Options{})
	seedSolicitud(t, d.repo)

	d.orch.runFunc = func(context.Context, string, []string) (*run.Outcome, error) {
		return &run.Outcome{
			RequiredAction: &run.RequiredAction{
				Type: "submit_tool_outputs",
				SubmitToolOutputs: run.SubmitToolOutputs{ToolCalls: []run.ToolCall{{
					ID:   "call_1",
					Type: "function",
					Function: run.ToolFunction{
						Name:      "registrar_evaluacion",
						Arguments: `{"puntaje": 92, "concepto": "favorable"}`,
					},
				}}},
			},
			AssistantResponse: "Evaluación completada.",
		}, nil
	}

	if err := svc.Evaluate(context.Background(), "sol_seed"); err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	got, _ := d.repo.GetByID(context.Background(), "sol_seed")
	if got.EstadoGeneral != EstadoDone {
		t.Errorf("estado = %q, want done", got.EstadoGeneral)
	}
	if got.Fase != status.PhaseDone {
		t.Errorf("fase = %q", got.Fase)
	}
	if got.Evaluacion["puntaje"] != float64(92) || got.Evaluacion["concepto"] != "favorable" {
		t.Errorf("evaluacion = %v", got.Evaluacion)
	}
	if got.Respuesta != "Evaluación completada." {
		t.Errorf("respuesta = %q", got.Respuesta)
	}
	if got.Intentos != 1 {
		t.Errorf("intentos = %d, want 1", got.Intentos)
	}
	if got.FechaFinalizacion == nil || got.FechaFinalizacion.IsZero() {
		t.Error("fecha_finalizacion not set on the terminal record")
	}
	if !strings.Contains(got.Prompt, "PRY-002") || !strings.Contains(got.Prompt, "Logística Andina") {
		t.Errorf("prompt = %q", got.Prompt)
	}

	// Only the uploaded anexo reaches the run.
	if len(d.orch.fileIDs) != 1 || len(d.orch.fileIDs[0]) != 1 || d.orch.fileIDs[0][0] != "file_propuesta" {
		t.Errorf("run file ids = %v", d.orch.fileIDs)
	}
	if len(d.files.purgedStores) != 1 || d.files.purgedStores[0] != "vs_test" {
		t.Errorf("vector store purge = %v", d.files.purgedStores)
	}
	if d.files.purgeAllCalls != 1 {
		t.Errorf("purge all calls = %d, want 1", d.files.purgeAllCalls)
	}
	if len(d.notifier.completed) != 1 {
		t.Errorf("completed notifications = %v", d.notifier.completed)
	}
}

func TestEvaluateExhaustsAttempts(t *testing.T) {
	svc, d := newTestService(Options{MaxAttempts: 3})
	seedSolicitud(t, d.repo)

	d.orch.runFunc = func(context.Context, string, []string) (*run.Outcome, error) {
		return &run.Outcome{AssistantResponse: "no puedo ejecutar funciones"}, nil
	}

	if err := svc.Evaluate(context.Background(), "sol_seed"); err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	got, _ := d.repo.GetByID(context.Background(), "sol_seed")
	if got.EstadoGeneral != EstadoFailed {
		t.Errorf("estado = %q, want failed", got.EstadoGeneral)
	}
	if got.Intentos != 3 {
		t.Errorf("intentos = %d, want 3", got.Intentos)
	}
	if got.Respuesta != "no puedo ejecutar funciones" {
		t.Errorf("respuesta = %q", got.Respuesta)
	}

	if len(d.orch.prompts) != 3 {
		t.Fatalf("ran %d attempts, want 3", len(d.orch.prompts))
	}
	if strings.Contains(d.orch.prompts[0], "Intento") {
		t.Errorf("first prompt already carries an attempt suffix: %q", d.orch.prompts[0])
	}
	for i, n := range []string{"Intento 2.", "Intento 3."} {
		if !strings.Contains(d.orch.prompts[i+1], n) {
			t.Errorf("prompt %d missing %q", i+2, n)
		}
	}
	if len(d.notifier.failed) != 1 {
		t.Errorf("failed notifications = %v", d.notifier.failed)
	}
}

func TestEvaluateRunErrorsCountAsAttempts(t *testing.T) {
	svc, d := newTestService(Options{MaxAttempts: 2})
	seedSolicitud(t, d.repo)

	d.orch.runFunc = func(context.Context, string, []string) (*run.Outcome, error) {
		return nil, run.ErrRunTimeout
	}

	if err := svc.Evaluate(context.Background(), "sol_seed"); err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	got, _ := d.repo.GetByID(context.Background(), "sol_seed")
	if got.EstadoGeneral != EstadoFailed {
		t.Errorf("estado = %q, want failed", got.EstadoGeneral)
	}
	if len(d.orch.prompts) != 2 {
		t.Errorf("ran %d attempts, want 2", len(d.orch.prompts))
	}
}

func TestEvaluateScopedPurge(t *testing.T) {
	svc, d := newTestService(Options{ScopedPurge: true})
	seedSolicitud(t, d.repo)

	d.orch.runFunc = func(context.Context, string, []string) (*run.Outcome, error) {
		return &run.Outcome{}, nil
	}

	if err := svc.Evaluate(context.Background(), "sol_seed"); err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if d.files.purgeAllCalls != 0 {
		t.Errorf("purge all called %d times with scoped purge", d.files.purgeAllCalls)
	}
	if len(d.files.purgedFiles) != 1 || len(d.files.purgedFiles[0]) != 1 {
		t.Fatalf("scoped purge = %v", d.files.purgedFiles)
	}
	if d.files.purgedFiles[0][0] != "file_propuesta" {
		t.Errorf("scoped purge ids = %v", d.files.purgedFiles[0])
	}
}

func TestEvaluateCleansUpAfterCancelledContext(t *testing.T) {
	svc, d := newTestService(Options{MaxAttempts: 1})
	seedSolicitud(t, d.repo)

	ctx, cancel := context.WithCancel(context.Background())
	d.orch.runFunc = func(context.Context, string, []string) (*run.Outcome, error) {
		// The task deadline fires mid-run.
		cancel()
		return nil, context.Canceled
	}

	if err := svc.Evaluate(ctx, "sol_seed"); err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}

	if len(d.files.purgedStores) != 1 || d.files.purgedStores[0] != "vs_test" {
		t.Fatalf("vector store purge = %v, want one sweep of vs_test", d.files.purgedStores)
	}
	if d.files.purgeAllCalls != 1 {
		t.Errorf("purge all calls = %d, want 1", d.files.purgeAllCalls)
	}
	if err := d.files.purgeCtxErrs[0]; err != nil {
		t.Errorf("purge ran on a dead context: %v", err)
	}
}

func TestCreateScopedPurgeSkipsSweep(t *testing.T) {
	svc, d := newTestService(Options{ScopedPurge: true})
	if _, err := svc.Create(context.Background(), validCreateInput()); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if d.files.purgeAllCalls != 0 {
		t.Errorf("store swept %d times with scoped purge", d.files.purgeAllCalls)
	}
}

func TestUpdateAppliesPartialFields(t *testing.T) {
	svc, d := newTestService(Options{})
	seedSolicitud(t, d.repo)

	nombre := "Logística Andina SAS"
	got, err := svc.Update(context.Background(), "sol_seed", UpdateInput{ProveedorNombre: &nombre})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if got.ProveedorNombre != nombre {
		t.Errorf("nombre = %q", got.ProveedorNombre)
	}
	if got.ProveedorNIT != "800555111-2" {
		t.Errorf("untouched field changed: %q", got.ProveedorNIT)
	}
}

func TestGetUnknownIDIsNotFound(t *testing.T) {
	svc, _ := newTestService(Options{})
	_, err := svc.Get(context.Background(), "sol_missing")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestReportRendersEvaluation(t *testing.T) {
	svc, d := newTestService(Options{})
	sol := seedSolicitud(t, d.repo)
	sol.Evaluacion = map[string]any{"puntaje": 92, "concepto": "favorable"}
	if err := d.repo.Update(context.Background(), sol); err != nil {
		t.Fatalf("seeding evaluation: %v", err)
	}

	pdf, err := svc.Report(context.Background(), "sol_seed")
	if err != nil {
		t.Fatalf("Report returned error: %v", err)
	}
	if len(pdf) == 0 {
		t.Fatal("empty report")
	}
	if !strings.Contains(d.renderer.title, "PRY-002") {
		t.Errorf("title = %q", d.renderer.title)
	}
	if len(d.renderer.sheets) != 1 {
		t.Fatalf("sheets = %v", d.renderer.sheets)
	}
	rows := d.renderer.sheets[0].Rows
	// Header plus one row per criterion, keys sorted.
	if len(rows) != 3 || rows[1][0] != "concepto" || rows[2][0] != "puntaje" {
		t.Errorf("rows = %v", rows)
	}
}

func TestReportWithoutEvaluation(t *testing.T) {
	svc, d := newTestService(Options{})
	seedSolicitud(t, d.repo)

	_, err := svc.Report(context.Background(), "sol_seed")
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestEnqueueFailureSurfaces(t *testing.T) {
	svc, d := newTestService(Options{})
	d.queue.err = errors.New("queue unavailable")

	_, err := svc.Create(context.Background(), validCreateInput())
	if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeInternal) {
		t.Fatalf("err = %v, want internal error", err)
	}
}

func TestListReturnsAll(t *testing.T) {
	svc, d := newTestService(Options{})
	for i := 0; i < 3; i++ {
		sol := seedSolicitud(t, d.repo)
		sol.SolicitudID = fmt.Sprintf("sol_%d", i)
		if err := d.repo.Create(context.Background(), sol); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}
	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) < 3 {
		t.Fatalf("listed %d records", len(got))
	}
}
