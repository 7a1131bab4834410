package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/solicitud"
)

// HTTPService delivers notifications via HTTP POST to a configured URL. An
// empty URL disables delivery, which keeps local setups quiet.
type HTTPService struct {
	httpClient *http.Client
	url        string
	log        zerolog.Logger
	maxRetries int
	retryDelay time.Duration
}

// NewHTTPService creates a new HTTP-based notifier.
func NewHTTPService(url string, log zerolog.Logger) *HTTPService {
	return &HTTPService{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		url:        url,
		log:        log.With().Str("component", "webhook").Logger(),
		maxRetries: 3,
		retryDelay: 2 * time.Second,
	}
}

// SolicitudCompleted sends a notification for a successful evaluation.
func (s *HTTPService) SolicitudCompleted(ctx context.Context, sol *solicitud.Solicitud) error {
	return s.send(ctx, buildPayload("solicitud.completed", sol))
}

// SolicitudFailed sends a notification for a failed evaluation.
func (s *HTTPService) SolicitudFailed(ctx context.Context, sol *solicitud.Solicitud) error {
	return s.send(ctx, buildPayload("solicitud.failed", sol))
}

func buildPayload(event string, sol *solicitud.Solicitud) Payload {
	return Payload{
		SolicitudID:    sol.SolicitudID,
		Event:          event,
		EstadoGeneral:  sol.EstadoGeneral,
		CodigoProyecto: sol.CodigoProyecto,
		Proveedor:      sol.ProveedorNombre,
		Evaluacion:     sol.Evaluacion,
		Respuesta:      sol.Respuesta,
		Mensaje:        sol.Mensaje,
		Intentos:       sol.Intentos,
	}
}

func (s *HTTPService) send(ctx context.Context, payload Payload) error {
	if s.url == "" {
		s.log.Debug().Str("solicitud_id", payload.SolicitudID).Msg("no webhook URL configured, skipping notification")
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create webhook request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "rfp-agilismo-backend/1.0")
		req.Header.Set("X-Vigia-Event", payload.Event)
		req.Header.Set("X-Vigia-Solicitud-ID", payload.SolicitudID)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("send webhook (attempt %d/%d): %w", attempt, s.maxRetries, err)
			s.log.Warn().Err(err).Int("attempt", attempt).Msg("webhook delivery failed")

			if attempt < s.maxRetries {
				time.Sleep(s.retryDelay)
				continue
			}
			break
		}

		status := resp.StatusCode
		resp.Body.Close()

		if status >= 200 && status < 300 {
			s.log.Info().Int("status", status).Str("solicitud_id", payload.SolicitudID).Msg("webhook delivered")
			return nil
		}

		lastErr = fmt.Errorf("webhook returned status %d (attempt %d/%d)", status, attempt, s.maxRetries)
		s.log.Warn().Int("status", status).Int("attempt", attempt).Msg("webhook delivery failed")

		if attempt < s.maxRetries {
			time.Sleep(s.retryDelay)
		}
	}

	return lastErr
}

// Ensure interface compliance.
var _ solicitud.Notifier = (*HTTPService)(nil)
