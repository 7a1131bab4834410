package solicitud

import "context"

// Repository is the persistence contract for solicitudes. Implementations
// return platformerrors with type NOT_FOUND when the id does not exist.
type Repository interface {
	Create(ctx context.Context, s *Solicitud) error
	GetByID(ctx context.Context, solicitudID string) (*Solicitud, error)
	List(ctx context.Context) ([]Solicitud, error)
	Update(ctx context.Context, s *Solicitud) error
	Delete(ctx context.Context, solicitudID string) error
}
