package dto

// UpdateSolicitudRequest models PATCH /vigia/solicitud/:solicitud_id input.
// Omitted fields are left untouched.
type UpdateSolicitudRequest struct {
	ProveedorNombre    *string `json:"proveedor_nombre,omitempty"`
	ProveedorNIT       *string `json:"proveedor_nit,omitempty"`
	UsuarioSolicitante *string `json:"usuario_solicitante,omitempty"`
	EstadoGeneral      *string `json:"estado_general,omitempty"`
	Mensaje            *string `json:"mensaje,omitempty"`
}
