package dto

// Límites de paginación de los listados.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page ventana de un listado (?limit=&offset=).
type Page struct {
	Limit  int `query:"limit" json:"limit" validate:"min=1,max=100"`
	Offset int `query:"offset" json:"offset" validate:"min=0"`
}

// NewPage límite por defecto cuando no viene; un offset negativo se lleva a cero.
// Un límite mayor a MaxPageLimit se deja pasar para que la validación lo rechace.
func NewPage(limit, offset int) Page {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}

// FetchLimit límite que se pide al repositorio: uno más que la página para saber si hay otra.
func (p Page) FetchLimit() int { return p.Limit + 1 }

// RunListResponse página de corridas. HasMore indica que hay corridas después de esta página.
type RunListResponse struct {
	Runs    []RunSummaryResponse `json:"runs"`
	Page    Page                 `json:"page"`
	HasMore bool                 `json:"has_more"`
}

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
