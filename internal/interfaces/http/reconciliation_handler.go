package http

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/onboarding-contable/internal/application/dto"
	"github.com/jhoicas/onboarding-contable/internal/application/onboarding"
	"github.com/jhoicas/onboarding-contable/internal/domain"
	"github.com/jhoicas/onboarding-contable/internal/infrastructure/readers"
	"github.com/jhoicas/onboarding-contable/internal/infrastructure/report"
	"github.com/jhoicas/onboarding-contable/pkg/logger"
)

var validate = validator.New()

var uploadKinds = []readers.Kind{
	readers.KindSuppliers, readers.KindCostModel, readers.KindPUC,
	readers.KindLedger, readers.KindProducts, readers.KindInvoices,
}

// ReconciliationHandler corridas de conciliación: ejecución por carga de archivos y consulta
// de corridas persistidas.
type ReconciliationHandler struct {
	opts   onboarding.Options
	store  onboarding.ResultStore
	reader onboarding.RunReader
	locker onboarding.RunLocker
	log    *logger.Logger
}

// NewReconciliationHandler construye el handler. store y reader pueden ser nil (sin base de datos).
func NewReconciliationHandler(opts onboarding.Options, store onboarding.ResultStore, reader onboarding.RunReader,
	locker onboarding.RunLocker, log *logger.Logger) *ReconciliationHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ReconciliationHandler{opts: opts, store: store, reader: reader, locker: locker, log: log.Component("http")}
}

// Run godoc
// @Summary      Ejecutar una conciliación
// @Tags         reconciliations
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        client_id    formData  string  true   "Cliente contable"
// @Param        puc_classes  formData  string  false  "Clases PUC separadas por coma (por defecto 5,6)"
// @Param        format       query     string  false  "json | xlsx | pdf"
// @Success      201  {object}  dto.RunResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/reconciliations [post]
func (h *ReconciliationHandler) Run(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "se espera multipart/form-data"})
	}
	req := dto.RunRequest{
		ClientID:   strings.TrimSpace(c.FormValue("client_id")),
		PUCClasses: splitList(c.FormValue("puc_classes")),
		Format:     c.Query("format"),
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	if !CanAccessClient(c, req.ClientID) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "sin acceso al cliente " + req.ClientID})
	}
	format, err := report.ParseFormat(req.Format)
	if err != nil {
		return writeError(c, err)
	}

	in := onboarding.Input{ClientID: req.ClientID}
	files := 0
	for _, kind := range uploadKinds {
		for _, fh := range form.File[string(kind)] {
			if err := addUpload(&in, kind, fh); err != nil {
				return writeError(c, err)
			}
			files++
		}
	}
	if files == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "NO_FILES", Message: "no se recibieron archivos"})
	}

	opts := h.opts
	if len(req.PUCClasses) > 0 {
		opts.PUCClasses = req.PUCClasses
	}
	res, err := onboarding.NewPipeline(opts, h.log, h.store, h.locker).Run(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	h.log.Info().Str("run_id", res.RunID).Str("client_id", res.ClientID).Str("user_id", GetUserID(c)).
		Int("records", len(res.Records)).Msg("corrida completada")

	if format == report.FormatJSON {
		return c.Status(fiber.StatusCreated).JSON(dto.FromResult(res, c.QueryBool("audit")))
	}
	var buf bytes.Buffer
	if err := report.Write(c.UserContext(), &buf, res, format); err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, format.ContentType())
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="conciliacion-%s%s"`, res.RunID, format.Ext()))
	return c.Status(fiber.StatusCreated).Send(buf.Bytes())
}

func addUpload(in *onboarding.Input, kind readers.Kind, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("%w: abrir %s: %v", domain.ErrInvalidInput, fh.Filename, err)
	}
	defer f.Close()
	return readers.Add(in, kind, fh.Filename, f)
}

// List godoc
// @Summary      Listar corridas de un cliente
// @Tags         reconciliations
// @Security     Bearer
// @Produce      json
// @Param        client_id  query  string  true   "Cliente contable"
// @Param        limit      query  int     false  "Límite"
// @Param        offset     query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.RunListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/reconciliations [get]
func (h *ReconciliationHandler) List(c *fiber.Ctx) error {
	if h.reader == nil {
		return noStorage(c)
	}
	clientID := c.Query("client_id", GetClientID(c))
	if !CanAccessClient(c, clientID) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "sin acceso al cliente " + clientID})
	}
	page := dto.NewPage(c.QueryInt("limit"), c.QueryInt("offset"))
	if err := validate.Struct(page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	runs, err := h.reader.ListRuns(c.UserContext(), clientID, page.FetchLimit(), page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.RunListResponse{Runs: make([]dto.RunSummaryResponse, 0, len(runs)), Page: page}
	if len(runs) > page.Limit {
		runs, out.HasMore = runs[:page.Limit], true
	}
	for _, r := range runs {
		out.Runs = append(out.Runs, runSummary(r))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener una corrida con sus registros
// @Tags         reconciliations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la corrida"
// @Success      200  {object}  dto.RunResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/reconciliations/{id} [get]
func (h *ReconciliationHandler) GetByID(c *fiber.Ctx) error {
	run, ok, err := h.authorizedRun(c)
	if !ok {
		return err
	}
	records, err := h.reader.ListRecords(c.UserContext(), run.RunID)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.RunResponse{
		RunID:           run.RunID,
		ClientID:        run.ClientID,
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
		RegistryVersion: run.RegistryVersion,
		Summary:         run.Summary,
		Records:         make([]dto.MatchRecordResponse, 0, len(records)),
	}
	for _, r := range records {
		out.Records = append(out.Records, dto.FromMatchRecord(r))
	}
	return c.JSON(out)
}

// Audit godoc
// @Summary      Bitácora de una corrida
// @Tags         reconciliations
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la corrida"
// @Success      200  {array}  audit.Event
// @Router       /api/reconciliations/{id}/audit [get]
func (h *ReconciliationHandler) Audit(c *fiber.Ctx) error {
	run, ok, err := h.authorizedRun(c)
	if !ok {
		return err
	}
	events, err := h.reader.ListAudit(c.UserContext(), run.RunID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(events)
}

// authorizedRun carga la corrida del path y verifica el acceso. Si ok es false la respuesta
// ya fue escrita y err es lo que el handler debe devolver.
func (h *ReconciliationHandler) authorizedRun(c *fiber.Ctx) (*onboarding.StoredRun, bool, error) {
	if h.reader == nil {
		return nil, false, noStorage(c)
	}
	id := c.Params("id")
	if id == "" {
		return nil, false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	run, err := h.reader.GetRun(c.UserContext(), id)
	if err != nil {
		return nil, false, writeError(c, err)
	}
	if !CanAccessClient(c, run.ClientID) {
		// Mismo 404 que una corrida inexistente para no revelar ids de otros clientes.
		return nil, false, c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "corrida no encontrada"})
	}
	return run, true, nil
}

func runSummary(r onboarding.StoredRun) dto.RunSummaryResponse {
	return dto.RunSummaryResponse{
		RunID:      r.RunID,
		ClientID:   r.ClientID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Summary:    r.Summary,
	}
}

func noStorage(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "NO_STORAGE", Message: "persistencia de corridas no configurada"})
}

// writeError traduce errores de dominio a códigos HTTP.
func writeError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, domain.ErrRunLocked):
		status, code = fiber.StatusConflict, "RUN_LOCKED"
	case errors.Is(err, domain.ErrDuplicate), errors.Is(err, domain.ErrConflict):
		status, code = fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrPrecondition):
		status, code = fiber.StatusUnprocessableEntity, "PRECONDITION"
	case errors.Is(err, domain.ErrForbidden):
		status, code = fiber.StatusForbidden, "FORBIDDEN"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
