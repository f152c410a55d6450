package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"roomreserve/internal/domain"
	"roomreserve/internal/export"
	"roomreserve/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReservationHandlers adapts the reservation service to HTTP.
type ReservationHandlers struct {
	svc           domain.ReservationService
	validate      *validator.Validate
	maxExportDays int
	logger        zerolog.Logger
}

func NewReservationHandlers(svc domain.ReservationService, maxExportDays int, logger zerolog.Logger) *ReservationHandlers {
	if maxExportDays <= 0 {
		maxExportDays = models.DefaultExportRangeDays
	}
	return &ReservationHandlers{
		svc:           svc,
		validate:      newValidator(),
		maxExportDays: maxExportDays,
		logger:        logger,
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (h *ReservationHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Debug().Int64("reservation_id", id).Msg("get reservation")
	res, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(res))
}

func (h *ReservationHandlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter models.SearchFilter
	var err error
	if filter.RoomID, err = queryInt64(q.Get("roomId"), "roomId"); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if filter.UserID, err = queryInt64(q.Get("userId"), "userId"); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	pageSize, err := queryInt64(q.Get("pageSize"), "pageSize")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	pageNumber, err := queryInt64(q.Get("pageNumber"), "pageNumber")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	filter.PageSize = int(pageSize)
	filter.PageNumber = int(pageNumber)

	list, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTOs(list))
}

func (h *ReservationHandlers) Create(w http.ResponseWriter, r *http.Request) {
	toCreate, err := h.decodeReservation(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	created, err := h.svc.Create(r.Context(), toCreate)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDTO(created))
}

func (h *ReservationHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	toUpdate, err := h.decodeReservation(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	updated, err := h.svc.Update(r.Context(), id, toUpdate)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(updated))
}

func (h *ReservationHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.svc.Cancel(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *ReservationHandlers) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	approved, err := h.svc.Approve(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(approved))
}

func (h *ReservationHandlers) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req AvailabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, h.logger, validationError(err))
		return
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	available, err := h.svc.CheckAvailability(r.Context(), *req.RoomID, start, end)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{
		RoomID:    *req.RoomID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Available: available,
	})
}

// Export streams an XLSX schedule for ?roomId&from&to, to exclusive.
func (h *ReservationHandlers) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID, err := queryInt64(q.Get("roomId"), "roomId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if q.Get("from") == "" || q.Get("to") == "" {
		writeError(w, r, h.logger, fmt.Errorf("%w: from and to are required", domain.ErrInvalidInput))
		return
	}
	from, to, err := parseRange(q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if to.After(from.AddDate(0, 0, h.maxExportDays)) {
		writeError(w, r, h.logger, fmt.Errorf("%w: export range exceeds %d days", domain.ErrInvalidInput, h.maxExportDays))
		return
	}

	list, err := h.svc.Schedule(r.Context(), roomID, from, to)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	f, err := export.Schedule(list, from, to)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(roomID, from, to)))
	w.WriteHeader(http.StatusOK)
	if err := f.Write(w); err != nil {
		h.logger.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("write export")
	}
}

func (h *ReservationHandlers) decodeReservation(r *http.Request) (*models.Reservation, error) {
	var req ReservationRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	return req.toModel()
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid reservation id %q", domain.ErrInvalidInput, raw)
	}
	return id, nil
}

// queryInt64 parses an optional non-negative integer query parameter.
func queryInt64(raw, name string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, name)
	}
	return v, nil
}
