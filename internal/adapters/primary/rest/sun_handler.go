// Package rest implements the HTTP handlers for the sunrise/sunset service.
// It is the primary adapter: it parses requests, delegates to the core
// service, and maps domain error kinds onto HTTP responses.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/willygodx/sunrise-sunset-service/internal/core/domain"
	"github.com/willygodx/sunrise-sunset-service/internal/core/ports"
	"github.com/willygodx/sunrise-sunset-service/internal/middleware"
)

// SunHandler handles HTTP requests for sun record operations.
type SunHandler struct {
	service ports.SunInfoService
	logger  *zap.Logger
}

// NewSunHandler creates the handler over the core service.
func NewSunHandler(service ports.SunInfoService, logger *zap.Logger) *SunHandler {
	return &SunHandler{
		service: service,
		logger:  logger,
	}
}

// Register wires the handler's routes into the router.
func (h *SunHandler) Register(router *mux.Router) {
	router.HandleFunc("/sun-info", h.GetSunInfo).Methods(http.MethodGet)
	router.HandleFunc("/records", h.ListRecords).Methods(http.MethodGet)
	router.HandleFunc("/records", h.CreateRecord).Methods(http.MethodPost)
	router.HandleFunc("/records/bulk", h.CreateRecordsBulk).Methods(http.MethodPost)
	router.HandleFunc("/records/{id:[0-9]+}", h.UpdateRecord).Methods(http.MethodPut)
	router.HandleFunc("/records/{id:[0-9]+}", h.DeleteRecord).Methods(http.MethodDelete)
	router.HandleFunc("/records/{id:[0-9]+}/users", h.RecordRequesters).Methods(http.MethodGet)
	router.HandleFunc("/records/sunrise-hour/{hour:[0-9]+}", h.RecordsBySunriseHour).Methods(http.MethodGet)
	router.HandleFunc("/records/sunset-hour/{hour:[0-9]+}", h.RecordsBySunsetHour).Methods(http.MethodGet)
}

// RecordResponse is the JSON shape of one enriched record.
type RecordResponse struct {
	ID        int64   `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Date      string  `json:"date"`
	Sunrise   string  `json:"sunrise"`
	Sunset    string  `json:"sunset"`
	TimeZone  string  `json:"timeZone"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
}

// UserResponse is the JSON shape of one requester.
type UserResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// ErrorResponse is the standardized error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type queryRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Date      string  `json:"date"`
}

type updateRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Date      string  `json:"date"`
	Sunrise   string  `json:"sunrise"`
	Sunset    string  `json:"sunset"`
	TimeZone  string  `json:"timeZone"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
}

// GetSunInfo resolves one coordinate/date query for a user.
func (h *SunHandler) GetSunInfo(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)

	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_USER_ID", "Invalid 'userId' query parameter")
		return
	}

	q, ok := h.parseQueryParams(w, r)

	if !ok {
		return
	}

	rec, err := h.service.Resolve(r.Context(), userID, q)

	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, toRecordResponse(rec))
}

// CreateRecord creates one record with no requester association.
func (h *SunHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var body queryRequest

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not valid JSON")
		return
	}

	q, err := body.toQuery()

	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_DATE", "Date must be formatted as yyyy-MM-dd")
		return
	}

	rec, err := h.service.CreateRecord(r.Context(), q)

	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, toRecordResponse(rec))
}

// CreateRecordsBulk creates many records, reporting per-item failures.
func (h *SunHandler) CreateRecordsBulk(w http.ResponseWriter, r *http.Request) {
	var body []queryRequest

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not valid JSON")
		return
	}

	qs := make([]domain.Query, 0, len(body))

	for _, item := range body {
		q, err := item.toQuery()

		if err != nil {
			h.respondWithError(w, http.StatusBadRequest, "INVALID_DATE", "Date must be formatted as yyyy-MM-dd")
			return
		}

		qs = append(qs, q)
	}

	if err := h.service.CreateRecords(r.Context(), qs); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// UpdateRecord replaces every scalar field of a record.
func (h *SunHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)

	if !ok {
		return
	}

	var body updateRequest

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not valid JSON")
		return
	}

	upd, err := body.toUpdate()

	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_FIELDS", err.Error())
		return
	}

	rec, err := h.service.UpdateRecord(r.Context(), id, upd)

	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, toRecordResponse(rec))
}

// DeleteRecord removes a record.
func (h *SunHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)

	if !ok {
		return
	}

	if err := h.service.DeleteRecord(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListRecords lists all records, paged.
func (h *SunHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)

	result, err := h.service.Records(r.Context(), page, size)

	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, toPageResponse(result))
}

// RecordRequesters lists the users that have queried a record.
func (h *SunHandler) RecordRequesters(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)

	if !ok {
		return
	}

	page, size := pageParams(r)

	result, err := h.service.RecordRequesters(r.Context(), id, page, size)

	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, toUserPage(result))
}

// RecordsBySunriseHour lists records whose sunrise falls in the given hour.
func (h *SunHandler) RecordsBySunriseHour(w http.ResponseWriter, r *http.Request) {
	h.recordsByHour(w, r, domain.SunriseHour)
}

// RecordsBySunsetHour lists records whose sunset falls in the given hour.
func (h *SunHandler) RecordsBySunsetHour(w http.ResponseWriter, r *http.Request) {
	h.recordsByHour(w, r, domain.SunsetHour)
}

func (h *SunHandler) recordsByHour(w http.ResponseWriter, r *http.Request, kind domain.HourKind) {
	hour, err := strconv.Atoi(mux.Vars(r)["hour"])

	if err != nil || hour < 0 || hour > 23 {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_HOUR", "Hour must be between 0 and 23")
		return
	}

	page, size := pageParams(r)

	result, err := h.service.RecordsByHour(r.Context(), kind, hour, page, size)

	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, toPageResponse(result))
}

func (h *SunHandler) parseQueryParams(w http.ResponseWriter, r *http.Request) (domain.Query, bool) {
	latStr := r.URL.Query().Get("lat")
	lonStr := r.URL.Query().Get("lon")
	dateStr := r.URL.Query().Get("date")

	if latStr == "" || lonStr == "" || dateStr == "" {
		h.respondWithError(w, http.StatusBadRequest, "MISSING_PARAMETERS",
			"'lat', 'lon' and 'date' query parameters are required")

		return domain.Query{}, false
	}

	latitude, err := strconv.ParseFloat(latStr, 64)

	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_LATITUDE", "Invalid latitude format")
		return domain.Query{}, false
	}

	longitude, err := strconv.ParseFloat(lonStr, 64)

	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_LONGITUDE", "Invalid longitude format")
		return domain.Query{}, false
	}

	date, err := time.Parse(domain.DateLayout, dateStr)

	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_DATE", "Date must be formatted as yyyy-MM-dd")
		return domain.Query{}, false
	}

	return domain.Query{Latitude: latitude, Longitude: longitude, Date: date}, true
}

func (h *SunHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "INVALID_ID", "Invalid record id")
		return 0, false
	}

	return id, true
}

func (h *SunHandler) respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *SunHandler) respondWithError(w http.ResponseWriter, status int, code, message string) {
	h.respondWithJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// handleServiceError maps domain error kinds onto HTTP responses.
func (h *SunHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)

	switch kind {
	case domain.KindInvalid:
		h.respondWithError(w, http.StatusBadRequest, string(kind), messageOf(err))
	case domain.KindNotFound:
		h.respondWithError(w, http.StatusNotFound, string(kind), messageOf(err))
	case domain.KindConflict:
		h.respondWithError(w, http.StatusConflict, string(kind), messageOf(err))
	case domain.KindUnavailable:
		h.respondWithError(w, http.StatusServiceUnavailable, string(kind),
			"An external data source is temporarily unavailable")
	case domain.KindPartial:
		h.respondWithError(w, http.StatusBadRequest, string(kind), messageOf(err))
	default:
		h.logger.Error("unexpected error",
			zap.Error(err),
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.String("request_id", middleware.GetRequestID(r.Context())))

		h.respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred")
	}
}

func (q queryRequest) toQuery() (domain.Query, error) {
	date, err := time.Parse(domain.DateLayout, q.Date)

	if err != nil {
		return domain.Query{}, err
	}

	return domain.Query{Latitude: q.Latitude, Longitude: q.Longitude, Date: date}, nil
}

func (u updateRequest) toUpdate() (domain.RecordUpdate, error) {
	date, err := time.Parse(domain.DateLayout, u.Date)

	if err != nil {
		return domain.RecordUpdate{}, err
	}

	sunrise, err := time.Parse(domain.ClockLayout, u.Sunrise)

	if err != nil {
		return domain.RecordUpdate{}, err
	}

	sunset, err := time.Parse(domain.ClockLayout, u.Sunset)

	if err != nil {
		return domain.RecordUpdate{}, err
	}

	return domain.RecordUpdate{
		Latitude:  u.Latitude,
		Longitude: u.Longitude,
		Date:      date,
		Sunrise:   sunrise,
		Sunset:    sunset,
		TimeZone:  u.TimeZone,
		City:      u.City,
		Country:   u.Country,
	}, nil
}

func toRecordResponse(rec *domain.SunRecord) RecordResponse {
	return RecordResponse{
		ID:        rec.ID,
		Latitude:  rec.Latitude,
		Longitude: rec.Longitude,
		Date:      rec.Date.Format(domain.DateLayout),
		Sunrise:   rec.Sunrise.Format(domain.ClockLayout),
		Sunset:    rec.Sunset.Format(domain.ClockLayout),
		TimeZone:  rec.TimeZone,
		City:      rec.City,
		Country:   rec.Country,
	}
}

func toPageResponse(p *domain.Page[domain.SunRecord]) domain.Page[RecordResponse] {
	items := make([]RecordResponse, 0, len(p.Items))

	for i := range p.Items {
		items = append(items, toRecordResponse(&p.Items[i]))
	}

	return domain.Page[RecordResponse]{Items: items, Number: p.Number, Size: p.Size}
}

func toUserPage(p *domain.Page[domain.User]) domain.Page[UserResponse] {
	items := make([]UserResponse, 0, len(p.Items))

	for _, u := range p.Items {
		items = append(items, UserResponse{ID: u.ID, Email: u.Email, Nickname: u.Nickname})
	}

	return domain.Page[UserResponse]{Items: items, Number: p.Number, Size: p.Size}
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	return page, size
}

func messageOf(err error) string {
	var e *domain.Error

	if errors.As(err, &e) {
		return e.Message
	}

	return err.Error()
}
