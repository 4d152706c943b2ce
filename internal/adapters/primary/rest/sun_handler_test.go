// Package rest contains unit tests for the HTTP handlers.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/willygodx/sunrise-sunset-service/internal/core/domain"
)

// MockSunInfoService is a mock implementation of the SunInfoService interface.
type MockSunInfoService struct {
	mock.Mock
}

func (m *MockSunInfoService) Resolve(ctx context.Context, userID int64, q domain.Query) (*domain.SunRecord, error) {
	args := m.Called(ctx, userID, q)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.SunRecord), args.Error(1)
}

func (m *MockSunInfoService) CreateRecord(ctx context.Context, q domain.Query) (*domain.SunRecord, error) {
	args := m.Called(ctx, q)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.SunRecord), args.Error(1)
}

func (m *MockSunInfoService) CreateRecords(ctx context.Context, qs []domain.Query) error {
	args := m.Called(ctx, qs)
	return args.Error(0)
}

func (m *MockSunInfoService) UpdateRecord(ctx context.Context, id int64, upd domain.RecordUpdate) (*domain.SunRecord, error) {
	args := m.Called(ctx, id, upd)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.SunRecord), args.Error(1)
}

func (m *MockSunInfoService) DeleteRecord(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSunInfoService) RecordsByHour(ctx context.Context, kind domain.HourKind, hour, page, size int) (*domain.Page[domain.SunRecord], error) {
	args := m.Called(ctx, kind, hour, page, size)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Page[domain.SunRecord]), args.Error(1)
}

func (m *MockSunInfoService) Records(ctx context.Context, page, size int) (*domain.Page[domain.SunRecord], error) {
	args := m.Called(ctx, page, size)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Page[domain.SunRecord]), args.Error(1)
}

func (m *MockSunInfoService) RecordRequesters(ctx context.Context, id int64, page, size int) (*domain.Page[domain.User], error) {
	args := m.Called(ctx, id, page, size)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Page[domain.User]), args.Error(1)
}

func newTestRouter(service *MockSunInfoService) *mux.Router {
	handler := NewSunHandler(service, zap.NewNop())
	router := mux.NewRouter()
	handler.Register(router)

	return router
}

func sampleRecord(t *testing.T) *domain.SunRecord {
	t.Helper()

	date, err := time.Parse(domain.DateLayout, "2024-03-26")
	assert.NoError(t, err)

	sunrise, err := time.Parse(domain.ClockLayout, "07:03:07")
	assert.NoError(t, err)

	sunset, err := time.Parse(domain.ClockLayout, "19:15:00")
	assert.NoError(t, err)

	return &domain.SunRecord{
		ID:        42,
		Latitude:  43.0994,
		Longitude: 131.8855,
		Date:      date,
		Sunrise:   domain.Clock(sunrise),
		Sunset:    domain.Clock(sunset),
		TimeZone:  "Asia/Vladivostok",
		City:      "Vladivostok",
		CountryID: 7,
		Country:   "Russia",
	}
}

// TestSunHandler_GetSunInfo tests the resolve endpoint with various scenarios.
func TestSunHandler_GetSunInfo(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		mockRecord     *domain.SunRecord
		mockError      error
		expectMockCall bool
		expectedStatus int
	}{
		{
			name:           "successful request",
			queryParams:    "?userId=5&lat=43.0994&lon=131.8855&date=2024-03-26",
			expectMockCall: true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing user id",
			queryParams:    "?lat=43.0994&lon=131.8855&date=2024-03-26",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing coordinates",
			queryParams:    "?userId=5&date=2024-03-26",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed latitude",
			queryParams:    "?userId=5&lat=abc&lon=131.8855&date=2024-03-26",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed date",
			queryParams:    "?userId=5&lat=43.0994&lon=131.8855&date=26-03-2024",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown user",
			queryParams:    "?userId=404&lat=43.0994&lon=131.8855&date=2024-03-26",
			mockError:      domain.NotFound("User not found!"),
			expectMockCall: true,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "out of range coordinates",
			queryParams:    "?userId=5&lat=95&lon=131.8855&date=2024-03-26",
			mockError:      domain.Invalid("latitude must be between -90 and 90, got 95.000000"),
			expectMockCall: true,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "provider down",
			queryParams:    "?userId=5&lat=43.0994&lon=131.8855&date=2024-03-26",
			mockError:      domain.Unavailable("provider timed out", nil),
			expectMockCall: true,
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockSunInfoService)

			if tt.expectMockCall {
				record := tt.mockRecord

				if record == nil && tt.mockError == nil {
					record = sampleRecord(t)
				}

				service.On("Resolve", mock.Anything, mock.Anything, mock.Anything).
					Return(record, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodGet, "/sun-info"+tt.queryParams, nil)
			recorder := httptest.NewRecorder()

			newTestRouter(service).ServeHTTP(recorder, req)

			assert.Equal(t, tt.expectedStatus, recorder.Code)

			if tt.expectedStatus == http.StatusOK {
				var body RecordResponse

				assert.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
				assert.Equal(t, int64(42), body.ID)
				assert.Equal(t, "2024-03-26", body.Date)
				assert.Equal(t, "07:03:07", body.Sunrise)
				assert.Equal(t, "19:15:00", body.Sunset)
				assert.Equal(t, "Vladivostok", body.City)
				assert.Equal(t, "Russia", body.Country)
			}

			if !tt.expectMockCall {
				service.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestSunHandler_CreateRecord(t *testing.T) {
	service := new(MockSunInfoService)
	service.On("CreateRecord", mock.Anything, mock.Anything).Return(sampleRecord(t), nil)

	body := bytes.NewBufferString(`{"latitude": 43.0994, "longitude": 131.8855, "date": "2024-03-26"}`)
	req := httptest.NewRequest(http.MethodPost, "/records", body)
	recorder := httptest.NewRecorder()

	newTestRouter(service).ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusCreated, recorder.Code)
	service.AssertExpectations(t)
}

func TestSunHandler_CreateRecordConflict(t *testing.T) {
	service := new(MockSunInfoService)
	service.On("CreateRecord", mock.Anything, mock.Anything).
		Return(nil, domain.Conflict("This information already exists."))

	body := bytes.NewBufferString(`{"latitude": 43.0994, "longitude": 131.8855, "date": "2024-03-26"}`)
	req := httptest.NewRequest(http.MethodPost, "/records", body)
	recorder := httptest.NewRecorder()

	newTestRouter(service).ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusConflict, recorder.Code)

	var resp ErrorResponse

	assert.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "This information already exists.", resp.Message)
}

func TestSunHandler_CreateRecordBadBody(t *testing.T) {
	service := new(MockSunInfoService)

	req := httptest.NewRequest(http.MethodPost, "/records", bytes.NewBufferString("{not json"))
	recorder := httptest.NewRecorder()

	newTestRouter(service).ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	service.AssertNotCalled(t, "CreateRecord", mock.Anything, mock.Anything)
}

func TestSunHandler_CreateRecordsBulk(t *testing.T) {
	service := new(MockSunInfoService)
	service.On("CreateRecords", mock.Anything, mock.AnythingOfType("[]domain.Query")).Return(nil)

	body := bytes.NewBufferString(`[
		{"latitude": 10, "longitude": 20, "date": "2024-03-26"},
		{"latitude": 30, "longitude": 40, "date": "2024-03-26"}
	]`)
	req := httptest.NewRequest(http.MethodPost, "/records/bulk", body)
	recorder := httptest.NewRecorder()

	newTestRouter(service).ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusCreated, recorder.Code)
	service.AssertExpectations(t)
}

func TestSunHandler_CreateRecordsBulkPartialFailure(t *testing.T) {
	service := new(MockSunInfoService)
	service.On("CreateRecords", mock.Anything, mock.Anything).
		Return(domain.Partial("Errors occurred during bulk creation: This information already exists."))

	body := bytes.NewBufferString(`[{"latitude": 10, "longitude": 20, "date": "2024-03-26"}]`)
	req := httptest.NewRequest(http.MethodPost, "/records/bulk", body)
	recorder := httptest.NewRecorder()

	newTestRouter(service).ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var resp ErrorResponse

	assert.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, string(domain.KindPartial), resp.Error)
	assert.Contains(t, resp.Message, "Errors occurred during bulk creation: ")
}

func TestSunHandler_UpdateRecord(t *testing.T) {
	service := new(MockSunInfoService)
	service.On("UpdateRecord", mock.Anything, int64(42), mock.Anything).Return(sampleRecord(t), nil)

	body := bytes.NewBufferString(`{
		"latitude": 43.0994,
		"longitude": 131.8855,
		"date": "2024-03-26",
		"sunrise": "07:03:07",
		"sunset": "19:15:00",
		"timeZone": "Asia/Vladivostok",
		"city": "Vladivostok",
		"country": "Russia"
	}`)
	req := httptest.NewRequest(http.MethodPut, "/records/42", body)
	recorder := httptest.NewRecorder()

	newTestRouter(service).ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	service.AssertExpectations(t)
}

func TestSunHandler_UpdateRecordBadClockValue(t *testing.T) {
	service := new(MockSunInfoService)

	body := bytes.NewBufferString(`{
		"latitude": 43.0994,
		"longitude": 131.8855,
		"date": "2024-03-26",
		"sunrise": "7:03 AM",
		"sunset": "19:15:00"
	}`)
	req := httptest.NewRequest(http.MethodPut, "/records/42", body)
	recorder := httptest.NewRecorder()

	newTestRouter(service).ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	service.AssertNotCalled(t, "UpdateRecord", mock.Anything, mock.Anything, mock.Anything)
}

func TestSunHandler_UpdateRecordNotFound(t *testing.T) {
	service := new(MockSunInfoService)
	service.On("UpdateRecord", mock.Anything, int64(404), mock.Anything).
		Return(nil, domain.NotFound("Coordinates information not found!"))

	body := bytes.NewBufferString(`{
		"latitude": 10,
		"longitude": 20,
		"date": "2024-03-26",
		"sunrise": "07:03:07",
		"sunset": "19:15:00"
	}`)
	req := httptest.NewRequest(http.MethodPut, "/records/404", body)
	recorder := httptest.NewRecorder()

	newTestRouter(service).ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestSunHandler_DeleteRecord(t *testing.T) {
	service := new(MockSunInfoService)
	service.On("DeleteRecord", mock.Anything, int64(42)).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/records/42", nil)
	recorder := httptest.NewRecorder()

	newTestRouter(service).ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	service.AssertExpectations(t)
}

func TestSunHandler_RecordsByHour(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		kind           domain.HourKind
		hour           int
		expectedStatus int
	}{
		{
			name:           "sunrise hour",
			path:           "/records/sunrise-hour/7",
			kind:           domain.SunriseHour,
			hour:           7,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "sunset hour",
			path:           "/records/sunset-hour/19",
			kind:           domain.SunsetHour,
			hour:           19,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "hour out of range",
			path:           "/records/sunrise-hour/24",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockSunInfoService)

			if tt.expectedStatus == http.StatusOK {
				page := &domain.Page[domain.SunRecord]{
					Items:  []domain.SunRecord{*sampleRecord(t)},
					Number: 0,
					Size:   10,
				}

				service.On("RecordsByHour", mock.Anything, tt.kind, tt.hour, 0, 0).
					Return(page, nil)
			}

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			recorder := httptest.NewRecorder()

			newTestRouter(service).ServeHTTP(recorder, req)

			assert.Equal(t, tt.expectedStatus, recorder.Code)

			if tt.expectedStatus == http.StatusOK {
				var body domain.Page[RecordResponse]

				assert.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
				assert.Len(t, body.Items, 1)
				assert.Equal(t, "07:03:07", body.Items[0].Sunrise)
			}
		})
	}
}

func TestSunHandler_ListRecordsPassesPaging(t *testing.T) {
	service := new(MockSunInfoService)
	service.On("Records", mock.Anything, 2, 5).
		Return(&domain.Page[domain.SunRecord]{Items: []domain.SunRecord{}, Number: 2, Size: 5}, nil)

	req := httptest.NewRequest(http.MethodGet, "/records?page=2&pageSize=5", nil)
	recorder := httptest.NewRecorder()

	newTestRouter(service).ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	service.AssertExpectations(t)
}

func TestSunHandler_RecordRequesters(t *testing.T) {
	service := new(MockSunInfoService)
	service.On("RecordRequesters", mock.Anything, int64(42), 0, 0).
		Return(&domain.Page[domain.User]{
			Items: []domain.User{{ID: 5, Email: "willy@example.com", Nickname: "willy"}},
		}, nil)

	req := httptest.NewRequest(http.MethodGet, "/records/42/users", nil)
	recorder := httptest.NewRecorder()

	newTestRouter(service).ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)

	var body domain.Page[UserResponse]

	assert.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
	assert.Len(t, body.Items, 1)
	assert.Equal(t, int64(5), body.Items[0].ID)
	assert.Equal(t, "willy@example.com", body.Items[0].Email)
	assert.Equal(t, "willy", body.Items[0].Nickname)
}

func TestSunHandler_UnexpectedErrorIsInternal(t *testing.T) {
	service := new(MockSunInfoService)
	service.On("Records", mock.Anything, 0, 0).
		Return(nil, assert.AnError)

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	recorder := httptest.NewRecorder()

	newTestRouter(service).ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
