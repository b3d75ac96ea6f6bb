package flag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medtrack/flagging-engine/internal/model"
	"github.com/medtrack/flagging-engine/internal/repository/memory"
	alertService "github.com/medtrack/flagging-engine/internal/service/alert"
	auditService "github.com/medtrack/flagging-engine/internal/service/audit"
	"github.com/medtrack/flagging-engine/internal/service/compliance"
	flagService "github.com/medtrack/flagging-engine/internal/service/flag"
	flagconfigService "github.com/medtrack/flagging-engine/internal/service/flagconfig"
	summaryService "github.com/medtrack/flagging-engine/internal/service/summary"
)

type testServer struct {
	engine       *gin.Engine
	appointments *memory.AppointmentSource
	flagSvc      *flagService.Service
}

func newTestServer() *testServer {
	gin.SetMode(gin.TestMode)

	appointments := memory.NewAppointmentSource()
	flags := memory.NewFlagRepository()
	summaries := memory.NewSummaryRepository(flags)

	flagSvc := flagService.NewService(
		flags,
		summaryService.NewService(flags, summaries),
		auditService.NewService(memory.NewAuditRepository()),
		compliance.NewService(),
		nil,
	)
	alertSvc := alertService.NewService(memory.NewAlertRepository(), nil)
	configSvc := flagconfigService.NewService(memory.NewConfigRepository())

	engine := gin.New()
	NewHandler(flagSvc, alertSvc, configSvc, appointments).RegisterRoutes(engine.Group("/api/v1"))

	return &testServer{engine: engine, appointments: appointments, flagSvc: flagSvc}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func seedAppointment(s *testServer) *model.Appointment {
	now := time.Now().UTC()
	firstSent := now.Add(-4 * time.Hour)
	apt := &model.Appointment{
		ID:          uuid.New(),
		DoctorID:    uuid.New(),
		PatientID:   uuid.New(),
		PatientName: "Carol White",
		DateTime:    now.Add(-3 * time.Hour),
		Status:      model.AppointmentStatusScheduled,
		Notifications: model.NotificationState{
			FirstNotification: model.NotificationAttempt{Sent: true, SentAt: &firstSent},
		},
	}
	s.appointments.Add(apt)
	return apt
}

func TestCreateFlagEndpoint(t *testing.T) {
	s := newTestServer()
	apt := seedAppointment(s)

	rec := s.do(t, http.MethodPost, "/api/v1/flags", map[string]interface{}{
		"appointment_id": apt.ID.String(),
		"severity":       "high",
		"description":    "manual escalation",
		"created_by":     uuid.New().String(),
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Status string     `json:"status"`
		Data   model.Flag `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, model.FlagSeverityHigh, resp.Data.Severity)
	assert.Equal(t, "manual escalation", resp.Data.Description)
	assert.Equal(t, apt.PatientID, resp.Data.PatientID)
}

func TestCreateFlagEndpointValidation(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/api/v1/flags", map[string]interface{}{
		"appointment_id": "not-a-uuid",
		"created_by":     uuid.New().String(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/flags", map[string]interface{}{
		"appointment_id": uuid.New().String(),
		"severity":       "catastrophic",
		"created_by":     uuid.New().String(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateFlagEndpointUnknownAppointment(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/api/v1/flags", map[string]interface{}{
		"appointment_id": uuid.New().String(),
		"created_by":     uuid.New().String(),
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateFlagEndpointDuplicateConflicts(t *testing.T) {
	s := newTestServer()
	apt := seedAppointment(s)
	body := map[string]interface{}{
		"appointment_id": apt.ID.String(),
		"created_by":     uuid.New().String(),
	}

	rec := s.do(t, http.MethodPost, "/api/v1/flags", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/flags", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestResolveFlagEndpoint(t *testing.T) {
	s := newTestServer()
	apt := seedAppointment(s)

	rec := s.do(t, http.MethodPost, "/api/v1/flags", map[string]interface{}{
		"appointment_id": apt.ID.String(),
		"created_by":     uuid.New().String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data model.Flag `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	resolveBody := map[string]interface{}{
		"resolution_notes": "patient reached by phone",
		"resolved_by":      uuid.New().String(),
	}
	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/flags/%s/resolve", created.Data.ID), resolveBody)
	require.Equal(t, http.StatusOK, rec.Code)

	// Second resolve conflicts.
	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/flags/%s/resolve", created.Data.ID), resolveBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAmendFlagEndpoint(t *testing.T) {
	s := newTestServer()
	apt := seedAppointment(s)

	rec := s.do(t, http.MethodPost, "/api/v1/flags", map[string]interface{}{
		"appointment_id": apt.ID.String(),
		"created_by":     uuid.New().String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data model.Flag `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/flags/%s/amend", created.Data.ID), map[string]interface{}{
		"severity":      "low",
		"change_reason": "reassessed after callback",
		"amended_by":    uuid.New().String(),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var amended struct {
		Data model.Flag `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &amended))
	assert.Equal(t, model.FlagSeverityLow, amended.Data.Severity)
	assert.Equal(t, 2, amended.Data.Version)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/flags/%s/revisions", created.Data.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var revisions struct {
		Data []model.FlagRevision `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &revisions))
	assert.Len(t, revisions.Data, 1)
}

func TestGetPatientFlagsEndpoint(t *testing.T) {
	s := newTestServer()
	apt := seedAppointment(s)

	rec := s.do(t, http.MethodPost, "/api/v1/flags", map[string]interface{}{
		"appointment_id": apt.ID.String(),
		"created_by":     uuid.New().String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/patients/%s/flags", apt.PatientID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []model.Flag `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)

	rec = s.do(t, http.MethodGet, "/api/v1/patients/not-a-uuid/flags", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
