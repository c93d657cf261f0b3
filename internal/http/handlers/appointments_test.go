package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-health/practice-dashboard/internal/appointments"
)

type fakeAppointmentStore struct {
	created []appointments.Appointment
	listed  []appointments.Appointment
	updated map[uuid.UUID]string
	deleted []uuid.UUID
	err     error
}

func (f *fakeAppointmentStore) Create(_ context.Context, a *appointments.Appointment) error {
	if f.err != nil {
		return f.err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.created = append(f.created, *a)
	return nil
}

func (f *fakeAppointmentStore) ListRange(_ context.Context, _ string, _, _ time.Time) ([]appointments.Appointment, error) {
	return f.listed, f.err
}

func (f *fakeAppointmentStore) Get(_ context.Context, _ string, id uuid.UUID) (*appointments.Appointment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &appointments.Appointment{ID: id}, nil
}

func (f *fakeAppointmentStore) UpdateStatus(_ context.Context, _ string, id uuid.UUID, status string) error {
	if f.err != nil {
		return f.err
	}
	if f.updated == nil {
		f.updated = map[uuid.UUID]string{}
	}
	f.updated[id] = status
	return nil
}

func (f *fakeAppointmentStore) Delete(_ context.Context, _ string, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func bodyRequest(method, target string, params map[string]string, body any) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateAppointment(t *testing.T) {
	store := &fakeAppointmentStore{}
	refresher := &fakeSnapshots{}
	h := NewAppointmentsHandler(store, refresher, time.UTC, nil)

	req := bodyRequest(http.MethodPost, "/providers/prov-1/appointments",
		map[string]string{"providerID": "prov-1"},
		map[string]any{"patientName": "Dana", "start": "2026-01-05T09:00:00Z", "videoCall": true})
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.created, 1)
	assert.Equal(t, "prov-1", store.created[0].ProviderID)
	assert.Equal(t, "Dana", store.created[0].PatientName)
	assert.True(t, store.created[0].VideoCall)
	assert.Equal(t, 1, refresher.refreshed, "writes trigger a reconcile pass")
}

func TestCreateAppointmentAcceptsLocalTimestamp(t *testing.T) {
	loc := handlerLocation(t)
	store := &fakeAppointmentStore{}
	h := NewAppointmentsHandler(store, nil, loc, nil)

	req := bodyRequest(http.MethodPost, "/providers/prov-1/appointments",
		map[string]string{"providerID": "prov-1"},
		map[string]any{"patientName": "Luis", "start": "2026-01-05T11:30"})
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.created, 1)
	want := time.Date(2026, 1, 5, 11, 30, 0, 0, loc)
	assert.True(t, store.created[0].StartAt.Equal(want))
}

func TestCreateAppointmentValidation(t *testing.T) {
	h := NewAppointmentsHandler(&fakeAppointmentStore{}, nil, time.UTC, nil)

	req := bodyRequest(http.MethodPost, "/providers/prov-1/appointments",
		map[string]string{"providerID": "prov-1"},
		map[string]any{"start": "2026-01-05T09:00:00Z"})
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing patient name")

	req = bodyRequest(http.MethodPost, "/providers/prov-1/appointments",
		map[string]string{"providerID": "prov-1"},
		map[string]any{"patientName": "Dana", "start": "tomorrow"})
	rec = httptest.NewRecorder()
	h.Create(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unparseable start")
}

func TestUpdateStatus(t *testing.T) {
	store := &fakeAppointmentStore{}
	refresher := &fakeSnapshots{}
	h := NewAppointmentsHandler(store, refresher, time.UTC, nil)

	id := uuid.New()
	req := bodyRequest(http.MethodPatch, "/providers/prov-1/appointments/"+id.String()+"/status",
		map[string]string{"providerID": "prov-1", "appointmentID": id.String()},
		map[string]string{"status": "completed"})
	rec := httptest.NewRecorder()

	h.UpdateStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "completed", store.updated[id])
	assert.Equal(t, 1, refresher.refreshed)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	h := NewAppointmentsHandler(&fakeAppointmentStore{}, nil, time.UTC, nil)

	id := uuid.New()
	req := bodyRequest(http.MethodPatch, "/providers/prov-1/appointments/"+id.String()+"/status",
		map[string]string{"providerID": "prov-1", "appointmentID": id.String()},
		map[string]string{"status": "vanished"})
	rec := httptest.NewRecorder()

	h.UpdateStatus(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusNotFound(t *testing.T) {
	store := &fakeAppointmentStore{err: appointments.ErrNotFound}
	h := NewAppointmentsHandler(store, nil, time.UTC, nil)

	id := uuid.New()
	req := bodyRequest(http.MethodPatch, "/providers/prov-1/appointments/"+id.String()+"/status",
		map[string]string{"providerID": "prov-1", "appointmentID": id.String()},
		map[string]string{"status": "cancelled"})
	rec := httptest.NewRecorder()

	h.UpdateStatus(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAppointmentNotFound(t *testing.T) {
	store := &fakeAppointmentStore{err: appointments.ErrNotFound}
	h := NewAppointmentsHandler(store, nil, time.UTC, nil)

	id := uuid.New()
	req := routedRequest(http.MethodGet, "/providers/prov-1/appointments/"+id.String(),
		map[string]string{"providerID": "prov-1", "appointmentID": id.String()})
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteAppointment(t *testing.T) {
	store := &fakeAppointmentStore{}
	h := NewAppointmentsHandler(store, nil, time.UTC, nil)

	id := uuid.New()
	req := routedRequest(http.MethodDelete, "/providers/prov-1/appointments/"+id.String(),
		map[string]string{"providerID": "prov-1", "appointmentID": id.String()})
	rec := httptest.NewRecorder()

	h.Delete(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, store.deleted, 1)
	assert.Equal(t, id, store.deleted[0])
}

func TestListAppointments(t *testing.T) {
	store := &fakeAppointmentStore{
		listed: []appointments.Appointment{{ID: uuid.New(), PatientName: "Dana"}},
	}
	h := NewAppointmentsHandler(store, nil, time.UTC, nil)

	req := routedRequest(http.MethodGet, "/providers/prov-1/appointments?from=2026-01-05",
		map[string]string{"providerID": "prov-1"})
	rec := httptest.NewRecorder()

	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Appointments []appointments.Appointment `json:"appointments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Appointments, 1)
}
