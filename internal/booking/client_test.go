package booking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-health/practice-dashboard/internal/appointments"
	"github.com/brightpath-health/practice-dashboard/internal/http/handlers"
	"github.com/brightpath-health/practice-dashboard/internal/schedule"
)

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{ProviderID: "p1"})
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "https://api.example.com"})
	assert.Error(t, err)
}

func TestFetchAppointments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/providers/prov-1/appointments", r.URL.Path)
		assert.Equal(t, "2026-01-05", r.URL.Query().Get("from"))
		assert.Equal(t, "2026-02-05", r.URL.Query().Get("to"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "a1", "patientName": "Dana", "start": "2026-01-05T09:00:00-05:00", "status": "confirmed"},
			{"_id": 42, "clientName": "Luis", "date": "2026-01-05", "time": "11:30"}
		]`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, Token: "secret", ProviderID: "prov-1"})
	require.NoError(t, err)

	from := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	raws, err := client.FetchAppointments(context.Background(), from, from.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, "a1", string(raws[0].ID))
	assert.Equal(t, "42", string(raws[1].LegacyID), "numeric identifiers normalize to strings")
	assert.Equal(t, "11:30", raws[1].Time)
}

type contractStore struct {
	appts []appointments.Appointment
}

func (s *contractStore) Create(context.Context, *appointments.Appointment) error { return nil }

func (s *contractStore) ListRange(context.Context, string, time.Time, time.Time) ([]appointments.Appointment, error) {
	return s.appts, nil
}

func (s *contractStore) Get(context.Context, string, uuid.UUID) (*appointments.Appointment, error) {
	return nil, appointments.ErrNotFound
}

func (s *contractStore) UpdateStatus(context.Context, string, uuid.UUID, string) error { return nil }
func (s *contractStore) Delete(context.Context, string, uuid.UUID) error               { return nil }

// The remote source can be another practice running this same service, so
// the client must consume exactly what the appointments handler emits.
func TestFetchAppointmentsConsumesOwnServerFormat(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	id := uuid.New()
	patientID := uuid.New()
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, loc)
	store := &contractStore{appts: []appointments.Appointment{{
		ID:           id,
		ProviderID:   "prov-1",
		PatientID:    &patientID,
		PatientName:  "Dana",
		StartAt:      start,
		DurationMins: 50,
		Status:       "confirmed",
		RiskLevel:    "medium",
		HomeworkDone: true,
		VideoCall:    true,
		Notes:        "check-in",
	}}}

	r := chi.NewRouter()
	r.Get("/providers/{providerID}/appointments", handlers.NewAppointmentsHandler(store, nil, loc, nil).List)
	srv := httptest.NewServer(r)
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, ProviderID: "prov-1"})
	require.NoError(t, err)

	raws, err := client.FetchAppointments(context.Background(), start, start.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, raws, 1)

	appts, skipped := schedule.NewAggregator(loc, nil).Normalize(raws)
	require.Zero(t, skipped, "server-emitted records must survive normalization")
	require.Len(t, appts, 1)

	got := appts[0]
	assert.Equal(t, id.String(), got.ID)
	assert.Equal(t, patientID.String(), got.PatientID)
	assert.Equal(t, "Dana", got.PatientName)
	assert.True(t, got.Start.Equal(start))
	assert.Equal(t, 50, got.DurationMins)
	assert.Equal(t, schedule.StatusConfirmed, got.Status)
	assert.Equal(t, schedule.RiskMedium, got.Risk)
	assert.True(t, got.HomeworkDone)
	assert.True(t, got.VideoCall)
	assert.Equal(t, "check-in", got.Notes)
}

func TestFetchAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/providers/prov-1/availability", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"1": ["09:00", "09:30"], "3": []}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, ProviderID: "prov-1"})
	require.NoError(t, err)

	raw, err := client.FetchAvailability(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30"}, raw["1"])
	wed, ok := raw["3"]
	assert.True(t, ok)
	assert.Empty(t, wed)
}

func TestFetchAppointmentsNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, ProviderID: "prov-1"})
	require.NoError(t, err)

	_, err = client.FetchAppointments(context.Background(), time.Time{}, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchAppointmentsRespectsContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	client, err := NewClient(Config{BaseURL: srv.URL, ProviderID: "prov-1"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.FetchAppointments(ctx, time.Time{}, time.Time{})
	assert.Error(t, err)
}
