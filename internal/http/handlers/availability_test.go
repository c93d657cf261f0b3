package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAvailabilityStore struct {
	stored map[string][]string
	err    error
}

func (f *fakeAvailabilityStore) GetAvailability(_ context.Context, _ string) (map[string][]string, error) {
	return f.stored, f.err
}

func (f *fakeAvailabilityStore) PutAvailability(_ context.Context, _ string, raw map[string][]string) error {
	if f.err != nil {
		return f.err
	}
	f.stored = raw
	return nil
}

type fakeBroadcaster struct {
	written   map[string][]string
	published int
}

func (f *fakeBroadcaster) WriteAvailability(_ context.Context, raw map[string][]string) error {
	f.written = raw
	return nil
}

func (f *fakeBroadcaster) PublishAvailabilityChanged(_ context.Context) error {
	f.published++
	return nil
}

func TestGetAvailabilityHandler(t *testing.T) {
	store := &fakeAvailabilityStore{stored: map[string][]string{"1": {"09:00"}}}
	h := NewAvailabilityHandler(store, nil, nil, nil)

	req := routedRequest(http.MethodGet, "/providers/prov-1/availability",
		map[string]string{"providerID": "prov-1"})
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"09:00"}, resp["1"])
}

func TestPutAvailability(t *testing.T) {
	store := &fakeAvailabilityStore{}
	broadcaster := &fakeBroadcaster{}
	refresher := &fakeSnapshots{}
	h := NewAvailabilityHandler(store, broadcaster, refresher, nil)

	req := bodyRequest(http.MethodPut, "/providers/prov-1/availability",
		map[string]string{"providerID": "prov-1"},
		map[string][]string{"1": {"09:00", "09:30"}, "3": {}})
	rec := httptest.NewRecorder()

	h.Put(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"09:00", "09:30"}, store.stored["1"])
	wed, ok := store.stored["3"]
	assert.True(t, ok, "configured-but-empty days are stored")
	assert.Empty(t, wed)
	assert.Equal(t, store.stored, broadcaster.written)
	assert.Equal(t, 1, broadcaster.published)
	assert.Equal(t, 1, refresher.refreshed)
}

func TestPutAvailabilityRejectsBadWeekday(t *testing.T) {
	h := NewAvailabilityHandler(&fakeAvailabilityStore{}, nil, nil, nil)

	req := bodyRequest(http.MethodPut, "/providers/prov-1/availability",
		map[string]string{"providerID": "prov-1"},
		map[string][]string{"7": {"09:00"}})
	rec := httptest.NewRecorder()

	h.Put(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutAvailabilityRejectsBadSlot(t *testing.T) {
	store := &fakeAvailabilityStore{}
	h := NewAvailabilityHandler(store, nil, nil, nil)

	for _, label := range []string{"09:15", "06:30", "20:30", "9:00"} {
		req := bodyRequest(http.MethodPut, "/providers/prov-1/availability",
			map[string]string{"providerID": "prov-1"},
			map[string][]string{"1": {label}})
		rec := httptest.NewRecorder()

		h.Put(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "label %q should be rejected", label)
		assert.Nil(t, store.stored)
	}
}
