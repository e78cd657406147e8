package member

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liblend/internal/date"
)

func TestStatusJSON(t *testing.T) {
	var s Status
	require.NoError(t, json.Unmarshal([]byte(`"SUSPENDED"`), &s))
	assert.Equal(t, StatusSuspended, s)

	assert.Error(t, json.Unmarshal([]byte(`"EXPIRED"`), &s), "unknown statuses never cross the boundary")
	assert.Error(t, json.Unmarshal([]byte(`"active"`), &s), "statuses are case-sensitive")
}

func TestMemoryServiceCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryService()

	m, err := s.Create(ctx, &Member{
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
		MembershipDate: date.Today(),
		Status:         StatusActive,
	})
	require.NoError(t, err)
	assert.NotZero(t, m.ID)

	_, err = s.Create(ctx, &Member{
		FirstName:      "Other",
		LastName:       "Person",
		Email:          "ada@example.com",
		MembershipDate: date.Today(),
		Status:         StatusActive,
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	m.Status = StatusSuspended
	updated, err := s.Update(ctx, m.ID, m)
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, updated.Status)

	_, err = s.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Delete(ctx, m.ID))
	assert.ErrorIs(t, s.Delete(ctx, m.ID), ErrNotFound)
}

func TestMemberRoutesValidation(t *testing.T) {
	r := chi.NewRouter()
	r.Mount("/members", NewHandler(NewMemoryService()).Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	post := func(body string) *http.Response {
		resp, err := http.Post(srv.URL+"/members", "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := post(`{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","membership_date":"2024-01-15","status":"ACTIVE"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// The enum rejects unknown statuses at decode time.
	resp = post(`{"first_name":"Ada","last_name":"Lovelace","email":"ada2@example.com","membership_date":"2024-01-15","status":"EXPIRED"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(`{"first_name":"Ada","email":"ada3@example.com","membership_date":"2024-01-15","status":"ACTIVE"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(`{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","membership_date":"2024-01-15","status":"ACTIVE"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
