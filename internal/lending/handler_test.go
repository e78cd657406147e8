package lending_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liblend/internal/date"
	"liblend/internal/httpx"
	"liblend/internal/lending"
	"liblend/internal/loan"
	"liblend/internal/member"
)

// newTestServer stands up the loan routes over memory stores, the way the
// monolith wires them minus the database.
func newTestServer(t *testing.T) (*httptest.Server, *env) {
	t.Helper()

	e := newEnv(t)
	r := chi.NewRouter()
	r.Mount("/loans", lending.NewHandler(e.loans, e.lender).Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, e
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return httpx.DecodeError(raw).Code
}

func TestLoanRoutes(t *testing.T) {
	srv, e := newTestServer(t)

	b := seedBook(t, e.books, 1, 1)
	m := seedMember(t, e.members, member.StatusActive)

	today := date.Today()
	checkoutBody := map[string]any{
		"book_id":   b.ID,
		"member_id": m.ID,
		"loan_date": today,
		"due_date":  today.AddDays(14),
	}

	resp := postJSON(t, srv.URL+"/loans", checkoutBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[lending.ResolvedLoan](t, resp)
	assert.Equal(t, loan.StatusActive, created.Status)
	assert.Equal(t, 0, created.Book.AvailableCopies)
	assert.Equal(t, m.Email, created.Member.Email)

	// The only copy is out.
	resp = postJSON(t, srv.URL+"/loans", checkoutBody)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "no_copies_available", errorCode(t, resp))

	resp, err := http.Get(fmt.Sprintf("%s/loans/%d", srv.URL, created.Loan.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decodeBody[lending.ResolvedLoan](t, resp)
	assert.Equal(t, created.Loan.ID, fetched.Loan.ID)

	resp = postJSON(t, fmt.Sprintf("%s/loans/%d/return", srv.URL, created.Loan.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	returned := decodeBody[lending.ResolvedLoan](t, resp)
	assert.Equal(t, loan.StatusReturned, returned.Status)
	assert.Equal(t, 1, returned.Book.AvailableCopies)

	resp = postJSON(t, fmt.Sprintf("%s/loans/%d/return", srv.URL, created.Loan.ID), nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_returned", errorCode(t, resp))
}

func TestLoanRoutesValidation(t *testing.T) {
	srv, e := newTestServer(t)

	b := seedBook(t, e.books, 1, 1)
	m := seedMember(t, e.members, member.StatusActive)
	today := date.Today()

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing ids", map[string]any{
			"loan_date": today, "due_date": today.AddDays(14),
		}},
		{"missing dates", map[string]any{
			"book_id": b.ID, "member_id": m.ID,
		}},
		{"future loan date", map[string]any{
			"book_id": b.ID, "member_id": m.ID,
			"loan_date": today.AddDays(1), "due_date": today.AddDays(15),
		}},
		{"due date not after loan date", map[string]any{
			"book_id": b.ID, "member_id": m.ID,
			"loan_date": today, "due_date": today,
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/loans", tc.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "invalid_request", errorCode(t, resp))
		})
	}

	t.Run("unknown book is 404", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/loans", map[string]any{
			"book_id": 42, "member_id": m.ID,
			"loan_date": today, "due_date": today.AddDays(14),
		})
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "not_found", errorCode(t, resp))
	})
}

func TestLoanRoutesListFilter(t *testing.T) {
	srv, e := newTestServer(t)

	b := seedBook(t, e.books, 3, 3)
	m := seedMember(t, e.members, member.StatusActive)
	other, err := e.members.Create(t.Context(), &member.Member{
		FirstName:      "Grace",
		LastName:       "Hopper",
		Email:          "grace@example.com",
		MembershipDate: date.Today(),
		Status:         member.StatusActive,
	})
	require.NoError(t, err)

	today := date.Today()
	for _, memberID := range []int64{m.ID, m.ID, other.ID} {
		resp := postJSON(t, srv.URL+"/loans", map[string]any{
			"book_id": b.ID, "member_id": memberID,
			"loan_date": today, "due_date": today.AddDays(14),
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err := http.Get(fmt.Sprintf("%s/loans?member_id=%d", srv.URL, m.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	loans := decodeBody[[]lending.ResolvedLoan](t, resp)
	require.Len(t, loans, 2)
	for _, l := range loans {
		assert.Equal(t, m.ID, l.MemberID)
	}
}

func TestLoanRoutesDelete(t *testing.T) {
	srv, e := newTestServer(t)

	b := seedBook(t, e.books, 1, 1)
	m := seedMember(t, e.members, member.StatusActive)
	today := date.Today()

	resp := postJSON(t, srv.URL+"/loans", map[string]any{
		"book_id": b.ID, "member_id": m.ID,
		"loan_date": today, "due_date": today.AddDays(14),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[lending.ResolvedLoan](t, resp)

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/loans/%d", srv.URL, created.Loan.ID), nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(fmt.Sprintf("%s/loans/%d", srv.URL, created.Loan.ID))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
