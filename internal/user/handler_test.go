package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	accounts map[string]*Account
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{accounts: make(map[string]*Account)}
}

func (f *fakeDirectory) add(username, email string, active bool) *Account {
	account := &Account{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Role:      "user",
		IsActive:  active,
		CreatedAt: time.Now().UTC().Add(-time.Duration(len(f.accounts)) * time.Minute),
	}
	f.accounts[account.ID] = account
	return account
}

func (f *fakeDirectory) List(_ context.Context, page, limit int) ([]Account, int, error) {
	active := make([]Account, 0)
	for _, account := range f.accounts {
		if account.IsActive {
			active = append(active, *account)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})

	start := (page - 1) * limit
	if start > len(active) {
		start = len(active)
	}
	end := start + limit
	if end > len(active) {
		end = len(active)
	}

	return active[start:end], len(active), nil
}

func (f *fakeDirectory) GetByID(_ context.Context, id string) (Account, error) {
	if account, ok := f.accounts[id]; ok {
		return *account, nil
	}
	return Account{}, sql.ErrNoRows
}

func (f *fakeDirectory) Update(_ context.Context, id string, input UpdateInput) (Account, error) {
	account, ok := f.accounts[id]
	if !ok {
		return Account{}, sql.ErrNoRows
	}
	if input.Username != nil {
		for _, other := range f.accounts {
			if other.ID != id && other.Username == *input.Username {
				return Account{}, ErrDuplicateAccount
			}
		}
		account.Username = *input.Username
	}
	if input.Email != nil {
		for _, other := range f.accounts {
			if other.ID != id && other.Email == *input.Email {
				return Account{}, ErrDuplicateAccount
			}
		}
		account.Email = *input.Email
	}
	if input.Role != nil {
		account.Role = *input.Role
	}
	if input.IsActive != nil {
		account.IsActive = *input.IsActive
	}
	return *account, nil
}

func (f *fakeDirectory) Delete(_ context.Context, id string) error {
	if _, ok := f.accounts[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.accounts, id)
	return nil
}

func serveRequest(t *testing.T, handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle(method+" /api/users", handler)
	mux.Handle(method+" /api/users/{id}", handler)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestListPagination(t *testing.T) {
	directory := newFakeDirectory()
	for i := 0; i < 15; i++ {
		directory.add("user"+uuid.NewString()[:8], uuid.NewString()[:8]+"@x.com", true)
	}
	directory.add("inactive", "inactive@x.com", false)
	handler := NewHandler(directory)

	recorder := serveRequest(t, handler.List, http.MethodGet, "/api/users?page=2&limit=10", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	users, ok := body["users"].([]any)
	require.True(t, ok)
	assert.Len(t, users, 5)

	pagination, ok := body["pagination"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 2, pagination["page"])
	assert.EqualValues(t, 10, pagination["limit"])
	assert.EqualValues(t, 15, pagination["total"])
	assert.EqualValues(t, 2, pagination["pages"])

	// Deactivated accounts never show up, and no credential field exists
	// anywhere in the payload.
	assert.NotContains(t, recorder.Body.String(), "inactive@x.com")
	assert.NotContains(t, recorder.Body.String(), "password")
}

func TestListDefaultsBadQueryParams(t *testing.T) {
	directory := newFakeDirectory()
	directory.add("alice", "alice@x.com", true)
	handler := NewHandler(directory)

	recorder := serveRequest(t, handler.List, http.MethodGet, "/api/users?page=-1&limit=abc", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	pagination := decodeBody(t, recorder)["pagination"].(map[string]any)
	assert.EqualValues(t, 1, pagination["page"])
	assert.EqualValues(t, 10, pagination["limit"])
}

func TestGetUser(t *testing.T) {
	directory := newFakeDirectory()
	account := directory.add("alice", "alice@x.com", true)
	handler := NewHandler(directory)

	recorder := serveRequest(t, handler.Get, http.MethodGet, "/api/users/"+account.ID, "")
	require.Equal(t, http.StatusOK, recorder.Code)

	user := decodeBody(t, recorder)["user"].(map[string]any)
	assert.Equal(t, "alice", user["username"])
	assert.Equal(t, true, user["isActive"])

	recorder = serveRequest(t, handler.Get, http.MethodGet, "/api/users/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = serveRequest(t, handler.Get, http.MethodGet, "/api/users/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestUpdateUser(t *testing.T) {
	directory := newFakeDirectory()
	account := directory.add("alice", "alice@x.com", true)
	directory.add("bob", "bob@x.com", true)
	handler := NewHandler(directory)

	recorder := serveRequest(t, handler.Update, http.MethodPut, "/api/users/"+account.ID,
		`{"username":"alice2","isActive":false}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	body := decodeBody(t, recorder)
	assert.Equal(t, "User updated successfully", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "alice2", user["username"])
	assert.Equal(t, false, user["isActive"])

	// Duplicate username collides with bob.
	recorder = serveRequest(t, handler.Update, http.MethodPut, "/api/users/"+account.ID,
		`{"username":"bob"}`)
	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestUpdateUserValidation(t *testing.T) {
	directory := newFakeDirectory()
	account := directory.add("alice", "alice@x.com", true)
	handler := NewHandler(directory)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"bad username", `{"username":"!!"}`},
		{"bad email", `{"email":"nope"}`},
		{"bad role", `{"role":"superuser"}`},
		{"unknown field", `{"password":"sneaky"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := serveRequest(t, handler.Update, http.MethodPut, "/api/users/"+account.ID, tt.body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
		})
	}
}

func TestDeleteUser(t *testing.T) {
	directory := newFakeDirectory()
	account := directory.add("alice", "alice@x.com", true)
	handler := NewHandler(directory)

	recorder := serveRequest(t, handler.Delete, http.MethodDelete, "/api/users/"+account.ID, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "User deleted successfully", decodeBody(t, recorder)["message"])

	recorder = serveRequest(t, handler.Delete, http.MethodDelete, "/api/users/"+account.ID, "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
