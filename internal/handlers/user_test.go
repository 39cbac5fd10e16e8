// internal/handlers/user_test.go
package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablerummy/rummy-service/internal/auth"
	"github.com/tablerummy/rummy-service/internal/database"
)

// Account endpoints reject cleanly when the process runs without Postgres;
// the game path (guests, tables) stays available.
func TestAccountEndpointsWithoutDatabase(t *testing.T) {
	auth.Init()
	require.Nil(t, database.DB, "handler tests run without a database")

	token, err := auth.CreateJWT(uuid.New().String())
	require.NoError(t, err)

	cases := []struct {
		name    string
		handler http.HandlerFunc
		method  string
		body    string
	}{
		{"create", CreateUserHandler, "POST", `{"email":"a@b.c","password":"pw","username":"a"}`},
		{"login", LoginHandler, "POST", `{"email":"a@b.c","password":"pw"}`},
		{"claim", ClaimEphemeralHandler, "POST", `{"email":"a@b.c","password":"pw"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/user/"+tc.name, bytes.NewBufferString(tc.body))
			req.Header.Set("Cookie", "auth_token="+token)
			w := httptest.NewRecorder()
			tc.handler(w, req)
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		})
	}
}

// EnsureEphemeralUser mints a JWT-only guest when no database is attached.
func TestEnsureEphemeralUserWithoutDatabase(t *testing.T) {
	auth.Init()
	require.Nil(t, database.DB)

	req := httptest.NewRequest("GET", "/table/list", nil)
	w := httptest.NewRecorder()

	userID, err := EnsureEphemeralUser(w, req)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, userID)

	var cookie string
	for _, c := range w.Result().Cookies() {
		if c.Name == "auth_token" {
			cookie = c.Value
		}
	}
	require.NotEmpty(t, cookie, "guest gets an auth_token cookie")

	parsed, err := auth.AuthenticateJWT(cookie)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), parsed)
}
