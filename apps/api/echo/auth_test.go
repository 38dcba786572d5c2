package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/aurorarobotics/aurora/apps/api/echo"
	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/user"
	testutil "github.com/aurorarobotics/aurora/tests"
)

func TestAdminDisabled(t *testing.T) {
	f := newFixture(t, func(conf *core.Config) { conf.AdminEnabled = false })
	notFound := marchallObj(t, httpErr{Error: "Not Found"})

	tests := []httpTest{
		{name: "unknown route", method: http.MethodGet, path: "/api/nope", wantCode: http.StatusNotFound, wantData: notFound},
		{name: "admin root", method: http.MethodGet, path: "/api/admin", wantCode: http.StatusNotFound, wantData: notFound},
		{name: "me, even authenticated", method: http.MethodGet, path: "/api/admin/me", cookie: f.cookie(t, f.owner), wantCode: http.StatusNotFound, wantData: notFound},
		{
			name:     "login",
			method:   http.MethodPost,
			path:     "/api/admin/login",
			body:     marchallObj(t, echoapi.LoginRequest{Email: f.owner.Email, Password: goodPwd}),
			wantCode: http.StatusNotFound,
			wantData: notFound,
		},
		{name: "trailing slash", method: http.MethodGet, path: "/api/admin/pages/", wantCode: http.StatusNotFound, wantData: notFound},
		{name: "public api still served", method: http.MethodGet, path: "/health", wantCode: http.StatusOK, wantData: []byte(`{"status":"ok"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.run(t, tt)
		})
	}
}

func TestAuthentication(t *testing.T) {
	f := newFixture(t)
	inactive := testutil.CreateUser(t, f.usrRepo, "Ina Active", "inactive@aurora.test", goodPwd, []string{user.RoleAdminOwner}, false)
	ghost := user.User{ID: "9f1c2f4e-0000-4000-8000-000000000000", Email: "ghost@aurora.test", Roles: []string{user.RoleAdminOwner}}

	tests := []httpTest{
		{
			name:     "no cookie",
			method:   http.MethodGet,
			path:     "/api/admin/me",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{
			name:     "no cookie, any admin route",
			method:   http.MethodGet,
			path:     "/api/admin/students",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{
			name:     "garbage cookie",
			method:   http.MethodGet,
			path:     "/api/admin/me",
			cookie:   &http.Cookie{Name: echoapi.SessionCookie, Value: "not.a.jwt"},
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
		{
			name:     "deactivated account",
			method:   http.MethodGet,
			path:     "/api/admin/me",
			cookie:   f.cookie(t, inactive),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "deleted account",
			method:   http.MethodGet,
			path:     "/api/admin/me",
			cookie:   f.cookie(t, ghost),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
		{
			name:     "wrong password",
			method:   http.MethodPost,
			path:     "/api/admin/login",
			body:     marchallObj(t, echoapi.LoginRequest{Email: f.owner.Email, Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()}),
		},
		{
			name:     "login deactivated",
			method:   http.MethodPost,
			path:     "/api/admin/login",
			body:     marchallObj(t, echoapi.LoginRequest{Email: inactive.Email, Password: goodPwd}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: user.ErrAccountDeactivated.Error()}),
		},
		{
			name:     "login without email",
			method:   http.MethodPost,
			path:     "/api/admin/login",
			body:     []byte(`{"password":"x"}`),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.run(t, tt)
		})
	}
}

func TestLoginLogout(t *testing.T) {
	f := newFixture(t)

	// login, email is case insensitive
	body := marchallObj(t, echoapi.LoginRequest{Email: "  OWNER@aurora.test ", Password: goodPwd})
	rec := f.serve(newRequest(http.MethodPost, "/api/admin/login", nil, body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var usr user.User
	unmarshal(t, rec, &usr)
	assert.Equal(t, f.owner.ID, usr.ID)
	assert.True(t, usr.LastLogin.Valid)

	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == echoapi.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session, "session cookie is set")
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)
	assert.Equal(t, "/api/admin", session.Path)
	assert.NotContains(t, rec.Body.String(), "password")

	// authenticated
	rec = f.serve(newRequest(http.MethodGet, "/api/admin/me", session, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &usr)
	assert.Equal(t, f.owner.Email, usr.Email)

	// logout clears the cookie
	rec = f.serve(newRequest(http.MethodPost, "/api/admin/logout", session, nil))
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	var cleared *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == echoapi.SessionCookie {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	// the old token is revoked
	f.run(t, httpTest{
		method:   http.MethodGet,
		path:     "/api/admin/me",
		cookie:   session,
		wantCode: http.StatusUnauthorized,
		wantData: marchallObj(t, httpErr{Error: "session has been revoked"}),
	})

	// other sessions of the same user are still valid
	f.run(t, httpTest{method: http.MethodGet, path: "/api/admin/me", cookie: f.cookie(t, f.owner), wantCode: http.StatusOK})
}
