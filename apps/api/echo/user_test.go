package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurorarobotics/aurora/core/user"
)

func TestUsersAPI_permissions(t *testing.T) {
	f := newFixture(t)
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})
	editor := f.cookie(t, f.editor)

	tests := []httpTest{
		{name: "editor cannot list", method: http.MethodGet, path: "/api/admin/users", cookie: editor, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "editor cannot retrieve", method: http.MethodGet, path: "/api/admin/users/" + f.owner.ID, cookie: editor, wantCode: http.StatusForbidden, wantData: forbidden},
		{
			name:     "editor cannot create",
			method:   http.MethodPost,
			path:     "/api/admin/users",
			body:     []byte(`{"name":"Sneaky","email":"sneaky@aurora.test","password":"R0b0t!cs#Lab","password_confirm":"R0b0t!cs#Lab","roles":["admin:owner"]}`),
			cookie:   editor,
			wantCode: http.StatusForbidden,
			wantData: forbidden,
		},
		{name: "editor can see themselves", method: http.MethodGet, path: "/api/admin/me", cookie: editor, wantCode: http.StatusOK},
		{name: "roles", method: http.MethodGet, path: "/api/admin/users/roles", cookie: f.cookie(t, f.owner), wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.run(t, tt)
		})
	}
}

func TestUsersAPI(t *testing.T) {
	f := newFixture(t)
	owner := f.cookie(t, f.owner)

	f.run(t, httpTest{
		name:     "weak password",
		method:   http.MethodPost,
		path:     "/api/admin/users",
		body:     []byte(`{"name":"Grace Hopper","email":"grace@aurora.test","password":"12345678","password_confirm":"12345678","roles":["admin:editor"]}`),
		cookie:   owner,
		wantCode: http.StatusBadRequest,
	})

	rec := f.serve(newRequest(http.MethodPost, "/api/admin/users", owner,
		[]byte(`{"name":"Grace Hopper","email":"Grace@aurora.test","password":"R0b0t!cs#Lab","password_confirm":"R0b0t!cs#Lab","roles":["admin:editor"]}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var grace user.User
	unmarshal(t, rec, &grace)
	assert.Equal(t, "grace@aurora.test", grace.Email)
	assert.True(t, grace.IsActive)

	f.run(t, httpTest{
		name:     "email taken",
		method:   http.MethodPost,
		path:     "/api/admin/users",
		body:     []byte(`{"name":"Grace","email":"grace@aurora.test","password":"R0b0t!cs#Lab","password_confirm":"R0b0t!cs#Lab","roles":["admin:editor"]}`),
		cookie:   owner,
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
	})

	rec = f.serve(newRequest(http.MethodGet, "/api/admin/users?search=grace", owner, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var users []user.User
	unmarshal(t, rec, &users)
	require.Len(t, users, 1)
	assert.Equal(t, grace.ID, users[0].ID)

	// deactivate
	rec = f.serve(newRequest(http.MethodPut, "/api/admin/users/"+grace.ID, owner, []byte(`{"is_active":false}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &grace)
	assert.False(t, grace.IsActive)
	assert.Equal(t, "Grace Hopper", grace.Name)

	tests := []httpTest{
		{
			name:     "owner cannot demote themselves",
			method:   http.MethodPut,
			path:     "/api/admin/users/" + f.owner.ID,
			body:     []byte(`{"roles":["admin:editor"]}`),
			cookie:   owner,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "you cannot deactivate or demote your own account"}),
		},
		{
			name:     "owner cannot delete themselves",
			method:   http.MethodDelete,
			path:     "/api/admin/users/" + f.owner.ID,
			cookie:   owner,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "nor in bulk",
			method:   http.MethodDelete,
			path:     "/api/admin/users?id=" + grace.ID + "&id=" + f.owner.ID,
			cookie:   owner,
			wantCode: http.StatusForbidden,
		},
		{name: "delete", method: http.MethodDelete, path: "/api/admin/users/" + grace.ID, cookie: owner, wantCode: http.StatusNoContent},
		{
			name:     "deleted",
			method:   http.MethodGet,
			path:     "/api/admin/users/" + grace.ID,
			cookie:   owner,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: user.ErrNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.run(t, tt)
		})
	}
}
