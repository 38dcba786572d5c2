package user_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/user"
	inmemdb "github.com/aurorarobotics/aurora/storage/database/inmem"
	testutil "github.com/aurorarobotics/aurora/tests"
)

const goodPwd = "R0b0t!cs#Lab"

func newService() (*user.Service, user.Repository) {
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return user.NewService(repo), repo
}

func TestNewUser_Validate_password(t *testing.T) {
	ctx := context.Background()
	validate, translator := testutil.NewValidator(t)
	svc, _ := newService()

	tests := []struct {
		name string
		pwd  string
		want string
	}{
		{name: "min len", pwd: "lol", want: "password must contain at least 8 characters"},
		{name: "whitespace", pwd: "l o loll", want: "password must not contain whitespace"},
		{name: "all numeric", pwd: "12345678", want: "password cannot be entirely numeric"},
		{name: "complexity", pwd: "lol12345", want: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"},
		{name: "similar to email", pwd: "Lovelace1!", want: "password cannot be similar to user attributes"},
		{name: "too common", pwd: "P@ssw0rd", want: "password is too common"},
		{name: "ok", pwd: goodPwd},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			nu := user.NewUser{
				Name:            "Ada",
				Email:           "lovelace@aurora.test",
				Password:        tc.pwd,
				PasswordConfirm: tc.pwd,
				Roles:           []string{user.RoleAdminEditor},
			}
			err := nu.Validate(ctx, validate, svc)
			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.True(t, errors.As(err, &vErrs), "got %v", err)
			require.Len(t, vErrs, 1)
			assert.Equal(t, "password", vErrs[0].Field())
			assert.Equal(t, tc.want, vErrs[0].Translate(translator))
		})
	}
}

func TestNewUser_Validate(t *testing.T) {
	ctx := context.Background()
	validate, _ := testutil.NewValidator(t)
	svc, repo := newService()
	testutil.CreateUser(t, repo, "Owner", "owner@aurora.test", goodPwd, []string{user.RoleAdminOwner}, true)

	nu := user.NewUser{
		Name: "Other", Email: " OWNER@aurora.test ", Password: goodPwd, PasswordConfirm: goodPwd,
		Roles: []string{user.RoleAdminEditor},
	}
	err := nu.Validate(ctx, validate, svc)
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, "email", vErr.Fields[0].Field)

	nu = user.NewUser{
		Name: "Other", Email: "other@aurora.test", Password: goodPwd, PasswordConfirm: goodPwd,
		Roles: []string{"admin:root"},
	}
	var vErrs validator.ValidationErrors
	require.True(t, errors.As(nu.Validate(ctx, validate, svc), &vErrs))
	assert.Equal(t, "roles", vErrs[0].Field())

	nu.Roles = []string{user.RoleAdminEditor}
	nu.PasswordConfirm = "nope"
	require.True(t, errors.As(nu.Validate(ctx, validate, svc), &vErrs))
	assert.Equal(t, "password_confirm", vErrs[0].Field())
}

func TestService_lifecycle(t *testing.T) {
	ctx := context.Background()
	validate, _ := testutil.NewValidator(t)
	svc, _ := newService()

	nu := user.NewUser{
		Name: " Grace Hopper ", Email: "Grace@Aurora.test", Password: goodPwd, PasswordConfirm: goodPwd,
		Roles: []string{user.RoleAdminEditor},
	}
	require.NoError(t, nu.Validate(ctx, validate, svc))
	usr, err := svc.Create(ctx, nu)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", usr.Name)
	assert.Equal(t, "grace@aurora.test", usr.Email)
	assert.True(t, usr.IsActive)
	assert.False(t, usr.IsOwner())
	assert.True(t, usr.IsAdmin())

	got, err := svc.Authenticate(ctx, "GRACE@aurora.test", goodPwd)
	require.NoError(t, err)
	assert.True(t, got.LastLogin.Valid)

	_, err = svc.Authenticate(ctx, "grace@aurora.test", "wrong")
	assert.Equal(t, user.ErrInvalidCredentials, err)
	_, err = svc.Authenticate(ctx, "nobody@aurora.test", goodPwd)
	assert.Equal(t, user.ErrInvalidCredentials, err)

	// promote and deactivate
	inactive := false
	uu := user.UpdateUser{Roles: []string{user.RoleAdminOwner}, IsActive: &inactive}
	require.NoError(t, uu.Validate(ctx, usr, validate, svc))
	usr, err = svc.Update(ctx, usr, uu)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", usr.Name, "blank fields are kept")
	assert.True(t, usr.IsOwner())
	assert.False(t, usr.IsActive)

	_, err = svc.Authenticate(ctx, "grace@aurora.test", goodPwd)
	assert.Equal(t, user.ErrAccountDeactivated, err)

	newPwd := "N3w-S3cret!x"
	rp := user.ResetUserPassword{Email: usr.Email, Password: newPwd, PasswordConfirm: newPwd}
	require.NoError(t, rp.Validate(validate, usr))
	usr, err = svc.ResetPassword(ctx, usr, newPwd)
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword(newPwd))
	assert.Error(t, usr.CheckPassword(goodPwd))

	require.NoError(t, svc.Delete(ctx, usr.ID))
	_, err = svc.GetByID(ctx, usr.ID)
	assert.Equal(t, user.ErrNotFound, pkgerrors.Cause(err))
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService()
	testutil.CreateUser(t, repo, "Owner", "owner@aurora.test", "", []string{user.RoleAdminOwner}, true)
	testutil.CreateUser(t, repo, "Editor", "editor@aurora.test", "", []string{user.RoleAdminEditor}, true)
	testutil.CreateUser(t, repo, "Old Editor", "old@aurora.test", "", []string{user.RoleAdminEditor}, false)

	active := true
	tests := []struct {
		name   string
		filter user.QueryFilter
		want   []string
	}{
		{name: "all", filter: user.QueryFilter{}, want: []string{"Editor", "Old Editor", "Owner"}},
		{name: "search", filter: user.QueryFilter{Search: "EDIT"}, want: []string{"Editor", "Old Editor"}},
		{name: "role", filter: user.QueryFilter{Roles: []string{user.RoleAdminOwner}}, want: []string{"Owner"}},
		{name: "active editors", filter: user.QueryFilter{Roles: []string{user.RoleAdminEditor}, IsActive: &active}, want: []string{"Editor"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			users, err := svc.Query(ctx, tc.filter, []core.DBOrdering{{Field: "name"}})
			require.NoError(t, err)
			names := make([]string, 0, len(users))
			for _, u := range users {
				names = append(names, u.Name)
			}
			assert.ElementsMatch(t, tc.want, names)
		})
	}
}

func TestMaxRolePriority(t *testing.T) {
	assert.Equal(t, 30, user.MaxRolePriority([]string{user.RoleAdminEditor, user.RoleAdminOwner}))
	assert.Equal(t, 20, user.MaxRolePriority([]string{user.RoleAdminEditor}))
	assert.Equal(t, 0, user.MaxRolePriority([]string{"nope"}))
}
