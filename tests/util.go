// Package testutil holds the fixtures shared by service and API tests.
package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/user"
	appfs "github.com/aurorarobotics/aurora/fs"
	logsvc "github.com/aurorarobotics/aurora/services/logger"
)

// NewLogger returns a logger writing nowhere, with Rollbar disabled.
func NewLogger() core.Logger {
	l := logsvc.New(zap.NewNop(), core.NewTestConfig())
	l.Enable(false)
	return l
}

// NewValidator returns a validator with every custom tag registered, as the API sets it up.
func NewValidator(t *testing.T) (*validator.Validate, ut.Translator) {
	t.Helper()
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	if err := user.LoadCommonPasswords(appfs.FS, "common-passwords.txt"); err != nil {
		t.Fatalf("loading common passwords: %v", err)
	}
	return validate, translator
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}
