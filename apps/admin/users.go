package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var email, name string
	var owner bool

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create an admin user, or update the one with the same email",
		Long: `Create an admin user, or update the one with the same email.
The password is prompted next. New users are editors unless --owner is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if core.CleanString(email) == "" {
				return usage(cmd)
			}
			pwd, err := cli.promptPassword("Enter password")
			if err != nil {
				return err
			}
			if pwd == "" {
				return usage(cmd)
			}
			confirm, err := cli.promptPassword("Confirm password")
			if err != nil {
				return err
			}

			usr, created, err := cli.addUser(cmd.Context(), name, email, pwd, confirm, owner)
			if err != nil {
				return err
			}
			if created {
				cli.printf("created %s (%s)\n", usr.Email, usr.ID)
			} else {
				cli.printf("updated %s (%s)\n", usr.Email, usr.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "the user's email")
	cmd.Flags().StringVar(&name, "name", "", "the user's name (required for new users)")
	cmd.Flags().BoolVar(&owner, "owner", false, "grant the owner role")
	return cmd
}

// addUser creates an active user, or reactivates and updates the existing one.
func (cli *commandLine) addUser(ctx context.Context, name, email, pwd, confirm string, owner bool) (user.User, bool, error) {
	roles := []string{user.RoleAdminEditor}
	if owner {
		roles = []string{user.RoleAdminOwner}
	}

	existing, err := cli.usrSvc.GetByEmail(ctx, email)
	switch {
	case err == nil:
		active := true
		uu := user.UpdateUser{
			Name:            name,
			IsActive:        &active,
			Password:        pwd,
			PasswordConfirm: confirm,
		}
		if owner {
			uu.Roles = roles
		}
		if err = uu.Validate(ctx, existing, cli.validate, cli.usrSvc); err != nil {
			return user.User{}, false, err
		}
		usr, err := cli.usrSvc.Update(ctx, existing, uu)
		return usr, false, errors.Wrap(err, "updating user")

	case errors.Cause(err) == user.ErrNotFound:
		nu := user.NewUser{
			Name:            name,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: confirm,
			Roles:           roles,
		}
		if err = nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
			return user.User{}, false, err
		}
		usr, err := cli.usrSvc.Create(ctx, nu)
		return usr, true, errors.Wrap(err, "creating user")

	default:
		return user.User{}, false, errors.Wrap(err, "finding user")
	}
}

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset an admin user's password",
		Long:  "Reset an admin user's password. The password is prompted next.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if core.CleanString(email) == "" {
				return usage(cmd)
			}
			pwd, err := cli.promptPassword("Enter password")
			if err != nil {
				return err
			}
			if pwd == "" {
				return usage(cmd)
			}
			confirm, err := cli.promptPassword("Confirm password")
			if err != nil {
				return err
			}
			return cli.resetPassword(cmd.Context(), email, pwd, confirm)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "the user's email")
	return cmd
}

func (cli *commandLine) resetPassword(ctx context.Context, email, pwd, confirm string) error {
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	rp := user.ResetUserPassword{Email: usr.Email, Password: pwd, PasswordConfirm: confirm}
	if err = rp.Validate(cli.validate, usr); err != nil {
		return err
	}
	if _, err = cli.usrSvc.ResetPassword(ctx, usr, pwd); err != nil {
		return errors.Wrap(err, "resetting password")
	}
	cli.printf("password updated for %s\n", usr.Email)
	return nil
}
