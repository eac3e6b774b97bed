package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/user"
)

func (cli *commandLine) addUserCommand() *cobra.Command {
	var (
		name, uname, email string
		roles              []string
		isAdmin            bool
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update a user; the password is prompted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" && email == "" {
				return usage(cmd)
			}
			for _, role := range roles {
				if !core.StringInSlice(role, user.AllRoles) {
					return fmt.Errorf("unknown role %q", role)
				}
			}
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				return usage(cmd)
			}
			usr, err := cli.addUser(cmd.Context(), name, uname, email, pwd, roles, isAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "user %s saved (%s)\n", usr.Username, usr.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&uname, "username", "", "Username")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role(s), e.g. student:, lecturer:, lecturer:chair, staff:")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Grant the admin roles")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(ctx context.Context, name, uname, email, pwd string, roles []string, isAdmin bool) (user.User, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return user.User{}, err
		}
		usr = user.User{Username: uname, Email: email, CreatedAt: now}
	}
	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	if usr.Name == "" {
		usr.Name = usr.Username
		if usr.Name == "" {
			usr.Name = usr.Email
		}
	}
	if roles != nil {
		usr.Roles = roles
	}
	if isAdmin {
		for _, role := range user.AdminRoles {
			if !usr.HasRole(role) {
				usr.Roles = append(usr.Roles, role)
			}
		}
	}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return user.User{}, err
	}
	return cli.usrRepo.UpdateOrCreateUser(ctx, usr)
}
