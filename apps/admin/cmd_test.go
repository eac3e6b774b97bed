package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/notification"
	"github.com/trezcool/skripsi/core/progress"
	"github.com/trezcool/skripsi/core/thesis"
	"github.com/trezcool/skripsi/core/user"
	emailsvc "github.com/trezcool/skripsi/services/email"
	"github.com/trezcool/skripsi/services/realtime"
	inmemdb "github.com/trezcool/skripsi/storage/database/inmem"
	testutil "github.com/trezcool/skripsi/tests"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	conf := core.NewTestConfig()
	db := inmemdb.Open()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	usrRepo := inmemdb.NewUserRepository(db)
	usrSvc := user.NewServiceMock(usrRepo, mailSvc, conf)
	notifSvc := notification.NewServiceMock(inmemdb.NewNotificationRepository(db), realtime.NewLocalBroker(), usrSvc, mailSvc, nil)

	out := new(bytes.Buffer)
	return &commandLine{
		usrRepo:   usrRepo,
		thesisSvc: thesis.NewService(inmemdb.NewThesisRepository(db), usrSvc, notifSvc, nil, core.NewNopLogger()),
		out:       out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(_ context.Context, _ *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "seminar_rooms", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"skripsi-admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "no username nor email", args: []string{"adduser", "--role", user.RoleStudent}, extra: "Skr1ps!Ku", wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "--username", "budi"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "--username", "budi", "--role", "dean:"}, extra: "Skr1ps!Ku", wantErrStr: "unknown role \"dean:\""},
		{
			name: "student", args: []string{"adduser", "--name", "Budi Santoso", "--username", "Budi", "--email", "budi@kampus.ac.id", "--role", user.RoleStudent},
			extra: "Skr1ps!Ku",
		},
		{name: "lecturer & chair", args: []string{"adduser", "--username", "hadi", "--role", user.RoleLecturer + "," + user.RoleProgramChair}, extra: "Skr1ps!Ku"},
		{name: "admin", args: []string{"adduser", "--email", "admin@kampus.ac.id", "--admin"}, extra: "Skr1ps!Ku"},
		{name: "update existing", args: []string{"adduser", "--username", "budi", "--admin"}, extra: "N3w!Passw0rd"},
	}
	for _, tt := range tests {
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"skripsi-admin"}, tt.args...)))
		})
	}

	budi, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "budi"})
	require.NoError(t, err)
	assert.Equal(t, "Budi Santoso", budi.Name)
	assert.Equal(t, "budi@kampus.ac.id", budi.Email)
	assert.True(t, budi.IsActive)
	assert.True(t, budi.IsStudent())
	assert.True(t, budi.IsAdmin())
	assert.NoError(t, budi.CheckPassword("N3w!Passw0rd"))

	hadi, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: "hadi"})
	require.NoError(t, err)
	assert.True(t, hadi.IsProgramChair())
	assert.False(t, hadi.IsAdmin())

	admin, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: "admin@kampus.ac.id"})
	require.NoError(t, err)
	assert.ElementsMatch(t, user.AdminRoles, admin.Roles)
	assert.Contains(t, out.String(), "user budi saved")
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, cli.usrRepo, "Budi", "budi", "budi@kampus.ac.id", "mdr", nil, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "--username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "--username", "lol"}, extra: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "--username", usr.Username}, extra: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "--username", usr.Email}, extra: "lmao"},
	}
	for _, tt := range tests {
		pwd, _ := tt.extra.(string)
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"skripsi-admin"}, tt.args...))
			tt.check(t, err)
			if err != nil {
				return
			}
			refreshedUsr, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.NoError(t, refreshedUsr.CheckPassword(pwd))
		})
	}
}

func Test_commandLine_progress(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	student := testutil.CreateUser(t, cli.usrRepo, "Budi Santoso", "budi", "budi@kampus.ac.id", "", []string{user.RoleStudent}, true)
	primary := testutil.CreateUser(t, cli.usrRepo, "Sari", "sari", "sari@kampus.ac.id", "", []string{user.RoleLecturer}, true)
	secondary := testutil.CreateUser(t, cli.usrRepo, "Agus", "agus", "agus@kampus.ac.id", "", []string{user.RoleLecturer}, true)

	p, err := cli.thesisSvc.SubmitProposal(ctx, student.ID, thesis.NewProposal{
		Title:                 "Sistem Informasi Monitoring Skripsi",
		PrimarySupervisorID:   primary.ID,
		SecondarySupervisorID: secondary.ID,
	})
	require.NoError(t, err)

	tests := []cliTest{
		{name: "no proposal", args: []string{"progress"}, wantErr: errHelp},
		{name: "unknown proposal", args: []string{"progress", "missing"}, wantErr: thesis.ErrNotFound},
		{name: "resolved", args: []string{"progress", p.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"skripsi-admin"}, tt.args...))
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), progress.LabelSupervisorApproval)
			assert.Contains(t, out.String(), "Budi Santoso")
			assert.Contains(t, out.String(), fmt.Sprintf("step %d/%d", progress.StepSupervisorApproval, progress.FinalStep))
		})
	}
}
