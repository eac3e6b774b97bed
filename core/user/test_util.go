package user

import (
	"context"

	"github.com/trezcool/skripsi/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service sending emails synchronously, for tests.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &serviceMock{
		service: service{
			repo:    repo,
			mailSvc: mailSvc,
			tokens:  newTokenGenerator(conf),
		},
	}
}

func (svc *serviceMock) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	// run synchronously
	svc.sendPasswordResetMail(usr)
	return nil
}

// MakeResetToken exposes password reset tokens to other packages' tests.
func MakeResetToken(conf *core.Config, usr User) (string, error) {
	return newTokenGenerator(conf).makeToken(usr)
}
