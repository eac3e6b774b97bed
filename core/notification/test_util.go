package notification

import (
	"github.com/trezcool/skripsi/core"
)

// NewServiceMock returns a Service that delivers notifications synchronously.
func NewServiceMock(
	repo Repository,
	broker Broker,
	users UserDirectory,
	mailSvc core.EmailService,
	observer PublishObserver,
) Service {
	svc := NewService(repo, broker, users, mailSvc, core.NewNopLogger(), observer).(*service)
	svc.sync = true
	return svc
}
