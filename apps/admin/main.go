package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/notification"
	"github.com/trezcool/skripsi/core/thesis"
	"github.com/trezcool/skripsi/core/user"
	emailsvc "github.com/trezcool/skripsi/services/email"
	logsvc "github.com/trezcool/skripsi/services/logger"
	"github.com/trezcool/skripsi/services/realtime"
	"github.com/trezcool/skripsi/storage/database"
	sqlxrepos "github.com/trezcool/skripsi/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	code := 0
	if err := run(conf, logger); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		code = 1
	}
	_ = logger.Close()
	os.Exit(code)
}

func run(conf *core.Config, logger core.Logger) error {
	ctx := context.Background()

	// set up DB
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return err
	}
	db, err := database.Open(conf)
	if err != nil {
		return err
	}
	defer db.Close()
	if err = database.Ping(ctx, db); err != nil {
		return err
	}

	// set up services; notifications raised from the CLI are not streamed
	mailSvc := emailsvc.NewConsoleService(conf, logger)
	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	notifSvc := notification.NewService(sqlxrepos.NewNotificationRepository(db), realtime.NewLocalBroker(), usrSvc, mailSvc, logger, nil)

	// start CLI
	cli := commandLine{
		db:        db.DB,
		usrRepo:   usrRepo,
		thesisSvc: thesis.NewService(sqlxrepos.NewThesisRepository(db), usrSvc, notifSvc, nil, logger),
		out:       os.Stdout,
	}
	return cli.run(os.Args)
}
