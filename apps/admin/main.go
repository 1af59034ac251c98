package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/bulletin/core"
	"github.com/trezcool/bulletin/core/result"
	emailsvc "github.com/trezcool/bulletin/services/email"
	logsvc "github.com/trezcool/bulletin/services/logger"
	"github.com/trezcool/bulletin/storage/database"
	sqlxrepos "github.com/trezcool/bulletin/storage/database/sqlx"
	"github.com/trezcool/bulletin/storage/lock/redislock"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	validate, translator := validator.New(), core.NewTranslator()
	core.InitValidators(validate, translator)
	result.InitValidators(validate, translator)
	core.ParseEmailTemplates(logger)

	// set up DB
	db, err := database.OpenX(conf)
	errAndDie(logger, err)
	defer db.Close()

	// results written here must not race the API's
	var locker result.KeyLocker
	if conf.Redis.Addr != "" {
		client, err := redislock.Open(context.Background(), conf)
		errAndDie(logger, err)
		defer client.Close()
		locker = redislock.New(client, conf.Redis.LockTTL, logger)
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	resultSvc, err := result.NewService(result.ServiceDeps{
		Repo:     sqlxrepos.NewResultRepository(db),
		Locker:   locker,
		MailSvc:  mailSvc,
		Logger:   logger,
		Validate: validate,
		Conf:     conf,
	})
	errAndDie(logger, err)

	// start CLI
	cli := commandLine{
		conf:      conf,
		db:        db.DB,
		resultSvc: resultSvc,
	}
	err = cli.run(os.Args)
	// let the marksheets of locked results go out
	if w, ok := mailSvc.(interface{ Wait() }); ok {
		w.Wait()
	}
	if err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
