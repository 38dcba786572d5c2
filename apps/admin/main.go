package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/content"
	"github.com/aurorarobotics/aurora/core/student"
	"github.com/aurorarobotics/aurora/core/user"
	appfs "github.com/aurorarobotics/aurora/fs"
	logsvc "github.com/aurorarobotics/aurora/services/logger"
	"github.com/aurorarobotics/aurora/storage/database"
	sqlxrepos "github.com/aurorarobotics/aurora/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, "setting up zap:", err)
		os.Exit(1)
	}
	logger := logsvc.New(zl.Named("admin"), conf)
	logger.Enable(false)
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()
	if err = database.Ping(context.Background(), db.DB); err != nil {
		logger.Fatal("pinging database", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	if err = user.LoadCommonPasswords(appfs.FS, "common-passwords.txt"); err != nil {
		logger.Warn("loading common passwords", err)
	}

	cli := commandLine{
		conf:       conf,
		db:         db.DB,
		validate:   validate,
		translator: translator,
		usrSvc:     user.NewService(sqlxrepos.NewUserRepository(db)),
		studentSvc: student.NewService(sqlxrepos.NewStudentRepository(db), conf, validate, logger),
		contentSvc: content.NewService(sqlxrepos.NewContentRepository(db), logger),
		out:        os.Stdout,
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %v\n", err)
		}
		_ = logger.Sync()
		db.Close()
		os.Exit(1)
	}
}
