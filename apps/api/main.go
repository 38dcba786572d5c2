package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	echoapi "github.com/aurorarobotics/aurora/apps/api/echo"
	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/content"
	"github.com/aurorarobotics/aurora/core/mailer"
	"github.com/aurorarobotics/aurora/core/media"
	"github.com/aurorarobotics/aurora/core/payment"
	"github.com/aurorarobotics/aurora/core/referral"
	"github.com/aurorarobotics/aurora/core/student"
	"github.com/aurorarobotics/aurora/core/user"
	appfs "github.com/aurorarobotics/aurora/fs"
	emailsvc "github.com/aurorarobotics/aurora/services/email"
	logsvc "github.com/aurorarobotics/aurora/services/logger"
	"github.com/aurorarobotics/aurora/services/payment/paystack"
	sessionsvc "github.com/aurorarobotics/aurora/services/session"
	"github.com/aurorarobotics/aurora/storage/database"
	sqlxrepos "github.com/aurorarobotics/aurora/storage/database/sqlx"
	"github.com/aurorarobotics/aurora/storage/objects/disk"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		return fmt.Errorf("setting up zap: %w", err)
	}
	logger := logsvc.New(zl.Named("api"), conf)
	defer func() { _ = logger.Sync() }()

	dbLogger := logsvc.New(zl.Named("db"), conf)

	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			dbLogger.Error("failed to close", err)
		}
	}()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	if err = user.LoadCommonPasswords(appfs.FS, "common-passwords.txt"); err != nil {
		logger.Warn("loading common passwords", err)
	}

	files, err := core.ParseEmailTemplates(appfs.FS, "templates/email", conf, !conf.Debug)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}

	redisClient := sessionsvc.NewRedisClient(conf)
	defer func() { _ = redisClient.Close() }()
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err = redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, logouts will fail until it is back", err)
	}
	cancelPing()

	primary, fallback := emailSenders(conf, logger)
	mailerSvc := mailer.NewService(sqlxrepos.NewMailerRepository(db), primary, fallback, files, conf, logger)
	referralSvc := referral.NewService(sqlxrepos.NewReferralRepository(db))

	deps := echoapi.Deps{
		Conf:        conf,
		Logger:      logger,
		Validate:    validate,
		Translator:  translator,
		Sessions:    sessionsvc.NewRedisStore(redisClient),
		UserSvc:     user.NewService(sqlxrepos.NewUserRepository(db)),
		ContentSvc:  content.NewService(sqlxrepos.NewContentRepository(db), logger),
		StudentSvc:  student.NewService(sqlxrepos.NewStudentRepository(db), conf, validate, logger),
		PaymentSvc:  payment.NewService(sqlxrepos.NewPaymentRepository(db), paystack.New(conf), referralSvc, mailerSvc, conf, logger),
		ReferralSvc: referralSvc,
		MailerSvc:   mailerSvc,
		MediaSvc:    media.NewService(sqlxrepos.NewMediaRepository(db), disk.New(conf), conf, logger),
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(deps, shutdown)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	debugSrv := &http.Server{Addr: conf.Server.DebugHost, Handler: http.DefaultServeMux}

	g, gctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
		return nil
	})

	// =========================================================================
	// Start API Service

	g.Go(func() error {
		logger.Info("API listening on " + conf.Server.Host)
		return server.Start()
	})

	// =========================================================================
	// Shutdown

	g.Go(func() error {
		select {
		case sig := <-shutdown:
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		case <-gctx.Done():
		}

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		_ = debugSrv.Shutdown(ctx)

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
			if err = server.Close(); err != nil {
				return fmt.Errorf("could not force stop server: %w", err)
			}
		}
		return nil
	})

	if err = g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("server error: %v", err), err)
		return err
	}
	return nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// emailSenders picks SendGrid when an API key is configured (console output otherwise)
// and SMTP as the fallback when a host is configured.
func emailSenders(conf *core.Config, logger core.Logger) (primary, fallback core.EmailSender) {
	if conf.Email.SendgridApiKey != "" {
		primary = emailsvc.NewSendgridSender(conf)
	} else {
		primary = emailsvc.NewConsoleSender(conf, logger)
	}
	if conf.Email.SMTP.Host != "" {
		fallback = emailsvc.NewSMTPSender(conf)
	}
	return primary, fallback
}
