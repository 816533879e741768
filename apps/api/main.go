package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	echoapi "github.com/trezcool/shkola/apps/api/echo"
	"github.com/trezcool/shkola/core"
	"github.com/trezcool/shkola/core/policy"
	"github.com/trezcool/shkola/core/school"
	"github.com/trezcool/shkola/core/user"
	emailsvc "github.com/trezcool/shkola/services/email"
	logsvc "github.com/trezcool/shkola/services/logger"
	"github.com/trezcool/shkola/services/ratelimit"
	"github.com/trezcool/shkola/storage/database"
	inmemdb "github.com/trezcool/shkola/storage/database/inmem"
	sqlxrepos "github.com/trezcool/shkola/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	store, closeDB, err := setUpStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = closeDB(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(store.tx, store.users, mailSvc, logger)
	schoolSvcs := school.NewServices(store.tx, store.school, usrSvc, mailSvc, logger)
	usrSvc.AddDependentsRemover(schoolSvcs)

	limiter, closeLimiter := newLoginLimiter(conf, logger)
	defer closeLimiter()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Conf:       conf,
		Logger:     logger,
		Users:      usrSvc,
		School:     schoolSvcs,
		Policy:     policy.NewSchoolEngine(schoolSvcs, usrSvc),
		Limiter:    limiter,
		Validate:   validate,
		Translator: translator,
		Shutdown:   shutdown,
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("API listening on %s", conf.Server.Address))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

type store struct {
	tx     core.Transactor
	users  user.Repositories
	school school.Repositories
}

// setUpStore returns the in-memory store when configured, PostgreSQL otherwise.
func setUpStore(conf *core.Config) (store, func() error, error) {
	if conf.Database.InMemory {
		db := inmemdb.Open()
		st := store{
			tx:     db,
			users:  inmemdb.NewUserRepositories(db),
			school: inmemdb.NewSchoolRepositories(db),
		}
		return st, func() error { return nil }, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return store{}, nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return store{}, nil, err
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return store{}, nil, err
	}

	sqlStore := sqlxrepos.NewStore(db, conf.Database.Engine)
	st := store{
		tx:     sqlStore,
		users:  sqlxrepos.NewUserRepositories(sqlStore),
		school: sqlxrepos.NewSchoolRepositories(sqlStore),
	}
	return st, db.Close, nil
}

// newLoginLimiter shares login attempts across instances through Redis when it is configured.
func newLoginLimiter(conf *core.Config, logger core.Logger) (ratelimit.Limiter, func()) {
	rate, window := conf.Server.LoginRateLimit, conf.Server.LoginRateWindow
	if conf.Redis.Address == "" {
		return ratelimit.NewInMemory(rate, window), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn(fmt.Sprintf("redis unreachable, login attempts are limited per instance: %v", err))
		_ = client.Close()
		return ratelimit.NewInMemory(rate, window), func() {}
	}
	return ratelimit.NewRedis(client, rate, window, logger), func() { _ = client.Close() }
}
