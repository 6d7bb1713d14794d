package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	echoapi "github.com/trezcool/tarpaulin/apps/api/echo"
	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/access"
	"github.com/trezcool/tarpaulin/core/assignment"
	"github.com/trezcool/tarpaulin/core/course"
	"github.com/trezcool/tarpaulin/core/enrollment"
	"github.com/trezcool/tarpaulin/core/submission"
	"github.com/trezcool/tarpaulin/core/user"
	emailsvc "github.com/trezcool/tarpaulin/services/email"
	logsvc "github.com/trezcool/tarpaulin/services/logger"
	"github.com/trezcool/tarpaulin/services/objectstore"
	"github.com/trezcool/tarpaulin/storage/database"
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
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var store core.ObjectStore
	var objects echoapi.ObjectReader
	switch conf.Storage.Backend {
	case "b2":
		if store, err = objectstore.NewB2Store(context.Background(), conf.Storage); err != nil {
			logger.Fatal(fmt.Sprintf("setting up object store: %v", err), err)
		}
	default:
		memStore := objectstore.NewMemoryStore(baseURL(conf), conf.SecretKey, conf.Storage.SignedURLExpiry)
		store, objects = memStore, memStore
	}

	repos := database.NewRepositories(db)
	usrSvc := user.NewService(repos.Users)
	courseSvc := course.NewService(repos.Courses, usrSvc)
	enrollmentSvc := enrollment.NewService(repos.Enrollments, usrSvc)
	asgmtSvc := assignment.NewService(repos.Assignments, courseSvc)
	subSvc := submission.NewService(repos.Submissions, enrollmentSvc, usrSvc, store, mailSvc, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()

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

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			UserSvc:       usrSvc,
			CourseSvc:     courseSvc,
			EnrollmentSvc: enrollmentSvc,
			AssignmentSvc: asgmtSvc,
			SubmissionSvc: subSvc,
			Rules:         access.NewRules(usrSvc, enrollmentSvc),
			Validate:      validate,
			Translator:    translator,
			Registry:      registry,
			Objects:       objects,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(ctx, db); err != nil {
		return nil, err
	}
	if err = database.EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

// baseURL is the public root of the API, used in links to locally stored objects.
func baseURL(conf *core.Config) string {
	addr := conf.Server.Address
	if strings.HasPrefix(addr, ":") {
		addr = conf.Server.Host + addr
	}
	return "http://" + addr
}
