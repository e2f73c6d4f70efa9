package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/gopimeda/elearning/apps/api/echo"
	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/course"
	"github.com/gopimeda/elearning/core/enrollment"
	"github.com/gopimeda/elearning/core/quiz"
	"github.com/gopimeda/elearning/core/review"
	"github.com/gopimeda/elearning/core/user"
	cachesvc "github.com/gopimeda/elearning/services/cache"
	emailsvc "github.com/gopimeda/elearning/services/email"
	logsvc "github.com/gopimeda/elearning/services/logger"
	"github.com/gopimeda/elearning/storage/database/mongodb"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	var logger core.Logger
	if core.Conf.RollbarToken != "" && !core.Conf.Debug {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	} else {
		logger = logsvc.NewStdLogger(std)
	}

	if err := run(std, logger); err != nil {
		logger.Fatal("api: startup failed", err)
	}
}

func run(std *log.Logger, logger core.Logger) error {
	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongodb.Connect(ctx, core.Conf)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error("api: disconnecting mongo", err)
		}
	}()
	db := client.Database(core.Conf.Database.Name)

	// set up cache; fall back to the in-process cache when redis is down
	var cache core.Cache
	redisCache := cachesvc.NewRedisCache(core.Conf)
	if err := redisCache.Ping(ctx); err != nil {
		std.Printf("redis unreachable (%v); using in-memory cache", err)
		memCache := cachesvc.NewInMemoryCache(core.Conf.Redis.TTL, time.Minute)
		defer memCache.Stop()
		cache = memCache
	} else {
		defer redisCache.Close()
		cache = redisCache
	}

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	usrSvc := user.NewService(mongodb.NewUserRepository(db), mailSvc, logger)
	crsSvc := course.NewService(mongodb.NewCourseRepository(db), cache, logger)
	qzSvc := quiz.NewService(mongodb.NewQuizRepository(db), logger)
	enrSvc := enrollment.NewService(mongodb.NewEnrollmentRepository(db), usrSvc, crsSvc, mailSvc, logger)
	revSvc := review.NewService(mongodb.NewReviewRepository(db), crsSvc, logger)

	// start API server
	shutdown := make(chan struct{})
	app := echoapi.NewServer(core.Conf.Address(), shutdown, &echoapi.Deps{
		Logger:        logger,
		UserSvc:       usrSvc,
		CourseSvc:     crsSvc,
		QuizSvc:       qzSvc,
		EnrollmentSvc: enrSvc,
		ReviewSvc:     revSvc,
	})

	go func() {
		std.Printf("listening on %s", core.Conf.Address())
		app.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-shutdown:
		std.Print("integrity issue: shutting down")
	case sig := <-quit:
		std.Printf("%v: shutting down", sig)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	return app.Stop(stopCtx)
}
