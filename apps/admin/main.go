package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/user"
	emailsvc "github.com/gopimeda/elearning/services/email"
	logsvc "github.com/gopimeda/elearning/services/logger"
	"github.com/gopimeda/elearning/storage/database/mongodb"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongodb.Connect(ctx, core.Conf)
	errAndDie(err)
	defer client.Disconnect(context.Background()) //nolint:errcheck
	db := client.Database(core.Conf.Database.Name)

	// start CLI
	cli := commandLine{
		usrSvc: user.NewService(mongodb.NewUserRepository(db), emailsvc.NewConsoleService(), logsvc.NewStdLogger(logger)),
		out:    os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
