package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/tarpaulin/core"
	logsvc "github.com/trezcool/tarpaulin/services/logger"
	"github.com/trezcool/tarpaulin/storage/database"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	validate, _ := core.NewValidator()

	// start CLI
	cli := newCommandLine(conf, db, validate)
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
