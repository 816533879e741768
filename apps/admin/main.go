package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shkola/core"
	"github.com/trezcool/shkola/core/school"
	"github.com/trezcool/shkola/core/user"
	emailsvc "github.com/trezcool/shkola/services/email"
	logsvc "github.com/trezcool/shkola/services/logger"
	"github.com/trezcool/shkola/storage/database"
	sqlxrepos "github.com/trezcool/shkola/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// set up services
	store := sqlxrepos.NewStore(db, conf.Database.Engine)
	mailSvc := emailsvc.NewConsoleService(conf, logger)
	usrSvc := user.NewService(store, sqlxrepos.NewUserRepositories(store), mailSvc, logger)
	usrSvc.AddDependentsRemover(school.NewServices(store, sqlxrepos.NewSchoolRepositories(store), usrSvc, mailSvc, logger))

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	// start CLI
	cli := commandLine{
		migrator: gooseMigrator(db),
		usrSvc:   usrSvc,
		validate: validate,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}
