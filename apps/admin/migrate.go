package main

import (
	"database/sql"

	"github.com/trezcool/goose"

	appfs "github.com/trezcool/shkola/fs"
	"github.com/trezcool/shkola/storage/database"
)

// migrateFunc runs a goose command with its args.
type migrateFunc func(command string, args ...string) error

func gooseMigrator(db *sql.DB) migrateFunc {
	return func(command string, args ...string) error {
		return goose.RunFS(command, db, appfs.FS, database.MigrationsDir, args...)
	}
}

func (cli *commandLine) migrate(args []string) error {
	return cli.migrator(args[0], args[1:]...)
}
