package main

import (
	"context"

	"github.com/trezcool/asistencia/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	return gooseRunFunc(ctx, args[0], cli.db, args[1:]...)
}
