package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/user"
	"github.com/trezcool/asistencia/services/logger"
	"github.com/trezcool/asistencia/storage/database"
	"github.com/trezcool/asistencia/storage/database/sqlx"
	"github.com/trezcool/asistencia/storage/redis"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	defer logger.Close()
	ctx := context.Background()

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = db.Close() }()
	if err = database.Ping(ctx, db); err != nil {
		logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
	}

	tokens := sqlxrepos.NewTokenStore(db)
	if conf.TokenStore == core.StorageRedis {
		client, err := redisstore.Open(ctx, conf.RedisURL)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		defer func() { _ = client.Close() }()
		tokens = redisstore.NewTokenStore(client)
	}

	// start CLI
	usrRepo := sqlxrepos.NewUserRepository(db)
	validate, translator := core.NewValidator()
	cli := commandLine{
		db:      db.DB,
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo, tokens, nil /* mailSvc */, validate, translator, conf.PasswordResetTimeoutDelta),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
