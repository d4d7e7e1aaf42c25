package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/attendance"
	"github.com/trezcool/asistencia/core/report"
	"github.com/trezcool/asistencia/core/school"
	"github.com/trezcool/asistencia/core/setting"
	"github.com/trezcool/asistencia/core/user"
	"github.com/trezcool/asistencia/storage/database"
	"github.com/trezcool/asistencia/storage/database/inmem"
	"github.com/trezcool/asistencia/storage/database/sqlx"
	"github.com/trezcool/asistencia/storage/redis"
)

// stores holds the repositories of the configured storage backend.
type stores struct {
	users      user.Repository
	school     school.Repository
	attendance attendance.Repository
	reports    report.Repository
	settings   setting.Repository
	tokens     user.TokenStore

	closers []func() error
}

// Close closes every backend connection and returns the first error.
func (s *stores) Close() error {
	var firstErr error
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func openStores(ctx context.Context, conf *core.Config) (*stores, error) {
	s := new(stores)

	var db *sqlx.DB
	var mem *inmemdb.DB
	switch conf.Storage {
	case core.StoragePostgres:
		var err error
		if db, err = setUpDB(ctx, conf); err != nil {
			return nil, errors.Wrap(err, "setting up database")
		}
		s.closers = append(s.closers, db.Close)
		s.users = sqlxrepos.NewUserRepository(db)
		s.school = sqlxrepos.NewSchoolRepository(db)
		s.attendance = sqlxrepos.NewAttendanceRepository(db)
		s.reports = sqlxrepos.NewReportRepository(db)
		s.settings = sqlxrepos.NewSettingRepository(db)
	case core.StorageMemory:
		mem = inmemdb.Open()
		s.users = inmemdb.NewUserRepository(mem)
		s.school = inmemdb.NewSchoolRepository(mem)
		s.attendance = inmemdb.NewAttendanceRepository(mem)
		s.reports = inmemdb.NewReportRepository(mem)
		s.settings = inmemdb.NewSettingRepository(mem)
	default:
		return nil, fmt.Errorf("unknown storage %q", conf.Storage)
	}

	switch {
	case conf.TokenStore == core.StorageRedis:
		client, err := redisstore.Open(ctx, conf.RedisURL)
		if err != nil {
			_ = s.Close()
			return nil, errors.Wrap(err, "connecting to redis")
		}
		s.closers = append(s.closers, client.Close)
		s.tokens = redisstore.NewTokenStore(client)
	case db != nil && conf.TokenStore == core.StoragePostgres:
		s.tokens = sqlxrepos.NewTokenStore(db)
	default: // tokens live with the records
		if mem == nil {
			mem = inmemdb.Open()
		}
		s.tokens = inmemdb.NewTokenStore(mem)
	}
	return s, nil
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err = database.Migrate(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
