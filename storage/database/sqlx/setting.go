package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/asistencia/core/setting"
)

type settingRepository struct {
	db *sqlx.DB
}

var _ setting.Repository = (*settingRepository)(nil) // interface compliance check

func NewSettingRepository(db *sqlx.DB) setting.Repository {
	return &settingRepository{db: db}
}

func (repo *settingRepository) QuerySettings(ctx context.Context) ([]setting.Setting, error) {
	b := psql.Select("key", "value").From("settings").OrderBy("key ASC")
	settings := make([]setting.Setting, 0)
	if err := selectContext(ctx, repo.db, &settings, b, nil, "querying settings"); err != nil {
		return nil, err
	}
	return settings, nil
}

func (repo *settingRepository) GetSetting(ctx context.Context, key string) (setting.Setting, error) {
	b := psql.Select("key", "value").From("settings").Where(sq.Eq{"key": key})
	var s setting.Setting
	if err := getContext(ctx, repo.db, &s, b, setting.ErrNotFound, "getting setting"); err != nil {
		return setting.Setting{}, err
	}
	return s, nil
}

func (repo *settingRepository) SaveSetting(ctx context.Context, s setting.Setting) (setting.Setting, error) {
	b := psql.Insert("settings").
		Columns("key", "value").
		Values(s.Key, s.Value).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value RETURNING key, value")
	var saved setting.Setting
	if err := getContext(ctx, repo.db, &saved, b, nil, "saving setting"); err != nil {
		return setting.Setting{}, err
	}
	return saved, nil
}
