package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/asistencia/core/setting"
)

type settingRepository struct {
	db *DB
}

var _ setting.Repository = (*settingRepository)(nil) // interface compliance check

func NewSettingRepository(db *DB) setting.Repository {
	return &settingRepository{db: db}
}

func (repo *settingRepository) QuerySettings(_ context.Context) ([]setting.Setting, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	settings := make([]setting.Setting, 0, len(repo.db.settings))
	for k, v := range repo.db.settings {
		settings = append(settings, setting.Setting{Key: k, Value: v})
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })
	return settings, nil
}

func (repo *settingRepository) GetSetting(_ context.Context, key string) (setting.Setting, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if v, ok := repo.db.settings[key]; ok {
		return setting.Setting{Key: key, Value: v}, nil
	}
	return setting.Setting{}, setting.ErrNotFound
}

func (repo *settingRepository) SaveSetting(_ context.Context, s setting.Setting) (setting.Setting, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.settings[s.Key] = s.Value
	return s, nil
}
