package postgres

import (
	"context"

	"driveshare-settlement/internal/logger"
	"driveshare-settlement/internal/repository"
)

type settingsRepository struct {
	db Querier
}

func NewSettingsRepository(db Querier) repository.SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) GetAll(ctx context.Context) (map[string]string, error) {
	logger.DatabaseCall("SELECT", "platform_settings")
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM platform_settings`)
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err)
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}
	logger.DatabaseResult("SELECT", int64(len(settings)), rows.Err())
	return settings, rows.Err()
}
