package main

import (
	"fmt"

	"go.uber.org/zap"
)

// NewBookStorage builds the store handle selected by the storage driver.
func NewBookStorage(logger *zap.Logger, config *Config) (BookStorage, error) {
	switch config.Storage.Driver {
	case DriverPostgres, DriverSQLite:
		db, err := GetSQLDB(config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s database: %s", config.Storage.Driver, err)
		}
		return NewSQLBookStorage(logger, config.Storage.Driver, db), nil
	case DriverRedis:
		client, err := GetRedisClient(config)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis server: %s", err)
		}
		return NewRedisBookStorage(logger, client), nil
	case DriverBolt:
		client, err := GetBoltDBClient(config)
		if err != nil {
			return nil, fmt.Errorf("failed to open boltDB file: %s", err)
		}
		return NewBoltBookStorage(logger, &config.BoltDB, client), nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
}
