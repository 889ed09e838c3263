package backend

import (
	"fmt"

	"lottoledger/internal/config"
	"lottoledger/internal/record"
	remoteredis "lottoledger/internal/remote/redis"
	remotes3 "lottoledger/internal/remote/s3"
	"lottoledger/internal/remote/sheets"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cfg := Config{
		Local:        LocalType(appConfig.LocalBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		StorageKey:   appConfig.StorageKey,
		Codec:        appConfig.StorageCodec,

		Remote: RemoteType(appConfig.RemoteBackend),
		Sheets: sheets.Config{
			SpreadsheetID:   appConfig.GoogleSpreadsheetID,
			SheetName:       appConfig.GoogleSheetName,
			CredentialsJSON: appConfig.GoogleServiceAccountJSON,
			CredentialsFile: appConfig.GoogleServiceAccountFile,
		},
		Redis: remoteredis.Config{
			Addr:     appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
			Key:      appConfig.RedisKey,
		},
		S3: remotes3.Config{
			Bucket:          appConfig.S3Bucket,
			Prefix:          appConfig.S3Prefix,
			Region:          appConfig.S3Region,
			Endpoint:        appConfig.S3Endpoint,
			AccessKeyID:     appConfig.S3AccessKeyID,
			SecretAccessKey: appConfig.S3SecretAccessKey,
			UsePathStyle:    appConfig.S3UsePathStyle,
		},

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}
	if cfg.Remote == "" {
		cfg.Remote = RemoteNone
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings that make a backend impossible to build.
// Incomplete remote settings are not an error: the factory degrades to
// local-only and explains why.
func (c Config) Validate() error {
	if !c.Local.IsValid() {
		return fmt.Errorf("invalid local backend: %s", c.Local)
	}
	if c.Local == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if !c.Remote.IsValid() {
		return fmt.Errorf("invalid remote backend: %s", c.Remote)
	}
	if _, err := record.NewCodec(c.Codec); err != nil {
		return err
	}
	return nil
}
