// Package config provides configuration management for the marketplace sync service.
//
// It utilizes Viper for loading configuration from environment variables and an
// optional .env file.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Server: HTTP server settings (port, API key, marketplace channel)
//   - Database: driver and connection details (mysql, postgres, sqlite)
//   - Storage: S3/MinIO credentials and the snapshot bucket
//   - Log: Logging level and format
//   - Lock: per-pair sync lock backend (local or redis)
//   - Events: Kafka publisher for sync log events
//   - Marketplace: store API version, access token, timeouts and rate limits
//   - Scheduler: periodic stale-product sync
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
