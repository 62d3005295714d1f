// Package config provides configuration management for the accounts monitor.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file (via godotenv).
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings,
// divided into subsections:
//   - Server: HTTP server settings (port, API key)
//   - Database: MySQL/sqlite connection details
//   - Storage: S3/MinIO credentials and bucket settings
//   - Log: Logging level and format
//
// Defaults come from `default` struct tags, resolved reflectively so every
// key is registered with Viper before AutomaticEnv kicks in.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
