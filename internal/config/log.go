package config

import "strings"

// LogConfig configures the zap logger.  Output is "stdout", "file" or
// "both"; file output rotates through lumberjack.
type LogConfig struct {
	Level      string
	Format     string // json or console
	Output     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	AuditFile  string // booking event audit log written by the consumer
}

func LoadLogConfig() LogConfig {
	return LogConfig{
		Level:      strings.ToLower(envStr("LOG_LEVEL", "info")),
		Format:     strings.ToLower(envStr("LOG_FORMAT", "json")),
		Output:     strings.ToLower(envStr("LOG_OUTPUT", "stdout")),
		File:       envStr("LOG_FILE", "logs/server.log"),
		MaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 100),
		MaxBackups: envInt("LOG_MAX_BACKUPS", 5),
		MaxAgeDays: envInt("LOG_MAX_AGE_DAYS", 30),
		Compress:   envBool("LOG_COMPRESS", true),
		AuditFile:  envStr("AUDIT_LOG_FILE", "logs/booking-audit.log"),
	}
}
