package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by parseEnv.
const (
	EnvHTTPAddr       = "FINANCAS_HTTP_ADDR"
	EnvHealthAddr     = "FINANCAS_HEALTH_ADDR"
	EnvDatabaseDSN    = "FINANCAS_DATABASE_DSN"
	EnvSecretKey      = "FINANCAS_JWT_SECRET"
	EnvTokenValidity  = "FINANCAS_JWT_EXPIRATION"
	EnvAMQPURL        = "FINANCAS_AMQP_URL"
	EnvAMQPExchange   = "FINANCAS_AMQP_EXCHANGE"
	EnvS3RootUser     = "FINANCAS_S3_USER"
	EnvS3RootPassword = "FINANCAS_S3_PASSWORD"
	EnvS3Bucket       = "FINANCAS_S3_BUCKET"
	EnvS3Region       = "FINANCAS_S3_REGION"
	EnvS3BaseEndpoint = "FINANCAS_S3_ENDPOINT"
	EnvLogLevel       = "FINANCAS_LOG_LEVEL"
)

// parseEnv loads the given .env files into the process environment (values
// already set in the environment win) and copies the FINANCAS_* variables
// into config. Missing files are skipped; unreadable ones panic.
//
// FINANCAS_JWT_EXPIRATION is either a Go duration ("45m") or a plain number
// of minutes ("30").
func parseEnv(config *Config, files ...string) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	setString(&config.HTTPAddr, EnvHTTPAddr)
	setString(&config.HealthAddrGRPC, EnvHealthAddr)
	setString(&config.DatabaseDSN, EnvDatabaseDSN)
	setString(&config.SecretKey, EnvSecretKey)
	setString(&config.AMQPURL, EnvAMQPURL)
	setString(&config.AMQPExchange, EnvAMQPExchange)
	setString(&config.S3RootUser, EnvS3RootUser)
	setString(&config.S3RootPassword, EnvS3RootPassword)
	setString(&config.S3Bucket, EnvS3Bucket)
	setString(&config.S3Region, EnvS3Region)
	setString(&config.S3BaseEndpoint, EnvS3BaseEndpoint)
	setString(&config.LogLevel, EnvLogLevel)

	if v, ok := os.LookupEnv(EnvTokenValidity); ok && v != "" {
		d, err := parseMinutes(v)
		if err != nil {
			panic(err)
		}
		config.TokenValidityDuration = d
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func parseMinutes(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Minute, nil
	}
	return time.ParseDuration(v)
}
