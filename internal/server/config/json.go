package config

import (
	"encoding/json"
	"os"

	"github.com/daianaegermichels/financas/internal/flagx"
	"github.com/daianaegermichels/financas/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON configuration file. Durations
// accept "30m" style strings or integer nanoseconds.
type JsonConfig struct {
	HTTPAddr              string         `json:"http_addr"`
	HealthAddrGRPC        string         `json:"health_addr_grpc"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	AMQPURL               string         `json:"amqp_url"`
	AMQPExchange          string         `json:"amqp_exchange"`
	S3RootUser            string         `json:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
	LogLevel              string         `json:"log_level"`
}

// parseJson overlays config with the JSON file named by -c/-config in args.
// Keys absent from the file leave the current values untouched. Without the
// flag nothing happens; an unreadable or malformed file panics.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFile(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay(&config.HTTPAddr, c.HTTPAddr)
	overlay(&config.HealthAddrGRPC, c.HealthAddrGRPC)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.SecretKey, c.SecretKey)
	overlay(&config.AMQPURL, c.AMQPURL)
	overlay(&config.AMQPExchange, c.AMQPExchange)
	overlay(&config.S3RootUser, c.S3RootUser)
	overlay(&config.S3RootPassword, c.S3RootPassword)
	overlay(&config.S3Bucket, c.S3Bucket)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&config.LogLevel, c.LogLevel)

	if c.TokenValidityDuration.Duration != 0 {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
