package config

import (
	"flag"
	"time"

	"github.com/daianaegermichels/financas/internal/flagx"
)

// parseFlags populates config from the short command-line flags:
//
//	-a string   HTTP bind address (e.g. ":8080")
//	-m string   gRPC health bind address
//	-d string   PostgreSQL DSN
//	-s string   JWT secret key
//	-t int      token validity, minutes
//	-q string   AMQP URL
//	-x string   AMQP exchange
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-l string   log level
//
// Arguments that belong to other flag sets (-c/-config) are filtered out
// first. Invalid values panic.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-m", "-d", "-s", "-t", "-q", "-x", "-u", "-p", "-b", "-g", "-e", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port of the HTTP API")
	fs.StringVar(&config.HealthAddrGRPC, "m", config.HealthAddrGRPC, "address and port of the gRPC health service")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT secret key")

	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity (in minutes)")

	fs.StringVar(&config.AMQPURL, "q", config.AMQPURL, "AMQP URL, empty disables events")
	fs.StringVar(&config.AMQPExchange, "x", config.AMQPExchange, "AMQP exchange")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
}
