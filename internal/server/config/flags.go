package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dverbin/audiochat/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string                HTTP bind address (e.g., ":8080")
//	-m string                metrics bind address (e.g., ":9090")
//	-d string                PostgreSQL DSN
//	-s string                JWT HMAC secret key
//	-t int                   access token validity, minutes
//	-r int                   refresh token validity, minutes
//	-u/-p/-b/-g/-e string    S3 user / password / bucket / region / endpoint
//	-transcriber-key string  AssemblyAI API key
//	-transcriber-url string  AssemblyAI base URL
//	-poll-interval int       transcription poll interval, milliseconds
//	-poll-timeout int        transcription poll timeout, milliseconds
//	-probe-timeout int       duration probe timeout, seconds
//	-kafka                   enable the Kafka consumer/publisher
//	-kafka-brokers string    comma-separated broker list
//	-kafka-group string      consumer group id
//	-kafka-uploads string    upload-events topic
//	-kafka-transcripts string transcript-events topic
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-m", "-d", "-s", "-t", "-r", "-u", "-p", "-b", "-g", "-e",
		"-transcriber-key", "-transcriber-url",
		"-poll-interval", "-poll-timeout", "-probe-timeout",
		"-kafka", "-kafka-brokers", "-kafka-group", "-kafka-uploads", "-kafka-transcripts",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run the HTTP API")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address and port for the metrics listener")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.TranscriberAPIKey, "transcriber-key", config.TranscriberAPIKey, "transcription API key")
	fs.StringVar(&config.TranscriberEndpoint, "transcriber-url", config.TranscriberEndpoint, "transcription API base URL")

	pollInterval := fs.Int("poll-interval", int(config.TranscribePollInterval.Milliseconds()), "transcription poll interval (in milliseconds)")
	pollTimeout := fs.Int("poll-timeout", int(config.TranscribePollTimeout.Milliseconds()), "transcription poll timeout (in milliseconds)")
	probeTimeout := fs.Int("probe-timeout", int(config.ProbeTimeout.Seconds()), "duration probe timeout (in seconds)")

	fs.BoolVar(&config.KafkaEnabled, "kafka", config.KafkaEnabled, "enable Kafka consumer/publisher")
	kafkaBrokers := fs.String("kafka-brokers", strings.Join(config.KafkaBrokers, ","), "comma-separated Kafka broker list")
	fs.StringVar(&config.KafkaGroupID, "kafka-group", config.KafkaGroupID, "Kafka consumer group id")
	fs.StringVar(&config.KafkaUploadsTopic, "kafka-uploads", config.KafkaUploadsTopic, "upload-events topic")
	fs.StringVar(&config.KafkaTranscriptsTopic, "kafka-transcripts", config.KafkaTranscriptsTopic, "transcript-events topic")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	config.TranscribePollInterval = time.Duration(*pollInterval) * time.Millisecond
	config.TranscribePollTimeout = time.Duration(*pollTimeout) * time.Millisecond
	config.ProbeTimeout = time.Duration(*probeTimeout) * time.Second
	config.KafkaBrokers = strings.Split(*kafkaBrokers, ",")
}
