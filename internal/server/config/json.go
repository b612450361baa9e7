package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dverbin/audiochat/internal/flagx"
	"github.com/dverbin/audiochat/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	MetricsAddr                  string         `json:"metrics_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	TranscriberAPIKey            string         `json:"transcriber_api_key"`
	TranscriberEndpoint          string         `json:"transcriber_endpoint"`
	TranscribePollInterval       timex.Duration `json:"transcribe_poll_interval"`
	TranscribePollTimeout        timex.Duration `json:"transcribe_poll_timeout"`
	ProbeTimeout                 timex.Duration `json:"probe_timeout"`
	KafkaEnabled                 bool           `json:"kafka_enabled"`
	KafkaBrokers                 []string       `json:"kafka_brokers"`
	KafkaGroupID                 string         `json:"kafka_group_id"`
	KafkaUploadsTopic            string         `json:"kafka_uploads_topic"`
	KafkaTranscriptsTopic        string         `json:"kafka_transcripts_topic"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path is taken from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics. The caller is expected to merge
// these values with defaults and command-line flags as part of the full
// configuration process.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.MetricsAddr = c.MetricsAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.TranscriberAPIKey = c.TranscriberAPIKey
	config.TranscriberEndpoint = c.TranscriberEndpoint
	config.TranscribePollInterval = time.Duration(c.TranscribePollInterval.Duration)
	config.TranscribePollTimeout = time.Duration(c.TranscribePollTimeout.Duration)
	config.ProbeTimeout = time.Duration(c.ProbeTimeout.Duration)
	config.KafkaEnabled = c.KafkaEnabled
	config.KafkaBrokers = c.KafkaBrokers
	config.KafkaGroupID = c.KafkaGroupID
	config.KafkaUploadsTopic = c.KafkaUploadsTopic
	config.KafkaTranscriptsTopic = c.KafkaTranscriptsTopic
}
