package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/dualcal/internal/flagx"
	"github.com/dmitrijs2005/dualcal/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations accept
// "90s" strings or integer nanoseconds. Absent keys keep their current value.
type JsonConfig struct {
	EndpointAddrGRPC      string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP      string         `json:"endpoint_addr_http"`
	LogLevel              string         `json:"log_level"`
	RecordBackend         string         `json:"record_backend"`
	ClaimsBackend         string         `json:"claims_backend"`
	DatabaseDSN           string         `json:"database_dsn"`
	MongoURI              string         `json:"mongo_uri"`
	MongoDatabase         string         `json:"mongo_database"`
	RedisAddr             string         `json:"redis_addr"`
	RedisPassword         string         `json:"redis_password"`
	RedisDB               *int           `json:"redis_db"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	BootstrapEmail        string         `json:"bootstrap_email"`
	DefaultTimezone       string         `json:"default_timezone"`
	S3RootUser            string         `json:"s3_root_user"`
	S3RootPassword        string         `json:"s3_root_password"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
	PrayerAPIBaseURL      string         `json:"prayer_api_base_url"`
	PrayerMethod          int            `json:"prayer_method"`
	RateLimitRPS          float64        `json:"rate_limit_rps"`
	RateLimitBurst        int            `json:"rate_limit_burst"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson loads the file named by -c/-config, if any, into config.
// It panics when the file cannot be read or parsed.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.RecordBackend, c.RecordBackend)
	setString(&config.ClaimsBackend, c.ClaimsBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.MongoURI, c.MongoURI)
	setString(&config.MongoDatabase, c.MongoDatabase)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	setString(&config.SecretKey, c.SecretKey)
	if c.TokenValidityDuration.Duration != 0 {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	setString(&config.BootstrapEmail, c.BootstrapEmail)
	setString(&config.DefaultTimezone, c.DefaultTimezone)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.PrayerAPIBaseURL, c.PrayerAPIBaseURL)
	if c.PrayerMethod != 0 {
		config.PrayerMethod = c.PrayerMethod
	}
	if c.RateLimitRPS != 0 {
		config.RateLimitRPS = c.RateLimitRPS
	}
	if c.RateLimitBurst != 0 {
		config.RateLimitBurst = c.RateLimitBurst
	}
}
