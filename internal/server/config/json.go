package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept "15m" style strings or integer nanoseconds. Absent fields leave the
// current value untouched.
type JsonConfig struct {
	HTTPAddr                     string         `json:"http_addr"`
	HealthAddrGRPC               string         `json:"health_addr_grpc"`
	APIVersion                   string         `json:"api_version"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	AccountTokenValidityDuration timex.Duration `json:"account_token_validity_duration"`
	MinPasswordLength            int            `json:"min_password_length"`
	PublicBaseURL                string         `json:"public_base_url"`
	PasswordResetURL             string         `json:"password_reset_url"`
	Notifier                     string         `json:"notifier"`
	MailFrom                     string         `json:"mail_from"`
	MailFromName                 string         `json:"mail_from_name"`
	SendGridAPIKey               string         `json:"sendgrid_api_key"`
	NATSURL                      string         `json:"nats_url"`
	NATSSubjectPrefix            string         `json:"nats_subject_prefix"`
	NotifyWorkers                int            `json:"notify_workers"`
	NotifyQueueSize              int            `json:"notify_queue_size"`
	NotifyMaxRetries             int            `json:"notify_max_retries"`
	NotifyRetryBase              timex.Duration `json:"notify_retry_base"`
	NotifyRetryCap               timex.Duration `json:"notify_retry_cap"`
	RateLimitStore               string         `json:"rate_limit_store"`
	RateLimitPerMinute           int            `json:"rate_limit_per_minute"`
	RateLimitBurst               int            `json:"rate_limit_burst"`
	RedisURL                     string         `json:"redis_url"`
	MaskUnknownResetEmail        *bool          `json:"mask_unknown_reset_email"`
	AvatarsEnabled               *bool          `json:"avatars_enabled"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	LogLevel                     string         `json:"log_level"`
	LogFormat                    string         `json:"log_format"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays the file named by -c/-config (if any) onto config.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("decoding config file %s: %w", path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.HealthAddrGRPC, c.HealthAddrGRPC)
	setString(&config.APIVersion, c.APIVersion)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.AccountTokenValidityDuration, c.AccountTokenValidityDuration)
	setInt(&config.MinPasswordLength, c.MinPasswordLength)
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.PasswordResetURL, c.PasswordResetURL)
	setString(&config.Notifier, c.Notifier)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.MailFromName, c.MailFromName)
	setString(&config.SendGridAPIKey, c.SendGridAPIKey)
	setString(&config.NATSURL, c.NATSURL)
	setString(&config.NATSSubjectPrefix, c.NATSSubjectPrefix)
	setInt(&config.NotifyWorkers, c.NotifyWorkers)
	setInt(&config.NotifyQueueSize, c.NotifyQueueSize)
	setInt(&config.NotifyMaxRetries, c.NotifyMaxRetries)
	setDuration(&config.NotifyRetryBase, c.NotifyRetryBase)
	setDuration(&config.NotifyRetryCap, c.NotifyRetryCap)
	setString(&config.RateLimitStore, c.RateLimitStore)
	setInt(&config.RateLimitPerMinute, c.RateLimitPerMinute)
	setInt(&config.RateLimitBurst, c.RateLimitBurst)
	setString(&config.RedisURL, c.RedisURL)
	if c.MaskUnknownResetEmail != nil {
		config.MaskUnknownResetEmail = *c.MaskUnknownResetEmail
	}
	if c.AvatarsEnabled != nil {
		config.AvatarsEnabled = *c.AvatarsEnabled
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
