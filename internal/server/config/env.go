package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "GOPHAUTH_"

// envFileVar overrides the default ".env" location.
const envFileVar = envPrefix + "ENV_FILE"

// withDotEnv layers values from a .env file under the real environment.
// A missing file is not an error.
func withDotEnv(lookup func(string) (string, bool)) (func(string) (string, bool), error) {
	path := ".env"
	if v, ok := lookup(envFileVar); ok && v != "" {
		path = v
	}

	vals, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return lookup, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := vals[key]
		return v, ok
	}, nil
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) str(name string, dst *string) {
	if v, ok := r.lookup(envPrefix + name); ok {
		*dst = v
	}
}

func (r *envReader) integer(name string, dst *int) {
	v, ok := r.lookup(envPrefix + name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
		return
	}
	*dst = n
}

func (r *envReader) boolean(name string, dst *bool) {
	v, ok := r.lookup(envPrefix + name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
		return
	}
	*dst = b
}

func (r *envReader) duration(name string, dst *time.Duration) {
	v, ok := r.lookup(envPrefix + name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
		return
	}
	*dst = d
}

// parseEnv overlays GOPHAUTH_* variables onto c.
func parseEnv(c *Config, lookup func(string) (string, bool)) error {
	r := &envReader{lookup: lookup}

	r.str("HTTP_ADDR", &c.HTTPAddr)
	r.str("HEALTH_ADDR_GRPC", &c.HealthAddrGRPC)
	r.str("API_VERSION", &c.APIVersion)
	r.str("DATABASE_DSN", &c.DatabaseDSN)
	r.str("SECRET_KEY", &c.SecretKey)
	r.duration("ACCESS_TOKEN_VALIDITY", &c.AccessTokenValidityDuration)
	r.duration("REFRESH_TOKEN_VALIDITY", &c.RefreshTokenValidityDuration)
	r.duration("ACCOUNT_TOKEN_VALIDITY", &c.AccountTokenValidityDuration)
	r.integer("MIN_PASSWORD_LENGTH", &c.MinPasswordLength)
	r.str("PUBLIC_BASE_URL", &c.PublicBaseURL)
	r.str("PASSWORD_RESET_URL", &c.PasswordResetURL)
	r.str("NOTIFIER", &c.Notifier)
	r.str("MAIL_FROM", &c.MailFrom)
	r.str("MAIL_FROM_NAME", &c.MailFromName)
	r.str("SENDGRID_API_KEY", &c.SendGridAPIKey)
	r.str("NATS_URL", &c.NATSURL)
	r.str("NATS_SUBJECT_PREFIX", &c.NATSSubjectPrefix)
	r.integer("NOTIFY_WORKERS", &c.NotifyWorkers)
	r.integer("NOTIFY_QUEUE_SIZE", &c.NotifyQueueSize)
	r.integer("NOTIFY_MAX_RETRIES", &c.NotifyMaxRetries)
	r.duration("NOTIFY_RETRY_BASE", &c.NotifyRetryBase)
	r.duration("NOTIFY_RETRY_CAP", &c.NotifyRetryCap)
	r.str("RATE_LIMIT_STORE", &c.RateLimitStore)
	r.integer("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	r.integer("RATE_LIMIT_BURST", &c.RateLimitBurst)
	r.str("REDIS_URL", &c.RedisURL)
	r.boolean("MASK_UNKNOWN_RESET_EMAIL", &c.MaskUnknownResetEmail)
	r.boolean("AVATARS_ENABLED", &c.AvatarsEnabled)
	r.str("S3_ROOT_USER", &c.S3RootUser)
	r.str("S3_ROOT_PASSWORD", &c.S3RootPassword)
	r.str("S3_BUCKET", &c.S3Bucket)
	r.str("S3_REGION", &c.S3Region)
	r.str("S3_BASE_ENDPOINT", &c.S3BaseEndpoint)
	r.str("LOG_LEVEL", &c.LogLevel)
	r.str("LOG_FORMAT", &c.LogFormat)
	r.duration("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)

	return errors.Join(r.errs...)
}
