package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/validation-portal/portal-client/internal/logger"
	"github.com/validation-portal/portal-client/internal/validator"
)

type EndpointConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout"  validate:"gte=0"`
}

type RedisSessionConfig struct {
	Addr     string `mapstructure:"addr"     validate:"required"`
	Password string `mapstructure:"password"`
	Prefix   string `mapstructure:"prefix"`
	DB       int    `mapstructure:"db"       validate:"gte=0"`
}

type SessionConfig struct {
	Backend string             `mapstructure:"backend" validate:"required,oneof=file redis"`
	File    string             `mapstructure:"file"    validate:"required_if=Backend file"`
	Redis   RedisSessionConfig `mapstructure:"redis"`
}

type DownloadConfig struct {
	Dir             string `mapstructure:"dir"              validate:"required"`
	DefaultFilename string `mapstructure:"default_filename" validate:"required"`
}

type MinioArchiveConfig struct {
	Endpoint        string `mapstructure:"endpoint"          validate:"required"`
	AccessKeyID     string `mapstructure:"access_key_id"     validate:"required"`
	SecretAccessKey string `mapstructure:"secret_access_key" validate:"required"`
	BucketName      string `mapstructure:"bucket_name"       validate:"required"`
	SSLEnabled      bool   `mapstructure:"ssl_enabled"`
}

type AzureArchiveConfig struct {
	AccountName string `mapstructure:"account_name" validate:"required"`
	AccountKey  string `mapstructure:"account_key"  validate:"required"`
	ServiceURL  string `mapstructure:"service_url"  validate:"required,url"`
	Container   string `mapstructure:"container"    validate:"required"`
}

// Backend sections are only validated when archiving is enabled
type ArchiveConfig struct {
	Minio      MinioArchiveConfig `mapstructure:"minio"       validate:"-"`
	Azure      AzureArchiveConfig `mapstructure:"azure"       validate:"-"`
	Backend    string             `mapstructure:"backend"     validate:"required,oneof=minio azure"`
	PresignTTL time.Duration      `mapstructure:"presign_ttl" validate:"gte=0"`
	Enabled    bool               `mapstructure:"enabled"`
}

type SlogConfig struct {
	Level int `mapstructure:"level"`
}

type LoggingConfig struct {
	App     SlogConfig `mapstructure:"app"`
	UseOTLP bool       `mapstructure:"use_otlp"`
	Audit   bool       `mapstructure:"audit"`
}

type APIConfig struct {
	RetryMax int `mapstructure:"retry_max" validate:"gte=0"`
}

// See portal.yaml for an example config
type Config struct {
	Endpoint *EndpointConfig `mapstructure:"endpoint" validate:"required"`
	Session  *SessionConfig  `mapstructure:"session"  validate:"required"`
	Download *DownloadConfig `mapstructure:"download" validate:"required"`
	Archive  *ArchiveConfig  `mapstructure:"archive"  validate:"required"`
	Logging  *LoggingConfig  `mapstructure:"logging"  validate:"required"`
	API      *APIConfig      `mapstructure:"api"      validate:"required"`
	Operator string          `mapstructure:"operator"`
}

const (
	APIRetryMax               string = "api.retry_max"
	AppLogLevel               string = "logging.app.level"
	ArchiveAzureAccountKey    string = "archive.azure.account_key" // #nosec
	ArchiveAzureAccountName   string = "archive.azure.account_name"
	ArchiveAzureContainer     string = "archive.azure.container"
	ArchiveAzureServiceURL    string = "archive.azure.service_url"
	ArchiveBackend            string = "archive.backend"
	ArchiveEnabled            string = "archive.enabled"
	ArchiveMinioAccessKeyID   string = "archive.minio.access_key_id"
	ArchiveMinioBucketName    string = "archive.minio.bucket_name"
	ArchiveMinioEndpoint      string = "archive.minio.endpoint"
	ArchiveMinioSecretKey     string = "archive.minio.secret_access_key" // #nosec
	ArchiveMinioSSLEnabled    string = "archive.minio.ssl_enabled"
	ArchivePresignTTL         string = "archive.presign_ttl"
	AuditEnabled              string = "logging.audit"
	DownloadDefaultFilename   string = "download.default_filename"
	DownloadDir               string = "download.dir"
	EndpointBaseURL           string = "endpoint.base_url"
	EndpointTimeout           string = "endpoint.timeout"
	EnvPrefix                 string = "validationportal"
	Operator                  string = "operator"
	SessionBackend            string = "session.backend"
	SessionFile               string = "session.file"
	SessionRedisAddr          string = "session.redis.addr"
	SessionRedisDB            string = "session.redis.db"
	SessionRedisPassword      string = "session.redis.password" // #nosec
	SessionRedisPrefix        string = "session.redis.prefix"
	UseOTLP                   string = "logging.use_otlp"
	defaultValidationFilename string = "Validation_Report.pdf"
)

func userDir(sub string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return sub
	}
	return filepath.Join(home, sub)
}

// New prepares a viper instance with search paths, env binding and
// defaults. Flags may be bound on it before Load. An empty `configFile`
// searches the standard locations.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("portal")
		v.AddConfigPath("/etc/validation-portal/")
		v.AddConfigPath(userDir(filepath.Join(".config", "validation-portal")))
		v.AddConfigPath(".")
	}

	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.AutomaticEnv()

	// workaround for https://github.com/spf13/viper/issues/761
	// keys without a default must be bound to unmarshal from env
	for _, key := range []string{
		EndpointBaseURL,
		Operator,
		SessionRedisPassword,
		ArchiveMinioEndpoint,
		ArchiveMinioAccessKeyID,
		ArchiveMinioSecretKey,
		ArchiveMinioBucketName,
		ArchiveAzureAccountName,
		ArchiveAzureAccountKey,
		ArchiveAzureServiceURL,
		ArchiveAzureContainer,
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	v.SetDefault(EndpointTimeout, time.Duration(0))
	v.SetDefault(SessionBackend, "file")
	v.SetDefault(SessionFile, userDir(filepath.Join(".config", "validation-portal", "session.yaml")))
	v.SetDefault(SessionRedisAddr, "localhost:6379")
	v.SetDefault(SessionRedisDB, 0)
	v.SetDefault(SessionRedisPrefix, "validation-portal:")
	v.SetDefault(DownloadDir, ".")
	v.SetDefault(DownloadDefaultFilename, defaultValidationFilename)
	v.SetDefault(ArchiveEnabled, false)
	v.SetDefault(ArchiveBackend, "minio")
	v.SetDefault(ArchiveMinioSSLEnabled, true)
	v.SetDefault(ArchivePresignTTL, time.Duration(0))
	v.SetDefault(AppLogLevel, int(slog.LevelInfo))
	v.SetDefault(UseOTLP, false)
	v.SetDefault(AuditEnabled, true)
	v.SetDefault(APIRetryMax, 3)

	return v, nil
}

// Load reads the config file if any, then unmarshals and validates
func Load(v *viper.Viper) (*Config, error) {
	logger.Logger.Debug("loading config")

	err := v.ReadInConfig()
	if err != nil {
		// ignore config file not found to allow pure env config
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	err = v.Unmarshal(&config)
	if err != nil {
		return nil, err
	}

	valid := validator.Create()
	err = valid.Validate(&config)
	if err != nil {
		return nil, err
	}

	if config.Archive.Enabled {
		switch config.Archive.Backend {
		case "minio":
			err = valid.Validate(&config.Archive.Minio)
		case "azure":
			err = valid.Validate(&config.Archive.Azure)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid %s archive config: %w", config.Archive.Backend, err)
		}
	}

	return &config, nil
}

// GetConfig loads from `configFile`, or the standard locations when empty
func GetConfig(configFile string) (*Config, error) {
	v, err := New(configFile)
	if err != nil {
		return nil, err
	}
	return Load(v)
}

func (c *Config) endpoint(path string) (string, error) {
	u, err := url.JoinPath(c.Endpoint.BaseURL, path)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	// the service routes all end in a slash
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u, nil
}

func (c *Config) ValidateURL() (string, error) {
	return c.endpoint("validate")
}

func (c *Config) TokenURL() (string, error) {
	return c.endpoint("token")
}

func (c *Config) TokenRefreshURL() (string, error) {
	return c.endpoint("token/refresh")
}

func (c *Config) ReportsURL() (string, error) {
	return c.endpoint("reports/self")
}

// Report id is appended per request
func (c *Config) DeleteReportURL() (string, error) {
	return c.endpoint("delete-report")
}

func (c *Config) ResetCredentialsURL() (string, error) {
	return c.endpoint("reset-cred")
}
