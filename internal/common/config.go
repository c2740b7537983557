package common

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	AWS      AWSConfig      `mapstructure:"aws"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Export   ExportConfig   `mapstructure:"export"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	IMAP     IMAPConfig     `mapstructure:"imap"`
	Log      LogConfig      `mapstructure:"log"`
}

// LLMConfig holds text-generation settings. Provider "azure" uses Endpoint,
// APIVersion and Deployment; "openai" uses BaseURL and Model.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	Endpoint    string        `mapstructure:"endpoint"`
	APIVersion  string        `mapstructure:"api_version"`
	Deployment  string        `mapstructure:"deployment"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Seed        int64         `mapstructure:"seed"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts uint          `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

// OCRConfig holds layout-analysis settings. Provider is "textract" or "local".
type OCRConfig struct {
	Provider      string        `mapstructure:"provider"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxAttempts   uint          `mapstructure:"max_attempts"`
	Pdftotext     string        `mapstructure:"pdftotext"`
	Pdftoppm      string        `mapstructure:"pdftoppm"`
	Tesseract     string        `mapstructure:"tesseract"`
	TesseractLang string        `mapstructure:"tesseract_lang"`
	TessdataDir   string        `mapstructure:"tessdata_dir"`
	DPI           int           `mapstructure:"dpi"`
}

// AWSConfig is shared by the Textract analyzer and the S3 uploader.
type AWSConfig struct {
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
}

// PipelineConfig holds orchestrator settings
type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

// StorageConfig controls merging batch PDFs and uploading the result.
type StorageConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	MergeDir string `mapstructure:"merge_dir"`
}

// DatabaseConfig holds report-store settings. Driver is "postgres", "sqlite" or "" (disabled).
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"`
	DSN              string        `mapstructure:"dsn"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// ExportConfig holds the XLSX export target; empty Path disables export.
type ExportConfig struct {
	Path string `mapstructure:"path"`
}

// IngestConfig holds source acquisition settings
type IngestConfig struct {
	Debounce  time.Duration `mapstructure:"debounce"`
	Recursive bool          `mapstructure:"recursive"`
}

// IMAPConfig holds the mailbox polled by the mail command. Attachments of
// the matched message are saved under Dir.
type IMAPConfig struct {
	Server   string        `mapstructure:"server"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	Mailbox  string        `mapstructure:"mailbox"`
	Subject  string        `mapstructure:"subject"`
	Dir      string        `mapstructure:"dir"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// legacyEnv maps config keys to the unprefixed variable names used by existing deployments.
var legacyEnv = map[string]string{
	"llm.api_key":     "AZURE_OPENAI_API_KEY",
	"llm.endpoint":    "AZURE_OPENAI_ENDPOINT",
	"llm.api_version": "AZURE_OPENAI_API_VERSION",
	"llm.deployment":  "AZURE_OPENAI_DEPLOYMENT",
	"aws.access_key":  "AWS_ACCESS_KEY",
	"aws.secret_key":  "AWS_SECRET_KEY",
	"aws.region":      "REGION",
	"database.dsn":    "DB_URL",
	"imap.server":     "IMAP_SERVER",
	"imap.user":       "EMAIL_USER",
	"imap.password":   "EMAIL_PASS",
}

// LoadConfig reads configuration from an optional file at path, then from
// TRADEDOCS_* environment variables, then from the legacy names above.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TRADEDOCS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	for key, env := range legacyEnv {
		// prefixed name wins over the legacy one
		if err := v.BindEnv(key, "TRADEDOCS_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, NewAppError(CodeConfig, "bind env "+env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, NewAppError(CodeConfig, "read config file", err)
		}
	} else {
		v.SetConfigName("tradedocs")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, NewAppError(CodeConfig, "read config file", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, NewAppError(CodeConfig, "decode config", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "azure")
	v.SetDefault("llm.api_version", "2024-06-01")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.seed", 7)
	v.SetDefault("llm.timeout", "90s")
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.retry_delay", "2s")

	v.SetDefault("ocr.provider", "textract")
	v.SetDefault("ocr.timeout", "2m")
	v.SetDefault("ocr.max_attempts", 3)
	v.SetDefault("ocr.pdftotext", "pdftotext")
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.tesseract_lang", "eng")
	v.SetDefault("ocr.tessdata_dir", "")
	v.SetDefault("ocr.dpi", 300)

	v.SetDefault("aws.region", "ap-south-1")
	v.SetDefault("aws.endpoint", "")

	v.SetDefault("pipeline.workers", 1)

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "merged/")
	v.SetDefault("storage.merge_dir", "./tmp/merged")

	v.SetDefault("database.driver", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "30m")
	v.SetDefault("database.max_conn_idle_time", "5m")
	v.SetDefault("database.dial_timeout", "3s")
	v.SetDefault("database.statement_timeout", "0s")

	v.SetDefault("export.path", "")

	v.SetDefault("ingest.debounce", "5s")
	v.SetDefault("ingest.recursive", false)

	v.SetDefault("imap.server", "")
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.subject", "mbd emirates")
	v.SetDefault("imap.dir", "./tmp/mail")
	v.SetDefault("imap.timeout", "30s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("llm.provider", c.LLM.Provider, OneOf("azure", "openai"))
	v.Field("llm.api_key", c.LLM.APIKey, Required)
	if c.LLM.Provider == "azure" {
		v.Field("llm.endpoint", c.LLM.Endpoint, Required)
		v.Field("llm.deployment", c.LLM.Deployment, Required)
	} else {
		v.Field("llm.model", c.LLM.Model, Required)
	}
	v.Field("ocr.provider", c.OCR.Provider, OneOf("textract", "local"))
	v.Field("pipeline.workers", c.Pipeline.Workers, Positive)
	v.Field("database.driver", c.Database.Driver, OneOf("", "postgres", "sqlite"))
	if c.Database.Driver != "" {
		v.Field("database.dsn", c.Database.DSN, Required)
	}
	if c.Storage.Enabled {
		v.Field("storage.bucket", c.Storage.Bucket, Required)
		v.Field("aws.region", c.AWS.Region, Required)
	}
	v.Field("log.format", c.Log.Format, OneOf("json", "text"))
	return v.Err()
}

// ValidateIMAP checks the settings the mail command needs on top of Validate.
func (c *Config) ValidateIMAP() error {
	v := NewValidator()
	v.Field("imap.server", c.IMAP.Server, Required)
	v.Field("imap.user", c.IMAP.User, Required)
	v.Field("imap.password", c.IMAP.Password, Required)
	v.Field("imap.mailbox", c.IMAP.Mailbox, Required)
	v.Field("imap.dir", c.IMAP.Dir, Required)
	return v.Err()
}

// ModelName returns the model or deployment name sent with each request.
func (c LLMConfig) ModelName() string {
	if c.Provider == "azure" && c.Deployment != "" {
		return c.Deployment
	}
	return c.Model
}
