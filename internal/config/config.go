package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Env         string            `mapstructure:"env"` // 环境: development, production
	Server      ServerConfig      `mapstructure:"server"`
	Backend     BackendConfig     `mapstructure:"backend"`
	Form        FormConfig        `mapstructure:"form"`
	List        ListConfig        `mapstructure:"list"`
	Departments DepartmentsConfig `mapstructure:"departments"`
	Storage     StorageConfig     `mapstructure:"storage"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Mock        MockConfig        `mapstructure:"mock"`
}

// ServerConfig 前端服务配置
type ServerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	ForceHTTPS    bool          `mapstructure:"force_https"`
	SessionName   string        `mapstructure:"session_name"`
	SessionSecret string        `mapstructure:"session_secret"`
	WorkspaceTTL  time.Duration `mapstructure:"workspace_ttl"` // 会话工作区空闲过期时间
}

// BackendConfig 审批后端配置
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FormConfig 动态表单配置
type FormConfig struct {
	MaxImages      int   `mapstructure:"max_images"`
	MaxAttachments int   `mapstructure:"max_attachments"`
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// ListConfig 列表配置
type ListConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// DepartmentsConfig 部门树配置
type DepartmentsConfig struct {
	File string `mapstructure:"file"` // 为空时使用内置部门树
}

// StorageConfig 附件编码配置
type StorageConfig struct {
	Driver string      `mapstructure:"driver"` // datauri, minio
	MinIO  MinIOConfig `mapstructure:"minio"`
}

// MinIOConfig MinIO 配置
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
	PublicURL       string `mapstructure:"public_url"` // 对外访问前缀
}

// RateLimitConfig 提交类请求限流配置
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error
	Format string `mapstructure:"format"` // 日志格式: json, text
	Output string `mapstructure:"output"` // 输出位置: stdout, file, both
}

// DatabaseConfig 模拟后端数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // sqlite, postgres
	Path            string `mapstructure:"path"`   // sqlite 文件路径
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 秒
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 秒
}

// MockConfig 模拟后端配置
type MockConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Seed       bool   `mapstructure:"seed"`        // 空库时写入示例数据
	SchemaFile string `mapstructure:"schema_file"` // 为空时使用默认表单结构
}

// Load 加载配置,支持配置文件和环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.approval-frontend")
		// 配置文件不存在时使用默认值,解析失败仍然报错
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Form.MaxImages <= 0 || c.Form.MaxAttachments <= 0 {
		return fmt.Errorf("form upload limits must be positive")
	}
	if c.List.PageSize <= 0 {
		return fmt.Errorf("list.page_size must be positive")
	}
	switch c.Storage.Driver {
	case "datauri":
	case "minio":
		if c.Storage.MinIO.Endpoint == "" || c.Storage.MinIO.Bucket == "" {
			return fmt.Errorf("storage.minio endpoint and bucket are required")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// IsProduction 判断是否为生产环境
func IsProduction(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.Env == "production"
}

// Default 返回默认配置
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	env := v.GetString("env")
	if env == "" {
		env = os.Getenv("APP_ENV")
		if env == "" {
			env = "development"
		}
	}
	v.SetDefault("env", env)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.force_https", false)
	v.SetDefault("server.session_name", "approval_session")
	v.SetDefault("server.session_secret", "change-me-in-production")
	v.SetDefault("server.workspace_ttl", 2*time.Hour)

	v.SetDefault("backend.base_url", "http://localhost:3000/api")
	v.SetDefault("backend.timeout", 10*time.Second)

	v.SetDefault("form.max_images", 5)
	v.SetDefault("form.max_attachments", 1)
	v.SetDefault("form.max_upload_bytes", 10<<20)

	v.SetDefault("list.page_size", 10)

	v.SetDefault("departments.file", "")

	v.SetDefault("storage.driver", "datauri")
	v.SetDefault("storage.minio.endpoint", "")
	v.SetDefault("storage.minio.access_key_id", "")
	v.SetDefault("storage.minio.secret_access_key", "")
	v.SetDefault("storage.minio.use_ssl", false)
	v.SetDefault("storage.minio.bucket", "approval-attachments")
	v.SetDefault("storage.minio.public_url", "")

	v.SetDefault("rate_limit.rps", 20)
	v.SetDefault("rate_limit.burst", 40)

	if env == "production" {
		v.SetDefault("log.level", "warn")
		v.SetDefault("log.format", "json")
	} else {
		v.SetDefault("log.level", "debug")
		v.SetDefault("log.format", "text")
	}
	v.SetDefault("log.output", "stdout")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "approval-mock.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "approval")
	v.SetDefault("database.sslmode", "disable")
	if env == "production" {
		v.SetDefault("database.max_idle_conns", 20)
		v.SetDefault("database.max_open_conns", 200)
		v.SetDefault("database.conn_max_lifetime", 3600)
		v.SetDefault("database.conn_max_idle_time", 300)
	} else {
		v.SetDefault("database.max_idle_conns", 10)
		v.SetDefault("database.max_open_conns", 100)
		v.SetDefault("database.conn_max_lifetime", 3600)
		v.SetDefault("database.conn_max_idle_time", 600)
	}

	v.SetDefault("mock.host", "0.0.0.0")
	v.SetDefault("mock.port", 3000)
	v.SetDefault("mock.seed", true)
	v.SetDefault("mock.schema_file", "")
}
