package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	MySQL     MySQLConfig
	RateLimit RateLimitConfig
	Groq      GroqConfig
	Pexels    PexelsConfig
	Music     MusicConfig
	R2        R2Config
	Render    RenderConfig
	Upload    UploadConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MySQLConfig struct {
	DSN string
}

type RateLimitConfig struct {
	ProjectsPerHour int
	RenderPerHour   int
	FootagePerMin   int
}

type GroqConfig struct {
	APIKey         string
	BaseURL        string
	WhisperModel   string
	TimeoutSeconds int
}

type PexelsConfig struct {
	APIKey         string
	BaseURL        string
	PerPage        int
	CacheTTLMin    int
	TimeoutSeconds int
}

type MusicConfig struct {
	APIKey         string
	BaseURL        string
	MaxTracks      int
	TimeoutSeconds int
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type RenderConfig struct {
	FFmpegPath    string
	WorkDir       string
	OutputDir     string
	StaleAfterMin int
	Concurrency   int
}

type UploadConfig struct {
	Dir       string
	MaxSizeMB int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("MYSQL_DSN")
	readSecret("GROQ_API_KEY")
	readSecret("PEXELS_API_KEY")
	readSecret("MUSIC_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("mysql.dsn", "MYSQL_DSN")
	_ = viper.BindEnv("groq.api_key", "GROQ_API_KEY")
	_ = viper.BindEnv("groq.base_url", "GROQ_BASE_URL")
	_ = viper.BindEnv("groq.whisper_model", "GROQ_WHISPER_MODEL")
	_ = viper.BindEnv("pexels.api_key", "PEXELS_API_KEY")
	_ = viper.BindEnv("pexels.base_url", "PEXELS_BASE_URL")
	_ = viper.BindEnv("music.api_key", "MUSIC_API_KEY")
	_ = viper.BindEnv("music.base_url", "MUSIC_BASE_URL")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("render.ffmpeg_path", "FFMPEG_PATH")
	_ = viper.BindEnv("render.work_dir", "RENDER_WORK_DIR")
	_ = viper.BindEnv("render.output_dir", "RENDER_OUTPUT_DIR")
	_ = viper.BindEnv("upload.dir", "UPLOAD_DIR")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("mysql.dsn", "voxreel:voxreel@tcp(localhost:3306)/voxreel?charset=utf8mb4&parseTime=True&loc=Local")
	viper.SetDefault("ratelimit.projects_per_hour", 20)
	viper.SetDefault("ratelimit.render_per_hour", 10)
	viper.SetDefault("ratelimit.footage_per_min", 60)

	// Groq defaults (Whisper transcription)
	viper.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("groq.whisper_model", "whisper-large-v3")
	viper.SetDefault("groq.timeout_seconds", 60)

	// Pexels defaults (footage search)
	viper.SetDefault("pexels.base_url", "https://api.pexels.com/videos")
	viper.SetDefault("pexels.per_page", 5)
	viper.SetDefault("pexels.cache_ttl_min", 15)
	viper.SetDefault("pexels.timeout_seconds", 20)

	// Music provider defaults
	viper.SetDefault("music.base_url", "https://freesound.org/apiv2")
	viper.SetDefault("music.max_tracks", 5)
	viper.SetDefault("music.timeout_seconds", 20)

	// Render defaults
	viper.SetDefault("render.ffmpeg_path", "ffmpeg")
	viper.SetDefault("render.work_dir", "./data/render")
	viper.SetDefault("render.output_dir", "./data/videos")
	viper.SetDefault("render.stale_after_min", 30)
	viper.SetDefault("render.concurrency", 2)

	// Upload defaults
	viper.SetDefault("upload.dir", "./data/uploads")
	viper.SetDefault("upload.max_size_mb", 50)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		MySQL: MySQLConfig{
			DSN: viper.GetString("mysql.dsn"),
		},
		RateLimit: RateLimitConfig{
			ProjectsPerHour: viper.GetInt("ratelimit.projects_per_hour"),
			RenderPerHour:   viper.GetInt("ratelimit.render_per_hour"),
			FootagePerMin:   viper.GetInt("ratelimit.footage_per_min"),
		},
		Groq: GroqConfig{
			APIKey:         viper.GetString("groq.api_key"),
			BaseURL:        viper.GetString("groq.base_url"),
			WhisperModel:   viper.GetString("groq.whisper_model"),
			TimeoutSeconds: viper.GetInt("groq.timeout_seconds"),
		},
		Pexels: PexelsConfig{
			APIKey:         viper.GetString("pexels.api_key"),
			BaseURL:        viper.GetString("pexels.base_url"),
			PerPage:        viper.GetInt("pexels.per_page"),
			CacheTTLMin:    viper.GetInt("pexels.cache_ttl_min"),
			TimeoutSeconds: viper.GetInt("pexels.timeout_seconds"),
		},
		Music: MusicConfig{
			APIKey:         viper.GetString("music.api_key"),
			BaseURL:        viper.GetString("music.base_url"),
			MaxTracks:      viper.GetInt("music.max_tracks"),
			TimeoutSeconds: viper.GetInt("music.timeout_seconds"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Render: RenderConfig{
			FFmpegPath:    viper.GetString("render.ffmpeg_path"),
			WorkDir:       viper.GetString("render.work_dir"),
			OutputDir:     viper.GetString("render.output_dir"),
			StaleAfterMin: viper.GetInt("render.stale_after_min"),
			Concurrency:   viper.GetInt("render.concurrency"),
		},
		Upload: UploadConfig{
			Dir:       viper.GetString("upload.dir"),
			MaxSizeMB: viper.GetInt("upload.max_size_mb"),
		},
	}

	return cfg, nil
}
