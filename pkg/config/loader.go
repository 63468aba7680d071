package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
func Load(cfgFile string) error {
	// 1. 设置默认值 (Defaults)
	setDefaults()

	// 2. 配置搜索路径
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		// 搜索顺序：当前目录 -> ./.tv -> ~/.tv
		viper.AddConfigPath(".")
		viper.AddConfigPath(".tv")
		viper.AddConfigPath(filepath.Join(home, ".tv"))

		viper.SetConfigType("yaml")
		viper.SetConfigName("config") // 找 config.yaml
	}

	// 3. 读取环境变量 (TV_DATABASE_HOST 等)
	viper.SetEnvPrefix("TV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 4. 读取配置文件。没找到不算错，格式错才算
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("fatal error config file: %w", err)
		}
		slog.Debug("no config file found, using defaults/env vars")
	} else {
		slog.Debug("using config file", "path", viper.ConfigFileUsed())
	}

	return nil
}

func setDefaults() {
	// 存储
	wd, _ := os.Getwd()
	viper.SetDefault("storage.type", "disk")
	viper.SetDefault("storage.path", filepath.Join(wd, ".tv", "objects"))
	viper.SetDefault("storage.compression", "none")

	// S3 / MinIO
	viper.SetDefault("s3.region", "us-east-1")

	// Redis 缓存，redis_url 为空时关闭
	viper.SetDefault("cache.ttl", "24h")

	// 元数据库
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", filepath.Join(wd, ".tv", "meta.db"))
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("user.name", "treevault")
}

// NewLogger 按 log.level / log.format 构造 slog.Logger
func NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log.level"))); err != nil {
		return nil, fmt.Errorf("invalid log.level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch format := viper.GetString("log.format"); format {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log.format %q", format)
	}
}
