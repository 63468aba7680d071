// Package app 是整个应用程序的依赖容器，按 viper 配置组装各层
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"treevault/pkg/config"
	"treevault/pkg/index"
	"treevault/pkg/meta"
	"treevault/pkg/odb"
	"treevault/pkg/refs"
	"treevault/pkg/storage"
	"treevault/pkg/storage/cache"
	"treevault/pkg/storage/disk"
	"treevault/pkg/storage/memory"
	"treevault/pkg/storage/metrics"
	"treevault/pkg/storage/s3"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
)

// App 持有所有"单例"服务
type App struct {
	Store    storage.Store // 已经套上缓存和指标装饰器
	Repo     *odb.Repository
	Meta     *meta.DB
	Refs     *refs.Manager
	Index    *index.Index
	Registry *prometheus.Registry
	Logger   *slog.Logger

	RepoPath string // .tv 目录
	WorkDir  string // 工作区根目录 (.tv 的父目录)

	closers []io.Closer
}

// NewApp 组装存储、元数据库、引用和暂存区
func NewApp(ctx context.Context) (*App, error) {
	logger, err := config.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}

	// 1. 仓库根路径 (Single Source of Truth)
	// storage.path: .../.tv/objects, repoPath: .../.tv
	storePath := viper.GetString("storage.path")
	if storePath == "" {
		return nil, fmt.Errorf("storage path not set")
	}
	repoPath := filepath.Dir(storePath)

	a := &App{
		Registry: prometheus.NewRegistry(),
		Logger:   logger,
		RepoPath: repoPath,
		WorkDir:  filepath.Dir(repoPath),
	}

	// 2. 存储层: 后端 -> Redis 缓存 (可选) -> 指标
	store, err := initStore(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	if url := viper.GetString("cache.redis_url"); url != "" {
		cached, err := cache.NewCachedStore(ctx, store, cache.Config{
			RedisURL: url,
			TTL:      viper.GetDuration("cache.ttl"),
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init redis cache: %w", err)
		}
		a.closers = append(a.closers, cached)
		store = cached
	}
	a.Store = metrics.Wrap(store, metrics.NewCollector(a.Registry))

	// 3. 元数据库与引用
	a.Meta, err = meta.NewDB(ctx, dbConfig())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to init meta db: %w", err)
	}
	a.closers = append(a.closers, a.Meta)
	metaRepo := meta.NewRepository(a.Meta)
	a.Refs = refs.NewManager(metaRepo, a.Store)

	a.Repo = odb.New(a.Store,
		odb.WithRefs(a.Refs),
		odb.WithMeta(metaRepo),
		odb.WithLogger(logger),
	)

	// 4. 暂存区
	a.Index, err = index.NewIndex(filepath.Join(repoPath, "index"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load index: %w", err)
	}

	return a, nil
}

// Close 释放数据库连接和 Redis 客户端
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// initStore 按 storage.type 创建后端
func initStore(ctx context.Context, repoPath string) (storage.Store, error) {
	switch t := viper.GetString("storage.type"); t {
	case "disk", "":
		path := viper.GetString("storage.path")
		if path == "" {
			path = filepath.Join(repoPath, "objects")
		}
		comp := disk.Compression(viper.GetString("storage.compression"))
		if comp == "" {
			comp = disk.CompressionNone
		}
		return disk.NewAdapter(path, disk.WithCompression(comp))

	case "memory":
		return memory.NewAdapter(), nil

	case "s3":
		store, err := s3.NewAdapter(ctx, s3.Config{
			Endpoint:        viper.GetString("s3.endpoint"),
			Region:          viper.GetString("s3.region"),
			Bucket:          viper.GetString("s3.bucket"),
			Prefix:          viper.GetString("s3.prefix"),
			AccessKeyID:     viper.GetString("s3.access_key"),
			SecretAccessKey: viper.GetString("s3.secret_key"),
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", t)
	}
}

func dbConfig() meta.Config {
	return meta.Config{
		Driver:   meta.Driver(viper.GetString("database.driver")),
		Path:     viper.GetString("database.path"),
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		DBName:   viper.GetString("database.dbname"),
		SSLMode:  viper.GetString("database.sslmode"),
		Verbose:  viper.GetString("log.level") == "debug",
	}
}
