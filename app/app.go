package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"filebrowser/internal/api"
	"filebrowser/internal/cache"
	"filebrowser/internal/config"
	"filebrowser/internal/log"
	"filebrowser/internal/service"

	"filebrowser/pkg/browser"
	"filebrowser/pkg/storage"

	"github.com/urfave/cli"
	"github.com/valyala/fasthttp"
)

const Name = "filebrowser"

func Run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if cfg.DevMode {
		level = "debug"
	}
	if err := log.Init(cfg.Log, level); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Close()

	store, err := storage.CreateByLabel(cfg.Storage.Type, storage.Options{
		Root:     cfg.Storage.Path,
		MediaURL: cfg.MediaURL,
		Config:   cfg.Storage.Config,
	})
	if err != nil {
		return err
	}

	settings, err := browser.NewSettings(cfg.Browser, cfg.MediaURL)
	if err != nil {
		return err
	}

	// 上传根目录不存在时浏览会直接报错，启动时先建好
	if err := store.MakeDirs(context.Background(), settings.SiteDirectory("")); err != nil {
		return fmt.Errorf("create upload folder: %w", err)
	}

	b := browser.New(store, settings)
	b.Observe(browser.LoggingObserver{})

	var listings cache.Cache
	if cfg.Cache.Enabled {
		listings = cache.NewMemoryCache(cfg.Cache.MaxSize)
	}
	browserService := service.NewBrowserService(b, listings, config.Duration(cfg.Cache.TTL, 30*time.Second))
	defer browserService.Close()

	// 初始化处理器
	r := api.NewAPI(browserService, cfg)

	server := &fasthttp.Server{
		Name:               Name,
		Handler:            api.SetupRouter(r),
		MaxRequestBodySize: cfg.Limits.MaxRequestBodySize,
		ReadTimeout:        config.Duration(cfg.Limits.ReadTimeout, 60*time.Second),
		WriteTimeout:       config.Duration(cfg.Limits.WriteTimeout, 60*time.Second),
	}

	log.Logger.Infof("Server starting on %s (storage %s, upload folder %s)", cfg.Listen, cfg.Storage.Type, settings.SiteDirectory(""))
	return server.ListenAndServe(cfg.Listen)
}

// loadConfig 未显式指定时允许默认配置文件不存在，命令行参数覆盖文件中的值
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if errors.Is(err, fs.ErrNotExist) && !c.IsSet("config") {
		cfg, err = config.LoadConfig("")
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if c.IsSet("listen") {
		cfg.Listen = c.String("listen")
	}
	if c.IsSet("storage") {
		cfg.Storage.Type = c.String("storage")
	}
	if c.IsSet("root") {
		cfg.Storage.Path = c.String("root")
	}
	if c.IsSet("media-url") {
		cfg.MediaURL = c.String("media-url")
	}
	if c.Bool("debug") {
		cfg.DevMode = true
	}
	if v := os.Getenv("FILEBROWSER_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
