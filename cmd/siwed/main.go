package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"example.com/siwegate/internal/common"
	"example.com/siwegate/internal/server"
)

type logConfig struct {
	Directory  string `yaml:"directory"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
	Level      string `yaml:"level"`
	Console    bool   `yaml:"console"`
}

type rateConfig struct {
	PerSecond float64 `yaml:"perSecond"`
	Burst     int     `yaml:"burst"`
}

type profileConfig struct {
	Profile string `yaml:"profile"`
	Path    string `yaml:"path"`
}

type config struct {
	Port         int             `yaml:"port"`
	StorageDir   string          `yaml:"storageDir"`
	MaxMessageKB int             `yaml:"maxMessageKB"`
	CacheTTL     string          `yaml:"cacheTTL"`
	Rate         rateConfig      `yaml:"rate"`
	Profiles     []profileConfig `yaml:"profiles"`
	Logs         logConfig       `yaml:"logs"`

	cacheTTL time.Duration
}

func loadConfig(path string) (config, error) {
	var cfg config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, err
	}
	baseDir := filepath.Dir(path)
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" {
			return ""
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		candidate := filepath.Clean(filepath.Join(baseDir, p))
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		return filepath.Clean(p)
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = filepath.Join(".", "data")
	} else {
		cfg.StorageDir = resolvePath(cfg.StorageDir)
	}
	for i := range cfg.Profiles {
		cfg.Profiles[i].Path = resolvePath(cfg.Profiles[i].Path)
	}
	if cfg.CacheTTL != "" {
		ttl, err := time.ParseDuration(cfg.CacheTTL)
		if err != nil {
			return cfg, fmt.Errorf("parse cacheTTL: %w", err)
		}
		cfg.cacheTTL = ttl
	}
	if cfg.Logs.Directory == "" {
		cfg.Logs.Directory = filepath.Join(cfg.StorageDir, "logs")
	} else {
		cfg.Logs.Directory = resolvePath(cfg.Logs.Directory)
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "config/siwed.yaml", "path to configuration file")
	addr := flag.String("addr", "", "listen address (overrides config port)")
	readTimeout := flag.Duration("read-timeout", 60*time.Second, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "storage dir: %v\n", err)
		os.Exit(1)
	}
	logger, err := common.NewLogger(common.LogOptions{
		Directory:  cfg.Logs.Directory,
		FileName:   "siwed.log",
		MaxSizeMB:  cfg.Logs.MaxSizeMB,
		MaxAgeDays: cfg.Logs.MaxAgeDays,
		MaxBackups: cfg.Logs.MaxBackups,
		Compress:   cfg.Logs.Compress,
		Level:      cfg.Logs.Level,
		Console:    cfg.Logs.Console,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	packs := make([]server.ProfilePack, len(cfg.Profiles))
	for i, pack := range cfg.Profiles {
		packs[i] = server.ProfilePack{Profile: pack.Profile, Path: pack.Path}
	}
	srv, err := server.NewServer(server.Options{
		StorageDir:      cfg.StorageDir,
		ProfilePacks:    packs,
		MaxMessageBytes: int64(cfg.MaxMessageKB) << 10,
		CacheTTL:        cfg.cacheTTL,
		RateLimit:       cfg.Rate.PerSecond,
		RateBurst:       cfg.Rate.Burst,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal("server init", zap.Error(err))
	}
	defer srv.Close()

	listenAddr := fmt.Sprintf(":%d", cfg.Port)
	if *addr != "" {
		listenAddr = *addr
	}
	httpServer := &http.Server{
		Addr:         listenAddr,
		Handler:      server.NewRouter(srv),
		ReadTimeout:  *readTimeout,
		WriteTimeout: *writeTimeout,
	}

	logger.Info("siwed listening", zap.String("addr", listenAddr))
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	logger.Info("siwed stopped")
}
