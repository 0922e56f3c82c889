package main

import (
	"flag"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/3405029277/roomserver/internal/config"
	"github.com/3405029277/roomserver/internal/logging"
	"github.com/3405029277/roomserver/internal/metrics"
	"github.com/3405029277/roomserver/internal/seat"
	"github.com/3405029277/roomserver/internal/server"
	serverstore "github.com/3405029277/roomserver/internal/server/store"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，留空则在 ./config 与当前目录查找 config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("加载配置失败: " + err.Error())
	}

	log, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		FilePath:   cfg.Log.FilePath,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	seat.Grace = cfg.Room.Grace
	config.Watch(func(next *config.Config) {
		seat.Grace = next.Room.Grace
		log.Info("配置已热重载", zap.Duration("grace", next.Room.Grace))
	})

	store, err := serverstore.New(cfg.Database.Path)
	if err != nil {
		log.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			log.Error("关闭数据库时发生错误", zap.Error(cerr))
		}
	}()

	met := metrics.New(prometheus.DefaultRegisterer)
	registry := server.NewRegistry(store, log, met)
	router := server.NewRouter(registry, logging.Named(log, "router"), cfg.Server.ReadBufferSize, cfg.Server.WriteBufferSize)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/ws", router)
	mux.Handle("/relay", router)
	mux.Handle("/", router)

	log.Info("房间服务器启动", zap.String("addr", cfg.Server.Addr))
	if err := http.ListenAndServe(cfg.Server.Addr, mux); err != nil {
		log.Fatal("HTTP 服务启动失败", zap.Error(err))
	}
}
