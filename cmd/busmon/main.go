package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/knx-usb/internal/api"
	"github.com/taoyao-code/knx-usb/internal/app"
	cfgpkg "github.com/taoyao-code/knx-usb/internal/config"
	"github.com/taoyao-code/knx-usb/internal/health"
	"github.com/taoyao-code/knx-usb/internal/httpserver"
	"github.com/taoyao-code/knx-usb/internal/logging"
	"github.com/taoyao-code/knx-usb/internal/metrics"
	"github.com/taoyao-code/knx-usb/internal/monitor"
	"github.com/taoyao-code/knx-usb/internal/mqtt"
	"github.com/taoyao-code/knx-usb/pkg/connection"
)

func main() {
	// 0) 命令行参数
	cfgPath := flag.String("c", "", "配置文件路径，空则依次尝试 KNXUSB_CONFIG 与 configs/example.yaml")
	printConfig := flag.Bool("print-config", false, "打印生效配置后退出")
	flag.Parse()

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	if *printConfig {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			panic(err)
		}
		fmt.Print(string(out))
		return
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.L()
	log.Info("starting knx bus monitor",
		zap.String("device", cfg.Device.Path),
		zap.String("env", cfg.App.Env))

	// 3) 指标注册与处理器
	reg := metrics.NewRegistry()
	appm := metrics.NewAppMetrics(reg)
	connm := connection.NewMetrics(reg)
	var metricsHandler http.Handler
	if cfg.Metrics.Enable {
		metricsHandler = metrics.Handler(reg)
	}

	// 4) MQTT 桥接（可选）
	var bridge *mqtt.Client
	var pub monitor.Publisher
	if cfg.MQTT.Enable {
		bridge = mqtt.New(cfg.MQTT, log)
		if err := bridge.Start(); err != nil {
			log.Fatal("mqtt start error", zap.Error(err))
		}
		pub = bridge
	}

	// 5) 总线监视处理器
	codes := monitor.DefaultMessageCodeMap()
	if cfg.Monitor.CodeMapFile != "" {
		custom, err := monitor.LoadMessageCodeMap(cfg.Monitor.CodeMapFile)
		if err != nil {
			log.Fatal("load code map error", zap.Error(err))
		}
		codes.Merge(custom)
		log.Info("message code map loaded", zap.String("path", cfg.Monitor.CodeMapFile))
	}
	mon := monitor.NewHandler(codes, cfg.Monitor.PollInterval, pub, appm, log)
	mon.StartPolling()

	// 6) 设备连接监督
	sup := app.NewSupervisor(cfg.Device, mon, mon.Bind, connm, appm, log)
	sup.Start()

	// 7) MQTT 发送注入
	if bridge != nil {
		if err := bridge.SubscribeSend(func(payload []byte) {
			if c := sup.Current(); c != nil {
				c.Send(payload)
			}
		}); err != nil {
			log.Error("mqtt subscribe error", zap.Error(err))
		}
	}

	// 8) HTTP 服务
	var httpSrv *httpserver.Server
	if cfg.HTTP.Enable {
		agg := health.NewAggregator(health.NewDeviceChecker(sup.Current))
		if bridge != nil {
			agg.AddChecker(health.NewMQTTChecker(bridge))
		}
		httpSrv = httpserver.New(cfg.HTTP, cfg.Metrics.Path, metricsHandler, sup.Ready)
		httpSrv.Register(func(r *gin.Engine) {
			api.RegisterRoutes(r, sup.Current, mon.Snapshot, log)
			health.RegisterHTTPRoutes(r, agg)
		})
		go func() {
			if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", zap.Error(err))
			}
		}()
		log.Info("http server started", zap.String("addr", cfg.HTTP.Addr))
	}

	// 9) 等待信号或监督循环退出，优雅关闭
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("signal received, shutting down", zap.String("signal", sig.String()))
	case <-sup.Done():
		log.Warn("connection supervisor exited, shutting down")
	}

	sup.Stop()
	mon.Close()
	if bridge != nil {
		bridge.Stop()
	}
	if httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctx)
	}
	log.Info("shutdown complete")
}
