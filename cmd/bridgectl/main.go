package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vizdbg/bridge/internal/config"
	"github.com/vizdbg/bridge/internal/logging"
	"github.com/vizdbg/bridge/internal/observability"
	"github.com/vizdbg/bridge/internal/protocol"
	"github.com/vizdbg/bridge/internal/session"
)

var startedAt = time.Now()

func main() {
	configPath := flag.String("config", "", "bridge config path (toml)")
	viewerPath := flag.String("viewer", "", "viewer executable (overrides config)")
	port := flag.Uint("port", 0, "listen port, 0 = ephemeral (overrides config)")
	dev := flag.Bool("dev", false, "development mode: fixed port 9588, no viewer spawn")
	statusAddr := flag.String("status", "", "status API listen address (overrides config)")
	flag.Parse()

	logging.ConfigureRuntime()
	observability.RegisterMetrics()

	fileCfg := config.BridgeConfig{StatusAddr: ":9590"}
	if *configPath != "" {
		loaded, err := config.LoadBridgeConfig(*configPath)
		if err != nil {
			fallback := observability.InitLogger("bridgectl")
			fallback.Fatal().Err(err).Msg("invalid config")
		}
		fileCfg = loaded
	}
	if *viewerPath != "" {
		fileCfg.ViewerPath = *viewerPath
	}
	if *port != 0 {
		fileCfg.Port = uint16(*port)
	}
	if *dev {
		fileCfg.Development = true
	}
	if *statusAddr != "" {
		fileCfg.StatusAddr = *statusAddr
	}

	logger, closer, err := initLogger(fileCfg)
	if err != nil {
		fallback := observability.InitLogger("bridgectl")
		fallback.Fatal().Err(err).Msg("logger init failed")
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sess *session.Session
	sess = session.New(config.SessionConfig(fileCfg), logger, func(variableName string) {
		// Demo renderer: answer every plot request with a synthetic
		// gradient so a hand-started viewer has something to draw.
		if err := sess.PlotBuffer(demoBuffer(variableName)); err != nil {
			logger.Warn().Err(err).Str("variable", variableName).Msg("plot failed")
		}
	})

	if err := sess.Start(); err != nil {
		logger.Fatal().Err(err).Msg("bridge session failed to start")
	}
	defer sess.Close()

	if err := sess.SetAvailableSymbols([]string{"demo_gradient", "demo_checker"}); err != nil {
		logger.Warn().Err(err).Msg("could not announce symbols")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		runEventLoop(ctx, eventLoopInterval, sess.RunEventLoop)
		return nil
	})

	srv := &http.Server{Addr: fileCfg.StatusAddr, Handler: statusRouter(logger, sess, fileCfg.CorsOrigins)}
	g.Go(func() error {
		logger.Info().Str("addr", fileCfg.StatusAddr).Msg("status API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("bridgectl exited with error")
		os.Exit(1)
	}
}

func initLogger(cfg config.BridgeConfig) (zerolog.Logger, interface{ Close() error }, error) {
	if cfg.LogFile != "" {
		logger, closer, err := observability.InitFileLogger("bridgectl", cfg.LogFile)
		return logger, closer, err
	}
	return observability.InitLogger("bridgectl"), nil, nil
}

func statusRouter(logger zerolog.Logger, sess *session.Session, corsOrigins []string) *gin.Engine {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"http://localhost:3000"}
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins,
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"uptime":       time.Since(startedAt).String(),
			"service":      "vizbridge",
			"state":        sess.State().String(),
			"port":         sess.Port(),
			"window_ready": sess.IsWindowReady(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// eventLoopInterval paces the periodic session tick.
const eventLoopInterval = 100 * time.Millisecond

// runEventLoop invokes tick once per interval until ctx is done. The tick
// itself may return immediately (a dead socket reads as silence), so the
// ticker, not the tick, sets the pace.
func runEventLoop(ctx context.Context, interval time.Duration, tick func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		tick()
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// demoBuffer builds a 64x64 single-channel gradient payload.
func demoBuffer(variableName string) protocol.BufferPayload {
	const side = 64
	data := make([]byte, side*side)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			data[y*side+x] = byte((x + y) * 255 / (2 * side))
		}
	}
	return protocol.BufferPayload{
		VariableName: variableName,
		DisplayName:  variableName,
		PixelLayout:  "rgba",
		Width:        side,
		Height:       side,
		Channels:     1,
		Stride:       side,
		Elem:         protocol.ElemUnsignedByte,
		Data:         data,
	}
}
