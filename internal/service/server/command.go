package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	api "github.com/oshokin/update-server/internal/api/grpc/update"
	"github.com/oshokin/update-server/internal/config"
	"github.com/oshokin/update-server/internal/logger"
	pb "github.com/oshokin/update-server/internal/pb/v1"
)

// readHeaderTimeout bounds slow clients on the HTTP listener.
const readHeaderTimeout = 10 * time.Second

// Options controls the update-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to the server YAML file.
	ConfigPath string
	// GRPCAddress overrides server.grpc_address.
	GRPCAddress string
	// HTTPAddress overrides server.http_address.
	HTTPAddress string
}

// ErrNoServerAddress indicates missing listener configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the gRPC and HTTP servers and blocks until ctx is canceled or
// one of them fails.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "update-server")

	settings, err := config.LoadServer(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	flush := logger.Setup(settings.Logging.Level, logger.FileSink{
		Path:       settings.Logging.File,
		MaxSizeMB:  settings.Logging.MaxSizeMB,
		MaxBackups: settings.Logging.MaxBackups,
		MaxAgeDays: settings.Logging.MaxAgeDays,
	})
	defer flush()

	if logger.Level() > zapcore.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	grpcAddress, err := resolveListenAddress(settings.Server.GRPCAddress, opts.GRPCAddress)
	if err != nil {
		return fmt.Errorf("resolve gRPC address: %w", err)
	}

	httpAddress, err := resolveListenAddress(settings.Server.HTTPAddress, opts.HTTPAddress)
	if err != nil {
		return fmt.Errorf("resolve HTTP address: %w", err)
	}

	app, err := newApp(ctx, settings)
	if err != nil {
		return fmt.Errorf("initialise service: %w", err)
	}
	defer app.close(ctx)

	lc := net.ListenConfig{}

	grpcListener, err := lc.Listen(ctx, "tcp", grpcAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", grpcAddress, err)
	}

	httpListener, err := lc.Listen(ctx, "tcp", httpAddress)
	if err != nil {
		_ = grpcListener.Close()

		return fmt.Errorf("listen on %s: %w", httpAddress, err)
	}

	logger.InfoKV(ctx, "Update server listening",
		"grpc_address", grpcListener.Addr().String(),
		"http_address", httpListener.Addr().String(),
		"base_url", settings.Server.BaseURL)

	return serve(ctx, app, grpcListener, httpListener)
}

// serve runs both servers until ctx is done, then stops them gracefully.
func serve(ctx context.Context, app *app, grpcListener, httpListener net.Listener) error {
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(unaryLogger(ctx)))
	pb.RegisterUpdateServiceServer(grpcServer, api.NewServer(app.evaluator))

	httpServer := &http.Server{
		Handler:           app.router(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		if err := httpServer.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info(ctx, "Shutting down servers")

		return shutdown(ctx, app.settings.Server.ShutdownTimeout, grpcServer, httpServer)
	})

	if err := group.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Servers stopped")

	return nil
}

// shutdown drains both servers, forcing the gRPC server down once timeout elapses.
func shutdown(ctx context.Context, timeout time.Duration, grpcServer *grpc.Server, httpServer *http.Server) error {
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	stopped := make(chan struct{})

	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	httpErr := httpServer.Shutdown(shutdownCtx)

	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		logger.Warn(ctx, "Graceful gRPC stop timed out, closing connections")
		grpcServer.Stop()
		<-stopped
	}

	if httpErr != nil {
		return fmt.Errorf("shutdown HTTP server: %w", httpErr)
	}

	return nil
}

// unaryLogger carries the server logger into every call and logs its outcome.
func unaryLogger(base context.Context) grpc.UnaryServerInterceptor {
	log := logger.FromContext(base)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx = logger.ToContext(ctx, log)
		started := time.Now()

		resp, err := handler(ctx, req)

		logger.DebugKV(ctx, "grpc call",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed", time.Since(started))

		return resp, err
	}
}

// resolveListenAddress returns override when set, otherwise the configured address.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	if _, _, err := net.SplitHostPort(configAddr); err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	return configAddr, nil
}
