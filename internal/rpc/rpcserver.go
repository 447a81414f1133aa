package rpc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/6529-Collections/nftsales/internal/cluster"
	"github.com/6529-Collections/nftsales/internal/rpc/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// StartRPCServer serves sync status and the prometheus metrics of the
// indexer process.
func StartRPCServer(port int, ctx context.Context, checkpoints handlers.CheckpointLister, gatherer prometheus.Gatherer) func() {
	mux := http.NewServeMux()
	handlers.SetupHandlers(mux, handlers.MethodHandlers{
		handlers.CreateApiV1Path("status"): {
			handlers.HTTP_GET: func(r *http.Request) (any, error) {
				return handlers.StatusGetHandler(r, checkpoints)
			},
		},
	})
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return startServer("RPC", port, ctx, mux)
}

// StartWorkerServer exposes executor to remote dispatchers.
func StartWorkerServer(port int, ctx context.Context, workerID string, executor *cluster.Executor, gatherer prometheus.Gatherer) func() {
	mux := http.NewServeMux()
	handlers.SetupHandlers(mux, handlers.MethodHandlers{
		handlers.Path(cluster.PingPath): {
			handlers.HTTP_GET: func(r *http.Request) (any, error) {
				return handlers.ClusterPingGetHandler(workerID)
			},
		},
		handlers.Path(cluster.DispatchPath): {
			handlers.HTTP_POST: func(r *http.Request) (any, error) {
				return handlers.ClusterDispatchPostHandler(r, executor)
			},
		},
	})
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return startServer("Worker", port, ctx, mux)
}

func startServer(name string, port int, ctx context.Context, mux *http.ServeMux) func() {
	zap.L().Info("Starting server on port", zap.String("server", name), zap.Int("port", port))
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: loggingMiddleware(mux),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil {
			if err == http.ErrServerClosed {
				zap.L().Info("Server closed", zap.String("server", name))
			} else {
				zap.L().Fatal("starting server failed", zap.String("server", name), zap.Error(err))
			}
		}
	}()
	return func() {
		zap.L().Info("Closing server...", zap.String("server", name))
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("server shutdown failed", zap.String("server", name), zap.Error(err))
		}
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{w, http.StatusOK}
		next.ServeHTTP(rw, r)

		zap.L().Info("Request",
			zap.String("ip", r.RemoteAddr),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.statusCode),
		)
	})
}
