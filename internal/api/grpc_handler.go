package api

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// CatalogServiceName is the service name reported through the gRPC health protocol.
const CatalogServiceName = "storefront.catalog"

// GRPCHandler owns the gRPC server and its health state.
type GRPCHandler struct {
	server *grpc.Server
	health *health.Server
	logger *zap.Logger
}

// NewGRPCHandler builds a gRPC server exposing the health checking protocol and reflection.
// The catalog service starts as NOT_SERVING until MarkServing is called.
func NewGRPCHandler(logger *zap.Logger) *GRPCHandler {
	logger = logger.Named("grpc")
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(UnaryLoggingInterceptor(logger)))

	hs := health.NewServer()
	hs.SetServingStatus(CatalogServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	grpc_health_v1.RegisterHealthServer(s, hs)
	logger.Info("gRPC health check service registered")

	// Enable gRPC server reflection (useful for tools like grpcurl).
	reflection.Register(s)
	logger.Info("gRPC reflection service registered")

	return &GRPCHandler{server: s, health: hs, logger: logger}
}

// Server returns the underlying *grpc.Server.
func (g *GRPCHandler) Server() *grpc.Server {
	return g.server
}

// MarkServing reports the catalog as ready once both stores are loaded.
func (g *GRPCHandler) MarkServing() {
	g.health.SetServingStatus(CatalogServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
}

// Shutdown flips every service to NOT_SERVING so clients drain before the server stops.
func (g *GRPCHandler) Shutdown() {
	g.health.Shutdown()
}

// UnaryLoggingInterceptor logs every unary call with its method, status code and duration.
func UnaryLoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		}
		if err != nil {
			logger.Warn("gRPC call failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("gRPC call", fields...)
		}
		return resp, err
	}
}
