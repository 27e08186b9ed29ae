package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"startupconnect/internal/common"
	"startupconnect/internal/config"
	"startupconnect/internal/di"
	"startupconnect/internal/realtime"
)

func main() {
	cfg := config.LoadConfig()
	logFile, err := common.SetupLogging(cfg.Logging.OutputPath)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	log.Println("Starting Chat Service...")

	app, cleanup, err := di.InitializeChatService(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize chat service: %v", err)
	}
	defer cleanup()

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(loggingUnaryInterceptor, common.AuthInterceptor(app.Tokens)),
		grpc.ChainStreamInterceptor(loggingStreamInterceptor, common.StreamAuthInterceptor(app.Tokens)),
	)
	realtime.RegisterChatStreamServer(grpcServer, app.Streams)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		log.Fatalf("Failed to listen on port %s: %v", cfg.Server.GRPCPort, err)
	}

	httpServer := &http.Server{
		Addr:        ":" + cfg.Server.HTTPPort,
		Handler:     newRouter(app),
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		// no WriteTimeout: websocket sessions outlive any request deadline
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Printf("gRPC ChatStream listening on :%s", cfg.Server.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve gRPC: %v", err)
		}
	}()

	go func() {
		log.Printf("HTTP API and /ws listening on :%s", cfg.Server.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down Chat Service...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	app.Gateway.Shutdown()
	grpcServer.GracefulStop()
	log.Println("Chat Service stopped")
}

func loggingUnaryInterceptor(ctx context.Context, req interface{},
	info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	start := time.Now()
	log.Printf("→ %s", info.FullMethod)

	resp, err := handler(ctx, req)

	duration := time.Since(start)
	if err != nil {
		log.Printf("✗ %s failed (%v): %v", info.FullMethod, duration, err)
	} else {
		log.Printf("✓ %s completed (%v)", info.FullMethod, duration)
	}

	return resp, err
}

func loggingStreamInterceptor(srv interface{}, stream grpc.ServerStream,
	info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {

	log.Printf("⟷ %s stream started", info.FullMethod)
	err := handler(srv, stream)

	if err != nil {
		log.Printf("✗ %s stream ended with error: %v", info.FullMethod, err)
	} else {
		log.Printf("✓ %s stream completed", info.FullMethod)
	}
	return err
}
