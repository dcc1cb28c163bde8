package main

import (
	"context"
	"log"

	"github.com/viralforge/mesh/services/core-platform/M63-security-session-service/internal/app/bootstrap"
)

func main() {
	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, "configs/default.yaml")
	if err != nil {
		log.Fatalf("bootstrap runtime: %v", err)
	}
	if err := runtime.Run(ctx); err != nil {
		log.Fatalf("run service: %v", err)
	}
}
