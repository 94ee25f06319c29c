// cmd/server/main.go
package main

import (
	"log"

	"loadstone/internal/config"
	"loadstone/internal/factor"
	"loadstone/internal/interpret"
	"loadstone/internal/llm"
	"loadstone/internal/pca"
	"loadstone/internal/registry"
	"loadstone/internal/server"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	defaults, err := config.NewLoader().Load()
	if err != nil {
		log.Fatalf("failed to load defaults: %v", err)
	}

	provider, err := llm.NewOpenAI(&cfg.OpenAI)
	if err != nil {
		log.Fatalf("failed to create LLM provider: %v", err)
	}

	reg := registry.New()
	factor.Register(reg)
	pca.Register(reg)

	interpreter := interpret.New(reg, provider, defaults)

	srv := server.New(*cfg, interpreter, reg)
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
