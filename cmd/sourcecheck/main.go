// Command sourcecheck runs a one-off analysis against the live intelligence
// sources. Useful for verifying API keys and eyeballing verdicts:
//
//	go run ./cmd/sourcecheck "http://suspicious.example/login"
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sentinel-intel/sentinel/internal/analysis"
	"github.com/sentinel-intel/sentinel/internal/app/bootstrap"
	appconfig "github.com/sentinel-intel/sentinel/internal/config"
	"github.com/sentinel-intel/sentinel/internal/render"
	"github.com/sentinel-intel/sentinel/internal/session"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: sourcecheck <message|url|phone>")
		os.Exit(2)
	}
	input := os.Args[1]

	cfg := appconfig.Load()
	logger := logging.New("warn")

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	registry, closer, err := bootstrap.BuildRegistry(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("build registry: %v", err)
	}
	defer closer.Close()

	orch := analysis.NewOrchestrator(registry, session.NewMemoryStore(), logger,
		analysis.WithSourceTimeout(cfg.SourceTimeout))

	start := time.Now()
	result, err := orch.Analyze(ctx, analysis.Request{Raw: input})
	if err != nil {
		log.Fatalf("analyze: %v", err)
	}

	fmt.Printf("analyzed %q as %s in %v\n\n", input, result.Artifact.Kind, time.Since(start).Round(time.Millisecond))

	out, err := json.MarshalIndent(render.Web(result), "", "  ")
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	fmt.Println(string(out))
}
