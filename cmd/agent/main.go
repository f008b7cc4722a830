// Command agent decides a file of opportunities against an authority's
// policy and records every decision in the ledger. Execution is a dry run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mandate/internal/agent"
	"mandate/internal/platform/config"
	"mandate/internal/platform/logger"
	"mandate/pkg/client"
	id "mandate/pkg/domain"
)

func main() {
	_ = godotenv.Load()

	var (
		server      = flag.String("server", envOr("MANDATE_SERVER", "http://localhost:8080"), "mandate API base URL")
		token       = flag.String("token", os.Getenv("MANDATE_AGENT_TOKEN"), "bearer token with the agent role")
		authority   = flag.String("authority", os.Getenv("MANDATE_AUTHORITY"), "authority whose policy governs this agent")
		file        = flag.String("opportunities", "opportunities.yaml", "YAML file of opportunities")
		sourceChain = flag.Uint("source-chain", 1, "chain holding the agent's USDC; other chains are bridged")
		concurrency = flag.Int("concurrency", 4, "opportunities decided at once")
		timeout     = flag.Duration("timeout", time.Minute, "overall deadline")
		logFormat   = flag.String("log-format", "text", "json or text")
	)
	flag.Parse()

	log := logger.New(config.LogConfig{Level: os.Getenv("LOG_LEVEL"), Format: *logFormat})
	if err := run(log, *server, *token, *authority, *file, uint32(*sourceChain), *concurrency, *timeout); err != nil {
		log.Error("agent run failed", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, server, token, authorityRaw, file string, sourceChain uint32, concurrency int, timeout time.Duration) error {
	if token == "" {
		return fmt.Errorf("an agent token is required (-token or MANDATE_AGENT_TOKEN)")
	}
	authority, err := id.ParseAuthorityID(authorityRaw)
	if err != nil {
		return err
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	opps, err := agent.LoadOpportunities(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	api := client.New(server, client.WithToken(token))
	runner, err := agent.NewRunner(agent.NewClientSource(api), api, &agent.DryRun{SourceChain: sourceChain},
		agent.WithLogger(log),
		agent.WithConcurrency(concurrency),
	)
	if err != nil {
		return err
	}

	outcomes, err := runner.Run(ctx, authority, opps)
	if err != nil {
		return err
	}
	summary := agent.Summarize(outcomes)
	log.InfoContext(ctx, "agent run complete",
		"refused", summary.Refused,
		"executed", summary.Executed,
		"failed", summary.Failed,
	)
	if summary.Failed > 0 {
		return fmt.Errorf("%d opportunities failed", summary.Failed)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
