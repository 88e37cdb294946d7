// Package main provides the entry point for the conversation memory index
// server.
//
// This server is designed to be spawned as a child process by an MCP client
// and communicates via stdio using the Model Context Protocol. It should
// not be run manually by users.
//
// Environment variables are documented in internal/config; DEBUG=true
// enables debug logging.
package main

import (
	"context"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"turnindex/internal/config"
)

func main() {
	if os.Getenv("DEBUG") == "true" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.Println("Starting server in debug mode...")
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Loaded configuration for %s v%s", cfg.Server.Name, cfg.Server.Version)

	components, err := InitializeServer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}
	defer func() {
		if err := components.Cleanup(); err != nil {
			log.Printf("Warning: cleanup error: %v", err)
		}
	}()

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, nil)
	log.Println("Created MCP server")

	components.Service.RegisterAllTools(mcpServer)
	log.Println("Registered tools: search_conversations, search_validated, search_failed, most_recent, context_chain, force_sync, process_validation_feedback, health_report, backfill_chains")

	transport := &mcp.StdioTransport{}
	log.Println("Created stdio transport")

	ctx := context.Background()
	log.Println("Starting MCP server...")
	if err := mcpServer.Run(ctx, transport); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// loadConfig loads from TI_CONFIG_FILE if set, otherwise from defaults and
// environment variables (internal/config's normal precedence).
func loadConfig() (*config.Config, error) {
	if path := os.Getenv("TI_CONFIG_FILE"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
