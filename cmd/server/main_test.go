package main

import (
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"turnindex/internal/config"
	"turnindex/internal/embedding"
)

func TestLoadConfigDefaultsWhenNoConfigFileSet(t *testing.T) {
	t.Setenv("TI_CONFIG_FILE", "")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() failed: %v", err)
	}
	if cfg.Server.Name == "" {
		t.Error("expected a non-empty server name")
	}
}

func TestLoadConfigRejectsInvalidConfig(t *testing.T) {
	t.Setenv("TI_EMBEDDING_PROVIDER", "carrier-pigeon")
	defer t.Setenv("TI_EMBEDDING_PROVIDER", "")

	if _, err := loadConfig(); err == nil {
		t.Error("expected loadConfig() to reject an unknown embedding provider")
	}
}

func TestMCPServerRegistersEveryTool(t *testing.T) {
	embedding.ResetForTest()
	cfg := config.Default()
	cfg.Index.Collection = t.Name()

	components, err := InitializeServer(cfg)
	if err != nil {
		t.Fatalf("InitializeServer() failed: %v", err)
	}
	defer components.Cleanup()

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}, nil)

	components.Service.RegisterAllTools(mcpServer)
	// RegisterAllTools skips a definition in ToolDefinitions that has no
	// matching handler (printing a note only when DEBUG=true) and never
	// returns an error; reaching here without panicking is the behavior
	// under test.
}
