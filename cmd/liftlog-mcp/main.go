// Command liftlog-mcp serves the LiftLog MCP tools over stdio, reading data
// from a remote LiftLog server's REST API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/liftlog/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	baseURL := flag.String("url", os.Getenv("LIFTLOG_URL"), "LiftLog server base URL (or LIFTLOG_URL)")
	flag.Parse()

	// stdout carries the MCP protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *baseURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftlog-mcp -url http://liftlog.tailnet.ts.net\n")
		os.Exit(1)
	}

	s := mcp.New(mcp.NewHTTPClient(*baseURL), Version, log)
	log.Info("liftlog-mcp serving on stdio", "url", *baseURL, "version", Version)
	if err := server.ServeStdio(s); err != nil {
		log.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}
