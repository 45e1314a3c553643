package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ironsheep/image-extract-mcp/internal/config"
	"github.com/ironsheep/image-extract-mcp/internal/extract"
	"github.com/ironsheep/image-extract-mcp/internal/scan"
	"github.com/ironsheep/image-extract-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// Handle --version and -v flags
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Fprintf(stdout, "image-extract-mcp %s\n", Version)
			fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
			return 0
		case "--help", "-h", "help":
			printUsage(stdout)
			return 0
		case "scan":
			return runScan(args[1:], stdout, stderr)
		}
	}

	cfg, err := loadConfig(os.Getenv(config.EnvPrefix + "CONFIG"))
	if err != nil {
		fmt.Fprintf(stderr, "image-extract-mcp: %v\n", err)
		return 1
	}

	// Log to stderr; stdout is for MCP protocol
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "image-extract-mcp: %v\n", err)
		return 1
	}
	slog.SetDefault(logger)
	logger.Debug("starting", "version", Version, "build_time", BuildTime, "commit", GitCommit)

	srv := server.New(cfg, logger, Version)
	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "image-extract-mcp - MCP server that finds images embedded in HTTP response bodies")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  image-extract-mcp                 Serve MCP over stdin/stdout")
	fmt.Fprintln(w, "  image-extract-mcp scan [flags] FILE")
	fmt.Fprintln(w, "                                    List the images found in a body file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Scan flags:")
	fmt.Fprintln(w, "  -content-type T       Declared Content-Type of the body")
	fmt.Fprintln(w, "  -content-encoding E   Declared Content-Encoding (gzip, deflate, zstd)")
	fmt.Fprintln(w, "  -config F             YAML configuration file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  IMAGE_EXTRACT_MCP_CONFIG=path       YAML configuration file (server mode)")
	fmt.Fprintln(w, "  IMAGE_EXTRACT_MCP_LOG_LEVEL=debug   Log level: debug, info, warn, error")
	fmt.Fprintln(w, "  IMAGE_EXTRACT_MCP_MAX_*             Override individual limits")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "This server communicates via MCP protocol over stdin/stdout.")
	fmt.Fprintln(w, "Configure it in your MCP client (e.g., Claude Desktop).")
}

// loadConfig layers the optional file and the environment over defaults.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// runScan extracts the images of one body file and prints the gallery:
// the status line, then one "label<TAB>details" line per image.
func runScan(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	contentType := fs.String("content-type", "", "declared Content-Type of the body")
	contentEncoding := fs.String("content-encoding", "", "declared Content-Encoding of the body")
	configPath := fs.String("config", "", "YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: image-extract-mcp scan [-content-type T] [-content-encoding E] [-config F] FILE")
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "scan: %v\n", err)
		return 1
	}
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "scan: %v\n", err)
		return 1
	}

	body, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "scan: %v\n", err)
		return 1
	}

	pipeline := scan.NewPipeline(extract.New(cfg.ExtractOptions(logger)), cfg.DecompressOptions(), cfg.ImagingOptions(logger))
	entries, err := pipeline(context.Background(), &scan.Request{
		Body:            body,
		ContentType:     *contentType,
		ContentEncoding: *contentEncoding,
	})

	u := scan.Summarize(entries, err)
	fmt.Fprintln(stdout, u.Status)
	for _, e := range u.Entries {
		fmt.Fprintf(stdout, "%s\t%s\n", e.Label, e.Details)
	}
	if u.Failed() {
		return 1
	}
	return 0
}
