// Command termserv serves a workspace shell as MCP tools.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/termserv/termserv"
	"github.com/termserv/termserv/internal/config"
	"github.com/termserv/termserv/internal/dispatch"
	"github.com/termserv/termserv/internal/fetch"
	"github.com/termserv/termserv/internal/history"
	"github.com/termserv/termserv/internal/logging"
	termmcp "github.com/termserv/termserv/internal/mcp"
	"github.com/termserv/termserv/internal/runner"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("termserv: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "mcp":
		err = mcpMain(args)
	case "run":
		err = runMain(args)
	case "version":
		fmt.Println(termserv.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "termserv: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: termserv <command> [flags]

Commands:
  mcp         Start the MCP server (stdio by default)
  run         Run one command through the executor and print its output
  version     Print the version
  help        Show this help

Use "termserv <command> -h" for command-specific flags.`)
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "serve MCP over HTTP on address (e.g. :9090)")
	dirFlag := fs.String("dir", "", "workspace directory (default: current directory)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(termmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return serve(ctx, *dirFlag, *httpAddr)
}

func serve(ctx context.Context, dir, httpAddr string) error {
	workspace := dir
	if workspace == "" {
		var err error
		workspace, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("determining workspace: %w", err)
		}
	}

	cfg, err := config.Load(workspace)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.LogLevel())

	store := history.NewLRUStore(cfg.HistorySize(), history.NewDiskStore())

	r := &runner.Runner{
		Shell:     cfg.Shell(),
		Dir:       workspace,
		Timeout:   cfg.Timeout(),
		KillDelay: cfg.KillDelay(),
		MaxOutput: cfg.MaxOutputBytes(),
		Logger:    logger.With("component", "runner"),
	}
	f := &fetch.Fetcher{
		Timeout: cfg.FetchTimeout(),
		MaxBody: cfg.MaxFetchBytes(),
		Logger:  logger.With("component", "fetch"),
	}
	disp := &dispatch.Dispatcher{Runner: r, Fetcher: f}

	server := termmcp.NewServer(cfg, disp, store, workspace, termmcp.WithLogger(logger))

	if httpAddr != "" {
		return serveHTTP(ctx, server, logger, httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, logger *slog.Logger, addr string) error {
	streamable := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, "ok")
	})
	r.Handle("/mcp", streamable)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	logger.Info("listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// requestLogger logs one line per HTTP request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			next.ServeHTTP(ww, req)
			logger.Info("http request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(req.Context()),
			)
		})
	}
}

// --- run ---

func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dirFlag := fs.String("dir", "", "working directory for the command (default: current directory)")
	timeoutFlag := fs.Duration("timeout", 0, "kill the command after this long (e.g. 30s)")
	jsonFlag := fs.Bool("json", false, "print the full result as JSON")
	_ = fs.Parse(args)

	command := strings.Join(fs.Args(), " ")
	if command == "" {
		return fmt.Errorf("usage: termserv run [flags] <command>")
	}

	dir := *dirFlag
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("determining workspace: %w", err)
		}
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	timeout := cfg.Timeout()
	if *timeoutFlag > 0 {
		timeout = *timeoutFlag
	}

	r := &runner.Runner{
		Shell:     cfg.Shell(),
		Dir:       dir,
		Timeout:   timeout,
		KillDelay: cfg.KillDelay(),
		MaxOutput: cfg.MaxOutputBytes(),
		Logger:    logging.New(cfg.LogLevel()),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := r.Run(ctx, command)
	if err != nil {
		return err
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(dispatch.NewCommandResponse(res)); err != nil {
			return err
		}
	} else {
		fmt.Print(res.Stdout)
		fmt.Fprint(os.Stderr, res.Stderr)
	}

	if res.ExitCode != 0 {
		os.Exit(res.ExitCode)
	}
	return nil
}
