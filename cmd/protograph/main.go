package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/hanpama/reactive-graphql/internal/eventbus"
	"github.com/hanpama/reactive-graphql/internal/launchdemo"
	"github.com/hanpama/reactive-graphql/internal/otel"
	"github.com/hanpama/reactive-graphql/internal/server"
)

const rootUsage = `protograph, a reactive GraphQL execution engine

USAGE:
  protograph <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL gateway
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -server.addr <addr>           HTTP listen address (default: :8080)
  -server.timeout <duration>    Per-request default timeout, e.g. 10s (default: 10s)
  -server.graphiql <bool>       Enable the in-browser GraphiQL page (default: true)
  -otel.endpoint <addr>         OTLP collector endpoint
  -otel.service <name>          OpenTelemetry service name (default: protograph)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("protograph", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

func cmdServe(args []string) error {
	addr := ":8080"
	timeout := 10 * time.Second
	graphiql := true
	otelEndpoint := ""
	otelService := "protograph"

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request default timeout")
	fs.BoolVar(&graphiql, "server.graphiql", graphiql, "Enable the in-browser GraphiQL page")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	sch := launchdemo.Schema()
	store := launchdemo.NewStore()

	var sopts []server.Option
	if timeout > 0 {
		sopts = append(sopts, server.WithTimeout(timeout))
	}
	sopts = append(sopts, server.WithGraphiQL(graphiql))

	h := server.New(sch, store, nil, sopts...)

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)

	log.Printf("GraphQL server listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}
