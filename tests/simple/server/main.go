// Command server is a runnable example: it wires the launch-demo schema
// (internal/launchdemo) into the HTTP handler and serves it on :8080. Query
// `{ launches { name status } }` with curl and watch the ndjson lines arrive
// once a second as each launch's status field ticks forward.
package main

import (
	"log"
	"net/http"

	"github.com/hanpama/reactive-graphql/internal/eventbus"
	"github.com/hanpama/reactive-graphql/internal/launchdemo"
	"github.com/hanpama/reactive-graphql/internal/server"
)

func main() {
	eventbus.Use(eventbus.New())

	sch := launchdemo.Schema()
	store := launchdemo.NewStore()
	h := server.New(sch, store, nil, server.WithGraphiQL(true))

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)

	log.Print("launch demo listening on :8080/graphql")
	log.Fatal(http.ListenAndServe(":8080", mux))
}
