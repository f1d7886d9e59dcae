package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"

	"freehost.io/collab/collab"
)

const HubdVersion = "0.1.0"

func main() {
	usage := `Freehost collaboration hub daemon.

Serves the collaboration api and the realtime channel on one port:
    http api under /api/
    websocket under /ws

Usage:
    hubd run [--config=<config>] [--port=<port>] [--v=<v>]

Options:
    -h --help            Show this screen.
    --version            Show version.
    --config=<config>    Path to a yaml config file.
    -p --port=<port>     Listen port, overrides config.
    --v=<v>              Log verbosity [default: 0].`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], HubdVersion)
	if err != nil {
		panic(err)
	}

	if run_, _ := opts.Bool("run"); run_ {
		run(opts)
	}
}

func run(opts docopt.Opts) {
	if v, err := opts.Int("--v"); err == nil {
		flag.Set("logtostderr", "true")
		flag.Set("stderrthreshold", "INFO")
		flag.Set("v", fmt.Sprintf("%d", v))
	}

	var configPath string
	if configPathAny := opts["--config"]; configPathAny != nil {
		configPath = configPathAny.(string)
	}
	config, err := LoadConfig(configPath)
	if err != nil {
		panic(err)
	}
	if port, err := opts.Int("--port"); err == nil && 0 < port {
		config.ApiPort = port
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := collab.NewHub(cancelCtx, collab.NewLogNotificationSink(), config.HubSettings())
	api := collab.NewApi(hub)
	realtime := collab.NewRealtime(cancelCtx, hub, config.RealtimeSettings())

	mux := http.NewServeMux()
	mux.Handle("/api/", api.Router())
	mux.Handle("/ws", realtime)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.ApiPort),
		Handler: mux,
	}

	go func() {
		defer cancel()
		glog.Infof("[hubd]%s listening on *:%d\n", HubdVersion, config.ApiPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Infof("[hubd]listen error = %s\n", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	select {
	case <-cancelCtx.Done():
	case <-stop:
		glog.Infof("[hubd]shutting down\n")
	}

	server.Shutdown(cancelCtx)
	hub.Close()

	os.Exit(0)
}
