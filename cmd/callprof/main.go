package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CAFxX/httpcompression"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"github.com/getsentry/callprof/internal/calltree"
	"github.com/getsentry/callprof/internal/export"
	"github.com/getsentry/callprof/internal/httputil"
	"github.com/getsentry/callprof/internal/logutil"
	"github.com/getsentry/callprof/internal/profiler"
)

type environment struct {
	config ServiceConfig

	publisher       *export.KafkaPublisher
	profilerOptions []profiler.Option
}

var release string

func newEnvironment(config ServiceConfig, w export.MessageWriter) *environment {
	e := environment{
		config: config,
		profilerOptions: []profiler.Option{
			profiler.WithLogger(logutil.DiagnosticsLogger(log.Logger, logutil.ParseLevel(config.DiagnosticsLevel))),
			profiler.WithMaxDepth(config.MaxDepth),
			profiler.WithMinExecutionTime(config.MinExecutionTime),
		},
	}
	if w != nil {
		e.publisher = export.NewKafkaPublisher(w)
	}
	return &e
}

func (e *environment) shutdown() {
	if e.publisher != nil {
		err := e.publisher.Close()
		if err != nil {
			sentry.CaptureException(err)
		}
	}
	sentry.Flush(5 * time.Second)
}

func (e *environment) newRouter() (*httprouter.Router, error) {
	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		return nil, err
	}

	routes := []struct {
		method  string
		path    string
		handler http.HandlerFunc
	}{
		{http.MethodGet, "/health", e.getHealth},
		{http.MethodPost, "/render", e.postRender},
	}

	router := httprouter.New()

	for _, route := range routes {
		handlerFunc := httputil.DecompressPayload(route.handler)
		handlerFunc = httputil.ProfileRequest(handlerFunc, e.exportCallTree, e.profilerOptions...)
		handler := compress(handlerFunc)

		router.Handler(route.method, route.path, handler)
	}

	return router, nil
}

// exportCallTree sends the call tree of a finished request to Sentry as
// spans of the request transaction, and to Kafka when brokers are set up.
func (e *environment) exportCallTree(ctx context.Context, sessionID string, root *calltree.Node) {
	export.SentrySpans(ctx, root)
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, sessionID, root); err != nil {
		if hub := sentry.GetHubFromContext(ctx); hub != nil {
			hub.CaptureException(err)
		}
		log.Err(err).Str("session_id", sessionID).Msg("can't publish call tree")
	}
}

func main() {
	config, err := newConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error reading configuration")
	}

	logutil.ConfigureLogger(logutil.ParseLevel(config.LogLevel))

	var writer export.MessageWriter
	if len(config.CallTreesKafkaBrokers) > 0 && config.CallTreesKafkaTopic != "" {
		writer = export.NewKafkaWriter(config.CallTreesKafkaBrokers, config.CallTreesKafkaTopic)
	}
	env := newEnvironment(config, writer)

	err = sentry.Init(sentry.ClientOptions{
		BeforeSendTransaction: httputil.SetTransactionTags,
		Dsn:                   env.config.SentryDSN,
		EnableTracing:         true,
		Environment:           env.config.Environment,
		Release:               release,
		TracesSampleRate:      1.0,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("can't initialize sentry")
	}

	router, err := env.newRouter()
	if err != nil {
		sentry.CaptureException(err)
		log.Fatal().Err(err).Msg("error setting up the router")
	}

	server := http.Server{
		Addr:    ":" + env.config.Port,
		Handler: sentryhttp.New(sentryhttp.Options{}).Handle(router),
	}

	waitForShutdown := make(chan os.Signal)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c

		cctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(cctx); err != nil {
			sentry.CaptureException(err)
			log.Err(err).Msg("error shutting down server")
		}

		close(waitForShutdown)
	}()

	log.Info().Str("addr", server.Addr).Str("environment", env.config.Environment).Msg("listening")

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		sentry.CaptureException(err)
		log.Err(err).Msg("server failed")
	}

	<-waitForShutdown

	// Shutdown the rest of the environment after the HTTP connections are closed
	env.shutdown()
}

func (e *environment) getHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
