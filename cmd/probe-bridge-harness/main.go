// Command probe-bridge-harness runs the probe library (C2-C8) standalone
// against a hub, with real net/http replay and an optional set of SQLite
// databases wired into the db inspector. It exists to exercise the bridge
// protocol end-to-end outside of a host application's instrumentation.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/debughub/probe/bridge"
	"github.com/debughub/probe/dbinspect"
	"github.com/debughub/probe/internal/cmdutil"
	"github.com/debughub/probe/observability/prom"
	"github.com/debughub/probe/pipeline"
	"github.com/debughub/probe/probe"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type dbFlag []dbinspect.DatabaseConfig

func (d *dbFlag) String() string {
	parts := make([]string, 0, len(*d))
	for _, c := range *d {
		parts = append(parts, c.ID+"="+c.Path)
	}
	return strings.Join(parts, ",")
}

// Set parses one --db flag of the form id=path[:sensitive=true].
func (d *dbFlag) Set(v string) error {
	idPath, sensitiveStr, hasSensitive := strings.Cut(v, ":sensitive=")
	id, path, ok := strings.Cut(idPath, "=")
	if !ok || id == "" || path == "" {
		return fmt.Errorf("invalid --db value %q, expected id=path[:sensitive=true]", v)
	}
	sensitive := false
	if hasSensitive {
		sensitive = sensitiveStr == "true"
	}
	*d = append(*d, dbinspect.DatabaseConfig{ID: id, Path: path, Sensitive: sensitive})
	return nil
}

// httpReplayer executes a replayRequest command with a plain,
// uninstrumented http.Client; its response is discarded by the bridge.
type httpReplayer struct {
	client *http.Client
}

func (r httpReplayer) Do(ctx context.Context, payload bridge.ReplayRequestPayload) error {
	req, err := http.NewRequestWithContext(ctx, payload.Method, payload.URL, nil)
	if err != nil {
		return err
	}
	for k, v := range payload.Headers {
		req.Header.Set(k, v)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type ready struct {
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	Date        string `json:"date"`
	HubURL      string `json:"hub_url"`
	SettingsURL string `json:"settings_url,omitempty"`
	MetricsURL  string `json:"metrics_url,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	logger := log.New(stderr, "", log.LstdFlags)
	cfg := probe.Default()

	settingsURL := cmdutil.EnvString("DEBUGHUB_SETTINGS_URL", "")
	hubURL := cmdutil.EnvString("DEBUGHUB_HUB_URL", "")
	token := cmdutil.EnvString("DEBUGHUB_TOKEN", "")
	stateDir := cmdutil.EnvString("DEBUGHUB_STATE_DIR", "")
	captureMode := cmdutil.EnvString("DEBUGHUB_CAPTURE_MODE", string(cfg.NetworkCaptureMode))
	captureScope := cmdutil.EnvString("DEBUGHUB_CAPTURE_SCOPE", string(cfg.NetworkCaptureScope))
	metricsListen := cmdutil.EnvString("DEBUGHUB_METRICS_LISTEN", "")

	enablePersistence, err := cmdutil.EnvBool("DEBUGHUB_ENABLE_PERSISTENCE", cfg.EnablePersistence)
	if err != nil {
		fmt.Fprintf(stderr, "invalid DEBUGHUB_ENABLE_PERSISTENCE: %v\n", err)
		return 2
	}

	var dbs dbFlag

	fs := flag.NewFlagSet("probe-bridge-harness", flag.ContinueOnError)
	fs.SetOutput(stderr)

	showVersion := false
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.StringVar(&settingsURL, "settings-url", settingsURL, "debughub://host:port?token=... settings url (env: DEBUGHUB_SETTINGS_URL)")
	fs.StringVar(&hubURL, "hub-url", hubURL, "hub websocket url, overrides --settings-url's host (env: DEBUGHUB_HUB_URL)")
	fs.StringVar(&token, "token", token, "bearer token, overrides --settings-url's token (env: DEBUGHUB_TOKEN)")
	fs.StringVar(&stateDir, "state-dir", stateDir, "directory for the spill queue's persisted events (env: DEBUGHUB_STATE_DIR)")
	fs.StringVar(&captureMode, "capture-mode", captureMode, "automatic or manual (env: DEBUGHUB_CAPTURE_MODE)")
	fs.StringVar(&captureScope, "capture-scope", captureScope, "http, websocket, or all (env: DEBUGHUB_CAPTURE_SCOPE)")
	fs.BoolVar(&enablePersistence, "enable-persistence", enablePersistence, "persist undelivered events across reconnects (env: DEBUGHUB_ENABLE_PERSISTENCE)")
	fs.StringVar(&metricsListen, "metrics-listen", metricsListen, "listen address for a Prometheus /metrics endpoint (empty disables) (env: DEBUGHUB_METRICS_LISTEN)")
	fs.Var(&dbs, "db", "id=path[:sensitive=true] sqlite database to expose via the db inspector (repeatable)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if showVersion {
		fmt.Fprintf(stdout, "%s (%s, %s)\n", version, commit, date)
		return 0
	}

	if settingsURL != "" {
		parsed, err := probe.ParseSettingsURL(settingsURL)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		cfg = parsed
	}
	if hubURL != "" {
		cfg.HubURL = hubURL
	}
	if token != "" {
		cfg.Token = token
	}
	cfg.NetworkCaptureMode = probe.CaptureMode(captureMode)
	cfg.NetworkCaptureScope = probe.CaptureScope(captureScope)
	cfg.EnablePersistence = enablePersistence

	if cfg.HubURL == "" {
		fmt.Fprintln(stderr, "missing --hub-url or --settings-url")
		fs.Usage()
		return 2
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer zapLogger.Sync()

	inspector := dbinspect.New([]dbinspect.DatabaseConfig(dbs))
	controller, err := probe.New(cfg, probe.Options{
		Capture:    httpCapture{client: &http.Client{Timeout: 30 * time.Second}},
		Replayer:   httpReplayer{client: &http.Client{Timeout: 30 * time.Second}},
		DBExecutor: dbinspect.Adapter{Inspector: inspector},
		StateDir:   stateDir,
		Logger:     zapLogger.Sugar(),
	})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	var metricsSrv *http.Server
	if metricsListen != "" {
		reg := prom.NewRegistry()
		controller.Bus.SetObserver(prom.NewBusObserver(reg))
		controller.Bridge.SetObserver(prom.NewBridgeObserver(reg))
		controller.Pipeline.SetObserver(prom.NewPipelineObserver(reg))

		mux := http.NewServeMux()
		mux.Handle("/metrics", prom.Handler(reg))
		metricsSrv = &http.Server{Addr: metricsListen, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("metrics server: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	controller.Start(ctx)

	out := ready{
		Version:     version,
		Commit:      commit,
		Date:        date,
		HubURL:      cfg.HubURL,
		SettingsURL: cfg.SettingsURL(),
	}
	if metricsListen != "" {
		out.MetricsURL = "http://" + metricsListen + "/metrics"
	}
	_ = json.NewEncoder(stdout).Encode(out)

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Printf("shutting down")
	cancel()
	controller.Stop()
	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = metricsSrv.Shutdown(shutdownCtx)
		shutdownCancel()
	}
	return 0
}

// httpCapture is the pipeline.Capture implementation used when the
// harness is instrumenting its own outgoing requests rather than a
// host's network stack.
type httpCapture struct {
	client *http.Client
}

func (h httpCapture) Do(ctx context.Context, req pipeline.HTTPRequest) (pipeline.HTTPResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return pipeline.HTTPResponse{}, err
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if len(req.Body) > 0 {
		httpReq.Body = io.NopCloser(strings.NewReader(string(req.Body)))
	}
	resp, err := h.client.Do(httpReq)
	if err != nil {
		return pipeline.HTTPResponse{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return pipeline.HTTPResponse{}, err
	}
	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return pipeline.HTTPResponse{StatusCode: resp.StatusCode, Headers: headers, Body: body}, nil
}
