package main

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"latex-ocr/src/clipboard"
	"latex-ocr/src/config"
	"latex-ocr/src/eventloop"
	"latex-ocr/src/explain"
	"latex-ocr/src/history"
	"latex-ocr/src/hotkey"
	"latex-ocr/src/logutil"
	"latex-ocr/src/messages"
	"latex-ocr/src/recognize"
	"latex-ocr/src/screenshot"
	"latex-ocr/src/settings"
	"latex-ocr/src/simpletex"
	"latex-ocr/src/ui"
)

const shutdownTimeout = 3 * time.Second

type mainOptions struct {
	dataDir  string
	endpoint string
}

func main() {
	// Ensure DPI awareness before creating any windows or querying metrics
	enableDPIAwareness()

	// fyne drives the UI from the main thread
	runtime.LockOSThread()

	if err := newRootCmd(&mainOptions{}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "latex-ocr",
		Short:         "Capture a formula on screen and recognize it as LaTeX",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(*opts)
		},
	}
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Directory for settings.json, history.json and logs")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "Override the SimpleTex endpoint URL")
	cmd.SetArgs(normalizeLegacyArgs(os.Args)[1:])
	return cmd
}

func runApp(opts mainOptions) error {
	cfg, err := config.LoadWithOptions(config.LoadOptions{DataDirOverride: opts.dataDir, EndpointOverride: opts.endpoint})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	logutil.Setup(cfg.EnableFileLogging, cfg.LogDir())
	logMonitorConfiguration()

	creds, err := config.LoadCredentials(cfg.CredentialsPath(), cfg.Credentials)
	if err != nil {
		log.Printf("Ignoring stored credentials: %v", err)
	}

	store := history.New(cfg.HistoryPath())
	if err := store.Load(); err != nil {
		log.Printf("Starting with empty history: %v", err)
	}

	if err := clipboard.Init(); err != nil {
		// Copy reports the failure per request; recognition still works.
		log.Printf("Clipboard unavailable: %v", err)
	}

	log.Printf("LaTeX OCR initialized")
	log.Printf("Endpoint: %s", cfg.Endpoint)
	log.Printf("Data directory: %s", cfg.DataDir)
	log.Printf("Credentials configured: %t (app id %s)", creds.Valid(), logutil.RedactKey(creds.AppID))
	log.Printf("Formula explanation: %t via %s (%s)", creds.CanExplain(), cfg.ExplainEndpoint, cfg.ExplainModel)

	view := ui.New()
	credentialsPath := cfg.CredentialsPath()
	loop := eventloop.New(cfg, eventloop.Deps{
		View:       view,
		Screen:     screenSource{},
		Recognizer: recognize.New(simpletex.New(cfg.Endpoint, cfg.RequestTimeout())),
		Explainer:  explain.New(cfg.ExplainEndpoint, cfg.ExplainModel, cfg.RequestTimeout()),
		History:    store,
		Hotkeys:    hotkey.NewManager(),
		Settings:   settings.NewStore(view.Preferences()),
		SaveCredentials: func(c config.Credentials) error {
			return config.SaveCredentials(credentialsPath, c)
		},
		Clipboard:   clipboard.Write,
		Credentials: creds,
	})
	view.SetPoster(loop.Post)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("event loop stopped: %v", err)
		}
	}()

	// Handle SIGINT/SIGTERM
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		log.Printf("Signal received, shutting down")
		loop.Post(messages.Shutdown{})
	}()

	view.Run()

	// The window may have closed without a Shutdown message reaching the loop.
	cancel()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		log.Printf("event loop did not stop within %v", shutdownTimeout)
	}
	return nil
}

// screenSource adapts the screenshot package to the event loop.
type screenSource struct{}

func (screenSource) VirtualScreen() (*image.RGBA, error) { return screenshot.VirtualScreen() }

func (screenSource) CaptureToTemp(rect image.Rectangle) (string, error) {
	return screenshot.CaptureToTemp(rect)
}

// normalizeLegacyArgs maps single-dash long flags to their GNU form.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"latex-ocr"}
	}
	normalized := make([]string, len(args))
	copy(normalized, args)
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"data-dir", "endpoint"} {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}
	return normalized
}
