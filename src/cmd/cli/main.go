package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"latex-ocr/src/config"
	"latex-ocr/src/explain"
	"latex-ocr/src/latexfmt"
	"latex-ocr/src/logutil"
	"latex-ocr/src/recognize"
	"latex-ocr/src/simpletex"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

type cliOptions struct {
	filePath   string
	jsonOutput bool
	verbose    bool
	mode       string
	endpoint   string
	dataDir    string
	explain    bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"latex-ocr-cli"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "latex-ocr-cli",
		Short:         "Recognize a formula image as LaTeX",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(cmd, *opts)
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to a PNG, JPEG or BMP image (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.mode, "mode", string(latexfmt.Normal), "Output format: normal, inline, display, equation or mathml")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "Override the SimpleTex endpoint URL")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Directory holding settings.json")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Also explain the formula with DeepSeek (needs a DeepSeek API key)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWithOptions(cmd *cobra.Command, opts cliOptions) error {
	stderr := cmd.ErrOrStderr()
	verbosef := func(format string, args ...any) {
		if opts.verbose {
			fmt.Fprintf(stderr, "[verbose] "+format+"\n", args...)
		}
	}

	// Configure logging BEFORE any other operations.
	if opts.verbose {
		log.SetOutput(stderr)
	} else {
		log.SetOutput(io.Discard)
	}
	verbosef("Starting LaTeX OCR")

	mode, ok := latexfmt.ParseMode(opts.mode)
	if !ok {
		return fmt.Errorf("unknown mode %q", opts.mode)
	}

	cfg, err := config.LoadWithOptions(config.LoadOptions{DataDirOverride: opts.dataDir, EndpointOverride: opts.endpoint})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	creds, err := config.LoadCredentials(cfg.CredentialsPath(), cfg.Credentials)
	if err != nil {
		verbosef("Ignoring credentials file: %v", err)
	}
	if opts.explain && strings.TrimSpace(creds.ExplainKey) == "" {
		return fmt.Errorf("--explain needs DEEPSEEK_API_KEY or deepseek_api_key in %s", cfg.CredentialsPath())
	}
	if !creds.Valid() {
		return fmt.Errorf("API credentials not found. Checked %s and SIMPLETEX_APP_ID/SIMPLETEX_APP_SECRET", cfg.CredentialsPath())
	}
	verbosef("Endpoint: %s", cfg.Endpoint)
	verbosef("%s", credentialSummary(creds))

	path, cleanup, err := resolveInput(opts.filePath, cmd.InOrStdin(), verbosef)
	if err != nil {
		return err
	}
	defer cleanup()

	pipeline := recognize.New(simpletex.New(cfg.Endpoint, cfg.RequestTimeout()))
	start := time.Now()
	res := pipeline.Run(context.Background(), path, creds, func(msg string) { verbosef("%s", msg) })
	elapsed := time.Since(start)
	if !res.Success() {
		verbosef("Recognition failed after %v", elapsed)
		return fmt.Errorf("recognition failed: %s", res.Message())
	}
	verbosef("Recognition completed in %v", elapsed)

	text, err := latexfmt.Format(res.Latex, mode)
	if err != nil {
		return err
	}
	result := Result{
		Latex:     res.Latex,
		Formatted: text,
		Mode:      string(mode),
		Source:    opts.filePath,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  elapsed.Seconds(),
	}

	if opts.explain {
		verbosef("Explaining formula with %s", cfg.ExplainModel)
		client := explain.New(cfg.ExplainEndpoint, cfg.ExplainModel, cfg.RequestTimeout())
		result.Explanation, err = client.Explain(context.Background(), res.Latex, creds.ExplainKey)
		if err != nil {
			return fmt.Errorf("explanation failed: %w", err)
		}
	}
	return outputResult(cmd.OutOrStdout(), result, opts.jsonOutput)
}

// resolveInput validates the image and returns a path the pipeline can read. Stdin
// is spooled to a temporary file that cleanup removes.
func resolveInput(filePath string, stdin io.Reader, verbosef func(string, ...any)) (string, func(), error) {
	noop := func() {}
	var data []byte
	var err error

	if filePath == "-" {
		verbosef("Reading image from stdin")
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return "", noop, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		verbosef("Reading image from file: %s", filePath)
		data, err = os.ReadFile(filePath)
		if err != nil {
			return "", noop, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}

	if err := validateImage(data); err != nil {
		return "", noop, err
	}
	verbosef("Read %d bytes", len(data))

	if filePath != "-" {
		return filePath, noop, nil
	}
	f, err := os.CreateTemp("", "latex-ocr-stdin-*")
	if err != nil {
		return "", noop, fmt.Errorf("failed to buffer stdin: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", noop, fmt.Errorf("failed to buffer stdin: %w", err)
	}
	f.Close()
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

func validateImage(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	switch ct := http.DetectContentType(data); ct {
	case "image/png", "image/jpeg", "image/bmp":
		return nil
	default:
		return fmt.Errorf("input is not a PNG, JPEG or BMP image (detected %s)", ct)
	}
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	long := []string{"file", "json", "verbose", "mode", "endpoint", "data-dir", "explain"}
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range long {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}

// credentialSummary describes creds for verbose output without revealing the secret.
func credentialSummary(creds config.Credentials) string {
	return fmt.Sprintf("App ID: %s, secret: %s", creds.AppID, logutil.RedactKey(creds.AppSecret))
}

type Result struct {
	Latex       string  `json:"latex"`
	Formatted   string  `json:"formatted"`
	Mode        string  `json:"mode"`
	Source      string  `json:"source"`
	Timestamp   string  `json:"timestamp"`
	Duration    float64 `json:"duration_seconds"`
	Explanation string  `json:"explanation,omitempty"`
}

func outputResult(w io.Writer, result Result, jsonOutput bool) error {
	if jsonOutput {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		if err := encoder.Encode(result); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}
	fmt.Fprint(w, result.Formatted)
	if result.Explanation != "" {
		fmt.Fprintf(w, "\n\n%s\n", result.Explanation)
	}
	return nil
}
