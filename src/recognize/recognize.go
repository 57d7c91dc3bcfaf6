// Package recognize turns an image file into a LaTeX string through the SimpleTex
// service. Every failure is folded into the terminal Result; nothing escapes as an error.
package recognize

import (
	"context"
	"log"
	"os"
	"strings"

	"latex-ocr/src/apperr"
	"latex-ocr/src/config"
	"latex-ocr/src/logutil"
	"latex-ocr/src/signer"
	"latex-ocr/src/simpletex"
)

const (
	ProgressPreparing = "Preparing image..."
	ProgressBuilding  = "Building request..."
	ProgressSending   = "Sending request..."
	ProgressParsing   = "Parsing response..."
)

// Result is the terminal outcome of one recognition run.
type Result struct {
	Latex string
	Err   error
}

// Success reports whether the run produced a formula.
func (r Result) Success() bool { return r.Err == nil }

// Message is the user-facing failure text, empty on success.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Event is either a progress string or the terminal Result.
type Event struct {
	Progress string
	Result   *Result
}

// Pipeline holds the collaborators of a run. Fields are extra form fields sent
// with the image and included in the signature.
type Pipeline struct {
	Client *simpletex.Client
	Signer *signer.Signer
	Fields map[string]string
}

// New creates a pipeline for the given endpoint client.
func New(client *simpletex.Client) *Pipeline {
	return &Pipeline{Client: client, Signer: signer.New()}
}

// Recognize runs asynchronously. The returned channel carries the progress events in
// order, then exactly one Result, and is then closed.
func (p *Pipeline) Recognize(ctx context.Context, imagePath string, creds config.Credentials) <-chan Event {
	out := make(chan Event, 5)
	go func() {
		defer close(out)
		res := p.Run(ctx, imagePath, creds, func(msg string) {
			out <- Event{Progress: msg}
		})
		out <- Event{Result: &res}
	}()
	return out
}

// Run is the synchronous form of Recognize. progress may be nil.
func (p *Pipeline) Run(ctx context.Context, imagePath string, creds config.Credentials, progress func(string)) Result {
	report := func(msg string) {
		if progress != nil {
			progress(msg)
		}
	}

	report(ProgressPreparing)
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return fail(apperr.Wrap(err, apperr.KindIO, "failed to read image"))
	}

	report(ProgressBuilding)
	creds = creds.Trimmed()
	if !creds.Valid() {
		return fail(apperr.New(apperr.KindConfig, "API credentials are not configured"))
	}
	fields := p.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	header := p.Signer.Sign(fields, creds.AppID, creds.AppSecret)
	log.Printf("Recognize: signed request for %s (app-id=%s, secret=%s)", imagePath, creds.AppID, logutil.RedactKey(creds.AppSecret))

	report(ProgressSending)
	body, status, err := p.Client.Send(ctx, imagePath, image, header, fields)
	if err != nil {
		return fail(apperr.Wrap(err, apperr.KindNetwork, "network error"))
	}
	log.Printf("Recognize: HTTP %d, %d bytes", status, len(body))

	report(ProgressParsing)
	resp, err := simpletex.Decode(body)
	if err != nil {
		return fail(apperr.Wrap(err, apperr.KindParse, "failed to parse response"))
	}
	return interpret(resp)
}

func interpret(resp *simpletex.Response) Result {
	if !resp.Status {
		msg := strings.TrimSpace(resp.Message)
		if msg == "" {
			msg = "unknown error"
		}
		return fail(apperr.New(apperr.KindRemote, msg))
	}
	if resp.Res == nil || strings.TrimSpace(resp.Res.Latex) == "" {
		return fail(apperr.New(apperr.KindValidation, "empty result"))
	}
	latex := strings.TrimSpace(resp.Res.Latex)
	log.Printf("Recognize: success %q", logutil.Sanitize(latex))
	return Result{Latex: latex}
}

func fail(err *apperr.Error) Result {
	log.Printf("Recognize: %s failure: %v", err.Kind, err)
	return Result{Err: err}
}
