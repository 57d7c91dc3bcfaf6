package eventloop

import (
	"context"
	"fmt"
	"image"
	"log"
	"strings"
	"sync"
	"time"

	"latex-ocr/src/config"
	"latex-ocr/src/explain"
	"latex-ocr/src/history"
	"latex-ocr/src/hotkey"
	"latex-ocr/src/latexfmt"
	"latex-ocr/src/logutil"
	"latex-ocr/src/messages"
	"latex-ocr/src/recognize"
	"latex-ocr/src/screenshot"
	"latex-ocr/src/settings"
	"latex-ocr/src/worker"
)

const (
	StatusReady      = "Ready"
	StatusPreparing  = "Preparing recognition..."
	StatusComplete   = "Recognition complete"
	StatusFailed     = "Recognition failed"
	StatusCopied     = "Copied to clipboard"
	StatusExplaining = "Explaining formula..."
	StatusExplained  = "Explanation ready"
	failedTextPrefix = "Recognition failed: "
	explainFailed    = "Explanation failed: "

	defaultHideDelay = 200 * time.Millisecond
	queueSize        = 32
)

// View is the UI surface driven by the loop. Implementations must not block; the
// fyne implementation marshals every call onto the UI thread.
type View interface {
	ShowMain()
	HideMain()
	ShowOverlay(background *image.RGBA)
	CloseOverlay()
	ShowImage(path string)
	SetLatex(text string)
	SetStatus(text string)
	SetHistory(entries []history.Entry)
	ChooseImage()
	ShowHistory(entries []history.Entry)
	ShowCredentials(current config.Credentials)
	ShowHotkeys(current settings.Hotkeys)
	ShowInfo(title, message string)
	ShowExplanation(latex, markdown string)
	Quit()
}

// Screen grabs pixels for the overlay and for committed selections.
type Screen interface {
	VirtualScreen() (*image.RGBA, error)
	CaptureToTemp(rect image.Rectangle) (string, error)
}

type Recognizer interface {
	Recognize(ctx context.Context, imagePath string, creds config.Credentials) <-chan recognize.Event
}

type Explainer interface {
	Start(ctx context.Context, latex, apiKey string) <-chan explain.Result
}

type HistoryStore interface {
	Entries() []history.Entry
	Add(latex string) (bool, error)
	Remove(latex string) error
	Clear() error
	Destroy() error
}

type HotkeyBinder interface {
	Bind(bindings []hotkey.Binding) error
	Stop()
}

type HotkeySettings interface {
	Load() settings.Hotkeys
	Save(h settings.Hotkeys) settings.Hotkeys
}

// Deps are the collaborators of a Loop. Explainer, SaveCredentials and Clipboard
// may be nil.
type Deps struct {
	View            View
	Screen          Screen
	Recognizer      Recognizer
	Explainer       Explainer
	History         HistoryStore
	Hotkeys         HotkeyBinder
	Settings        HotkeySettings
	SaveCredentials func(config.Credentials) error
	Clipboard       func(text string) error
	Credentials     config.Credentials
}

// Loop is the single-threaded coordinator. It owns the credentials, the hotkey
// bindings, the history, the current run id and the capture temp file; nothing
// else touches them.
type Loop struct {
	deps        Deps
	runner      *worker.Runner[recognize.Event]
	explainer   *worker.Runner[explain.Result]
	scratch     *screenshot.Scratch
	msgs        chan messages.Message
	closing     chan struct{}
	closeOnce   sync.Once
	creds       config.Credentials
	runID       uint64
	explainID   uint64
	capturing   bool
	hideDelay   time.Duration
	commitDelay time.Duration
	appName     string
}

// New creates a loop. cfg supplies the capture delay; nil uses the defaults.
func New(cfg *config.Config, deps Deps) *Loop {
	commitDelay := 100 * time.Millisecond
	if cfg != nil {
		commitDelay = cfg.CaptureDelay()
	}
	return &Loop{
		deps:        deps,
		runner:      worker.New[recognize.Event]("recognition"),
		explainer:   worker.New[explain.Result]("explanation"),
		scratch:     &screenshot.Scratch{},
		msgs:        make(chan messages.Message, queueSize),
		closing:     make(chan struct{}),
		creds:       deps.Credentials.Trimmed(),
		hideDelay:   defaultHideDelay,
		commitDelay: commitDelay,
		appName:     "LaTeX OCR",
	}
}

// Post delivers a message to the loop. It returns false once the loop has shut down.
func (l *Loop) Post(msg messages.Message) bool {
	select {
	case l.msgs <- msg:
		return true
	case <-l.closing:
		return false
	}
}

// TryPost delivers a message unless the queue is full.
func (l *Loop) TryPost(msg messages.Message) bool {
	select {
	case l.msgs <- msg:
		return true
	default:
		log.Printf("EventLoop: dropped %s, queue full", msg.Type())
		return false
	}
}

// Run binds the hotkeys and processes messages until Shutdown is received or ctx
// is cancelled. Shutdown cleanup runs in both cases.
func (l *Loop) Run(ctx context.Context) error {
	l.bindHotkeys(l.deps.Settings.Load())
	l.deps.View.SetHistory(l.deps.History.Entries())
	l.deps.View.SetStatus(StatusReady)

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return ctx.Err()
		case msg := <-l.msgs:
			if _, ok := msg.(messages.Shutdown); ok {
				l.shutdown()
				return nil
			}
			l.handle(ctx, msg)
		}
	}
}

func (l *Loop) handle(ctx context.Context, msg messages.Message) {
	switch m := msg.(type) {
	case messages.CaptureRequested:
		l.handleCapture()
	case messages.RegionSelected:
		l.handleRegion(ctx, m.Rect)
	case messages.CaptureCancelled:
		l.handleCaptureCancelled()
	case messages.UploadRequested:
		l.deps.View.ShowMain()
		l.deps.View.ChooseImage()
	case messages.ImageChosen:
		if strings.TrimSpace(m.Path) != "" {
			l.startRecognition(ctx, m.Path)
		}
	case messages.RecognitionEvent:
		l.handleRecognition(m)
	case messages.CopyRequested:
		l.handleCopy(m)
	case messages.ExplainRequested:
		l.handleExplain(ctx, m.Text)
	case messages.ExplainFinished:
		l.handleExplained(m)
	case messages.HistoryRequested:
		l.showHistory()
	case messages.HistoryAction:
		l.handleHistoryAction(m)
	case messages.CredentialsRequested:
		l.deps.View.ShowCredentials(l.creds)
	case messages.CredentialsChanged:
		l.handleCredentials(m.Credentials)
	case messages.HotkeysRequested:
		l.deps.View.ShowHotkeys(l.deps.Settings.Load())
	case messages.HotkeysChanged:
		l.handleHotkeys(m.Hotkeys)
	case messages.AboutRequested:
		l.deps.View.ShowInfo("About "+l.appName, aboutText)
	default:
		log.Printf("EventLoop: unhandled message %s", msg.Type())
	}
}

func (l *Loop) handleCapture() {
	if l.capturing {
		log.Printf("EventLoop: capture already in progress, ignoring")
		return
	}
	l.capturing = true
	l.deps.View.HideMain()
	time.Sleep(l.hideDelay)

	bg, err := l.deps.Screen.VirtualScreen()
	if err != nil {
		l.captureFailed(err)
		return
	}
	log.Printf("EventLoop: overlay over %v", bg.Bounds())
	l.deps.View.ShowOverlay(bg)
}

func (l *Loop) handleRegion(ctx context.Context, rect image.Rectangle) {
	if !l.capturing {
		return
	}
	l.deps.View.CloseOverlay()
	time.Sleep(l.commitDelay)

	path, err := l.deps.Screen.CaptureToTemp(rect)
	if err != nil {
		l.captureFailed(err)
		return
	}
	l.capturing = false
	l.scratch.Replace(path)
	l.deps.View.ShowMain()
	l.startRecognition(ctx, path)
}

func (l *Loop) handleCaptureCancelled() {
	if !l.capturing {
		return
	}
	l.capturing = false
	l.deps.View.CloseOverlay()
	l.deps.View.ShowMain()
}

func (l *Loop) captureFailed(err error) {
	log.Printf("EventLoop: capture failed: %v", err)
	l.capturing = false
	l.deps.View.CloseOverlay()
	l.deps.View.ShowMain()
	l.deps.View.SetStatus(fmt.Sprintf("Screen capture failed: %v", err))
}

func (l *Loop) startRecognition(ctx context.Context, path string) {
	log.Printf("EventLoop: recognizing %s", path)
	l.deps.View.ShowImage(path)
	l.deps.View.SetLatex("")
	l.deps.View.SetStatus(StatusPreparing)

	creds := l.creds
	rec := l.deps.Recognizer
	l.runID = l.runner.Submit(ctx,
		func(runCtx context.Context) <-chan recognize.Event {
			return rec.Recognize(runCtx, path, creds)
		},
		func(id uint64, ev recognize.Event) {
			select {
			case l.msgs <- messages.RecognitionEvent{RunID: id, Event: ev}:
			case <-l.closing:
			}
		})
}

func (l *Loop) handleRecognition(m messages.RecognitionEvent) {
	if m.RunID != l.runID {
		log.Printf("EventLoop: dropping event of superseded run %d", m.RunID)
		return
	}
	if m.Event.Result == nil {
		l.deps.View.SetStatus(m.Event.Progress)
		return
	}

	res := m.Event.Result
	if !res.Success() {
		l.deps.View.SetLatex(failedTextPrefix + res.Message())
		l.deps.View.SetStatus(StatusFailed)
		return
	}
	l.deps.View.SetLatex(res.Latex)
	l.deps.View.SetStatus(StatusComplete)
	added, err := l.deps.History.Add(res.Latex)
	if err != nil {
		log.Printf("EventLoop: failed to save history: %v", err)
	}
	if added {
		l.deps.View.SetHistory(l.deps.History.Entries())
	}
}

func (l *Loop) handleCopy(m messages.CopyRequested) {
	text := strings.TrimSpace(m.Text)
	if text == "" {
		return
	}
	out, err := latexfmt.Format(text, m.Mode)
	if err != nil {
		l.deps.View.SetStatus(fmt.Sprintf("Copy failed: %v", err))
		return
	}
	if l.deps.Clipboard != nil {
		if err := l.deps.Clipboard(out); err != nil {
			l.deps.View.SetStatus(fmt.Sprintf("Copy failed: %v", err))
			return
		}
	}
	log.Printf("EventLoop: copied %q", logutil.Sanitize(out))
	l.deps.View.SetStatus(StatusCopied)
}

func (l *Loop) handleExplain(ctx context.Context, text string) {
	latex := strings.TrimSpace(text)
	if latex == "" {
		return
	}
	if l.deps.Explainer == nil || !l.creds.CanExplain() {
		l.deps.View.ShowInfo("Explain formula", explainSetupText)
		return
	}
	l.deps.View.SetStatus(StatusExplaining)

	key := l.creds.ExplainKey
	exp := l.deps.Explainer
	l.explainID = l.explainer.Submit(ctx,
		func(runCtx context.Context) <-chan explain.Result {
			return exp.Start(runCtx, latex, key)
		},
		func(id uint64, res explain.Result) {
			select {
			case l.msgs <- messages.ExplainFinished{RunID: id, Latex: latex, Result: res}:
			case <-l.closing:
			}
		})
}

func (l *Loop) handleExplained(m messages.ExplainFinished) {
	if m.RunID != l.explainID {
		log.Printf("EventLoop: dropping superseded explanation %d", m.RunID)
		return
	}
	if m.Result.Err != nil {
		log.Printf("EventLoop: explanation failed: %v", m.Result.Err)
		l.deps.View.SetStatus(explainFailed + m.Result.Err.Error())
		return
	}
	l.deps.View.SetStatus(StatusExplained)
	l.deps.View.ShowExplanation(m.Latex, m.Result.Text)
}

func (l *Loop) showHistory() {
	entries := l.deps.History.Entries()
	if len(entries) == 0 {
		l.deps.View.ShowInfo("History", "No history yet")
		return
	}
	l.deps.View.ShowHistory(entries)
}

func (l *Loop) handleHistoryAction(m messages.HistoryAction) {
	switch m.Kind {
	case messages.HistoryUse:
		text, err := latexfmt.Format(m.Latex, m.Mode)
		if err != nil {
			l.deps.View.SetStatus(fmt.Sprintf("Format failed: %v", err))
			return
		}
		l.deps.View.SetLatex(text)
	case messages.HistoryDelete:
		if err := l.deps.History.Remove(m.Latex); err != nil {
			log.Printf("EventLoop: failed to save history: %v", err)
		}
		entries := l.deps.History.Entries()
		l.deps.View.SetHistory(entries)
		if len(entries) > 0 {
			l.deps.View.ShowHistory(entries)
		}
	case messages.HistoryClear:
		if err := l.deps.History.Clear(); err != nil {
			log.Printf("EventLoop: failed to save history: %v", err)
		}
		l.deps.View.SetHistory(nil)
	}
}

func (l *Loop) handleCredentials(c config.Credentials) {
	l.creds = c.Trimmed()
	if l.deps.SaveCredentials != nil {
		if err := l.deps.SaveCredentials(l.creds); err != nil {
			log.Printf("EventLoop: failed to save credentials: %v", err)
			l.deps.View.ShowInfo("Error", fmt.Sprintf("Failed to save API settings: %v", err))
			return
		}
	}
	log.Printf("EventLoop: credentials updated (app-id=%s, secret=%s, explain=%t)",
		l.creds.AppID, logutil.RedactKey(l.creds.AppSecret), l.creds.CanExplain())
	l.deps.View.ShowInfo("Settings saved", "API settings have been saved")
}

func (l *Loop) handleHotkeys(h settings.Hotkeys) {
	h = h.WithDefaults()
	if err := hotkey.Validate(h.Capture, h.Upload); err != nil {
		log.Printf("EventLoop: rejected hotkeys: %v", err)
		l.deps.View.ShowInfo("Error", err.Error())
		return
	}
	h = l.deps.Settings.Save(h)
	if err := l.bindHotkeys(h); err != nil {
		l.deps.View.ShowInfo("Error", err.Error())
		return
	}
	l.deps.View.ShowInfo("Settings saved", fmt.Sprintf("Capture: %s\nUpload: %s", h.Capture, h.Upload))
}

func (l *Loop) bindHotkeys(h settings.Hotkeys) error {
	err := l.deps.Hotkeys.Bind([]hotkey.Binding{
		{Name: "capture", Combo: h.Capture, Action: func() { l.TryPost(messages.CaptureRequested{}) }},
		{Name: "upload", Combo: h.Upload, Action: func() { l.TryPost(messages.UploadRequested{}) }},
	})
	if err != nil {
		log.Printf("EventLoop: hotkey binding failed: %v", err)
	}
	return err
}

func (l *Loop) shutdown() {
	l.closeOnce.Do(func() {
		log.Printf("EventLoop: shutting down")
		close(l.closing)
		l.runner.Close()
		l.explainer.Close()
		l.deps.Hotkeys.Stop()
		if err := l.deps.History.Destroy(); err != nil {
			log.Printf("EventLoop: failed to remove history: %v", err)
		}
		l.scratch.Release()
		l.deps.View.Quit()
	})
}

const explainSetupText = "Enable formula explanation and enter a DeepSeek API key in Settings > API settings."

const aboutText = `Recognizes formulas in screenshots and images with the SimpleTex API.

Capture: select a screen region with the mouse, Esc cancels. The capture
overlay covers the primary display only.
Upload: pick a PNG, JPG or BMP file.
Results can be copied raw or wrapped for inline, display or equation use.
Explain formula asks DeepSeek for a description when enabled in API settings.`
