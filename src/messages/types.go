package messages

import (
	"image"

	"latex-ocr/src/config"
	"latex-ocr/src/explain"
	"latex-ocr/src/latexfmt"
	"latex-ocr/src/recognize"
	"latex-ocr/src/settings"
)

// Message is the base interface for everything posted to the event loop.
type Message interface {
	Type() string
}

// MessageType constants for type identification
const (
	TypeCaptureRequested     = "CaptureRequested"
	TypeUploadRequested      = "UploadRequested"
	TypeImageChosen          = "ImageChosen"
	TypeRegionSelected       = "RegionSelected"
	TypeCaptureCancelled     = "CaptureCancelled"
	TypeRecognitionEvent     = "RecognitionEvent"
	TypeCopyRequested        = "CopyRequested"
	TypeExplainRequested     = "ExplainRequested"
	TypeExplainFinished      = "ExplainFinished"
	TypeHistoryRequested     = "HistoryRequested"
	TypeHistoryAction        = "HistoryAction"
	TypeCredentialsRequested = "CredentialsRequested"
	TypeCredentialsChanged   = "CredentialsChanged"
	TypeHotkeysRequested     = "HotkeysRequested"
	TypeHotkeysChanged       = "HotkeysChanged"
	TypeAboutRequested       = "AboutRequested"
	TypeShutdown             = "Shutdown"
)

// CaptureRequested - capture hotkey or menu item
type CaptureRequested struct{}

func (m CaptureRequested) Type() string { return TypeCaptureRequested }

// UploadRequested - upload hotkey or menu item
type UploadRequested struct{}

func (m UploadRequested) Type() string { return TypeUploadRequested }

// ImageChosen - sent by the file picker with the selected image
type ImageChosen struct {
	Path string
}

func (m ImageChosen) Type() string { return TypeImageChosen }

// RegionSelected - sent by the overlay when a gesture commits. Rect is in absolute
// screen coordinates.
type RegionSelected struct {
	Rect image.Rectangle
}

func (m RegionSelected) Type() string { return TypeRegionSelected }

// CaptureCancelled - sent by the overlay on Escape or a too-small selection
type CaptureCancelled struct{}

func (m CaptureCancelled) Type() string { return TypeCaptureCancelled }

// RecognitionEvent - one event of run RunID, forwarded from the worker
type RecognitionEvent struct {
	RunID uint64
	Event recognize.Event
}

func (m RecognitionEvent) Type() string { return TypeRecognitionEvent }

// CopyRequested - copy button with the current editor text
type CopyRequested struct {
	Text string
	Mode latexfmt.Mode
}

func (m CopyRequested) Type() string { return TypeCopyRequested }

// ExplainRequested - explain button with the current editor text
type ExplainRequested struct {
	Text string
}

func (m ExplainRequested) Type() string { return TypeExplainRequested }

// ExplainFinished - outcome of explanation run RunID for Latex
type ExplainFinished struct {
	RunID  uint64
	Latex  string
	Result explain.Result
}

func (m ExplainFinished) Type() string { return TypeExplainFinished }

// HistoryRequested - History menu item
type HistoryRequested struct{}

func (m HistoryRequested) Type() string { return TypeHistoryRequested }

type HistoryActionKind int

const (
	HistoryUse HistoryActionKind = iota
	HistoryDelete
	HistoryClear
)

// HistoryAction - result of the history dialog
type HistoryAction struct {
	Kind  HistoryActionKind
	Latex string
	Mode  latexfmt.Mode // HistoryUse only
}

func (m HistoryAction) Type() string { return TypeHistoryAction }

// CredentialsRequested - Settings > API settings
type CredentialsRequested struct{}

func (m CredentialsRequested) Type() string { return TypeCredentialsRequested }

// CredentialsChanged - result of the API settings dialog
type CredentialsChanged struct {
	Credentials config.Credentials
}

func (m CredentialsChanged) Type() string { return TypeCredentialsChanged }

// HotkeysRequested - Settings > Hotkeys
type HotkeysRequested struct{}

func (m HotkeysRequested) Type() string { return TypeHotkeysRequested }

// HotkeysChanged - result of the hotkey settings dialog
type HotkeysChanged struct {
	Hotkeys settings.Hotkeys
}

func (m HotkeysChanged) Type() string { return TypeHotkeysChanged }

// AboutRequested - Help > About
type AboutRequested struct{}

func (m AboutRequested) Type() string { return TypeAboutRequested }

// Shutdown - main window closed or Quit selected
type Shutdown struct{}

func (m Shutdown) Type() string { return TypeShutdown }
