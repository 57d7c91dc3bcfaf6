// Package ui is the fyne front end. Every exported method may be called from any
// goroutine; UI work is marshaled onto the fyne thread with fyne.Do.
package ui

import (
	"fmt"
	"image"
	"log"
	"strings"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"latex-ocr/src/history"
	"latex-ocr/src/latexfmt"
	"latex-ocr/src/messages"
)

const (
	AppID    = "com.latexocr.app"
	appTitle = "LaTeX OCR"

	menuLabelMax = 40
)

// PostFunc delivers a message to the event loop.
type PostFunc func(messages.Message) bool

type App struct {
	app     fyne.App
	main    fyne.Window
	overlay *overlay
	post    atomic.Value // PostFunc
	stopped atomic.Bool

	preview    *canvas.Image
	editor     *widget.Entry
	modeSelect *widget.Select
	status     *widget.Label
	menu       *fyne.MainMenu
	historyMnu *fyne.Menu
}

// New creates the fyne application and its windows without showing them.
func New() *App {
	a := &App{app: app.NewWithID(AppID)}
	a.app.SetIcon(appIcon)
	a.main = a.app.NewWindow(appTitle)
	a.main.SetMaster()
	a.buildMain()
	a.overlay = newOverlay(a.app, a.send)
	a.main.SetCloseIntercept(func() { a.send(messages.Shutdown{}) })
	if !a.installTray() {
		log.Printf("UI: system tray not supported")
	}
	return a
}

// Preferences is the platform preference store of the application.
func (a *App) Preferences() fyne.Preferences { return a.app.Preferences() }

// SetPoster connects the UI to the event loop. It must be called before Run.
func (a *App) SetPoster(post PostFunc) { a.post.Store(post) }

// Run shows the main window and blocks until the application quits.
func (a *App) Run() {
	a.main.ShowAndRun()
	a.stopped.Store(true)
}

func (a *App) send(msg messages.Message) {
	post, _ := a.post.Load().(PostFunc)
	if post == nil {
		log.Printf("UI: no event loop for %s", msg.Type())
		return
	}
	if !post(msg) {
		log.Printf("UI: event loop stopped, dropped %s", msg.Type())
	}
}

func (a *App) do(fn func()) {
	if a.stopped.Load() {
		return
	}
	fyne.Do(fn)
}

func (a *App) buildMain() {
	a.preview = canvas.NewImageFromImage(nil)
	a.preview.FillMode = canvas.ImageFillContain
	a.preview.SetMinSize(fyne.NewSize(480, 180))

	a.editor = widget.NewMultiLineEntry()
	a.editor.Wrapping = fyne.TextWrapWord
	a.editor.SetPlaceHolder("Recognized LaTeX appears here")

	labels := make([]string, len(latexfmt.Modes))
	for i, m := range latexfmt.Modes {
		labels[i] = m.Label()
	}
	a.modeSelect = widget.NewSelect(labels, nil)
	a.modeSelect.SetSelected(latexfmt.Normal.Label())

	copyBtn := widget.NewButtonWithIcon("Copy LaTeX", theme.ContentCopyIcon(), func() {
		mode, _ := latexfmt.ParseMode(a.modeSelect.Selected)
		a.send(messages.CopyRequested{Text: a.editor.Text, Mode: mode})
	})
	explainBtn := widget.NewButtonWithIcon("Explain", theme.HelpIcon(), func() {
		a.send(messages.ExplainRequested{Text: a.editor.Text})
	})
	a.status = widget.NewLabel("")
	a.status.Truncation = fyne.TextTruncateEllipsis

	split := container.NewVSplit(container.NewPadded(a.preview), a.editor)
	split.Offset = 0.45
	bottom := container.NewBorder(nil, nil, nil, container.NewHBox(a.modeSelect, copyBtn, explainBtn), a.status)

	a.main.SetContent(container.NewBorder(nil, bottom, nil, nil, split))
	a.main.Resize(fyne.NewSize(720, 560))

	a.historyMnu = fyne.NewMenu("History")
	a.menu = fyne.NewMainMenu(
		fyne.NewMenu("File",
			fyne.NewMenuItem("Screenshot", func() { a.send(messages.CaptureRequested{}) }),
			fyne.NewMenuItem("Upload image...", func() { a.send(messages.UploadRequested{}) }),
			fyne.NewMenuItemSeparator(),
			quitItem(func() { a.send(messages.Shutdown{}) }),
		),
		fyne.NewMenu("Settings",
			fyne.NewMenuItem("API settings...", func() { a.send(messages.CredentialsRequested{}) }),
			fyne.NewMenuItem("Hotkeys...", func() { a.send(messages.HotkeysRequested{}) }),
		),
		a.historyMnu,
		fyne.NewMenu("Help",
			fyne.NewMenuItem("About", func() { a.send(messages.AboutRequested{}) }),
		),
	)
	a.fillHistoryMenu(nil)
	a.main.SetMainMenu(a.menu)
}

func quitItem(action func()) *fyne.MenuItem {
	item := fyne.NewMenuItem("Quit", action)
	item.IsQuit = true
	return item
}

func (a *App) fillHistoryMenu(entries []history.Entry) {
	items := []*fyne.MenuItem{
		fyne.NewMenuItem("Show history...", func() { a.send(messages.HistoryRequested{}) }),
	}
	if len(entries) > 0 {
		items = append(items, fyne.NewMenuItemSeparator())
	}
	for _, e := range entries {
		latex := e.Latex
		items = append(items, fyne.NewMenuItem(menuLabel(latex), func() {
			a.send(messages.HistoryAction{Kind: messages.HistoryUse, Latex: latex, Mode: latexfmt.Normal})
		}))
	}
	a.historyMnu.Items = items
}

// menuLabel shortens a formula to a single menu line.
func menuLabel(latex string) string {
	s := strings.Join(strings.Fields(latex), " ")
	r := []rune(s)
	if len(r) > menuLabelMax {
		return string(r[:menuLabelMax-3]) + "..."
	}
	return s
}

func (a *App) ShowMain() {
	a.do(func() {
		a.main.Show()
		a.main.RequestFocus()
	})
}

func (a *App) HideMain() {
	a.do(a.main.Hide)
}

func (a *App) ShowOverlay(background *image.RGBA) {
	a.do(func() { a.overlay.show(background) })
}

func (a *App) CloseOverlay() {
	a.do(a.overlay.close)
}

func (a *App) ShowImage(path string) {
	img, err := loadImage(path)
	a.do(func() {
		if err != nil {
			log.Printf("UI: preview unavailable: %v", err)
			a.preview.Image = nil
		} else {
			a.preview.Image = img
		}
		a.preview.Refresh()
	})
}

func (a *App) SetLatex(text string) {
	a.do(func() { a.editor.SetText(text) })
}

func (a *App) SetStatus(text string) {
	a.do(func() { a.status.SetText(text) })
}

func (a *App) SetHistory(entries []history.Entry) {
	a.do(func() {
		a.fillHistoryMenu(entries)
		a.menu.Refresh()
	})
}

func (a *App) ChooseImage() {
	a.do(func() {
		fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
			if err != nil || reader == nil {
				return
			}
			path := reader.URI().Path()
			reader.Close()
			a.send(messages.ImageChosen{Path: path})
		}, a.main)
		fd.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".bmp"}))
		fd.Resize(fyne.NewSize(800, 600))
		fd.Show()
	})
}

func (a *App) ShowInfo(title, message string) {
	a.do(func() { dialog.ShowInformation(title, message, a.main) })
}

func (a *App) Quit() {
	a.do(func() {
		a.overlay.close()
		a.app.Quit()
	})
}

func (a *App) errorf(format string, args ...any) {
	dialog.ShowError(fmt.Errorf(format, args...), a.main)
}
