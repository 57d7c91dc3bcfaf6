package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"latex-ocr/src/messages"
)

// Dashed selection frame around a sigma.
const iconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16" width="16" height="16">
  <rect x="1.5" y="1.5" width="13" height="13" fill="none" stroke="#0078d4" stroke-width="1.2" stroke-dasharray="2,1"/>
  <path d="M11 4.5H5l3.2 3.5L5 11.5h6" fill="none" stroke="#333333" stroke-width="1.4" stroke-linejoin="round"/>
</svg>`

var appIcon = fyne.NewStaticResource("latex-ocr.svg", []byte(iconSVG))

// installTray adds a system tray menu when the driver supports one.
func (a *App) installTray() bool {
	desk, ok := a.app.(desktop.App)
	if !ok {
		return false
	}
	desk.SetSystemTrayMenu(fyne.NewMenu(appTitle,
		fyne.NewMenuItem("Screenshot", func() { a.send(messages.CaptureRequested{}) }),
		fyne.NewMenuItem("Upload image...", func() { a.send(messages.UploadRequested{}) }),
		fyne.NewMenuItem("Show window", func() { a.main.Show() }),
	))
	desk.SetSystemTrayIcon(appIcon)
	return true
}
