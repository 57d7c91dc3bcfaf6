package ui

import (
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"latex-ocr/src/config"
	"latex-ocr/src/history"
	"latex-ocr/src/latexfmt"
	"latex-ocr/src/messages"
	"latex-ocr/src/settings"
)

// Dialogs only report the user's choice back to the event loop; the loop applies it.

func (a *App) ShowCredentials(current config.Credentials) {
	a.do(func() {
		id := widget.NewEntry()
		id.SetText(current.AppID)
		secret := widget.NewPasswordEntry()
		secret.SetText(current.AppSecret)
		explainKey := widget.NewPasswordEntry()
		explainKey.SetText(current.ExplainKey)
		explainKey.SetPlaceHolder("DeepSeek API key")
		enabled := widget.NewCheck("Explain formulas with DeepSeek", func(on bool) {
			if on {
				explainKey.Enable()
			} else {
				explainKey.Disable()
			}
		})
		enabled.SetChecked(current.ExplainEnabled)
		if !current.ExplainEnabled {
			explainKey.Disable()
		}

		items := []*widget.FormItem{
			widget.NewFormItem("App ID", id),
			widget.NewFormItem("App Secret", secret),
			widget.NewFormItem("", enabled),
			widget.NewFormItem("DeepSeek key", explainKey),
		}
		d := dialog.NewForm("API settings", "Save", "Cancel", items, func(ok bool) {
			if !ok {
				return
			}
			a.send(messages.CredentialsChanged{Credentials: config.Credentials{
				AppID:          id.Text,
				AppSecret:      secret.Text,
				ExplainKey:     explainKey.Text,
				ExplainEnabled: enabled.Checked,
			}})
		}, a.main)
		d.Resize(fyne.NewSize(420, 0))
		d.Show()
	})
}

func (a *App) ShowHotkeys(current settings.Hotkeys) {
	a.do(func() {
		capture := widget.NewEntry()
		capture.SetText(current.Capture)
		capture.SetPlaceHolder(settings.DefaultCapture)
		upload := widget.NewEntry()
		upload.SetText(current.Upload)
		upload.SetPlaceHolder(settings.DefaultUpload)

		items := []*widget.FormItem{
			widget.NewFormItem("Screenshot", capture),
			widget.NewFormItem("Upload image", upload),
		}
		items[0].HintText = "e.g. Alt+C, Ctrl+Shift+F1"
		dialog.ShowForm("Hotkeys", "Save", "Cancel", items, func(ok bool) {
			if !ok {
				return
			}
			h := settings.Hotkeys{Capture: capture.Text, Upload: upload.Text}
			if strings.EqualFold(strings.TrimSpace(h.Capture), strings.TrimSpace(h.Upload)) && h.Capture != "" {
				a.errorf("screenshot and upload hotkeys must differ")
				return
			}
			a.send(messages.HotkeysChanged{Hotkeys: h})
		}, a.main)
	})
}

func (a *App) ShowHistory(entries []history.Entry) {
	a.do(func() {
		rows := container.NewVBox()
		var d dialog.Dialog
		act := func(msg messages.Message) {
			d.Hide()
			a.send(msg)
		}

		for _, e := range entries {
			latex := e.Latex
			formula := widget.NewLabel(latex)
			formula.Wrapping = fyne.TextWrapBreak
			formula.TextStyle = fyne.TextStyle{Monospace: true}

			use := widget.NewButton("Use", func() {
				act(messages.HistoryAction{Kind: messages.HistoryUse, Latex: latex, Mode: latexfmt.Normal})
			})
			useAs := widget.NewSelect(useLabels(), func(label string) {
				mode, _ := latexfmt.ParseMode(label)
				act(messages.HistoryAction{Kind: messages.HistoryUse, Latex: latex, Mode: mode})
			})
			useAs.PlaceHolder = "Use as..."
			del := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {
				act(messages.HistoryAction{Kind: messages.HistoryDelete, Latex: latex})
			})

			header := container.NewHBox(widget.NewLabelWithStyle(e.Date, fyne.TextAlignLeading, fyne.TextStyle{Italic: true}),
				layout.NewSpacer(), use, useAs, del)
			rows.Add(container.NewVBox(header, formula, widget.NewSeparator()))
		}

		clearBtn := widget.NewButtonWithIcon("Clear history", theme.DeleteIcon(), func() {
			dialog.ShowConfirm("Clear history", "Delete all history entries?", func(ok bool) {
				if ok {
					act(messages.HistoryAction{Kind: messages.HistoryClear})
				}
			}, a.main)
		})
		scroll := container.NewVScroll(rows)
		scroll.SetMinSize(fyne.NewSize(560, 360))

		d = dialog.NewCustom("History", "Close", container.NewBorder(nil, container.NewHBox(layout.NewSpacer(), clearBtn), nil, nil, scroll), a.main)
		d.Show()
	})
}

func (a *App) ShowExplanation(latex, markdown string) {
	a.do(func() {
		formula := widget.NewLabelWithStyle(latex, fyne.TextAlignLeading, fyne.TextStyle{Monospace: true})
		formula.Wrapping = fyne.TextWrapBreak
		body := widget.NewRichTextFromMarkdown(markdown)
		body.Wrapping = fyne.TextWrapWord

		scroll := container.NewVScroll(body)
		scroll.SetMinSize(fyne.NewSize(560, 360))
		content := container.NewBorder(container.NewVBox(formula, widget.NewSeparator()), nil, nil, nil, scroll)
		dialog.NewCustom("Formula explanation", "Close", content, a.main).Show()
	})
}

func useLabels() []string {
	var out []string
	for _, m := range latexfmt.Modes {
		if m == latexfmt.Normal {
			continue
		}
		out = append(out, m.Label())
	}
	return out
}
