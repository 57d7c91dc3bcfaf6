package ui

import (
	"image"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"latex-ocr/src/capture"
	"latex-ocr/src/messages"
	"latex-ocr/src/screenshot"
)

// overlay is the borderless full-screen window that hosts the selection surface.
// It is created once and reused for every capture.
type overlay struct {
	app     fyne.App
	win     fyne.Window
	surface *surface
	send    func(messages.Message)
	shown   bool
}

func newOverlay(a fyne.App, send func(messages.Message)) *overlay {
	o := &overlay{app: a, send: send}
	o.surface = newSurface(o.finish)
	return o
}

func (o *overlay) window() fyne.Window {
	if o.win != nil {
		return o.win
	}
	if drv, ok := o.app.Driver().(desktop.Driver); ok {
		o.win = drv.CreateSplashWindow()
	} else {
		o.win = o.app.NewWindow("Capture")
	}
	o.win.SetPadded(false)
	o.win.SetContent(o.surface)
	o.win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			o.surface.escape()
		}
	})
	o.win.SetCloseIntercept(func() { o.surface.escape() })
	return o.win
}

// show arms the surface over the part of background covered by the primary display.
func (o *overlay) show(background *image.RGBA) {
	area := background.Bounds()
	if primary := screenshot.PrimaryBounds(); !primary.Empty() {
		if a := primary.Intersect(area); !a.Empty() {
			area = a
		}
	}
	bg, ok := background.SubImage(area).(*image.RGBA)
	if !ok {
		bg = background
	}
	o.surface.arm(bg)

	w := o.window()
	w.SetFullScreen(true)
	w.Show()
	w.RequestFocus()
	o.shown = true
}

func (o *overlay) close() {
	if o.win != nil && o.shown {
		o.win.Hide()
	}
	o.shown = false
	o.surface.reset()
}

func (o *overlay) finish(state capture.State, rect image.Rectangle) {
	switch state {
	case capture.Committed:
		log.Printf("Overlay: selected %v", rect)
		o.send(messages.RegionSelected{Rect: rect})
	case capture.Cancelled:
		log.Printf("Overlay: cancelled")
		o.send(messages.CaptureCancelled{})
	}
}

// surface draws the masked screen image and turns pointer input into machine events.
// Points handed to the machine are absolute screen coordinates.
type surface struct {
	widget.BaseWidget

	machine *capture.Machine
	raster  *canvas.Raster
	bg      *image.RGBA
	frame   image.Image
	last    image.Point
	done    func(capture.State, image.Rectangle)
}

var (
	_ desktop.Mouseable  = (*surface)(nil)
	_ desktop.Cursorable = (*surface)(nil)
	_ fyne.Draggable     = (*surface)(nil)
)

func newSurface(done func(capture.State, image.Rectangle)) *surface {
	s := &surface{machine: capture.NewMachine(), done: done}
	s.raster = canvas.NewRaster(func(w, h int) image.Image {
		if s.frame == nil {
			return image.NewRGBA(image.Rect(0, 0, 1, 1))
		}
		return s.frame
	})
	s.ExtendBaseWidget(s)
	return s
}

func (s *surface) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(s.raster)
}

func (s *surface) Cursor() desktop.Cursor { return desktop.CrosshairCursor }

func (s *surface) arm(bg *image.RGBA) {
	s.bg = bg
	s.machine.Arm()
	s.redraw()
}

func (s *surface) reset() {
	s.machine.Reset()
	s.bg = nil
	s.frame = nil
}

func (s *surface) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary || s.bg == nil {
		return
	}
	s.last = s.toScreen(ev.Position)
	if s.machine.Press(s.last) {
		s.redraw()
	}
}

func (s *surface) Dragged(ev *fyne.DragEvent) {
	s.last = s.toScreen(ev.Position)
	if s.machine.Move(s.last) {
		s.redraw()
	}
}

func (s *surface) DragEnd() {
	s.release(s.last)
}

func (s *surface) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary || s.bg == nil {
		return
	}
	s.release(s.toScreen(ev.Position))
}

func (s *surface) release(p image.Point) {
	if s.machine.State() != capture.Dragging {
		return
	}
	state := s.machine.Release(p)
	rect, _ := s.machine.Selection()
	s.redraw()
	s.done(state, rect)
}

func (s *surface) escape() {
	if s.machine.Escape() {
		s.redraw()
		s.done(capture.Cancelled, image.Rectangle{})
	}
}

func (s *surface) redraw() {
	if s.bg == nil {
		return
	}
	sel, visible := s.machine.Selection()
	s.frame = capture.Render(s.bg, sel, visible)
	s.raster.Refresh()
}

func (s *surface) toScreen(pos fyne.Position) image.Point {
	if s.bg == nil {
		return image.Point{}
	}
	return toScreen(pos, s.Size(), s.bg.Bounds())
}

// toScreen maps a position on a widget of the given size, which displays bounds
// stretched to fill it, to absolute screen pixels.
func toScreen(pos fyne.Position, size fyne.Size, bounds image.Rectangle) image.Point {
	if size.Width <= 0 || size.Height <= 0 {
		return bounds.Min
	}
	sx := float32(bounds.Dx()) / size.Width
	sy := float32(bounds.Dy()) / size.Height
	p := image.Pt(
		bounds.Min.X+int(pos.X*sx+0.5),
		bounds.Min.Y+int(pos.Y*sy+0.5),
	)
	return clamp(p, bounds)
}

func clamp(p image.Point, r image.Rectangle) image.Point {
	if p.X < r.Min.X {
		p.X = r.Min.X
	}
	if p.X > r.Max.X {
		p.X = r.Max.X
	}
	if p.Y < r.Min.Y {
		p.Y = r.Min.Y
	}
	if p.Y > r.Max.Y {
		p.Y = r.Max.Y
	}
	return p
}
