// Package tui presents the trail field in a terminal.
package tui

import (
	"github.com/gdamore/tcell/v2"
)

// Action is a user request read from the terminal.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionPause
)

// View draws the trail field into a terminal. Each cell shows two
// vertically stacked texels with an upper half block: the foreground is
// the upper texel, the background the lower one.
type View struct {
	screen tcell.Screen
	events chan tcell.Event
	quit   chan struct{}
}

// NewView initializes screen and starts reading its events.
func NewView(screen tcell.Screen) (*View, error) {
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.HideCursor()
	screen.Clear()

	v := &View{
		screen: screen,
		events: make(chan tcell.Event, 16),
		quit:   make(chan struct{}),
	}
	go screen.ChannelEvents(v.events, v.quit)
	return v, nil
}

// Poll drains pending events without blocking and returns the last action.
func (v *View) Poll() Action {
	action := ActionNone
	for {
		select {
		case ev, ok := <-v.events:
			if !ok {
				return ActionQuit
			}
			if a := v.handle(ev); a != ActionNone {
				action = a
			}
		default:
			return action
		}
	}
}

func (v *View) handle(ev tcell.Event) Action {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC:
			return ActionQuit
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
			return ActionQuit
		case ev.Key() == tcell.KeyRune && ev.Rune() == ' ':
			return ActionPause
		}
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return ActionNone
}

// Draw samples a w x h RGBA8 image onto the whole screen.
func (v *View) Draw(rgba []byte, w, h int) {
	if w <= 0 || h <= 0 || len(rgba) < w*h*4 {
		return
	}
	cols, rows := v.screen.Size()
	if cols <= 0 || rows <= 0 {
		return
	}
	texel := func(px, py int) tcell.Color {
		i := (py*w + px) * 4
		return tcell.NewRGBColor(int32(rgba[i]), int32(rgba[i+1]), int32(rgba[i+2]))
	}
	for cy := 0; cy < rows; cy++ {
		top := (2 * cy) * h / (2 * rows)
		bottom := (2*cy + 1) * h / (2 * rows)
		for cx := 0; cx < cols; cx++ {
			px := cx * w / cols
			style := tcell.StyleDefault.Foreground(texel(px, top)).Background(texel(px, bottom))
			v.screen.SetContent(cx, cy, '▀', nil, style)
		}
	}
	v.screen.Show()
}

// Close stops event delivery and restores the terminal.
func (v *View) Close() {
	close(v.quit)
	v.screen.Fini()
}
