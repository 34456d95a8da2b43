package tui

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
)

func newSimScreen(t *testing.T, cols, rows int) (tcell.SimulationScreen, *View) {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	v, err := NewView(s)
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}
	s.SetSize(cols, rows)
	t.Cleanup(v.Close)
	return s, v
}

func TestView_Draw(t *testing.T) {
	s, v := newSimScreen(t, 2, 1)

	// 2x2 field: top row red, bottom row blue
	rgba := []byte{
		255, 0, 0, 255, 255, 0, 0, 255,
		0, 0, 255, 255, 0, 0, 255, 255,
	}
	v.Draw(rgba, 2, 2)

	for x := 0; x < 2; x++ {
		r, _, style, _ := s.GetContent(x, 0)
		if r != '▀' {
			t.Errorf("cell %d rune = %q", x, r)
		}
		fg, bg, _ := style.Decompose()
		if fg != tcell.NewRGBColor(255, 0, 0) || bg != tcell.NewRGBColor(0, 0, 255) {
			t.Errorf("cell %d fg %v bg %v", x, fg, bg)
		}
	}
}

func TestView_DrawIgnoresShortImage(t *testing.T) {
	s, v := newSimScreen(t, 2, 1)
	v.Draw([]byte{1, 2, 3}, 2, 2)
	if r, _, _, _ := s.GetContent(0, 0); r == '▀' {
		t.Error("short image was drawn")
	}
}

func TestView_Poll(t *testing.T) {
	s, v := newSimScreen(t, 4, 4)

	if a := v.Poll(); a != ActionNone {
		t.Fatalf("Poll with no input = %v", a)
	}

	s.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v.Poll() == ActionQuit {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("quit key not observed")
}
