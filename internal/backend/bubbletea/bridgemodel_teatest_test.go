package bubbletea

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
)

// TestBridgeModel_CtrlC_QuitsTheProgram drives bridgeModel through a real
// bubbletea.Program loop (teatest's in-memory tty), mirroring the backend's
// actual Start/Stop path instead of calling Update directly.
func TestBridgeModel_CtrlC_QuitsTheProgram(t *testing.T) {
	m := newBridgeModel(make(chan []byte, 8))
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(40, 10))

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))
}

// TestBridgeModel_WindowSize_ReachesTheModelThroughTheProgram checks that
// teatest's initial WindowSizeMsg flows through bridgeModel.Update and is
// observable on the final model, the same path a real terminal resize
// takes.
func TestBridgeModel_WindowSize_ReachesTheModelThroughTheProgram(t *testing.T) {
	m := newBridgeModel(make(chan []byte, 8))
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(40, 10))

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	final, ok := tm.FinalModel(t).(*bridgeModel)
	if !ok {
		t.Fatal("final model is not *bridgeModel")
	}
	if final.width != 40 || final.height != 10 {
		t.Fatalf("expected window size to reach the model via Update, got %dx%d", final.width, final.height)
	}
}
