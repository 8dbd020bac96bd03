package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func testModel(dates []time.Time) progressModel {
	cfg := validConfig()
	return newProgressModel(nil, cfg, dates)
}

func testDates(n int) []time.Time {
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = time.Date(2024, 1, 15+i, 0, 0, 0, 0, time.UTC)
	}
	return dates
}

func TestProgressModelMessages(t *testing.T) {
	t.Run("keeps last 10", func(t *testing.T) {
		m := testModel(nil)
		for i := 0; i < 15; i++ {
			m.addMessage("message")
		}
		if len(m.messages) != 10 {
			t.Errorf("expected 10 messages, got %d", len(m.messages))
		}
	})

	t.Run("date complete success", func(t *testing.T) {
		m := testModel(testDates(3))
		updated, _ := m.handleDateCompleteMsg(dateCompleteMsg{
			index: 0,
			result: DateResult{
				Date:            time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				SourcePartition: "P_20240115",
				Records:         4200,
				Status:          StatusSuccess,
				Duration:        2 * time.Second,
			},
		})
		pm := updated.(progressModel)
		if len(pm.results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(pm.results))
		}
		if pm.currentIndex != 1 {
			t.Errorf("currentIndex = %d, want 1", pm.currentIndex)
		}
		last := pm.messages[len(pm.messages)-1]
		if !strings.Contains(last, "4200 rows") {
			t.Errorf("unexpected completion message: %s", last)
		}
	})

	t.Run("date complete failure", func(t *testing.T) {
		m := testModel(testDates(3))
		updated, _ := m.handleDateCompleteMsg(dateCompleteMsg{
			index: 0,
			result: DateResult{
				Date:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				Status: StatusError,
				Error:  errors.New("exchange failed"),
			},
		})
		pm := updated.(progressModel)
		last := pm.messages[len(pm.messages)-1]
		if !strings.Contains(last, "exchange failed") {
			t.Errorf("unexpected failure message: %s", last)
		}
	})

	t.Run("date complete skip", func(t *testing.T) {
		m := testModel(testDates(3))
		updated, _ := m.handleDateCompleteMsg(dateCompleteMsg{
			index: 0,
			result: DateResult{
				Date:       time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				Skipped:    true,
				SkipReason: "no partition holds this date",
			},
		})
		pm := updated.(progressModel)
		last := pm.messages[len(pm.messages)-1]
		if !strings.Contains(last, "no partition holds this date") {
			t.Errorf("unexpected skip message: %s", last)
		}
	})
}

func TestProgressModelPhases(t *testing.T) {
	m := testModel(testDates(2))

	updated, _ := m.handlePhaseChangeMsg(phaseChangeMsg{phase: PhaseValidating})
	pm := updated.(progressModel)
	if pm.phase != PhaseValidating {
		t.Errorf("phase = %v, want PhaseValidating", pm.phase)
	}

	updated, _ = pm.handlePhaseChangeMsg(phaseChangeMsg{phase: PhaseProcessing})
	pm = updated.(progressModel)
	if pm.phase != PhaseProcessing {
		t.Errorf("phase = %v, want PhaseProcessing", pm.phase)
	}
	if pm.currentStage != "" {
		t.Errorf("currentStage = %q, want empty at processing start", pm.currentStage)
	}

	updated, _ = pm.handleRunCompleteMsg(runCompleteMsg{summary: RunSummary{Status: StatusSuccess}})
	pm = updated.(progressModel)
	if pm.phase != PhaseComplete || !pm.done {
		t.Errorf("run completion left phase=%v done=%v", pm.phase, pm.done)
	}
}

func TestProgressModelQuitCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := newProgressModel(cancel, validConfig(), testDates(2))

	updated, cmd := m.handleKeyMsg(keyMsg("q"))
	pm := updated.(progressModel)
	if !pm.done {
		t.Error("quit key did not mark the model done")
	}
	if cmd == nil {
		t.Error("quit key returned no command")
	}
	select {
	case <-ctx.Done():
	default:
		t.Error("quit key did not cancel the run context")
	}
}

func TestProgressModelView(t *testing.T) {
	m := testModel(testDates(2))
	view := m.View()
	if !strings.Contains(view, "Partition Exchanger") {
		t.Error("view missing banner title")
	}
	if !strings.Contains(view, "Press Ctrl+C or 'q' to quit") {
		t.Error("view missing quit hint")
	}

	m.phase = PhaseComplete
	m.done = true
	if m.View() != "" {
		t.Error("completed model should render nothing")
	}
}
