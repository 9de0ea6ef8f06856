// Package monitor is a tcell/tview TUI stepper over a running Emotion
// Engine core (spec.md §4.9): it shows the register file, the code-cache
// occupancy, and a command line for stepping, invalidating a range, and
// quitting. Adapted from the teacher's debugger/tui.go, dropping the
// source/disassembly/stack/breakpoint/watchpoint panels that depended on
// an ARM assembler and symbol table this repository has no equivalent of.
package monitor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/emu-ps2/ee2/service"
)

// Monitor is the TUI application wrapping one EngineService.
type Monitor struct {
	svc *service.EngineService
	App *tview.Application

	MainLayout   *tview.Flex
	RegisterView *tview.TextView
	CacheView    *tview.TextView
	OutputView   *tview.TextView
	CommandInput *tview.InputField

	history     []string
	historySize int
	running     bool
}

// New builds a Monitor over svc. historySize bounds the output scrollback
// the config.Monitor.HistorySize setting controls.
func New(svc *service.EngineService, historySize int) *Monitor {
	m := &Monitor{
		svc:         svc,
		App:         tview.NewApplication(),
		historySize: historySize,
	}
	m.initializeViews()
	m.buildLayout()
	m.setupKeyBindings()
	return m
}

func (m *Monitor) initializeViews() {
	m.RegisterView = tview.NewTextView().SetDynamicColors(true).SetScrollable(false)
	m.RegisterView.SetBorder(true).SetTitle(" Registers ")

	m.CacheView = tview.NewTextView().SetDynamicColors(true).SetScrollable(false)
	m.CacheView.SetBorder(true).SetTitle(" Code Cache ")

	m.OutputView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(true)
	m.OutputView.SetBorder(true).SetTitle(" Output ")

	m.CommandInput = tview.NewInputField().SetLabel("> ").SetFieldWidth(0)
	m.CommandInput.SetBorder(true).SetTitle(" Command (step N | invalidate S E | dump gpr|cp0|fpr | cache | quit) ")
	m.CommandInput.SetDoneFunc(m.handleCommand)
}

func (m *Monitor) buildLayout() {
	top := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(m.RegisterView, 0, 2, false).
		AddItem(m.CacheView, 0, 1, false)

	m.MainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, 12, 0, false).
		AddItem(m.OutputView, 0, 1, false).
		AddItem(m.CommandInput, 3, 0, true)
}

func (m *Monitor) setupKeyBindings() {
	m.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF11:
			m.runCommand("step 1")
			return nil
		case tcell.KeyCtrlC:
			m.App.Stop()
			return nil
		case tcell.KeyCtrlL:
			m.RefreshAll()
			return nil
		}
		return event
	})
}

func (m *Monitor) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	cmd := m.CommandInput.GetText()
	if cmd == "" {
		return
	}
	m.CommandInput.SetText("")
	m.runCommand(cmd)
}

// runCommand parses and executes one command line, then refreshes the
// views. Recognized verbs: step <n>, invalidate <start> <end>, cache,
// dump gpr|cp0|fpr, quit (or exit).
func (m *Monitor) runCommand(cmd string) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "step":
		n := uint64(1)
		if len(fields) > 1 {
			if v, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
				n = v
			}
		}
		if err := m.svc.Step(n); err != nil {
			m.writeOutput(fmt.Sprintf("[red]error:[white] %v\n", err))
		} else {
			m.writeOutput(fmt.Sprintf("stepped %d cycle(s)\n", n))
		}

	case "invalidate":
		if len(fields) != 3 {
			m.writeOutput("[red]usage: invalidate <start> <end>[white]\n")
			break
		}
		start, errS := strconv.ParseUint(fields[1], 0, 32)
		end, errE := strconv.ParseUint(fields[2], 0, 32)
		if errS != nil || errE != nil {
			m.writeOutput("[red]invalid address[white]\n")
			break
		}
		m.svc.Invalidate(uint32(start), uint32(end))
		m.writeOutput(fmt.Sprintf("invalidated [%#x, %#x)\n", start, end))

	case "cache":
		stats := m.svc.CacheStats()
		m.writeOutput(fmt.Sprintf("cache: %d/%d entries\n", stats.Entries, stats.Capacity))

	case "dump":
		if len(fields) != 2 {
			m.writeOutput("[red]usage: dump gpr|cp0|fpr[white]\n")
			break
		}
		m.writeOutput(m.dumpBank(fields[1]))

	case "quit", "exit":
		m.App.Stop()
		return

	default:
		m.writeOutput(fmt.Sprintf("[red]unknown command:[white] %s\n", fields[0]))
	}

	m.RefreshAll()
}

// dumpBank renders one of the three register banks the command line's
// "dump gpr|cp0|fpr" verb can name.
func (m *Monitor) dumpBank(bank string) string {
	snap := m.svc.Registers()
	var lines []string
	switch bank {
	case "gpr":
		for i, v := range snap.GPR {
			lines = append(lines, fmt.Sprintf("r%-2d: %#018x%016x", i, v.Hi, v.Lo))
		}
	case "cp0":
		for i, v := range snap.CP0 {
			lines = append(lines, fmt.Sprintf("cp0[%-2d]: %#010x", i, v))
		}
	case "fpr":
		for i, v := range snap.FPR {
			lines = append(lines, fmt.Sprintf("f%-2d: %#010x", i, v))
		}
	default:
		return fmt.Sprintf("[red]unknown bank:[white] %s\n", bank)
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m *Monitor) writeOutput(text string) {
	m.history = append(m.history, text)
	if m.historySize > 0 && len(m.history) > m.historySize {
		m.history = m.history[len(m.history)-m.historySize:]
	}
	_, _ = m.OutputView.Write([]byte(text))
	m.OutputView.ScrollToEnd()
}

// RefreshAll redraws the register and cache panels from the engine's
// current state. Drawing is skipped before Run starts the event loop (and
// after Stop ends it), since there is no screen yet to draw to — this
// keeps runCommand callable directly from tests.
func (m *Monitor) RefreshAll() {
	m.updateRegisterView()
	m.updateCacheView()
	if m.running {
		m.App.Draw()
	}
}

func (m *Monitor) updateRegisterView() {
	snap := m.svc.Registers()
	var lines []string
	lines = append(lines, fmt.Sprintf("PC: %#010x   Cycles: %d", snap.PC, snap.Cycles))
	lines = append(lines, "")
	for row := 0; row < 8; row++ {
		var cols []string
		for col := 0; col < 4; col++ {
			i := row*4 + col
			cols = append(cols, fmt.Sprintf("r%-2d: %#018x", i, snap.GPR[i].Lo))
		}
		lines = append(lines, strings.Join(cols, "  "))
	}
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("lo: %#018x   hi: %#018x", snap.Lo.Lo, snap.Hi.Lo))

	m.RegisterView.SetText(strings.Join(lines, "\n"))
}

func (m *Monitor) updateCacheView() {
	stats := m.svc.CacheStats()
	m.CacheView.SetText(fmt.Sprintf("entries: %d\ncapacity: %d", stats.Entries, stats.Capacity))
}

// Run starts the TUI event loop.
func (m *Monitor) Run() error {
	m.writeOutput("[green]Emotion Engine core monitor[white]\n")
	m.writeOutput("F11 single-steps one cycle; type 'step N', 'invalidate S E', 'cache', or 'quit'\n\n")
	m.running = true
	m.RefreshAll()
	return m.App.SetRoot(m.MainLayout, true).SetFocus(m.CommandInput).Run()
}

// Stop stops the TUI application.
func (m *Monitor) Stop() {
	m.running = false
	m.App.Stop()
}
