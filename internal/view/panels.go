package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"qrewrite/internal/render"
)

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	qasmWidth := m.width / 3
	circuitWidth := m.width - qasmWidth - 4
	topHeight := max(m.height*2/3, 10)

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderQASMPanel(qasmWidth, topHeight),
		m.renderCircuitPanel(circuitWidth, topHeight),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		top,
		m.renderPipelineBar(),
		m.renderTracePanel(m.width-4),
		m.renderHelp(),
	)
}

func (m Model) renderQASMPanel(width, height int) string {
	var sb strings.Builder
	title := "QASM Editor"
	if m.focus == focusQASM {
		title += " [ACTIVE]"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n\n")
	sb.WriteString(m.qasmEditor.View())
	return qasmStyle.Width(width).Height(height).Render(sb.String())
}

func (m Model) renderCircuitPanel(width, height int) string {
	var sb strings.Builder
	drawW := render.WithWidth(width - 4)

	sb.WriteString(titleStyle.Render("Input"))
	sb.WriteString("\n\n")
	if m.input != nil {
		sb.WriteString(render.Circuit(m.input, drawW))
	}
	sb.WriteString("\n\n")

	sb.WriteString(titleStyle.Render("Compiled"))
	if m.result != nil {
		fmt.Fprintf(&sb, "  %s", dimStyle.Render(fmt.Sprintf("%d → %d gates", m.input.Len(), m.result.Circuit.Len())))
		if !m.result.Changed {
			sb.WriteString(dimStyle.Render("  (unchanged)"))
		}
	}
	sb.WriteString("\n\n")
	switch {
	case m.err != nil:
		sb.WriteString(errorStyle.Render(m.err.Error()))
	case m.result != nil:
		sb.WriteString(render.Circuit(m.result.Circuit, drawW))
	}
	return circuitStyle.Width(width).Height(height).Render(sb.String())
}

// renderPipelineBar renders the pipeline picker as a row of tabs.
func (m Model) renderPipelineBar() string {
	var sb strings.Builder
	if m.focus == focusPipelines {
		sb.WriteString(activeStyle.Render("Pipeline: "))
	} else {
		sb.WriteString(dimStyle.Render("Pipeline: "))
	}
	for i, p := range m.pipelines {
		name := " " + p.Name + " "
		if i == m.selected {
			sb.WriteString(selectedStyle.Render("▸" + name))
		} else {
			sb.WriteString(dimStyle.Render(" " + name))
		}
		if i < len(m.pipelines)-1 {
			sb.WriteString(dimStyle.Render("│"))
		}
	}
	fmt.Fprintf(&sb, "   %s %s", dimStyle.Render("trace:"), activeStyle.Render(m.level.String()))
	if m.statusMsg != "" {
		fmt.Fprintf(&sb, "  │  %s", activeStyle.Render(m.statusMsg))
	}
	return " " + sb.String()
}

func (m Model) renderTracePanel(width int) string {
	title := "Trace"
	if m.focus == focusTrace {
		title += " [ACTIVE]"
	}
	return traceStyle.Width(width).Render(titleStyle.Render(title) + "\n" + m.traceView.View())
}

func (m Model) renderHelp() string {
	return dimStyle.Render(" Tab Switch focus  ←→ Pipeline  ^L Trace level  ^S Save  q/^C Quit")
}
