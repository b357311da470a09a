// Package tui implements the interactive chat session over the
// indexed documents.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driving"
)

var (
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	refusalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sourceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	inputBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// entry is one question/answer exchange in the transcript.
type entry struct {
	question string
	answer   *domain.Answer
	err      error
}

// answerMsg delivers an asynchronous answer back into the event loop.
type answerMsg struct {
	question string
	answer   *domain.Answer
	err      error
}

// Model is the Bubble Tea model for the chat session.
type Model struct {
	answerer driving.Answerer
	topK     int

	input    textinput.Model
	viewport viewport.Model
	history  []entry
	waiting  bool
	ready    bool
	status   string
}

// New creates a chat model asking questions through the given service.
func New(answerer driving.Answerer, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0

	return Model{
		answerer: answerer,
		topK:     topK,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Ready. Answers cite the indexed sources.",
	}
}

// Init initialises the model.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, frame := inputBoxStyle.GetFrameSize()
		vh := msg.Height - frame - 4
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderHistory())
		return m, nil

	case answerMsg:
		m.waiting = false
		m.history = append(m.history, entry(msg))
		if msg.err != nil {
			m.status = "Error. Ask again or press q to quit."
		} else {
			m.status = "Ready."
		}
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "q":
			if m.input.Value() == "" {
				return m, tea.Quit
			}
		case "up":
			m.viewport.ScrollUp(1)
			return m, nil
		case "down":
			m.viewport.ScrollDown(1)
			return m, nil
		case "enter":
			question := strings.TrimSpace(m.input.Value())
			if question == "" || m.waiting {
				return m, nil
			}
			m.input.SetValue("")
			m.waiting = true
			m.status = "Thinking…"
			return m, m.ask(question)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask runs the retrieval pipeline off the event loop.
func (m Model) ask(question string) tea.Cmd {
	answerer, k := m.answerer, m.topK
	return func() tea.Msg {
		answer, err := answerer.Ask(context.Background(), question, k)
		return answerMsg{question: question, answer: answer, err: err}
	}
}

// View renders the transcript, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Corpora Chat")
	return header + "\n" +
		m.viewport.View() + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(m.status)
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return "No questions yet."
	}

	var b strings.Builder
	for i, e := range m.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("You: " + e.question))
		b.WriteString("\n")

		switch {
		case e.err != nil:
			b.WriteString(errorStyle.Render("error: " + e.err.Error()))
		case e.answer.Refused():
			b.WriteString(refusalStyle.Render(e.answer.Text))
		default:
			b.WriteString(e.answer.Text)
			b.WriteString("\n")
			b.WriteString(sourceStyle.Render(renderSources(e.answer.Sources)))
		}
	}
	return b.String()
}

// renderSources lists the cited chunks with one-line excerpts.
func renderSources(sources []domain.ChunkRecord) string {
	lines := make([]string, 0, len(sources))
	for i, rec := range sources {
		flat := strings.Join(strings.Fields(rec.Content), " ")
		if len(flat) > 120 {
			flat = flat[:120] + "…"
		}
		lines = append(lines, fmt.Sprintf("  [%d] %s (%s): %s",
			i+1, rec.Metadata.Source, rec.Metadata.Type, flat))
	}
	return strings.Join(lines, "\n")
}

// Run starts the chat session and blocks until the user quits.
func Run(answerer driving.Answerer, topK int) error {
	p := tea.NewProgram(New(answerer, topK), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
