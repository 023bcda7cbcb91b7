// Package tui implements the interactive chat front end: the user talks to
// a book character whose replies are grounded on retrieved passages.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bookrag/internal/agent"
)

// historyLimit caps how many prior turns travel with each agent request.
const historyLimit = 5

// Retriever is the query-side surface of the retrieval pipeline.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// Responder is the chat-side surface of the agent.
type Responder interface {
	Reply(ctx context.Context, req agent.Request) (string, error)
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	retriever Retriever
	responder Responder
	topK      int

	character string
	history   []agent.Turn

	input    textinput.Model
	viewport viewport.Model
	status   string
	ready    bool
}

// New creates a chat model starting with the given character persona.
func New(retriever Retriever, responder Responder, character string, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Say something, or /character <name> to switch"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		retriever: retriever,
		responder: responder,
		topK:      topK,
		character: character,
		input:     ti,
		viewport:  vp,
		status:    fmt.Sprintf("Chatting with %s. Ctrl+C to quit.", character),
	}
}

// Init starts the text input cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + ih + 1 // header + input frame + status
		vh := msg.Height - reserved - ch
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderTranscript())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line != "" {
				m = m.handleLine(line)
			}
			m.input.SetValue("")
			m.viewport.SetContent(m.renderTranscript())
			m.viewport.GotoBottom()
			return m, nil
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleLine(line string) Model {
	if name, ok := strings.CutPrefix(line, "/character "); ok {
		name = strings.TrimSpace(name)
		if name != "" && name != m.character {
			m.character = name
			m.history = nil
			m.status = fmt.Sprintf("Now chatting with %s.", name)
		}
		return m
	}

	ctx := context.Background()
	passages, err := m.retriever.Retrieve(ctx, line, m.topK)
	if err != nil {
		m.status = "Retrieval error: " + err.Error()
		return m
	}
	reply, err := m.responder.Reply(ctx, agent.Request{
		Character: m.character,
		History:   m.history,
		UserInput: line,
		Passages:  passages,
	})
	if err != nil {
		m.status = "Agent error: " + err.Error()
		return m
	}

	m.history = append(m.history, agent.Turn{Role: agent.RoleUser, Text: line})
	m.history = append(m.history, agent.Turn{Role: agent.RoleBot, Text: reply})
	if len(m.history) > historyLimit {
		m.history = m.history[len(m.history)-historyLimit:]
	}
	m.status = fmt.Sprintf("Chatting with %s.", m.character)
	return m
}

// View renders the chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("bookrag — " + m.character)
	chat := chatBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return strings.Join([]string{header, chat, input, status}, "\n")
}

func (m Model) renderTranscript() string {
	if len(m.history) == 0 {
		return "Ask the character anything about the uploaded books."
	}
	var b strings.Builder
	for _, t := range m.history {
		if t.Role == agent.RoleBot {
			b.WriteString(botStyle.Render(m.character+":") + " " + t.Text + "\n\n")
		} else {
			b.WriteString(userStyle.Render("You:") + " " + t.Text + "\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	chatBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle  = lipgloss.NewStyle().Faint(true)
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
