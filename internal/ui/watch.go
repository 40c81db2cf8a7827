package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Mohsinsiddi/rafflekit/internal/chain"
	"github.com/Mohsinsiddi/rafflekit/internal/events"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
)

// RaffleStatus is one poll of the raffle's read-only views.
type RaffleStatus struct {
	Network      string
	Address      string
	State        string
	Players      int
	Balance      string // ether
	EntranceFee  string // ether
	Block        uint64
	BlockTime    time.Time
	NextDraw     time.Duration // zero once the interval has passed
	UpkeepNeeded bool
	PendingID    uint64
	Round        uint64
	RecentWinner string
}

// EventMsg carries one event from the bus.
type EventMsg events.Event

// StatusMsg replaces the status panel.
type StatusMsg RaffleStatus

type polledMsg struct {
	status RaffleStatus
	err    error
	next   bool // schedule the following poll
}
type watchPollMsg struct{}
type watchTickMsg struct{}
type eventsClosedMsg struct{}

const maxWatchRows = 200

// WatchModel is the Bubble Tea model for the live raffle dashboard.
type WatchModel struct {
	Status   RaffleStatus
	Rows     []events.Event // newest first
	Frame    int
	Quitting bool

	cursor  int
	err     string
	closed  bool
	every   time.Duration
	poll    func() (RaffleStatus, error)
	updates <-chan events.Event
}

// NewWatchModel creates a dashboard that refreshes its status with poll every
// interval and lists the events arriving on updates.
func NewWatchModel(poll func() (RaffleStatus, error), updates <-chan events.Event, every time.Duration) WatchModel {
	if every <= 0 {
		every = time.Second
	}
	return WatchModel{poll: poll, updates: updates, every: every}
}

// NewWatch creates the Bubble Tea program for m.
func NewWatch(m WatchModel) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

func watchSpinTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return watchTickMsg{}
	})
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.pollCmd(true), m.waitEvent(), watchSpinTick())
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.Rows)-1 {
				m.cursor++
			}
		case "c":
			m.Rows, m.cursor = nil, 0
		}

	case watchTickMsg:
		m.Frame = (m.Frame + 1) % len(spinnerFrames)
		return m, watchSpinTick()

	case watchPollMsg:
		return m, m.pollCmd(true)

	case StatusMsg:
		m.Status = RaffleStatus(msg)
		m.err = ""

	case polledMsg:
		if msg.err != nil {
			m.err = msg.err.Error()
		} else {
			m.Status, m.err = msg.status, ""
		}
		if msg.next {
			return m, tea.Tick(m.every, func(time.Time) tea.Msg { return watchPollMsg{} })
		}

	case EventMsg:
		m.Rows = append([]events.Event{events.Event(msg)}, m.Rows...)
		if len(m.Rows) > maxWatchRows {
			m.Rows = m.Rows[:maxWatchRows]
		}
		if m.cursor > 0 {
			m.cursor++ // stay on the same row
		}
		return m, tea.Batch(m.waitEvent(), m.pollCmd(false))

	case eventsClosedMsg:
		m.closed = true
	}

	return m, nil
}

func (m WatchModel) pollCmd(next bool) tea.Cmd {
	if m.poll == nil {
		return nil
	}
	poll := m.poll
	return func() tea.Msg {
		s, err := poll()
		return polledMsg{status: s, err: err, next: next}
	}
}

func (m WatchModel) waitEvent() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	ch := m.updates
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return EventMsg(e)
	}
}

func (m WatchModel) View() string {
	if m.Quitting {
		return ""
	}

	var sb strings.Builder
	s := m.Status
	spin := spinnerFrames[m.Frame]

	title := fmt.Sprintf("🎟  Raffle  ·  %s  ·  %s", TruncateAddr(s.Address), s.Network)
	sb.WriteString(StyleTitle.Render(title) + "\n")

	switch {
	case m.err != "":
		sb.WriteString(Err(m.err) + "\n\n")
	case s.Block == 0:
		sb.WriteString(StyleMeta.Render("  connecting…") + "\n\n")
	default:
		sb.WriteString(StyleMeta.Render(fmt.Sprintf("  block #%d  ·  %s", s.Block, s.BlockTime.Format("15:04:05"))) + "\n\n")
	}

	sb.WriteString(KeyValueBlock("", m.statusPairs(spin)) + "\n\n")

	const (
		wBlock = 8
		wEvent = 22
		wWho   = 14
	)
	sb.WriteString(
		padR(StyleDim.Render("BLOCK"), wBlock) + "  " +
			padR(StyleDim.Render("EVENT"), wEvent) + "  " +
			padR(StyleDim.Render("ACCOUNT"), wWho) + "  " +
			StyleDim.Render("DETAIL") + "\n")
	sep := StyleMeta.Render(strings.Repeat("─", wBlock+wEvent+wWho+30))
	sb.WriteString(sep + "\n")

	if len(m.Rows) == 0 {
		sb.WriteString(StyleMeta.Render("  Waiting for events…") + "\n")
	}
	for i, e := range m.Rows {
		line := padR(StyleMeta.Render(fmt.Sprintf("#%d", e.Block)), wBlock) + "  " +
			padR(eventName(e.Name), wEvent) + "  " +
			padR(StyleAddress.Render(TruncateAddr(eventAccount(e))), wWho) + "  " +
			StyleMeta.Render(eventDetail(e))
		if i == m.cursor {
			line = StyleSelected.Render(line)
		}
		sb.WriteString(line + "\n")
	}

	sb.WriteString("\n")
	if m.closed {
		sb.WriteString(Warn("event stream closed") + "\n")
	}
	sb.WriteString(StyleMeta.Render("[ ↑↓ ] navigate   [ c ] clear   [ q ] quit") + "\n")
	return sb.String()
}

func (m WatchModel) statusPairs(spin string) [][2]string {
	s := m.Status
	state := s.State
	if state == "CALCULATING" {
		state = spin + " " + state
	}
	next := "due"
	if s.NextDraw > 0 {
		next = s.NextDraw.Round(time.Second).String()
	}
	upkeep := "no"
	if s.UpkeepNeeded {
		upkeep = "yes"
	}
	pairs := [][2]string{
		{"State", state},
		{"Players", fmt.Sprintf("%d", s.Players)},
		{"Pot", s.Balance + " ETH"},
		{"Entrance fee", s.EntranceFee + " ETH"},
		{"Next draw", next},
		{"Upkeep needed", upkeep},
		{"Round", fmt.Sprintf("%d", s.Round)},
	}
	if s.PendingID != 0 {
		pairs = append(pairs, [2]string{"Pending request", fmt.Sprintf("%d", s.PendingID)})
	}
	if s.RecentWinner != "" {
		pairs = append(pairs, [2]string{"Recent winner", s.RecentWinner})
	}
	return pairs
}

func eventName(n events.Name) string {
	switch n {
	case events.WinnerPicked:
		return StyleSuccess.Render(string(n))
	case events.RequestedRaffleWinner, events.RandomWordsRequested:
		return StyleWarning.Render(string(n))
	case events.RaffleEntered:
		return StyleInfo.Render(string(n))
	default:
		return StyleMeta.Render(string(n))
	}
}

func eventAccount(e events.Event) string {
	if e.Name == events.WinnerPicked {
		return e.Winner.Hex()
	}
	if e.Player != (common.Address{}) {
		return e.Player.Hex()
	}
	return e.Contract.Hex()
}

func eventDetail(e events.Event) string {
	var parts []string
	if e.RequestID != 0 {
		parts = append(parts, fmt.Sprintf("request %d", e.RequestID))
	}
	if e.SubID != 0 {
		parts = append(parts, fmt.Sprintf("sub %d", e.SubID))
	}
	if e.Amount != nil && e.Amount.Sign() > 0 {
		parts = append(parts, chain.FormatEther(e.Amount))
	}
	if e.Name == events.WinnerPicked {
		parts = append(parts, fmt.Sprintf("round %d", e.Round))
	}
	return strings.Join(parts, "  ")
}
