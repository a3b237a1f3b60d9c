// Package game holds the live show document shared by every director
// window: players, the question board, the running timer and an activity
// feed. A State is a plain value; callers serialize access.
package game

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
)

const (
	MaxPlayers     = 8
	ActivityLogCap = 50
)

type QuestionStatus string

const (
	QuestionAvailable QuestionStatus = "AVAILABLE"
	QuestionAwarded   QuestionStatus = "AWARDED"
	QuestionVoided    QuestionStatus = "VOIDED"
	QuestionClosed    QuestionStatus = "CLOSED"
)

type Player struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type Question struct {
	Points    int            `json:"points"`
	Prompt    string         `json:"prompt"`
	Answer    string         `json:"answer"`
	Status    QuestionStatus `json:"status"`
	AwardedTo *int           `json:"awardedTo,omitempty"`
}

type Category struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// QuestionRef points into Categories by index.
type QuestionRef struct {
	Category int `json:"category"`
	Question int `json:"question"`
}

type ActivityEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

type State struct {
	IsActive          bool            `json:"isActive"`
	EventName         string          `json:"eventName"`
	Players           []Player        `json:"players"`
	Categories        []Category      `json:"categories"`
	ActivePlayerIndex int             `json:"activePlayerIndex"`
	CurrentQuestion   *QuestionRef    `json:"currentQuestion,omitempty"`
	ActivityLog       []ActivityEntry `json:"activityLog"`
	Timer             int             `json:"timer"`
	IsTimerRunning    bool            `json:"isTimerRunning"`

	nowTime func() time.Time
}

func New() *State {
	return &State{
		Players:     []Player{},
		Categories:  []Category{},
		ActivityLog: []ActivityEntry{},
	}
}

// SetClock sets the time source used to stamp activity entries.
func (s *State) SetClock(nowFunc func() time.Time) {
	s.nowTime = nowFunc
}

// Clone returns a deep copy that shares nothing with s.
func (s *State) Clone() *State {
	c := *s
	c.Players = append([]Player(nil), s.Players...)
	c.Categories = make([]Category, len(s.Categories))
	for i, cat := range s.Categories {
		c.Categories[i] = Category{Name: cat.Name, Questions: make([]Question, len(cat.Questions))}
		for j, q := range cat.Questions {
			if q.AwardedTo != nil {
				p := *q.AwardedTo
				q.AwardedTo = &p
			}
			c.Categories[i].Questions[j] = q
		}
	}
	if s.CurrentQuestion != nil {
		ref := *s.CurrentQuestion
		c.CurrentQuestion = &ref
	}
	c.ActivityLog = append([]ActivityEntry(nil), s.ActivityLog...)
	return &c
}

// Decode parses a serialized state.
func Decode(raw []byte) (*State, error) {
	s := New()
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, apperrors.NewValidation("state", "malformed game state: %v", err)
	}
	return s, nil
}

func (s *State) now() time.Time {
	if s.nowTime == nil {
		return time.Now().UTC()
	}
	return s.nowTime().UTC()
}

// logf prepends an activity entry, keeping the newest ActivityLogCap.
func (s *State) logf(format string, args ...interface{}) {
	entry := ActivityEntry{At: s.now(), Message: fmt.Sprintf(format, args...)}
	s.ActivityLog = append([]ActivityEntry{entry}, s.ActivityLog...)
	if len(s.ActivityLog) > ActivityLogCap {
		s.ActivityLog = s.ActivityLog[:ActivityLogCap]
	}
}

// StartEvent marks the show live under name.
func (s *State) StartEvent(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.NewValidation("eventName", "is required")
	}
	s.EventName = name
	s.IsActive = true
	s.logf("Event %q started", name)
	return nil
}

// EndEvent stops the show. The board is kept so it can be reviewed.
func (s *State) EndEvent() {
	s.IsActive = false
	s.IsTimerRunning = false
	s.CurrentQuestion = nil
	s.logf("Event %q ended", s.EventName)
}

// LoadBoard replaces the board. Every question starts AVAILABLE.
func (s *State) LoadBoard(categories []Category) error {
	board := make([]Category, len(categories))
	for i, cat := range categories {
		if strings.TrimSpace(cat.Name) == "" {
			return apperrors.NewValidation("categories", "category %d has no name", i)
		}
		board[i] = Category{Name: cat.Name, Questions: make([]Question, len(cat.Questions))}
		for j, q := range cat.Questions {
			board[i].Questions[j] = Question{Points: q.Points, Prompt: q.Prompt, Answer: q.Answer, Status: QuestionAvailable}
		}
	}
	s.Categories = board
	s.CurrentQuestion = nil
	s.logf("Board loaded with %d categories", len(board))
	return nil
}
