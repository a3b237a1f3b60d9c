package game

import (
	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/internal/utils"
	"github.com/pkg/errors"
)

func (s *State) question(ref QuestionRef) (*Question, error) {
	if ref.Category < 0 || ref.Category >= len(s.Categories) {
		return nil, apperrors.NewValidation("category", "no category at index %d", ref.Category)
	}
	questions := s.Categories[ref.Category].Questions
	if ref.Question < 0 || ref.Question >= len(questions) {
		return nil, apperrors.NewValidation("question", "no question at index %d", ref.Question)
	}
	return &questions[ref.Question], nil
}

// SelectQuestion opens an AVAILABLE question and resets the timer.
func (s *State) SelectQuestion(ref QuestionRef, seconds int) error {
	q, err := s.question(ref)
	if err != nil {
		return err
	}
	if q.Status != QuestionAvailable {
		return errors.Wrapf(apperrors.ErrInvalidTransition, "question is %s", q.Status)
	}
	s.CurrentQuestion = &ref
	s.Timer = seconds
	s.IsTimerRunning = false
	s.logf("%s for %d selected", s.Categories[ref.Category].Name, q.Points)
	return nil
}

// Award gives the current question's points to a player.
func (s *State) Award(player int) error {
	q, ref, err := s.current()
	if err != nil {
		return err
	}
	if err := s.checkPlayer(player); err != nil {
		return err
	}
	q.Status = QuestionAwarded
	q.AwardedTo = utils.Ptr(player)
	s.Players[player].Score += q.Points
	s.closeCurrent()
	s.logf("%s awarded %d (%s)", s.Players[player].Name, q.Points, s.Categories[ref.Category].Name)
	return nil
}

// Void takes the current question out of play without scoring.
func (s *State) Void() error {
	return s.finish(QuestionVoided, "voided")
}

// Close ends the current question with nobody scoring.
func (s *State) Close() error {
	return s.finish(QuestionClosed, "closed")
}

// Reset returns any question to AVAILABLE and takes back awarded points.
func (s *State) Reset(ref QuestionRef) error {
	q, err := s.question(ref)
	if err != nil {
		return err
	}
	if q.Status == QuestionAwarded && q.AwardedTo != nil && *q.AwardedTo < len(s.Players) {
		s.Players[*q.AwardedTo].Score -= q.Points
	}
	q.Status = QuestionAvailable
	q.AwardedTo = nil
	if s.CurrentQuestion != nil && *s.CurrentQuestion == ref {
		s.closeCurrent()
	}
	s.logf("%s for %d reset", s.Categories[ref.Category].Name, q.Points)
	return nil
}

// Remaining counts AVAILABLE questions.
func (s *State) Remaining() int {
	n := 0
	for _, cat := range s.Categories {
		for _, q := range cat.Questions {
			if q.Status == QuestionAvailable {
				n++
			}
		}
	}
	return n
}

func (s *State) StartTimer() {
	if s.Timer > 0 {
		s.IsTimerRunning = true
	}
}

func (s *State) StopTimer() {
	s.IsTimerRunning = false
}

// Tick counts a running timer down one second and stops it at zero.
func (s *State) Tick() {
	if !s.IsTimerRunning {
		return
	}
	if s.Timer > 0 {
		s.Timer--
	}
	if s.Timer == 0 {
		s.IsTimerRunning = false
	}
}

func (s *State) current() (*Question, QuestionRef, error) {
	if s.CurrentQuestion == nil {
		return nil, QuestionRef{}, errors.Wrap(apperrors.ErrInvalidTransition, "no question selected")
	}
	ref := *s.CurrentQuestion
	q, err := s.question(ref)
	if err != nil {
		return nil, ref, err
	}
	if q.Status != QuestionAvailable {
		return nil, ref, errors.Wrapf(apperrors.ErrInvalidTransition, "question is %s", q.Status)
	}
	return q, ref, nil
}

func (s *State) finish(status QuestionStatus, verb string) error {
	q, ref, err := s.current()
	if err != nil {
		return err
	}
	q.Status = status
	s.closeCurrent()
	s.logf("%s for %d %s", s.Categories[ref.Category].Name, q.Points, verb)
	return nil
}

func (s *State) closeCurrent() {
	s.CurrentQuestion = nil
	s.IsTimerRunning = false
}
