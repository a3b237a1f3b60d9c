package game

import (
	"strings"

	apperrors "github.com/jrsteele09/trivia-director/internal/errors"
	"github.com/jrsteele09/trivia-director/internal/utils"
)

func (s *State) AddPlayer(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.NewValidation("name", "is required")
	}
	if len(s.Players) >= MaxPlayers {
		return apperrors.NewValidation("players", "at most %d players", MaxPlayers)
	}
	for _, p := range s.Players {
		if strings.EqualFold(p.Name, name) {
			return apperrors.NewValidation("name", "player %q already exists", name)
		}
	}
	s.Players = append(s.Players, Player{Name: name})
	s.logf("%s joined", name)
	return nil
}

// RemovePlayer drops a player. Awards to later players are re-indexed and
// awards to the removed player are cleared; points already scored by other
// players are unchanged.
func (s *State) RemovePlayer(index int) error {
	if err := s.checkPlayer(index); err != nil {
		return err
	}
	name := s.Players[index].Name
	s.Players = append(s.Players[:index], s.Players[index+1:]...)

	for i := range s.Categories {
		for j := range s.Categories[i].Questions {
			q := &s.Categories[i].Questions[j]
			if q.AwardedTo == nil {
				continue
			}
			switch {
			case *q.AwardedTo == index:
				q.AwardedTo = nil
			case *q.AwardedTo > index:
				q.AwardedTo = utils.Ptr(*q.AwardedTo - 1)
			}
		}
	}
	switch {
	case len(s.Players) == 0:
		s.ActivePlayerIndex = 0
	case s.ActivePlayerIndex > index || s.ActivePlayerIndex >= len(s.Players):
		s.ActivePlayerIndex--
	}
	s.logf("%s left", name)
	return nil
}

func (s *State) SetActivePlayer(index int) error {
	if err := s.checkPlayer(index); err != nil {
		return err
	}
	s.ActivePlayerIndex = index
	return nil
}

// NextPlayer moves the turn to the next player, wrapping around.
func (s *State) NextPlayer() {
	if len(s.Players) == 0 {
		return
	}
	s.ActivePlayerIndex = (s.ActivePlayerIndex + 1) % len(s.Players)
}

// AdjustScore applies a manual correction.
func (s *State) AdjustScore(index, delta int) error {
	if err := s.checkPlayer(index); err != nil {
		return err
	}
	s.Players[index].Score += delta
	s.logf("%s score adjusted by %+d", s.Players[index].Name, delta)
	return nil
}

func (s *State) checkPlayer(index int) error {
	if index < 0 || index >= len(s.Players) {
		return apperrors.NewValidation("player", "no player at index %d", index)
	}
	return nil
}
