package models

import (
	"time"

	"github.com/google/uuid"
)

// Vote is a user's pick of a winner for one game
type Vote struct {
	ID        int       `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	GameID    int       `json:"game_id" db:"game_id"`
	Choice    Side      `json:"choice" db:"prediction"`
	IsCorrect *bool     `json:"is_correct,omitempty" db:"is_correct"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// VoteInput is the request body used to cast a vote
type VoteInput struct {
	UserID string `json:"user_id"`
	Choice string `json:"choice"`
}

// ToVote validates the input and converts it into a Vote for gameID
func (vi *VoteInput) ToVote(gameID int) (*Vote, error) {
	userID, err := uuid.Parse(vi.UserID)
	if err != nil {
		return nil, err
	}
	choice, err := ParseSide(vi.Choice)
	if err != nil {
		return nil, err
	}
	return &Vote{
		UserID: userID,
		GameID: gameID,
		Choice: choice,
	}, nil
}

// HitRate summarizes how often a user's graded picks were right
type HitRate struct {
	UserID  uuid.UUID `json:"user_id"`
	Total   int       `json:"total"`
	Graded  int       `json:"graded"`
	Correct int       `json:"correct"`
	Rate    float64   `json:"rate"`
}

// ComputeRate fills Rate from Correct and Graded
func (h *HitRate) ComputeRate() {
	if h.Graded == 0 {
		h.Rate = 0
		return
	}
	h.Rate = float64(h.Correct) / float64(h.Graded)
}
