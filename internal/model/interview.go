package model

import "time"

// Answers holds verbatim respondent quotes keyed by scripted question plus
// the validity reasoning.
type Answers struct {
	Question1 string `json:"question_1"`
	Question2 string `json:"question_2"`
	Question3 string `json:"question_3"`
	Question4 string `json:"question_4"`
	Question5 string `json:"question_5"`
	Reason    string `json:"reason"`
}

// Slice returns the answers in question order.
func (a Answers) Slice() []string {
	return []string{a.Question1, a.Question2, a.Question3, a.Question4, a.Question5}
}

// SetIndex assigns the answer for question n (1-based). Out-of-range indexes
// are ignored.
func (a *Answers) SetIndex(n int, v string) {
	switch n {
	case 1:
		a.Question1 = v
	case 2:
		a.Question2 = v
	case 3:
		a.Question3 = v
	case 4:
		a.Question4 = v
	case 5:
		a.Question5 = v
	}
}

// InterviewLog is the persisted outcome of one voice conversation.
// Append-only; conversation ID is unique.
type InterviewLog struct {
	ID             string    `json:"id"`
	LeadID         string    `json:"lead_id"`
	ConversationID string    `json:"conversation_id"`
	Transcript     string    `json:"transcript"`
	AudioURL       string    `json:"audio_url"`
	Answers        Answers   `json:"answers"`
	IsValidPersona bool      `json:"is_valid_persona"`
	CreatedAt      time.Time `json:"created_at"`
}
