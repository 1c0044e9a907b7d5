package models

// EventType selects how contestants are scored
type EventType string

const (
	EventPageant EventType = "pageant"
	EventQuizBee EventType = "quiz_bee"
)

// EventStatus is the lifecycle state of an event
type EventStatus string

const (
	EventActive EventStatus = "active"
	EventEnded  EventStatus = "ended"
)

// RoundKind tags a segment as a normal round, a final, or a tie-break clincher
type RoundKind string

const (
	RoundNormal   RoundKind = "normal"
	RoundFinal    RoundKind = "final"
	RoundClincher RoundKind = "clincher"
)

// ContestantStatus is set by elimination
type ContestantStatus string

const (
	ContestantActive     ContestantStatus = "active"
	ContestantEliminated ContestantStatus = "eliminated"
)

// JudgeRole distinguishes pageant judges from quiz tabulators
type JudgeRole string

const (
	RoleJudge     JudgeRole = "judge"
	RoleTabulator JudgeRole = "tabulator"
)

// Event is a pageant or quiz bee. ActiveSegmentID is the single live round.
type Event struct {
	ID              int         `json:"id"`
	Name            string      `json:"name"`
	Type            EventType   `json:"type"`
	Status          EventStatus `json:"status"`
	Locked          bool        `json:"locked"`
	ActiveSegmentID *int        `json:"active_segment_id,omitempty"`
}

// Segment is a scoring round
type Segment struct {
	ID                int       `json:"id"`
	EventID           int       `json:"event_id"`
	Name              string    `json:"name"`
	OrderIndex        int       `json:"order_index"`
	Weight            float64   `json:"weight"`
	Kind              RoundKind `json:"kind"`
	IsActive          bool      `json:"is_active"`
	QualifierLimit    int       `json:"qualifier_limit"` // 0 = unlimited
	PointsPerQuestion int       `json:"points_per_question"`
	TotalQuestions    int       `json:"total_questions"`
	ParticipantIDs    []int     `json:"participating_contestant_ids"` // nil = everyone; empty = nobody yet
	RelatedSegmentID  *int      `json:"related_segment_id,omitempty"`
	Concluded         bool      `json:"concluded"`
}

// IsFinal reports whether the segment is a final round
func (s Segment) IsFinal() bool { return s.Kind == RoundFinal }

// IsClincher reports whether the segment is a tie-break round
func (s Segment) IsClincher() bool { return s.Kind == RoundClincher }

// Restricted reports whether the segment has a participant allow-list. An empty
// non-nil list is a restriction that admits nobody yet.
func (s Segment) Restricted() bool { return s.ParticipantIDs != nil }

// Allows reports whether contestantID may take part in the segment
func (s Segment) Allows(contestantID int) bool {
	if !s.Restricted() {
		return true
	}
	for _, id := range s.ParticipantIDs {
		if id == contestantID {
			return true
		}
	}
	return false
}

// Criteria is a weighted pageant scoring criterion
type Criteria struct {
	ID        int     `json:"id"`
	SegmentID int     `json:"segment_id"`
	Name      string  `json:"name"`
	Weight    float64 `json:"weight"`
	MaxScore  float64 `json:"max_score"`
}

// Contestant competes in one division of an event
type Contestant struct {
	ID                  int              `json:"id"`
	EventID             int              `json:"event_id"`
	CandidateNumber     int              `json:"candidate_number"`
	Name                string           `json:"name"`
	Division            string           `json:"division"`
	Status              ContestantStatus `json:"status"`
	AssignedTabulatorID *int             `json:"assigned_tabulator_id,omitempty"`
}

// Judge scores pageant criteria or tabulates quiz answers
type Judge struct {
	ID         int       `json:"id"`
	EventID    int       `json:"event_id"`
	Name       string    `json:"name"`
	Role       JudgeRole `json:"role"`
	AccessCode string    `json:"access_code"`
}

// Score is one stored cell. Pageant rows carry CriteriaID; quiz rows carry QuestionNumber.
type Score struct {
	ID             int     `json:"id"`
	ContestantID   int     `json:"contestant_id"`
	CriteriaID     *int    `json:"criteria_id,omitempty"`
	QuestionNumber *int    `json:"question_number,omitempty"`
	JudgeID        *int    `json:"judge_id,omitempty"`
	SegmentID      int     `json:"segment_id"`
	Value          float64 `json:"score_value"`
	IsCorrect      bool    `json:"is_correct"`
}

// JudgeProgress records whether a judge has finished a segment. Advisory only.
type JudgeProgress struct {
	JudgeID   int  `json:"judge_id"`
	SegmentID int  `json:"segment_id"`
	Finished  bool `json:"finished"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}
