package services

import (
	"context"

	"github.com/abrezinsky/tabulator/internal/logger"
	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/repository"
	"github.com/abrezinsky/tabulator/internal/scoring"
)

// RankScope selects what a ranking totals: the whole event, or one round when SegmentID is set.
type RankScope struct {
	SegmentID *int
}

// Leaderboard is the live view pushed to viewers
type Leaderboard struct {
	Event         models.Event    `json:"event"`
	ActiveSegment *models.Segment `json:"active_segment,omitempty"`
	Standings     scoring.Ranking `json:"standings"`
}

// RankingService computes rankings and tabulation matrices on demand. Nothing is cached.
type RankingService struct {
	log  logger.Logger
	repo repository.FullRepository
}

// NewRankingService creates a new RankingService
func NewRankingService(log logger.Logger, repo repository.FullRepository) *RankingService {
	return &RankingService{log: log, repo: repo}
}

// GetRanking ranks every division by whole-event total, or by one round's own total
func (s *RankingService) GetRanking(ctx context.Context, eventID int, scope RankScope) (scoring.Ranking, error) {
	data, err := loadEventData(ctx, s.repo, eventID)
	if err != nil {
		return nil, err
	}
	if scope.SegmentID == nil {
		return data.rank(data.contestants, data.eventTotal), nil
	}
	seg := data.segment(*scope.SegmentID)
	if seg == nil {
		return nil, storeErr(repository.ErrNotFound, "segment")
	}
	return data.rank(data.allowed(*seg), func(c models.Contestant) float64 {
		return data.segmentScore(c, *seg)
	}), nil
}

// GetPreliminaryRankings ranks every division by the total of the normal rounds,
// the planning view used before a final is activated
func (s *RankingService) GetPreliminaryRankings(ctx context.Context, eventID int) (scoring.Ranking, error) {
	data, err := loadEventData(ctx, s.repo, eventID)
	if err != nil {
		return nil, err
	}
	return data.rank(data.contestants, data.preliminaryTotal), nil
}

// Leaderboard ranks the active round's pool the way evaluation would, or the
// whole event when no round is active
func (s *RankingService) Leaderboard(ctx context.Context, eventID int) (*Leaderboard, error) {
	data, err := loadEventData(ctx, s.repo, eventID)
	if err != nil {
		return nil, err
	}
	board := &Leaderboard{Event: data.event}
	if active := data.active(); active != nil {
		board.ActiveSegment = active
		board.Standings = data.rank(data.allowed(*active), func(c models.Contestant) float64 {
			return data.evaluationScore(c, *active)
		})
		return board, nil
	}
	board.Standings = data.rank(data.contestants, data.eventTotal)
	return board, nil
}

// PageantMatrix builds the judge × contestant sheet of a pageant round
func (s *RankingService) PageantMatrix(ctx context.Context, segmentID int) (*scoring.Matrix, error) {
	seg, err := s.repo.GetSegment(ctx, segmentID)
	if err != nil {
		return nil, storeErr(err, "segment")
	}
	contestants, err := s.repo.ListContestants(ctx, seg.EventID)
	if err != nil {
		return nil, storeErr(err, "contestants")
	}
	judges, err := s.repo.ListJudges(ctx, seg.EventID)
	if err != nil {
		return nil, storeErr(err, "judges")
	}
	criteria, err := s.repo.ListCriteria(ctx, segmentID)
	if err != nil {
		return nil, storeErr(err, "criteria")
	}
	scores, err := s.repo.ListScoresForSegment(ctx, segmentID)
	if err != nil {
		return nil, storeErr(err, "scores")
	}
	m := scoring.PageantMatrix(*seg, contestants, judges, criteria, scores)
	return &m, nil
}

// QuizMatrix builds the round × contestant sheet of a quiz event
func (s *RankingService) QuizMatrix(ctx context.Context, eventID int) (*scoring.Matrix, error) {
	data, err := loadEventData(ctx, s.repo, eventID)
	if err != nil {
		return nil, err
	}
	m := scoring.QuizMatrix(data.segments, data.contestants, data.scores)
	return &m, nil
}

// eventData is one consistent read of everything a ranking needs
type eventData struct {
	event       models.Event
	segments    []models.Segment
	criteria    map[int][]models.Criteria
	contestants []models.Contestant
	scores      []models.Score
}

func loadEventData(ctx context.Context, repo repository.FullRepository, eventID int) (*eventData, error) {
	ev, err := repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, storeErr(err, "event")
	}
	segments, err := repo.ListSegments(ctx, eventID)
	if err != nil {
		return nil, storeErr(err, "segments")
	}
	criteria, err := repo.ListCriteriaForEvent(ctx, eventID)
	if err != nil {
		return nil, storeErr(err, "criteria")
	}
	contestants, err := repo.ListContestants(ctx, eventID)
	if err != nil {
		return nil, storeErr(err, "contestants")
	}
	scores, err := repo.ListScoresForEvent(ctx, eventID)
	if err != nil {
		return nil, storeErr(err, "scores")
	}
	return &eventData{
		event:       *ev,
		segments:    segments,
		criteria:    scoring.CriteriaBySegment(criteria),
		contestants: contestants,
		scores:      scores,
	}, nil
}

func (d *eventData) segment(id int) *models.Segment {
	for i := range d.segments {
		if d.segments[i].ID == id {
			return &d.segments[i]
		}
	}
	return nil
}

func (d *eventData) contestant(id int) *models.Contestant {
	for i := range d.contestants {
		if d.contestants[i].ID == id {
			return &d.contestants[i]
		}
	}
	return nil
}

func (d *eventData) active() *models.Segment {
	if d.event.ActiveSegmentID == nil {
		return nil
	}
	return d.segment(*d.event.ActiveSegmentID)
}

// root walks clincher back-pointers to the round that started the chain
func (d *eventData) root(seg models.Segment) models.Segment {
	for seg.RelatedSegmentID != nil {
		parent := d.segment(*seg.RelatedSegmentID)
		if parent == nil {
			break
		}
		seg = *parent
	}
	return seg
}

// inFinalChain reports whether seg is a final or a clincher descending from one
func (d *eventData) inFinalChain(seg models.Segment) bool {
	return d.root(seg).IsFinal()
}

// resetMode reports whether seg ranks on its own score only
func (d *eventData) resetMode(seg models.Segment) bool {
	return seg.IsClincher() || d.inFinalChain(seg)
}

// allowed returns the contestants seg's allow-list admits
func (d *eventData) allowed(seg models.Segment) []models.Contestant {
	out := make([]models.Contestant, 0, len(d.contestants))
	for _, c := range d.contestants {
		if seg.Allows(c.ID) {
			out = append(out, c)
		}
	}
	return out
}

// pool returns the contestants evaluated in seg: admitted and not eliminated
func (d *eventData) pool(seg models.Segment) []models.Contestant {
	out := make([]models.Contestant, 0, len(d.contestants))
	for _, c := range d.allowed(seg) {
		if c.Status != models.ContestantEliminated {
			out = append(out, c)
		}
	}
	return out
}

// segmentScore is a contestant's total in one round alone
func (d *eventData) segmentScore(c models.Contestant, seg models.Segment) float64 {
	if d.event.Type == models.EventPageant {
		return scoring.PageantSegmentScore(c.ID, d.criteria[seg.ID], d.scores)
	}
	return scoring.QuizRoundScore(c.ID, seg.ID, d.scores)
}

// eventTotal is the cumulative total over the event's normal and final rounds.
// Clincher points only decide their clincher.
func (d *eventData) eventTotal(c models.Contestant) float64 {
	if d.event.Type == models.EventPageant {
		return scoring.PageantEventTotal(c.ID, d.segments, d.flatCriteria(), d.scores)
	}
	return scoring.QuizEventTotal(c.ID, d.segmentIDs(func(s models.Segment) bool { return !s.IsClincher() }), d.scores)
}

// preliminaryTotal is the cumulative total over normal rounds only
func (d *eventData) preliminaryTotal(c models.Contestant) float64 {
	if d.event.Type == models.EventPageant {
		return scoring.PageantEventTotal(c.ID, d.segments, d.flatCriteria(), d.scores)
	}
	return scoring.QuizEventTotal(c.ID, d.segmentIDs(func(s models.Segment) bool { return s.Kind == models.RoundNormal }), d.scores)
}

// evaluationScore is what seg's evaluation compares: its own score in reset
// mode, the cumulative event total otherwise
func (d *eventData) evaluationScore(c models.Contestant, seg models.Segment) float64 {
	if d.resetMode(seg) {
		return d.segmentScore(c, seg)
	}
	return d.eventTotal(c)
}

func (d *eventData) rank(contestants []models.Contestant, score func(models.Contestant) float64) scoring.Ranking {
	return scoring.Rank(scoring.EntriesFor(contestants, score))
}

func (d *eventData) segmentIDs(keep func(models.Segment) bool) []int {
	ids := make([]int, 0, len(d.segments))
	for _, s := range d.segments {
		if keep(s) {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func (d *eventData) flatCriteria() []models.Criteria {
	var out []models.Criteria
	for _, seg := range d.segments {
		out = append(out, d.criteria[seg.ID]...)
	}
	return out
}
