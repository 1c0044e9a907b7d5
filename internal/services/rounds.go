package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/abrezinsky/tabulator/internal/errors"
	"github.com/abrezinsky/tabulator/internal/logger"
	"github.com/abrezinsky/tabulator/internal/metrics"
	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/repository"
	"github.com/abrezinsky/tabulator/internal/scoring"
)

// Outcome is what an evaluation did
type Outcome string

const (
	OutcomeAdvanced  Outcome = "advanced"
	OutcomeTie       Outcome = "tie"
	OutcomeDeadlock  Outcome = "deadlock"
	OutcomeConcluded Outcome = "concluded"
)

// ClincherInfo describes a tie-break round spawned by an evaluation
type ClincherInfo struct {
	SegmentID     int    `json:"segment_id"`
	Division      string `json:"division"`
	ContestantIDs []int  `json:"contestant_ids"`
	Spots         int    `json:"spots"`
	Active        bool   `json:"active"`
}

// EvaluationReport is the result of EvaluateAndAdvance
type EvaluationReport struct {
	Outcome       Outcome         `json:"outcome"`
	SegmentID     int             `json:"segment_id"`
	NextSegmentID *int            `json:"next_segment_id,omitempty"`
	Qualified     []int           `json:"qualified"`
	Eliminated    []int           `json:"eliminated"`
	Clinchers     []ClincherInfo  `json:"clinchers,omitempty"`
	Standings     scoring.Ranking `json:"standings"`
	Message       string          `json:"message"`
}

// QualificationResult is the partition applied by Eliminate
type QualificationResult struct {
	Qualified  []int `json:"qualified"`
	Eliminated []int `json:"eliminated"`
}

// RoundService runs the round state machine. Every transition holds the
// event's lock and runs in one transaction.
type RoundService struct {
	log     logger.Logger
	repo    repository.FullRepository
	metrics *metrics.Metrics

	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

// NewRoundService creates a new RoundService. m may be nil.
func NewRoundService(log logger.Logger, repo repository.FullRepository, m *metrics.Metrics) *RoundService {
	return &RoundService{
		log:     log,
		repo:    repo,
		metrics: m,
		locks:   make(map[int]*sync.Mutex),
	}
}

func (s *RoundService) lock(eventID int) func() {
	s.mu.Lock()
	l, ok := s.locks[eventID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[eventID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// ActivateSegment makes segmentID the event's only active round; nil deactivates
// every round. Activating a round that is not a final returns every contestant
// to active status. Switching away from a running final chain is refused until
// the event has ended.
func (s *RoundService) ActivateSegment(ctx context.Context, eventID int, segmentID *int) error {
	unlock := s.lock(eventID)
	defer unlock()

	err := s.repo.InTx(ctx, func(tx repository.FullRepository) error {
		data, err := loadEventData(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := checkSwitchAllowed(data, segmentID); err != nil {
			return err
		}
		if segmentID == nil {
			return tx.SetActiveSegment(ctx, eventID, nil)
		}

		target := data.segment(*segmentID)
		if target == nil {
			return errors.NotFound("segment not found")
		}
		if err := tx.SetActiveSegment(ctx, eventID, &target.ID); err != nil {
			return err
		}
		if !target.IsFinal() {
			return tx.ResetContestantStatuses(ctx, eventID)
		}
		return nil
	})
	s.metrics.RecordTransition("activate", outcomeLabel(err))
	if err != nil {
		return storeErr(err, "segment")
	}
	if segmentID == nil {
		s.log.Info("Active round cleared", "event_id", eventID)
	} else {
		s.log.Info("Active round changed", "event_id", eventID, "segment_id", *segmentID)
	}
	return nil
}

// DeactivateAll clears the event's active round
func (s *RoundService) DeactivateAll(ctx context.Context, eventID int) error {
	return s.ActivateSegment(ctx, eventID, nil)
}

func checkSwitchAllowed(data *eventData, target *int) error {
	current := data.active()
	if current == nil || data.event.Status == models.EventEnded {
		return nil
	}
	if target != nil && *target == current.ID {
		return nil
	}
	if data.inFinalChain(*current) {
		return ErrFinalInProgress
	}
	return nil
}

// AdvanceRound merges qualifiedIDs into the next main round and activates it.
// Clinchers are skipped: the next round follows the chain's root in order.
// Contestant statuses are left alone. A running final chain cannot be left this
// way, and every qualified id must belong to the event.
func (s *RoundService) AdvanceRound(ctx context.Context, eventID, currentRoundID int, qualifiedIDs []int) (*models.Segment, error) {
	unlock := s.lock(eventID)
	defer unlock()

	var next *models.Segment
	err := s.repo.InTx(ctx, func(tx repository.FullRepository) error {
		data, err := loadEventData(ctx, tx, eventID)
		if err != nil {
			return err
		}
		current := data.segment(currentRoundID)
		if current == nil {
			return errors.NotFound("round not found")
		}
		for _, id := range qualifiedIDs {
			if data.contestant(id) == nil {
				return errors.NotFoundf("contestant %d not found in event", id)
			}
		}
		if target := data.nextRound(data.root(*current).OrderIndex); target != nil {
			if err := checkSwitchAllowed(data, &target.ID); err != nil {
				return err
			}
		}
		next, err = mergeIntoNext(ctx, tx, data, *current, qualifiedIDs)
		if err != nil {
			return err
		}
		return tx.SetActiveSegment(ctx, eventID, &next.ID)
	})
	s.metrics.RecordTransition("advance", outcomeLabel(err))
	if err != nil {
		return nil, storeErr(err, "segment")
	}
	s.log.Info("Advanced to next round", "event_id", eventID, "from_segment_id", currentRoundID,
		"segment_id", next.ID, "qualified", len(qualifiedIDs))
	return next, nil
}

// AddQuestion adds one question to a quiz round, the live "+1" control
func (s *RoundService) AddQuestion(ctx context.Context, segmentID int) (*models.Segment, error) {
	seg, err := s.repo.GetSegment(ctx, segmentID)
	if err != nil {
		return nil, storeErr(err, "segment")
	}
	unlock := s.lock(seg.EventID)
	defer unlock()

	ev, err := editableEvent(ctx, s.repo, seg.EventID)
	if err != nil {
		return nil, err
	}
	if ev.Status == models.EventEnded {
		return nil, ErrEventEnded
	}
	if ev.Type != models.EventQuizBee {
		return nil, errors.Validation("questions can only be added to quiz bee rounds")
	}

	if err := s.repo.IncrementSegmentQuestions(ctx, segmentID); err != nil {
		return nil, storeErr(err, "segment")
	}
	s.metrics.RecordTransition("add_question", "ok")
	s.log.Info("Question added", "event_id", seg.EventID, "segment_id", segmentID, "total_questions", seg.TotalQuestions+1)
	seg, err = s.repo.GetSegment(ctx, segmentID)
	return seg, storeErr(err, "segment")
}

// Eliminate ranks the event (or one round) and keeps the top limit of every
// division active; the rest are marked eliminated. limit 0 keeps everyone.
func (s *RoundService) Eliminate(ctx context.Context, eventID, limit int, scope RankScope) (*QualificationResult, error) {
	if limit < 0 {
		return nil, errors.Validation("qualifier limit cannot be negative")
	}
	unlock := s.lock(eventID)
	defer unlock()

	result := &QualificationResult{}
	err := s.repo.InTx(ctx, func(tx repository.FullRepository) error {
		data, err := loadEventData(ctx, tx, eventID)
		if err != nil {
			return err
		}
		var ranking scoring.Ranking
		if scope.SegmentID == nil {
			ranking = data.rank(data.contestants, data.preliminaryTotal)
		} else {
			seg := data.segment(*scope.SegmentID)
			if seg == nil {
				return errors.NotFound("segment not found")
			}
			ranking = data.rank(data.allowed(*seg), func(c models.Contestant) float64 {
				return data.segmentScore(c, *seg)
			})
		}

		result.Qualified, result.Eliminated = scoring.ComputeQualification(ranking, limit)
		if err := tx.SetContestantStatus(ctx, result.Qualified, models.ContestantActive); err != nil {
			return err
		}
		return tx.SetContestantStatus(ctx, result.Eliminated, models.ContestantEliminated)
	})
	s.metrics.RecordTransition("eliminate", outcomeLabel(err))
	if err != nil {
		return nil, storeErr(err, "contestants")
	}
	s.log.Info("Elimination applied", "event_id", eventID, "limit", limit,
		"qualified", len(result.Qualified), "eliminated", len(result.Eliminated))
	return result, nil
}

// EvaluateAndAdvance judges the active round. A normal round or cutoff clincher
// advances its qualifiers or spawns clinchers for cutoff ties. A final chain
// resolves its top places one tie at a time and ends the event once none remain.
// A clincher whose whole pool ties again gets one more question instead.
func (s *RoundService) EvaluateAndAdvance(ctx context.Context, eventID int) (*EvaluationReport, error) {
	unlock := s.lock(eventID)
	defer unlock()

	start := time.Now()
	var report *EvaluationReport
	err := s.repo.InTx(ctx, func(tx repository.FullRepository) error {
		data, err := loadEventData(ctx, tx, eventID)
		if err != nil {
			return err
		}
		active := data.active()
		if active == nil {
			return ErrNoActiveRound
		}
		if data.inFinalChain(*active) {
			report, err = s.evaluateFinal(ctx, tx, data, *active)
		} else {
			report, err = s.evaluateCutoff(ctx, tx, data, *active)
		}
		return err
	})
	s.metrics.ObserveEvaluation(time.Since(start))
	if err != nil {
		s.metrics.RecordTransition("evaluate", "error")
		return nil, storeErr(err, "segment")
	}
	s.metrics.RecordTransition("evaluate", string(report.Outcome))
	s.log.Info("Round evaluated", "event_id", eventID, "segment_id", report.SegmentID,
		"outcome", report.Outcome, "clinchers", len(report.Clinchers))
	return report, nil
}

func (s *RoundService) evaluateCutoff(ctx context.Context, tx repository.FullRepository, data *eventData, seg models.Segment) (*EvaluationReport, error) {
	pool := data.pool(seg)
	ranking := data.rank(pool, func(c models.Contestant) float64 {
		return data.evaluationScore(c, seg)
	})
	report := &EvaluationReport{SegmentID: seg.ID, Standings: ranking, Qualified: []int{}, Eliminated: []int{}}

	type divisionTie struct {
		division string
		cut      scoring.Cutoff
	}
	var ties []divisionTie
	decided := make(map[int]bool)
	for _, division := range ranking.Divisions() {
		list := ranking[division]
		cut := scoring.CutoffTie(list, seg.QualifierLimit)
		if cut.HasTie() && seg.IsClincher() && len(cut.Tied) == len(list) {
			return s.deadlock(ctx, tx, data, seg, report)
		}
		for _, id := range scoring.ContestantIDs(cut.Winners) {
			report.Qualified = append(report.Qualified, id)
			decided[id] = true
		}
		if cut.HasTie() {
			ties = append(ties, divisionTie{division: division, cut: cut})
			for _, id := range scoring.ContestantIDs(cut.Tied) {
				decided[id] = true
			}
		}
	}
	for _, c := range pool {
		if !decided[c.ID] {
			report.Eliminated = append(report.Eliminated, c.ID)
		}
	}

	if err := tx.SetSegmentConcluded(ctx, seg.ID, true); err != nil {
		return nil, err
	}

	if len(ties) == 0 {
		next, err := mergeIntoNext(ctx, tx, data, seg, report.Qualified)
		if err != nil {
			return nil, err
		}
		if seg.IsClincher() {
			if pending := data.pendingClincher(seg); pending != nil {
				next = pending
			}
		}
		if err := tx.SetActiveSegment(ctx, seg.EventID, &next.ID); err != nil {
			return nil, err
		}
		report.Outcome = OutcomeAdvanced
		report.NextSegmentID = &next.ID
		report.Message = fmt.Sprintf("%d qualified; %s is now active", len(report.Qualified), next.Name)
		return report, nil
	}

	// clean winners wait in the next round while the clinchers play
	if _, err := mergeIntoNext(ctx, tx, data, seg, report.Qualified); err != nil {
		return nil, err
	}
	for i, t := range ties {
		ids := scoring.ContestantIDs(t.cut.Tied)
		clincher, err := s.spawnClincher(ctx, tx, data, seg, t.division, ids, t.cut.Spots)
		if err != nil {
			return nil, err
		}
		report.Clinchers = append(report.Clinchers, ClincherInfo{
			SegmentID:     clincher.ID,
			Division:      t.division,
			ContestantIDs: ids,
			Spots:         t.cut.Spots,
			Active:        i == 0,
		})
	}
	first := report.Clinchers[0].SegmentID
	if err := tx.SetActiveSegment(ctx, seg.EventID, &first); err != nil {
		return nil, err
	}
	report.Outcome = OutcomeTie
	report.NextSegmentID = &first
	report.Message = fmt.Sprintf("tie at the cutoff: %d clincher round(s) created", len(report.Clinchers))
	return report, nil
}

// tier is a run of contestants whose order is settled as far as the
// clinchers played so far allow. Members share a score in seg when len > 1.
type tier struct {
	seg     models.Segment
	members []models.Contestant
}

func (s *RoundService) evaluateFinal(ctx context.Context, tx repository.FullRepository, data *eventData, seg models.Segment) (*EvaluationReport, error) {
	root := data.root(seg)
	pool := data.pool(root)
	report := &EvaluationReport{SegmentID: seg.ID, Standings: scoring.Ranking{}, Qualified: []int{}, Eliminated: []int{}}

	byDivision := make(map[string][]models.Contestant)
	for _, c := range pool {
		byDivision[c.Division] = append(byDivision[c.Division], c)
	}
	divisions := make([]string, 0, len(byDivision))
	for d := range byDivision {
		divisions = append(divisions, d)
	}
	sort.Strings(divisions)

	var target *tier
	var targetStart, targetLimit int
	var targetDivision string
	for _, division := range divisions {
		members := byDivision[division]
		limit := root.QualifierLimit
		if limit <= 0 || limit > len(members) {
			limit = len(members)
		}

		pos := 0
		for _, t := range data.resolveTiers(root, members) {
			for _, c := range t.members {
				report.Standings[division] = append(report.Standings[division], scoring.Ranked{
					Entry: scoring.EntriesFor([]models.Contestant{c}, func(c models.Contestant) float64 {
						return data.segmentScore(c, root)
					})[0],
					Rank: pos + 1,
				})
				if pos < limit {
					report.Qualified = append(report.Qualified, c.ID)
				} else {
					report.Eliminated = append(report.Eliminated, c.ID)
				}
				pos++
			}
			start := pos - len(t.members)
			if target == nil && len(t.members) > 1 && start < limit {
				found := t
				target, targetStart, targetLimit, targetDivision = &found, start, limit, division
			}
		}
	}

	if target == nil {
		if err := tx.SetSegmentConcluded(ctx, seg.ID, true); err != nil {
			return nil, err
		}
		if err := tx.SetEventStatus(ctx, seg.EventID, models.EventEnded); err != nil {
			return nil, err
		}
		report.Outcome = OutcomeConcluded
		report.Message = "final standings confirmed; event ended"
		return report, nil
	}

	ids := make([]int, len(target.members))
	for i, c := range target.members {
		ids[i] = c.ID
	}
	if target.seg.IsClincher() && len(target.members) == len(data.allowed(target.seg)) {
		return s.deadlock(ctx, tx, data, target.seg, report)
	}

	spots := 1
	if targetStart+len(target.members) > targetLimit {
		spots = targetLimit - targetStart
	}
	clincher, err := s.spawnClincher(ctx, tx, data, target.seg, targetDivision, ids, spots)
	if err != nil {
		return nil, err
	}
	if err := tx.SetActiveSegment(ctx, seg.EventID, &clincher.ID); err != nil {
		return nil, err
	}
	report.Outcome = OutcomeTie
	report.NextSegmentID = &clincher.ID
	report.Clinchers = []ClincherInfo{{
		SegmentID:     clincher.ID,
		Division:      targetDivision,
		ContestantIDs: ids,
		Spots:         spots,
		Active:        true,
	}}
	report.Message = fmt.Sprintf("tie for place %d: clincher round created", targetStart+1)
	return report, nil
}

// deadlock adds a question to a clincher whose whole pool tied again and keeps it active
func (s *RoundService) deadlock(ctx context.Context, tx repository.FullRepository, data *eventData, seg models.Segment, report *EvaluationReport) (*EvaluationReport, error) {
	if err := tx.IncrementSegmentQuestions(ctx, seg.ID); err != nil {
		return nil, err
	}
	if active := data.active(); active == nil || active.ID != seg.ID {
		if err := tx.SetActiveSegment(ctx, seg.EventID, &seg.ID); err != nil {
			return nil, err
		}
	}
	report.Outcome = OutcomeDeadlock
	report.NextSegmentID = &seg.ID
	report.Qualified = []int{}
	report.Eliminated = []int{}
	report.Message = fmt.Sprintf("all contestants in %s are still tied; question %d added", seg.Name, seg.TotalQuestions+1)
	s.log.Info("Clincher deadlock, question added", "event_id", seg.EventID, "segment_id", seg.ID)
	return report, nil
}

// spawnClincher appends a tie-break round after every existing round
func (s *RoundService) spawnClincher(ctx context.Context, tx repository.FullRepository, data *eventData, parent models.Segment, division string, contestantIDs []int, spots int) (*models.Segment, error) {
	maxOrder, err := tx.MaxOrderIndex(ctx, parent.EventID)
	if err != nil {
		return nil, err
	}
	name := parent.Name + " Clincher"
	if division != "" {
		name = fmt.Sprintf("%s (%s)", name, division)
	}
	clincher := models.Segment{
		EventID:           parent.EventID,
		Name:              name,
		OrderIndex:        maxOrder + 1,
		Kind:              models.RoundClincher,
		QualifierLimit:    spots,
		PointsPerQuestion: 1,
		TotalQuestions:    1,
		ParticipantIDs:    contestantIDs,
		RelatedSegmentID:  &parent.ID,
	}
	id, err := tx.CreateSegment(ctx, clincher)
	if err != nil {
		return nil, err
	}
	clincher.ID = int(id)

	if data.event.Type == models.EventQuizBee {
		for _, contestantID := range contestantIDs {
			if err := tx.UpsertAnswer(ctx, contestantID, nil, clincher.ID, 1, 0, false); err != nil {
				return nil, err
			}
		}
	} else {
		// judges score a pageant clincher on the parent's criteria
		for _, c := range data.criteria[parent.ID] {
			if _, err := tx.CreateCriteria(ctx, models.Criteria{
				SegmentID: clincher.ID, Name: c.Name, Weight: c.Weight, MaxScore: c.MaxScore,
			}); err != nil {
				return nil, err
			}
		}
	}

	s.log.Info("Clincher created", "event_id", parent.EventID, "segment_id", clincher.ID,
		"parent_segment_id", parent.ID, "contestants", len(contestantIDs), "spots", spots)
	return &clincher, nil
}

// mergeIntoNext unions qualified into the participants of the main round after seg's chain
func mergeIntoNext(ctx context.Context, tx repository.FullRepository, data *eventData, seg models.Segment, qualified []int) (*models.Segment, error) {
	next := data.nextRound(data.root(seg).OrderIndex)
	if next == nil {
		return nil, ErrNoNextRound
	}
	merged := union(next.ParticipantIDs, qualified)
	if err := tx.SetSegmentParticipants(ctx, next.ID, merged); err != nil {
		return nil, err
	}
	next.ParticipantIDs = merged
	return next, nil
}

// nextRound returns the main round with the smallest order index above base
func (d *eventData) nextRound(base int) *models.Segment {
	var next *models.Segment
	for i := range d.segments {
		s := &d.segments[i]
		if s.IsClincher() || s.OrderIndex <= base {
			continue
		}
		if next == nil || s.OrderIndex < next.OrderIndex {
			next = s
		}
	}
	return next
}

// pendingClincher returns the earliest unplayed clincher in seg's chain
func (d *eventData) pendingClincher(seg models.Segment) *models.Segment {
	rootID := d.root(seg).ID
	var pending *models.Segment
	for i := range d.segments {
		s := &d.segments[i]
		if !s.IsClincher() || s.Concluded || s.ID == seg.ID || d.root(*s).ID != rootID {
			continue
		}
		if pending == nil || s.OrderIndex < pending.OrderIndex {
			pending = s
		}
	}
	return pending
}

// resolveTiers orders members by their score in seg and splits equal scores
// using the clincher already played for exactly that group, recursively
func (d *eventData) resolveTiers(seg models.Segment, members []models.Contestant) []tier {
	entries := scoring.EntriesFor(members, func(c models.Contestant) float64 {
		return d.segmentScore(c, seg)
	})
	ranked := scoring.Rank(entries)

	byID := make(map[int]models.Contestant, len(members))
	for _, c := range members {
		byID[c.ID] = c
	}

	var tiers []tier
	for _, division := range ranked.Divisions() {
		for _, g := range scoring.TieGroups(ranked[division]) {
			group := make([]models.Contestant, 0, g.Size())
			for _, r := range g.Members {
				group = append(group, byID[r.ContestantID])
			}
			if g.Size() > 1 {
				if child := d.childClincher(seg.ID, scoring.ContestantIDs(g.Members)); child != nil {
					tiers = append(tiers, d.resolveTiers(*child, group)...)
					continue
				}
			}
			tiers = append(tiers, tier{seg: seg, members: group})
		}
	}
	return tiers
}

// childClincher finds the latest clincher spawned under parentID for exactly ids
func (d *eventData) childClincher(parentID int, ids []int) *models.Segment {
	var found *models.Segment
	for i := range d.segments {
		s := &d.segments[i]
		if !s.IsClincher() || s.RelatedSegmentID == nil || *s.RelatedSegmentID != parentID {
			continue
		}
		if !sameSet(s.ParticipantIDs, ids) {
			continue
		}
		if found == nil || s.OrderIndex > found.OrderIndex {
			found = s
		}
	}
	return found
}

func union(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))
	for _, list := range [][]int{a, b} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func sameSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[int]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}

func outcomeLabel(err error) string {
	if err != nil {
		return errors.KindOf(err).String()
	}
	return "ok"
}
