package services

import (
	"context"
	"strings"

	"github.com/abrezinsky/tabulator/internal/errors"
	"github.com/abrezinsky/tabulator/internal/logger"
	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/repository"
	"github.com/abrezinsky/tabulator/internal/scoring"
)

// EventService handles events and their round/criteria structure
type EventService struct {
	log  logger.Logger
	repo repository.FullRepository
}

// NewEventService creates a new EventService
func NewEventService(log logger.Logger, repo repository.FullRepository) *EventService {
	return &EventService{log: log, repo: repo}
}

// SegmentInput holds the editable fields of a round
type SegmentInput struct {
	Name              string
	OrderIndex        int
	Weight            float64
	Kind              models.RoundKind
	QualifierLimit    int
	PointsPerQuestion int
	TotalQuestions    int
	ParticipantIDs    []int
}

// CriteriaInput holds the editable fields of a criterion
type CriteriaInput struct {
	Name     string
	Weight   float64
	MaxScore float64
}

// ==================== Events ====================

// CreateEvent creates an active, unlocked event
func (s *EventService) CreateEvent(ctx context.Context, name string, eventType models.EventType) (*models.Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Validation("event name is required")
	}
	if eventType != models.EventPageant && eventType != models.EventQuizBee {
		return nil, errors.Validationf("unknown event type %q", eventType)
	}
	id, err := s.repo.CreateEvent(ctx, name, eventType)
	if err != nil {
		return nil, storeErr(err, "event")
	}
	s.log.Info("Event created", "event_id", id, "type", eventType)
	return s.GetEvent(ctx, int(id))
}

// GetEvent returns an event
func (s *EventService) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	ev, err := s.repo.GetEvent(ctx, id)
	return ev, storeErr(err, "event")
}

// ListEvents returns every event
func (s *EventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	events, err := s.repo.ListEvents(ctx)
	return events, storeErr(err, "events")
}

// SetLocked locks or unlocks an event. A locked event accepts no scores and no structural edits.
func (s *EventService) SetLocked(ctx context.Context, id int, locked bool) error {
	if err := s.repo.SetEventLocked(ctx, id, locked); err != nil {
		return storeErr(err, "event")
	}
	s.log.Info("Event lock changed", "event_id", id, "locked", locked)
	return nil
}

// editableEvent loads an event and rejects locked ones
func editableEvent(ctx context.Context, repo repository.EventRepository, id int) (*models.Event, error) {
	ev, err := repo.GetEvent(ctx, id)
	if err != nil {
		return nil, storeErr(err, "event")
	}
	if ev.Locked {
		return nil, ErrEventLocked
	}
	return ev, nil
}

// ==================== Segments ====================

// ListSegments returns the event's rounds in order
func (s *EventService) ListSegments(ctx context.Context, eventID int) ([]models.Segment, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	segments, err := s.repo.ListSegments(ctx, eventID)
	return segments, storeErr(err, "segments")
}

// GetSegment returns a round
func (s *EventService) GetSegment(ctx context.Context, id int) (*models.Segment, error) {
	seg, err := s.repo.GetSegment(ctx, id)
	return seg, storeErr(err, "segment")
}

// CreateSegment validates and adds a normal or final round
func (s *EventService) CreateSegment(ctx context.Context, eventID int, in SegmentInput) (*models.Segment, error) {
	ev, err := editableEvent(ctx, s.repo, eventID)
	if err != nil {
		return nil, err
	}
	seg := models.Segment{EventID: eventID}
	if err := s.applySegmentInput(ctx, ev, &seg, in); err != nil {
		return nil, err
	}

	id, err := s.repo.CreateSegment(ctx, seg)
	if err != nil {
		return nil, storeErr(err, "segment")
	}
	s.log.Info("Segment created", "event_id", eventID, "segment_id", id, "kind", seg.Kind)
	return s.GetSegment(ctx, int(id))
}

// UpdateSegment validates and rewrites a round
func (s *EventService) UpdateSegment(ctx context.Context, id int, in SegmentInput) (*models.Segment, error) {
	seg, err := s.GetSegment(ctx, id)
	if err != nil {
		return nil, err
	}
	ev, err := editableEvent(ctx, s.repo, seg.EventID)
	if err != nil {
		return nil, err
	}
	if seg.IsClincher() {
		// clinchers keep their kind and only take limit/question edits
		in.Kind = models.RoundClincher
		in.Weight = 0
		in.OrderIndex = seg.OrderIndex
	}
	if err := s.applySegmentInput(ctx, ev, seg, in); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSegment(ctx, *seg); err != nil {
		return nil, storeErr(err, "segment")
	}
	return s.GetSegment(ctx, id)
}

// DeleteSegment removes a round with its criteria, scores and clinchers
func (s *EventService) DeleteSegment(ctx context.Context, id int) error {
	seg, err := s.GetSegment(ctx, id)
	if err != nil {
		return err
	}
	if _, err := editableEvent(ctx, s.repo, seg.EventID); err != nil {
		return err
	}
	if err := s.repo.DeleteSegment(ctx, id); err != nil {
		return storeErr(err, "segment")
	}
	s.log.Info("Segment deleted", "event_id", seg.EventID, "segment_id", id)
	return nil
}

func (s *EventService) applySegmentInput(ctx context.Context, ev *models.Event, seg *models.Segment, in SegmentInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return errors.Validation("segment name is required")
	}
	kind := in.Kind
	if kind == "" {
		kind = models.RoundNormal
	}
	if kind != models.RoundNormal && kind != models.RoundFinal && !(kind == models.RoundClincher && seg.IsClincher()) {
		return errors.Validationf("segment kind must be normal or final, got %q", kind)
	}
	if in.QualifierLimit < 0 {
		return errors.Validation("qualifier limit cannot be negative")
	}
	if in.Weight < 0 {
		return errors.Validation("weight cannot be negative")
	}
	if in.TotalQuestions < 0 {
		return errors.Validation("total questions cannot be negative")
	}
	points := in.PointsPerQuestion
	if points == 0 {
		points = 1
	}
	if points < 0 {
		return errors.Validation("points per question must be positive")
	}

	if !seg.IsClincher() {
		taken, err := s.repo.OrderIndexTaken(ctx, ev.ID, in.OrderIndex, seg.ID)
		if err != nil {
			return storeErr(err, "segment")
		}
		if taken {
			return errors.Validationf("order index %d is already used by another round", in.OrderIndex)
		}
	}

	if ev.Type == models.EventPageant && kind == models.RoundNormal {
		segments, err := s.repo.ListSegments(ctx, ev.ID)
		if err != nil {
			return storeErr(err, "segments")
		}
		sum := in.Weight
		for _, other := range segments {
			if other.ID != seg.ID && other.Kind == models.RoundNormal {
				sum += other.Weight
			}
		}
		if sum > 1.0+WeightEpsilon {
			return errors.Validationf("segment weights would total %.2f%%, exceeding 100%%", sum*100)
		}
	}

	seg.Name = name
	seg.OrderIndex = in.OrderIndex
	seg.Weight = in.Weight
	seg.Kind = kind
	seg.QualifierLimit = in.QualifierLimit
	seg.PointsPerQuestion = points
	seg.TotalQuestions = in.TotalQuestions
	// nil keeps the current allow-list; an empty slice lifts it
	switch {
	case in.ParticipantIDs == nil:
	case len(in.ParticipantIDs) == 0:
		seg.ParticipantIDs = nil
	default:
		seg.ParticipantIDs = in.ParticipantIDs
	}
	return nil
}

// ==================== Criteria ====================

// ListCriteria returns the criteria of a round
func (s *EventService) ListCriteria(ctx context.Context, segmentID int) ([]models.Criteria, error) {
	if _, err := s.GetSegment(ctx, segmentID); err != nil {
		return nil, err
	}
	criteria, err := s.repo.ListCriteria(ctx, segmentID)
	return criteria, storeErr(err, "criteria")
}

// CreateCriteria adds a criterion to a pageant round
func (s *EventService) CreateCriteria(ctx context.Context, segmentID int, in CriteriaInput) (*models.Criteria, error) {
	seg, err := s.GetSegment(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	c := models.Criteria{SegmentID: segmentID}
	if err := s.applyCriteriaInput(ctx, seg, &c, in); err != nil {
		return nil, err
	}
	id, err := s.repo.CreateCriteria(ctx, c)
	if err != nil {
		return nil, storeErr(err, "criteria")
	}
	c.ID = int(id)
	s.log.Info("Criteria created", "segment_id", segmentID, "criteria_id", id)
	return &c, nil
}

// UpdateCriteria rewrites a criterion
func (s *EventService) UpdateCriteria(ctx context.Context, id int, in CriteriaInput) (*models.Criteria, error) {
	c, err := s.repo.GetCriteria(ctx, id)
	if err != nil {
		return nil, storeErr(err, "criteria")
	}
	seg, err := s.GetSegment(ctx, c.SegmentID)
	if err != nil {
		return nil, err
	}
	if err := s.applyCriteriaInput(ctx, seg, c, in); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCriteria(ctx, *c); err != nil {
		return nil, storeErr(err, "criteria")
	}
	return c, nil
}

// DeleteCriteria removes a criterion and its scores
func (s *EventService) DeleteCriteria(ctx context.Context, id int) error {
	c, err := s.repo.GetCriteria(ctx, id)
	if err != nil {
		return storeErr(err, "criteria")
	}
	seg, err := s.GetSegment(ctx, c.SegmentID)
	if err != nil {
		return err
	}
	if _, err := editableEvent(ctx, s.repo, seg.EventID); err != nil {
		return err
	}
	return storeErr(s.repo.DeleteCriteria(ctx, id), "criteria")
}

func (s *EventService) applyCriteriaInput(ctx context.Context, seg *models.Segment, c *models.Criteria, in CriteriaInput) error {
	ev, err := editableEvent(ctx, s.repo, seg.EventID)
	if err != nil {
		return err
	}
	if ev.Type != models.EventPageant {
		return errors.Validation("criteria only apply to pageant events")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return errors.Validation("criteria name is required")
	}
	if in.Weight <= 0 {
		return errors.Validation("criteria weight must be positive")
	}
	if in.MaxScore <= 0 {
		return errors.Validation("max score must be positive")
	}

	existing, err := s.repo.ListCriteria(ctx, seg.ID)
	if err != nil {
		return storeErr(err, "criteria")
	}
	others := make([]models.Criteria, 0, len(existing))
	for _, other := range existing {
		if other.ID != c.ID {
			others = append(others, other)
		}
	}
	sum := in.Weight + scoring.WeightSum(others, func(c models.Criteria) float64 { return c.Weight })
	if sum > 1.0+WeightEpsilon {
		return errors.Validationf("criteria weights would total %.2f%%, exceeding 100%%", sum*100)
	}

	c.Name = name
	c.Weight = in.Weight
	c.MaxScore = in.MaxScore
	return nil
}
