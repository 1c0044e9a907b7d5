// Package setup imports a complete event definition from YAML: the event, its
// rounds and criteria, contestants, and judges or tabulators.
package setup

import (
	"context"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/abrezinsky/tabulator/internal/logger"
	"github.com/abrezinsky/tabulator/internal/models"
	"github.com/abrezinsky/tabulator/internal/services"
)

// Definition is the document layout
type Definition struct {
	Event       EventDef        `yaml:"event" validate:"required"`
	Segments    []SegmentDef    `yaml:"segments" validate:"dive"`
	Contestants []ContestantDef `yaml:"contestants" validate:"dive"`
	Judges      []JudgeDef      `yaml:"judges" validate:"dive"`
}

type EventDef struct {
	Name string           `yaml:"name" validate:"required"`
	Type models.EventType `yaml:"type" validate:"required,oneof=pageant quiz_bee"`
}

type SegmentDef struct {
	Name              string           `yaml:"name" validate:"required"`
	Order             int              `yaml:"order" validate:"gte=0"`
	Weight            float64          `yaml:"weight" validate:"gte=0,lte=1"`
	Kind              models.RoundKind `yaml:"kind" validate:"omitempty,oneof=normal final"`
	QualifierLimit    int              `yaml:"qualifier_limit" validate:"gte=0"`
	PointsPerQuestion int              `yaml:"points_per_question" validate:"gte=0"`
	TotalQuestions    int              `yaml:"total_questions" validate:"gte=0"`
	Criteria          []CriteriaDef    `yaml:"criteria" validate:"dive"`
}

type CriteriaDef struct {
	Name     string  `yaml:"name" validate:"required"`
	Weight   float64 `yaml:"weight" validate:"gt=0,lte=1"`
	MaxScore float64 `yaml:"max_score" validate:"gt=0"`
}

type ContestantDef struct {
	Name     string `yaml:"name" validate:"required"`
	Division string `yaml:"division"`
	Number   int    `yaml:"number" validate:"gte=0"`
}

type JudgeDef struct {
	Name string           `yaml:"name" validate:"required"`
	Role models.JudgeRole `yaml:"role" validate:"omitempty,oneof=judge tabulator"`
}

// Summary reports what an import created. Judges carry their access codes.
type Summary struct {
	Event       *models.Event       `json:"event"`
	Segments    []models.Segment    `json:"segments"`
	Criteria    int                 `json:"criteria"`
	Contestants []models.Contestant `json:"contestants"`
	Judges      []models.Judge      `json:"judges"`
}

// Importer creates events through the service layer so every business rule applies
type Importer struct {
	log         logger.Logger
	events      services.EventServicer
	contestants services.ContestantServicer
	judges      services.JudgeServicer
	validate    *validator.Validate
}

// NewImporter creates an Importer
func NewImporter(log logger.Logger, events services.EventServicer, contestants services.ContestantServicer, judges services.JudgeServicer) *Importer {
	return &Importer{
		log:         log,
		events:      events,
		contestants: contestants,
		judges:      judges,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Parse decodes and validates a definition without touching the store.
// Unknown keys are rejected.
func (im *Importer) Parse(r io.Reader) (*Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("event definition is empty")
		}
		return nil, fmt.Errorf("invalid event definition: %w", err)
	}
	if err := im.validate.Struct(&def); err != nil {
		return nil, fmt.Errorf("invalid event definition: %w", err)
	}
	if def.Event.Type == models.EventQuizBee {
		for _, s := range def.Segments {
			if len(s.Criteria) > 0 {
				return nil, fmt.Errorf("segment %q: quiz bee rounds have no criteria", s.Name)
			}
		}
	}
	return &def, nil
}

// Import parses r and creates everything it defines. Creation stops at the first
// rejected item; what was created before it is kept and reported in the error.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Summary, error) {
	def, err := im.Parse(r)
	if err != nil {
		return nil, err
	}

	ev, err := im.events.CreateEvent(ctx, def.Event.Name, def.Event.Type)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	sum := &Summary{Event: ev}
	log := im.log.With("event_id", ev.ID)

	for _, sd := range def.Segments {
		seg, err := im.events.CreateSegment(ctx, ev.ID, services.SegmentInput{
			Name:              sd.Name,
			OrderIndex:        sd.Order,
			Weight:            sd.Weight,
			Kind:              sd.Kind,
			QualifierLimit:    sd.QualifierLimit,
			PointsPerQuestion: sd.PointsPerQuestion,
			TotalQuestions:    sd.TotalQuestions,
		})
		if err != nil {
			return sum, fmt.Errorf("event %d: segment %q: %w", ev.ID, sd.Name, err)
		}
		for _, cd := range sd.Criteria {
			_, err := im.events.CreateCriteria(ctx, seg.ID, services.CriteriaInput{Name: cd.Name, Weight: cd.Weight, MaxScore: cd.MaxScore})
			if err != nil {
				return sum, fmt.Errorf("event %d: segment %q: criteria %q: %w", ev.ID, sd.Name, cd.Name, err)
			}
			sum.Criteria++
		}
		sum.Segments = append(sum.Segments, *seg)
	}

	for _, cd := range def.Contestants {
		c, err := im.contestants.CreateContestant(ctx, services.Contestant{
			EventID:         ev.ID,
			CandidateNumber: cd.Number,
			Name:            cd.Name,
			Division:        cd.Division,
		})
		if err != nil {
			return sum, fmt.Errorf("event %d: contestant %q: %w", ev.ID, cd.Name, err)
		}
		sum.Contestants = append(sum.Contestants, *c)
	}

	for _, jd := range def.Judges {
		j, err := im.judges.CreateJudge(ctx, ev.ID, jd.Name, jd.Role)
		if err != nil {
			return sum, fmt.Errorf("event %d: judge %q: %w", ev.ID, jd.Name, err)
		}
		sum.Judges = append(sum.Judges, *j)
	}

	log.Info("Event imported", "segments", len(sum.Segments), "criteria", sum.Criteria,
		"contestants", len(sum.Contestants), "judges", len(sum.Judges))
	return sum, nil
}
