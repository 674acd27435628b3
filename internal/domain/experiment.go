package domain

import "time"

// ControlVariantID is the conventional id of the control arm and the
// fallback variant for subjects that are not enrolled.
const ControlVariantID = "control"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusRunning, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

type Variant struct {
	ID     string `json:"variant_id" yaml:"id" validate:"required,max=64"`
	Name   string `json:"name" yaml:"name" validate:"max=128"`
	Weight int    `json:"weight" yaml:"weight" validate:"gte=0"`
}

// ExperimentDefinition is the operator-supplied part of an experiment.
// It is fixed once the experiment leaves draft.
type ExperimentDefinition struct {
	Name              string    `json:"name" yaml:"name" validate:"required,max=128"`
	Description       *string   `json:"description,omitempty" yaml:"description"`
	Metric            *string   `json:"metric,omitempty" yaml:"metric"`
	Variants          []Variant `json:"variants" yaml:"variants" validate:"required,min=1,dive"`
	TrafficPercentage int       `json:"traffic_percentage" yaml:"traffic_percentage" validate:"gte=0,lte=100"`
}

type Experiment struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Description       *string    `json:"description,omitempty"`
	Metric            *string    `json:"metric,omitempty"`
	Variants          []Variant  `json:"variants"`
	TrafficPercentage int        `json:"traffic_percentage"`
	Status            Status     `json:"status"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	WinnerVariant     *string    `json:"winner_variant,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// StatusUpdate carries the fields written by a lifecycle transition.
type StatusUpdate struct {
	Status        Status
	StartDate     *time.Time
	EndDate       *time.Time
	WinnerVariant *string
	UpdatedAt     time.Time
}

// NewExperiment builds a draft experiment from a validated definition.
func NewExperiment(id string, def ExperimentDefinition, now time.Time) *Experiment {
	e := &Experiment{
		ID:        id,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.apply(def)
	return e
}

func (e *Experiment) apply(def ExperimentDefinition) {
	e.Name = def.Name
	e.Description = def.Description
	e.Metric = def.Metric
	e.Variants = append([]Variant(nil), def.Variants...)
	e.TrafficPercentage = def.TrafficPercentage
}

// Definition returns the operator-supplied part of the experiment.
func (e *Experiment) Definition() ExperimentDefinition {
	return ExperimentDefinition{
		Name:              e.Name,
		Description:       e.Description,
		Metric:            e.Metric,
		Variants:          append([]Variant(nil), e.Variants...),
		TrafficPercentage: e.TrafficPercentage,
	}
}

// HasVariant reports whether id is one of the declared variants.
func (e *Experiment) HasVariant(id string) bool {
	for _, v := range e.Variants {
		if v.ID == id {
			return true
		}
	}
	return false
}

func (e *Experiment) TotalWeight() int {
	total := 0
	for _, v := range e.Variants {
		total += v.Weight
	}
	return total
}

func (e *Experiment) IsRunning() bool {
	return e.Status == StatusRunning
}

// Redefine replaces the definition of a draft experiment.
func (e *Experiment) Redefine(def ExperimentDefinition, now time.Time) error {
	if e.Status != StatusDraft {
		return InvalidTransition("update", e.Status)
	}
	e.apply(def)
	e.UpdatedAt = now
	return nil
}

// Start moves a draft or paused experiment to running. The original start
// date survives a pause/resume cycle.
func (e *Experiment) Start(now time.Time) (StatusUpdate, error) {
	if e.Status != StatusDraft && e.Status != StatusPaused {
		return StatusUpdate{}, InvalidTransition("start", e.Status)
	}
	e.Status = StatusRunning
	if e.StartDate == nil {
		e.StartDate = &now
	}
	e.UpdatedAt = now
	return e.statusUpdate(), nil
}

func (e *Experiment) Pause(now time.Time) (StatusUpdate, error) {
	if e.Status != StatusRunning {
		return StatusUpdate{}, InvalidTransition("pause", e.Status)
	}
	e.Status = StatusPaused
	e.UpdatedAt = now
	return e.statusUpdate(), nil
}

// Stop completes a running or paused experiment, optionally naming a winner.
func (e *Experiment) Stop(now time.Time, winner *string) (StatusUpdate, error) {
	if e.Status != StatusRunning && e.Status != StatusPaused {
		return StatusUpdate{}, InvalidTransition("stop", e.Status)
	}
	if winner != nil && !e.HasVariant(*winner) {
		return StatusUpdate{}, UnknownVariant(*winner)
	}
	e.Status = StatusCompleted
	e.EndDate = &now
	e.WinnerVariant = winner
	e.UpdatedAt = now
	return e.statusUpdate(), nil
}

func (e *Experiment) statusUpdate() StatusUpdate {
	return StatusUpdate{
		Status:        e.Status,
		StartDate:     e.StartDate,
		EndDate:       e.EndDate,
		WinnerVariant: e.WinnerVariant,
		UpdatedAt:     e.UpdatedAt,
	}
}

// DaysRunning counts whole days between the start date and the end date,
// or now for experiments that have not ended.
func (e *Experiment) DaysRunning(now time.Time) int {
	if e.StartDate == nil {
		return 0
	}
	end := now
	if e.EndDate != nil {
		end = *e.EndDate
	}
	if end.Before(*e.StartDate) {
		return 0
	}
	return int(end.Sub(*e.StartDate).Hours() / 24)
}
