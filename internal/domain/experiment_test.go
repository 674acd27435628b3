package domain

import (
	"errors"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func validDefinition() ExperimentDefinition {
	return ExperimentDefinition{
		Name:   "checkout-button",
		Metric: strPtr("purchase"),
		Variants: []Variant{
			{ID: "control", Name: "Blue", Weight: 50},
			{ID: "green", Name: "Green", Weight: 50},
		},
		TrafficPercentage: 100,
	}
}

func TestExperimentDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *ExperimentDefinition)
		wantErr bool
	}{
		{name: "valid", mutate: func(d *ExperimentDefinition) {}},
		{name: "single variant", mutate: func(d *ExperimentDefinition) { d.Variants = d.Variants[:1] }},
		{name: "zero weight variant allowed", mutate: func(d *ExperimentDefinition) { d.Variants[1].Weight = 0 }},
		{name: "missing name", mutate: func(d *ExperimentDefinition) { d.Name = "" }, wantErr: true},
		{name: "no variants", mutate: func(d *ExperimentDefinition) { d.Variants = nil }, wantErr: true},
		{name: "all weights zero", mutate: func(d *ExperimentDefinition) {
			d.Variants[0].Weight = 0
			d.Variants[1].Weight = 0
		}, wantErr: true},
		{name: "negative weight", mutate: func(d *ExperimentDefinition) { d.Variants[0].Weight = -1 }, wantErr: true},
		{name: "duplicate variant", mutate: func(d *ExperimentDefinition) { d.Variants[1].ID = "control" }, wantErr: true},
		{name: "empty variant id", mutate: func(d *ExperimentDefinition) { d.Variants[1].ID = "" }, wantErr: true},
		{name: "traffic above 100", mutate: func(d *ExperimentDefinition) { d.TrafficPercentage = 101 }, wantErr: true},
		{name: "negative traffic", mutate: func(d *ExperimentDefinition) { d.TrafficPercentage = -5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(&def)
			err := def.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestExperiment_Lifecycle(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	exp := NewExperiment("exp-1", validDefinition(), t0)

	if exp.Status != StatusDraft {
		t.Fatalf("expected draft, got %s", exp.Status)
	}

	if _, err := exp.Pause(t0); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("pause from draft: expected invalid transition, got %v", err)
	}
	if _, err := exp.Stop(t0, nil); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("stop from draft: expected invalid transition, got %v", err)
	}

	if _, err := exp.Start(t0); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := exp.Start(t0); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("start from running: expected invalid transition, got %v", err)
	}

	t1 := t0.Add(48 * time.Hour)
	if _, err := exp.Pause(t1); err != nil {
		t.Fatalf("pause: %v", err)
	}
	upd, err := exp.Start(t1.Add(time.Hour))
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !upd.StartDate.Equal(t0) {
		t.Errorf("resume must keep the original start date: got %v", upd.StartDate)
	}

	if err := exp.Redefine(validDefinition(), t1); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("redefine while running: expected invalid transition, got %v", err)
	}

	if _, err := exp.Stop(t1, strPtr("purple")); !errors.Is(err, ErrValidation) {
		t.Fatalf("stop with unknown winner: expected validation error, got %v", err)
	}
	if exp.Status != StatusRunning {
		t.Fatalf("rejected stop must not change status, got %s", exp.Status)
	}

	t2 := t0.Add(10 * 24 * time.Hour)
	upd, err = exp.Stop(t2, strPtr("green"))
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if upd.Status != StatusCompleted || *upd.WinnerVariant != "green" || !upd.EndDate.Equal(t2) {
		t.Errorf("unexpected stop update: %+v", upd)
	}
	if got := exp.DaysRunning(t2.Add(72 * time.Hour)); got != 10 {
		t.Errorf("expected 10 days running, got %d", got)
	}

	if _, err := exp.Start(t2); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("start from completed: expected invalid transition, got %v", err)
	}
}

func TestAdmit(t *testing.T) {
	tests := []struct {
		traffic int
		draw    float64
		want    bool
	}{
		{traffic: 100, draw: 0.999, want: true},
		{traffic: 50, draw: 0.5, want: true},
		{traffic: 50, draw: 0.51, want: false},
		{traffic: 0, draw: 0, want: false},
		{traffic: 10, draw: 0.05, want: true},
	}

	for _, tt := range tests {
		if got := Admit(tt.traffic, tt.draw); got != tt.want {
			t.Errorf("Admit(%d, %v): expected %v, got %v", tt.traffic, tt.draw, tt.want, got)
		}
	}
}

func TestPickVariant(t *testing.T) {
	variants := []Variant{
		{ID: "control", Weight: 50},
		{ID: "b", Weight: 30},
		{ID: "c", Weight: 20},
	}

	tests := []struct {
		name     string
		variants []Variant
		draw     float64
		want     string
	}{
		{name: "start of range", variants: variants, draw: 0, want: "control"},
		{name: "inside control", variants: variants, draw: 0.49, want: "control"},
		{name: "boundary belongs to control", variants: variants, draw: 0.5, want: "control"},
		{name: "inside b", variants: variants, draw: 0.6, want: "b"},
		{name: "inside c", variants: variants, draw: 0.95, want: "c"},
		{name: "single variant", variants: variants[:1], draw: 0.7, want: "control"},
		{name: "zero weight skipped at draw 0", variants: []Variant{{ID: "control", Weight: 0}, {ID: "b", Weight: 1}}, draw: 0, want: "b"},
		{name: "all zero falls back to first", variants: []Variant{{ID: "x", Weight: 0}, {ID: "y", Weight: 0}}, draw: 0.3, want: "x"},
		{name: "empty list", variants: nil, draw: 0.3, want: ControlVariantID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PickVariant(tt.variants, tt.draw); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
