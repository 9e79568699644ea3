package training

import "time"

// Training is a course of the public catalogue.
type Training struct {
	ID                    string    `db:"id"`
	Title                 string    `db:"title"`
	PedagogicalObjectives []string  `db:"pedagogical_objectives"`
	Program               []string  `db:"program"`
	PedagogicalMethods    []string  `db:"pedagogical_methods"`
	Audience              string    `db:"audience"`
	Prerequisites         string    `db:"prerequisites"`
	EvaluationMethods     []string  `db:"evaluation_methods"`
	Trainer               string    `db:"trainer"`
	NumberOfTrainees      string    `db:"number_of_trainees"`
	Duration              string    `db:"duration"`
	Quote                 string    `db:"quote"`
	IsVisible             bool      `db:"is_visible"`
	ThemeID               *string   `db:"theme_id"`
	ThemeTitle            *string   `db:"theme_title"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
}

// Theme groups trainings in display order.
type Theme struct {
	ID        string     `db:"id"`
	Title     string     `db:"title"`
	Type      string     `db:"type"`
	CreatedAt time.Time  `db:"created_at"`
	Trainings []Training `db:"-"`
}

// Content is the editable body of a training.
type Content struct {
	Title                 string
	PedagogicalObjectives []string
	Program               []string
	PedagogicalMethods    []string
	Audience              string
	Prerequisites         string
	EvaluationMethods     []string
	Trainer               string
	NumberOfTrainees      string
	Duration              string
	Quote                 string
}

func (c Content) applyTo(t *Training) {
	t.Title = c.Title
	t.PedagogicalObjectives = nonNil(c.PedagogicalObjectives)
	t.Program = nonNil(c.Program)
	t.PedagogicalMethods = nonNil(c.PedagogicalMethods)
	t.Audience = c.Audience
	t.Prerequisites = c.Prerequisites
	t.EvaluationMethods = nonNil(c.EvaluationMethods)
	t.Trainer = c.Trainer
	t.NumberOfTrainees = c.NumberOfTrainees
	t.Duration = c.Duration
	t.Quote = c.Quote
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
