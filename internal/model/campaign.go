package model

import (
	"sort"
	"strings"
	"time"
)

// Campaign is a customer-discovery hypothesis plus the fixed interview script.
// Campaigns are immutable once created.
type Campaign struct {
	ID                   string    `json:"id" yaml:"id"`
	Title                string    `json:"title" yaml:"title"`
	HypothesisPain       string    `json:"hypothesis_pain" yaml:"hypothesis_pain"`
	HypothesisJob        string    `json:"hypothesis_job" yaml:"hypothesis_job"`
	TargetICPDescription string    `json:"target_icp_description" yaml:"target_icp_description"`
	Question1            string    `json:"question_1" yaml:"question_1"`
	Question2            string    `json:"question_2" yaml:"question_2"`
	Question3            string    `json:"question_3" yaml:"question_3"`
	Question4            string    `json:"question_4" yaml:"question_4"`
	Question5Open        *string   `json:"question_5_open,omitempty" yaml:"question_5_open,omitempty"`
	CreatedAt            time.Time `json:"created_at" yaml:"-"`
}

// Questions returns the scripted questions in order. The open question is
// included only when set.
func (c *Campaign) Questions() []string {
	qs := []string{c.Question1, c.Question2, c.Question3, c.Question4}
	if c.HasOpenQuestion() {
		qs = append(qs, *c.Question5Open)
	}
	return qs
}

// HasOpenQuestion reports whether the campaign carries a non-blank fifth question.
func (c *Campaign) HasOpenQuestion() bool {
	return c.Question5Open != nil && strings.TrimSpace(*c.Question5Open) != ""
}

// ValidationError lists the campaign fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid campaign: " + strings.Join(parts, "; ")
}

// Normalize trims surrounding whitespace on every field and clears a blank
// open question.
func (c *Campaign) Normalize() {
	c.Title = strings.TrimSpace(c.Title)
	c.HypothesisPain = strings.TrimSpace(c.HypothesisPain)
	c.HypothesisJob = strings.TrimSpace(c.HypothesisJob)
	c.TargetICPDescription = strings.TrimSpace(c.TargetICPDescription)
	c.Question1 = strings.TrimSpace(c.Question1)
	c.Question2 = strings.TrimSpace(c.Question2)
	c.Question3 = strings.TrimSpace(c.Question3)
	c.Question4 = strings.TrimSpace(c.Question4)
	if c.Question5Open != nil {
		q5 := strings.TrimSpace(*c.Question5Open)
		if q5 == "" {
			c.Question5Open = nil
		} else {
			c.Question5Open = &q5
		}
	}
}

// Validate returns a *ValidationError when any required field is blank.
func (c *Campaign) Validate() error {
	required := []struct {
		key, value, label string
	}{
		{"title", c.Title, "Title"},
		{"hypothesis_pain", c.HypothesisPain, "Pain hypothesis"},
		{"hypothesis_job", c.HypothesisJob, "Job hypothesis"},
		{"target_icp_description", c.TargetICPDescription, "Target ICP description"},
		{"question_1", c.Question1, "Question 1"},
		{"question_2", c.Question2, "Question 2"},
		{"question_3", c.Question3, "Question 3"},
		{"question_4", c.Question4, "Question 4"},
	}

	fields := make(map[string]string)
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			fields[r.key] = r.label + " is required"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
