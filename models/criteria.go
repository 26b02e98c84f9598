// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Giving recurrence categories, shared by tithes and donations
const (
	RecurrenceNone      = ""
	RecurrencePunctual  = "punctual"
	RecurrenceSeasonal  = "seasonal"
	RecurrenceRecurring = "recurring"
)

// Engagement tiers, lowest first
const (
	EngagementLow    = "low"
	EngagementMedium = "medium"
	EngagementHigh   = "high"
)

// Attendance classifications
const (
	ClassificationFrequent   = "frequent"
	ClassificationInfrequent = "infrequent"
	ClassificationToRescue   = "to_rescue"
)

// Criteria are the eligibility rules of a config. Disabled blocks are ignored.
type Criteria struct {
	Tithing        RecurrenceCriterion     `json:"tithing"`
	Donations      RecurrenceCriterion     `json:"donations"`
	Attendance     AttendanceCriterion     `json:"attendance"`
	ChurchTime     ChurchTimeCriterion     `json:"churchTime"`
	Engagement     EngagementCriterion     `json:"engagement"`
	Baptism        BaptismCriterion        `json:"baptism"`
	Classification ClassificationCriterion `json:"classification"`
	PositionLimit  PositionLimitCriterion  `json:"positionLimit"`
	EldersCount    EldersCountCriterion    `json:"eldersCount"`
}

// UnmarshalJSON also accepts "faithfulness" as the name of the tithing block.
func (c *Criteria) UnmarshalJSON(data []byte) error {
	type plain Criteria
	aux := struct {
		*plain
		Faithfulness *RecurrenceCriterion `json:"faithfulness"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Faithfulness != nil && c.Tithing == (RecurrenceCriterion{}) {
		c.Tithing = *aux.Faithfulness
	}
	return nil
}

// RecurrenceCriterion accepts the flagged recurrence categories. With no
// category flagged only recurring givers pass.
type RecurrenceCriterion struct {
	Enabled   bool `json:"enabled"`
	Punctual  bool `json:"punctual"`
	Seasonal  bool `json:"seasonal"`
	Recurring bool `json:"recurring"`
}

// Allows reports whether category satisfies the criterion.
func (r RecurrenceCriterion) Allows(category string) bool {
	if !r.Punctual && !r.Seasonal && !r.Recurring {
		return category == RecurrenceRecurring
	}
	switch category {
	case RecurrencePunctual:
		return r.Punctual
	case RecurrenceSeasonal:
		return r.Seasonal
	case RecurrenceRecurring:
		return r.Recurring
	}
	return false
}

type AttendanceCriterion struct {
	Enabled bool `json:"enabled"`
	Minimum int  `json:"minimum"`
}

type ChurchTimeCriterion struct {
	Enabled       bool `json:"enabled"`
	MinimumMonths int  `json:"minimumMonths"`
}

// EngagementCriterion rejects members on the lowest engagement tier.
type EngagementCriterion struct {
	Enabled bool `json:"enabled"`
}

type BaptismCriterion struct {
	Enabled      bool `json:"enabled"`
	MinimumYears int  `json:"minimumYears"`
}

// ClassificationCriterion is an allow-list of attendance classifications.
type ClassificationCriterion struct {
	Enabled    bool `json:"enabled"`
	Frequent   bool `json:"frequent"`
	Infrequent bool `json:"infrequent"`
	ToRescue   bool `json:"toRescue"`
}

// UnmarshalJSON also accepts the Portuguese category keys frequente,
// naoFrequente and aResgatar.
func (c *ClassificationCriterion) UnmarshalJSON(data []byte) error {
	type plain ClassificationCriterion
	aux := struct {
		*plain
		Frequente    *bool `json:"frequente"`
		NaoFrequente *bool `json:"naoFrequente"`
		AResgatar    *bool `json:"aResgatar"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Frequente != nil {
		c.Frequent = *aux.Frequente
	}
	if aux.NaoFrequente != nil {
		c.Infrequent = *aux.NaoFrequente
	}
	if aux.AResgatar != nil {
		c.ToRescue = *aux.AResgatar
	}
	return nil
}

// PositionLimitCriterion caps how many positions of one election a member
// may win. A member at the cap is no longer offered for later positions.
type PositionLimitCriterion struct {
	Enabled      bool `json:"enabled"`
	MaxPositions int  `json:"maxPositions"`
}

// EldersCountCriterion records how many elders the church intends to elect. It is
// kept with the config for display; every position still elects one leader.
type EldersCountCriterion struct {
	Enabled bool `json:"enabled"`
	Count   int  `json:"count"`
}

// Allows reports whether classification is on the allow-list.
func (c ClassificationCriterion) Allows(classification string) bool {
	switch classification {
	case ClassificationFrequent:
		return c.Frequent
	case ClassificationInfrequent:
		return c.Infrequent
	case ClassificationToRescue:
		return c.ToRescue
	}
	return false
}

// Validate rejects negative thresholds and an enabled allow-list that admits
// nobody.
func (c Criteria) Validate() error {
	var errs []error
	if c.Attendance.Minimum < 0 {
		errs = append(errs, fmt.Errorf("attendance.minimum must be >= 0, got %d", c.Attendance.Minimum))
	}
	if c.ChurchTime.MinimumMonths < 0 {
		errs = append(errs, fmt.Errorf("churchTime.minimumMonths must be >= 0, got %d", c.ChurchTime.MinimumMonths))
	}
	if c.Baptism.MinimumYears < 0 {
		errs = append(errs, fmt.Errorf("baptism.minimumYears must be >= 0, got %d", c.Baptism.MinimumYears))
	}
	if c.PositionLimit.Enabled && c.PositionLimit.MaxPositions < 1 {
		errs = append(errs, fmt.Errorf("positionLimit.maxPositions must be >= 1, got %d", c.PositionLimit.MaxPositions))
	}
	if c.EldersCount.Enabled && c.EldersCount.Count < 1 {
		errs = append(errs, fmt.Errorf("eldersCount.count must be >= 1, got %d", c.EldersCount.Count))
	}
	cl := c.Classification
	if cl.Enabled && !cl.Frequent && !cl.Infrequent && !cl.ToRescue {
		errs = append(errs, errors.New("classification is enabled but allows no category"))
	}
	return errors.Join(errs...)
}
