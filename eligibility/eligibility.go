// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package eligibility decides which members may stand for a position. It is
// pure: all member data is passed in.
package eligibility

import (
	"strings"
	"time"

	"github.com/danielhkuo/quickly-elect/models"
)

// Youth positions accept members aged MinYouthAge..MaxYouthAge inclusive.
const (
	MinYouthAge = 10
	MaxYouthAge = 15
)

// Rejection reasons
const (
	ReasonYouthAge       = "age outside youth range"
	ReasonUnknownAge     = "age unknown"
	ReasonTithing        = "tithing recurrence not accepted"
	ReasonDonations      = "donation recurrence not accepted"
	ReasonAttendance     = "attendance below minimum"
	ReasonChurchTime     = "months in church below minimum"
	ReasonEngagement     = "lowest engagement tier"
	ReasonBaptism        = "years since baptism below minimum"
	ReasonClassification = "classification not allowed"
	ReasonPositionLimit  = "already holds the maximum number of positions"
)

var youthMarkers = []string{"teen", "adolescent", "juvenil"}

// Result is the verdict for one (member, position) pair together with the
// numbers it was computed from.
type Result struct {
	Eligible        bool   `json:"eligible"`
	Reason          string `json:"reason,omitempty"`
	Youth           bool   `json:"youth"`
	Age             int    `json:"age"`
	AgeKnown        bool   `json:"ageKnown"`
	MonthsInChurch  int    `json:"monthsInChurch"`
	BaptismYears    int    `json:"baptismYears"`
	AttendanceCount int    `json:"attendanceCount"`
}

// Evaluate checks member against criteria for position as of now. Rules run
// in order and stop at the first failure.
func Evaluate(m models.Member, c models.Criteria, position string, now time.Time) Result {
	res := Result{
		Youth:           IsYouthPosition(position),
		MonthsInChurch:  monthsSince(m.JoinedAt, now),
		BaptismYears:    yearsSince(m.BaptismDate, now),
		AttendanceCount: m.AttendanceCount,
	}
	res.Age, res.AgeKnown = Age(m, now)

	// Youth positions only look at age
	if res.Youth {
		switch {
		case !res.AgeKnown:
			return res.reject(ReasonUnknownAge)
		case res.Age < MinYouthAge || res.Age > MaxYouthAge:
			return res.reject(ReasonYouthAge)
		}
		res.Eligible = true
		return res
	}

	if c.Tithing.Enabled && !c.Tithing.Allows(m.TitheCategory) {
		return res.reject(ReasonTithing)
	}
	if c.Donations.Enabled && !c.Donations.Allows(m.DonorCategory) {
		return res.reject(ReasonDonations)
	}
	if c.Attendance.Enabled && res.AttendanceCount < c.Attendance.Minimum {
		return res.reject(ReasonAttendance)
	}
	if c.ChurchTime.Enabled && res.MonthsInChurch < c.ChurchTime.MinimumMonths {
		return res.reject(ReasonChurchTime)
	}
	if c.Engagement.Enabled && isLowestTier(m.Engagement) {
		return res.reject(ReasonEngagement)
	}
	if c.Baptism.Enabled && res.BaptismYears < c.Baptism.MinimumYears {
		return res.reject(ReasonBaptism)
	}
	if c.Classification.Enabled && !c.Classification.Allows(m.Classification) {
		return res.reject(ReasonClassification)
	}

	res.Eligible = true
	return res
}

func (r Result) reject(reason string) Result {
	r.Eligible = false
	r.Reason = reason
	return r
}

// WithinPositionLimit reports whether a member who already won held
// positions of the running election may stand for another one.
func WithinPositionLimit(c models.Criteria, held int) bool {
	return !c.PositionLimit.Enabled || held < c.PositionLimit.MaxPositions
}

// IsYouthPosition reports whether the position name marks a teen role.
func IsYouthPosition(name string) bool {
	name = strings.ToLower(name)
	for _, marker := range youthMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// Age computes the member's age in whole years, preferring the birth date
// over the declared age.
func Age(m models.Member, now time.Time) (int, bool) {
	if m.BirthDate != nil {
		return yearsSince(m.BirthDate, now), true
	}
	if m.DeclaredAge != nil {
		return *m.DeclaredAge, true
	}
	return 0, false
}

// An unset engagement counts as the lowest tier.
func isLowestTier(engagement string) bool {
	return engagement == "" || engagement == models.EngagementLow
}

func yearsSince(from *time.Time, now time.Time) int {
	return monthsSince(from, now) / 12
}

// monthsSince counts whole calendar months from from to now, 0 when from is
// unset or in the future.
func monthsSince(from *time.Time, now time.Time) int {
	if from == nil {
		return 0
	}
	f := from.UTC()
	n := now.UTC()
	months := (n.Year()-f.Year())*12 + int(n.Month()) - int(f.Month())
	if n.Day() < f.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
