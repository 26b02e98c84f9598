// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// PositionList is the ordered list of positions of a config, stored as JSON.
type PositionList []string

func (p PositionList) Value() (driver.Value, error) { return jsonValue(p, "[]") }
func (p *PositionList) Scan(src any) error          { return scanJSON(src, p) }

// Name returns the position at index i, or "" when out of range.
func (p PositionList) Name(i int) string {
	if i < 0 || i >= len(p) {
		return ""
	}
	return p[i]
}

// PositionDescriptions maps a position name to its display text.
type PositionDescriptions map[string]string

func (d PositionDescriptions) Value() (driver.Value, error) { return jsonValue(d, "{}") }
func (d *PositionDescriptions) Scan(src any) error          { return scanJSON(src, d) }

// MemberIDs is a sorted, duplicate-free set of member ids stored as JSON.
type MemberIDs []int64

func (m MemberIDs) Value() (driver.Value, error) { return jsonValue(m, "[]") }
func (m *MemberIDs) Scan(src any) error          { return scanJSON(src, m) }

// Contains reports whether id is in the set.
func (m MemberIDs) Contains(id int64) bool {
	_, found := slices.BinarySearch(m, id)
	return found
}

// NewMemberIDs sorts and deduplicates ids.
func NewMemberIDs(ids []int64) MemberIDs {
	out := slices.Clone(ids)
	slices.Sort(out)
	return MemberIDs(slices.Compact(out))
}

// Leader is the announced winner of one position.
type Leader struct {
	CandidateID int64     `json:"candidateId"`
	Name        string    `json:"name"`
	Votes       int       `json:"votes"`
	Percentage  float64   `json:"percentage"`
	AnnouncedAt time.Time `json:"announcedAt"`
}

// Leaders caches the announced leader per position name. Advisory only: the
// position_result table is authoritative.
type Leaders map[string]Leader

func (l Leaders) Value() (driver.Value, error) { return jsonValue(l, "{}") }
func (l *Leaders) Scan(src any) error          { return scanJSON(src, l) }

func (c Criteria) Value() (driver.Value, error) { return jsonValue(c, "{}") }
func (c *Criteria) Scan(src any) error          { return scanJSON(src, c) }

func jsonValue(v any, empty string) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return empty, nil
	}
	return string(b), nil
}

func scanJSON(src any, dst any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dst)
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}
