// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"

	"github.com/danielhkuo/quickly-elect/models"
)

var LockElection = lockElection

func (s *Service) Record(ctx context.Context, cmd models.CastBallot, e models.Election, limit int) (models.Ballot, error) {
	return s.record(ctx, cmd, e, limit)
}
