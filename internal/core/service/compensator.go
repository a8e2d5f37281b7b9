package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fieldops/console-api/internal/api/metrics"
	"github.com/fieldops/console-api/internal/core/ports"
)

// Written marks which rows a provisioning attempt managed to persist
// before it failed.
type Written struct {
	Profile    bool
	RoleRecord bool
}

// Compensator deletes the relational rows a failed attempt wrote, so the
// store never retains half-built records. It cannot delete the identity
// itself: the platform grants no such privilege to this caller, which is
// why orphans exist at all.
type Compensator struct {
	profiles ports.ProfileRepository
	records  ports.RoleRecordRepository
	log      zerolog.Logger
}

// NewCompensator returns a Compensator over the given repositories.
func NewCompensator(profiles ports.ProfileRepository, records ports.RoleRecordRepository, log zerolog.Logger) *Compensator {
	return &Compensator{profiles: profiles, records: records, log: log}
}

// Rollback best-effort deletes the rows in written. Failures are logged
// and counted, never returned: the caller's original error is always the
// one the operator sees.
func (c *Compensator) Rollback(ctx context.Context, identityID string, written Written) {
	failed := false

	// Role record first: its identity reference points at the profile.
	if written.RoleRecord {
		if err := c.records.DeleteByIdentity(ctx, identityID); err != nil {
			c.log.Error().Err(err).Str("identity_id", identityID).Msg("compensation: role record delete failed")
			failed = true
		}
	}
	if written.Profile {
		if err := c.profiles.Delete(ctx, identityID); err != nil {
			c.log.Error().Err(err).Str("identity_id", identityID).Msg("compensation: profile delete failed")
			failed = true
		}
	}

	if failed {
		metrics.CompensationTotal.WithLabelValues("failed").Inc()
		return
	}
	metrics.CompensationTotal.WithLabelValues("ok").Inc()
	c.log.Info().Str("identity_id", identityID).Msg("compensation complete")
}
