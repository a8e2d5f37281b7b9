package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fieldops/console-api/internal/core/domain"
)

func TestCompensator_DeletesOnlyWhatLanded(t *testing.T) {
	profiles := newStubProfileRepo()
	records := newStubRecordRepo()
	id := "id_7"
	profiles.byID[id] = &domain.Profile{ID: id}

	c := NewCompensator(profiles, records, discardLogger)
	c.Rollback(context.Background(), id, Written{Profile: true})

	if len(profiles.deletes) != 1 || profiles.deletes[0] != id {
		t.Errorf("profile deletes = %v, want [%s]", profiles.deletes, id)
	}
	if len(records.deletes) != 0 {
		t.Errorf("record deletes = %v, want none", records.deletes)
	}
}

func TestCompensator_RecordBeforeProfile(t *testing.T) {
	profiles := newStubProfileRepo()
	records := newStubRecordRepo()
	id := "id_8"
	profiles.byID[id] = &domain.Profile{ID: id}
	records.byIdentity[id] = &domain.RoleRecord{IdentityID: &id}

	c := NewCompensator(profiles, records, discardLogger)
	c.Rollback(context.Background(), id, Written{Profile: true, RoleRecord: true})

	if len(records.deletes) != 1 || len(profiles.deletes) != 1 {
		t.Fatalf("expected both rows deleted, got records=%v profiles=%v", records.deletes, profiles.deletes)
	}
	if len(profiles.byID) != 0 || len(records.byIdentity) != 0 {
		t.Error("rows must be gone after rollback")
	}
}

type failingProfileRepo struct {
	*stubProfileRepo
}

func (r *failingProfileRepo) Delete(context.Context, string) error {
	return errors.New("store unavailable")
}

func TestCompensator_DeleteFailureIsSwallowed(t *testing.T) {
	profiles := &failingProfileRepo{newStubProfileRepo()}
	records := newStubRecordRepo()

	// Rollback has no return value by design: the triggering error is
	// what the caller reports, a compensation failure is only logged.
	c := NewCompensator(profiles, records, discardLogger)
	c.Rollback(context.Background(), "id_9", Written{Profile: true})
}
