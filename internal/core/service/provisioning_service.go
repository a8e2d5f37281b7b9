package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldops/console-api/internal/api/metrics"
	"github.com/fieldops/console-api/internal/core/domain"
	"github.com/fieldops/console-api/internal/core/ports"
)

// AttemptGuard abstracts the idempotency store (Redis). It remembers which
// identity id an attempt key already produced, so a retried attempt never
// issues a second credential.
type AttemptGuard interface {
	IssuedIdentity(ctx context.Context, attemptKey string) (string, bool, error)
	MarkIssued(ctx context.Context, attemptKey, identityID string) error
}

type provisioningService struct {
	issuer      ports.IdentityIssuer
	profiles    ports.ProfileRepository
	records     ports.RoleRecordRepository
	roles       ports.RoleRepository
	compensator *Compensator
	guard       AttemptGuard
	audit       ports.AuditSink
	log         zerolog.Logger
}

// NewProvisioningService returns a ProvisioningService implementation.
func NewProvisioningService(
	issuer ports.IdentityIssuer,
	profiles ports.ProfileRepository,
	records ports.RoleRecordRepository,
	roles ports.RoleRepository,
	compensator *Compensator,
	guard AttemptGuard,
	audit ports.AuditSink,
	log zerolog.Logger,
) ports.ProvisioningService {
	return &provisioningService{
		issuer:      issuer,
		profiles:    profiles,
		records:     records,
		roles:       roles,
		compensator: compensator,
		guard:       guard,
		audit:       audit,
		log:         log,
	}
}

// ProvisionAccount runs the create flow: issue credential, write profile,
// write role record where the kind requires one. Any failure after the
// identity exists triggers compensation of the rows this attempt wrote;
// the identity itself stays behind (the platform does not let this caller
// delete identities) and is flagged as orphaned.
func (s *provisioningService) ProvisionAccount(ctx context.Context, input ports.ProvisionAccountInput) (*ports.AccountResult, error) {
	start := time.Now()

	if err := validateDraft(input); err != nil {
		return nil, err
	}

	roleID, err := s.resolveRole(ctx, input.RoleID)
	if err != nil {
		return nil, err
	}

	// 1. Issue the credential — at most once per attempt key.
	identityID, reused, err := s.issueOnce(ctx, input)
	if err != nil {
		s.finish(input, "", start, err, false)
		return nil, err
	}

	now := time.Now().UTC()

	// 2. Materialize the profile, keyed by the new identity id.
	profile := &domain.Profile{
		ID:          identityID,
		Email:       input.Email,
		DisplayName: input.DisplayName,
		RoleID:      roleID,
		Active:      input.Active,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.profiles.Insert(ctx, profile); err != nil {
		// A replayed attempt whose first run fully landed collides with its
		// own profile row. That identity is healthy, not orphaned: return
		// the existing account instead of failing.
		if reused && errors.Is(err, domain.ErrDuplicateUnique) {
			return s.existingAccount(ctx, input, identityID, start)
		}
		// Nothing of ours landed; only the identity is left behind.
		perr := domain.NewProvisioningError(domain.StepWriteProfile, "profile", err)
		s.finish(input, identityID, start, perr, true)
		return nil, perr
	}

	// 3. Write the role record for kinds that carry one.
	var record *domain.RoleRecord
	if input.Kind.RequiresRoleRecord() {
		record = &domain.RoleRecord{
			Kind:         input.Kind,
			BusinessCode: input.Record.BusinessCode,
			DisplayName:  input.Record.DisplayName,
			Phone:        input.Record.Phone,
			Address:      input.Record.Address,
			Active:       input.Active,
			IdentityID:   &identityID,
			CreatedBy:    input.CreatedBy,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.records.Insert(ctx, record); err != nil {
			perr := domain.NewProvisioningError(domain.StepWriteRoleRecord, "role_record", err)
			s.compensator.Rollback(ctx, identityID, Written{Profile: true})
			s.finish(input, identityID, start, perr, true)
			return nil, perr
		}
	}

	s.log.Info().
		Str("identity_id", identityID).
		Str("kind", string(input.Kind)).
		Str("created_by", input.CreatedBy).
		Bool("identity_reused", reused).
		Msg("account provisioned")

	s.finish(input, identityID, start, nil, false)

	return &ports.AccountResult{Profile: profile, Record: record, IdentityReused: reused}, nil
}

// UpdateAccount runs the edit flow. No identity involvement and no
// compensation: a failed profile update changes nothing, and a role-record
// failure after a landed profile update is left as-is (last write wins).
func (s *provisioningService) UpdateAccount(ctx context.Context, input ports.UpdateAccountInput) (*ports.AccountResult, error) {
	if input.ID == "" {
		return nil, fmt.Errorf("update account: %w", domain.ErrAccountNotFound)
	}

	profile, err := s.profiles.Update(ctx, input.ID, ports.ProfilePatch{
		DisplayName: input.DisplayName,
		Active:      input.Active,
		RoleID:      input.RoleID,
	})
	if err != nil {
		return nil, domain.NewProvisioningError(domain.StepUpdateProfile, "profile", err)
	}

	var record *domain.RoleRecord
	if input.Record != nil {
		record, err = s.records.UpdateByIdentity(ctx, input.ID, *input.Record)
		if err != nil {
			return nil, domain.NewProvisioningError(domain.StepUpdateRoleRecord, "role_record", err)
		}
	}

	s.log.Info().Str("identity_id", input.ID).Msg("account updated")
	return &ports.AccountResult{Profile: profile, Record: record}, nil
}

// existingAccount resolves a replayed attempt whose rows already landed.
// The profile must exist (its insert just collided on _id); a missing role
// record means the first run was compensated down to the profile, which a
// later edit can repair.
func (s *provisioningService) existingAccount(ctx context.Context, input ports.ProvisionAccountInput, identityID string, start time.Time) (*ports.AccountResult, error) {
	profile, err := s.profiles.FindByID(ctx, identityID)
	if err != nil {
		perr := domain.NewProvisioningError(domain.StepWriteProfile, "profile", err)
		s.finish(input, identityID, start, perr, false)
		return nil, perr
	}

	var record *domain.RoleRecord
	if input.Kind.RequiresRoleRecord() {
		record, err = s.records.FindByIdentity(ctx, identityID)
		if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
			perr := domain.NewProvisioningError(domain.StepWriteRoleRecord, "role_record", err)
			s.finish(input, identityID, start, perr, false)
			return nil, perr
		}
	}

	s.log.Info().
		Str("identity_id", identityID).
		Str("attempt_key", input.AttemptKey).
		Msg("attempt replay, account already provisioned")

	s.finish(input, identityID, start, nil, false)
	return &ports.AccountResult{Profile: profile, Record: record, IdentityReused: true}, nil
}

// issueOnce consults the attempt guard before calling the issuer, and
// records the issued id afterwards. Guard failures are logged and
// non-fatal: the platform's own email uniqueness check is the final
// arbiter for uncoordinated retries.
func (s *provisioningService) issueOnce(ctx context.Context, input ports.ProvisionAccountInput) (string, bool, error) {
	if input.AttemptKey != "" {
		id, ok, err := s.guard.IssuedIdentity(ctx, input.AttemptKey)
		if err != nil {
			s.log.Warn().Err(err).Str("attempt_key", input.AttemptKey).Msg("attempt guard check failed, issuing anyway")
		} else if ok {
			s.log.Info().Str("attempt_key", input.AttemptKey).Str("identity_id", id).Msg("attempt replay, reusing identity")
			return id, true, nil
		}
	}

	id, err := s.issuer.IssueCredential(ctx, input.Email, input.Credential)
	if err != nil {
		return "", false, domain.NewProvisioningError(domain.StepIssueCredential, "identity", err)
	}

	if input.AttemptKey != "" {
		if err := s.guard.MarkIssued(ctx, input.AttemptKey, id); err != nil {
			s.log.Warn().Err(err).Str("attempt_key", input.AttemptKey).Msg("failed to record issued identity")
		}
	}
	return id, false, nil
}

// resolveRole returns the explicit role id, or the default role from
// reference data when the draft omits one.
func (s *provisioningService) resolveRole(ctx context.Context, roleID string) (string, error) {
	if roleID != "" {
		return roleID, nil
	}
	role, err := s.roles.FindByName(ctx, domain.DefaultRoleName)
	if err != nil {
		return "", fmt.Errorf("resolve default role: %w", err)
	}
	return role.ID, nil
}

// finish records metrics and the audit event for one terminal outcome.
func (s *provisioningService) finish(input ports.ProvisionAccountInput, identityID string, start time.Time, failure error, orphaned bool) {
	outcome := "done"
	step, reason := "", ""
	if failure != nil {
		outcome = "fail"
		step, reason = classifyFailure(failure)
		metrics.ProvisioningStepErrorsTotal.WithLabelValues(step, reason).Inc()
	}
	if orphaned {
		metrics.OrphanedIdentitiesTotal.Inc()
	}
	metrics.ProvisioningAttemptsTotal.WithLabelValues(string(input.Kind), outcome).Inc()
	metrics.ProvisioningDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	s.audit.Enqueue(ports.ProvisioningEvent{
		AttemptKey: input.AttemptKey,
		IdentityID: identityID,
		Email:      input.Email,
		Kind:       string(input.Kind),
		Outcome:    outcome,
		Step:       step,
		Reason:     reason,
		Orphaned:   orphaned,
		CreatedBy:  input.CreatedBy,
		Timestamp:  time.Now().UTC(),
	})
}

// validateDraft fast-fails drafts the flow cannot start from.
func validateDraft(input ports.ProvisionAccountInput) error {
	if !input.Kind.Valid() {
		return fmt.Errorf("unknown account kind %q: %w", input.Kind, domain.ErrRejected)
	}
	if input.Email == "" || input.Credential == "" {
		return domain.ErrCredentialPolicy
	}
	if input.Kind.RequiresRoleRecord() && input.Record == nil {
		return fmt.Errorf("%s account needs role record fields: %w", input.Kind, domain.ErrRejected)
	}
	return nil
}

// classifyFailure maps a flow error to metric label values.
func classifyFailure(err error) (step, reason string) {
	step = "unknown"
	var perr *domain.ProvisioningError
	if errors.As(err, &perr) {
		step = string(perr.Step)
	}

	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		reason = "already_exists"
	case errors.Is(err, domain.ErrCredentialPolicy):
		reason = "invalid_credential"
	case errors.Is(err, domain.ErrDuplicateUnique):
		reason = "duplicate_unique"
	case errors.Is(err, domain.ErrRejected):
		reason = "rejected"
	case errors.Is(err, domain.ErrNoIdentity):
		reason = "no_identity_returned"
	case errors.Is(err, domain.ErrTransport):
		reason = "transport"
	default:
		reason = "unknown"
	}
	return step, reason
}
