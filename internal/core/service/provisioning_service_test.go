package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fieldops/console-api/internal/core/domain"
	"github.com/fieldops/console-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stub collaborators
// ---------------------------------------------------------------------------

type stubIssuer struct {
	calls   int
	nextID  string
	nextErr error
}

func (s *stubIssuer) IssueCredential(_ context.Context, email, credential string) (string, error) {
	s.calls++
	if s.nextErr != nil {
		return "", s.nextErr
	}
	return s.nextID, nil
}

type stubProfileRepo struct {
	byID      map[string]*domain.Profile
	insertErr error
	updateErr error
	deletes   []string
}

func newStubProfileRepo() *stubProfileRepo {
	return &stubProfileRepo{byID: make(map[string]*domain.Profile)}
}

func (r *stubProfileRepo) Insert(_ context.Context, p *domain.Profile) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	if _, exists := r.byID[p.ID]; exists {
		return fmt.Errorf("insert profile: %w", domain.ErrDuplicateUnique)
	}
	clone := *p
	r.byID[p.ID] = &clone
	return nil
}

func (r *stubProfileRepo) Update(_ context.Context, id string, patch ports.ProfilePatch) (*domain.Profile, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if patch.DisplayName != nil {
		p.DisplayName = *patch.DisplayName
	}
	if patch.Active != nil {
		p.Active = *patch.Active
	}
	if patch.RoleID != nil {
		p.RoleID = *patch.RoleID
	}
	clone := *p
	return &clone, nil
}

func (r *stubProfileRepo) FindByID(_ context.Context, id string) (*domain.Profile, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubProfileRepo) Delete(_ context.Context, id string) error {
	r.deletes = append(r.deletes, id)
	delete(r.byID, id)
	return nil
}

type stubRecordRepo struct {
	byIdentity map[string]*domain.RoleRecord
	insertErr  error
	updateErr  error
	deletes    []string
}

func newStubRecordRepo() *stubRecordRepo {
	return &stubRecordRepo{byIdentity: make(map[string]*domain.RoleRecord)}
}

func (r *stubRecordRepo) Insert(_ context.Context, rec *domain.RoleRecord) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	if _, exists := r.byIdentity[*rec.IdentityID]; exists {
		return fmt.Errorf("insert role record: %w", domain.ErrDuplicateUnique)
	}
	rec.ID = "rec_" + *rec.IdentityID
	clone := *rec
	r.byIdentity[*rec.IdentityID] = &clone
	return nil
}

func (r *stubRecordRepo) UpdateByIdentity(_ context.Context, identityID string, patch ports.RoleRecordPatch) (*domain.RoleRecord, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	rec, ok := r.byIdentity[identityID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if patch.BusinessCode != nil {
		rec.BusinessCode = *patch.BusinessCode
	}
	if patch.DisplayName != nil {
		rec.DisplayName = *patch.DisplayName
	}
	if patch.Phone != nil {
		rec.Phone = *patch.Phone
	}
	if patch.Address != nil {
		rec.Address = *patch.Address
	}
	if patch.Active != nil {
		rec.Active = *patch.Active
	}
	clone := *rec
	return &clone, nil
}

func (r *stubRecordRepo) FindByIdentity(_ context.Context, identityID string) (*domain.RoleRecord, error) {
	rec, ok := r.byIdentity[identityID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	clone := *rec
	return &clone, nil
}

func (r *stubRecordRepo) DeleteByIdentity(_ context.Context, identityID string) error {
	r.deletes = append(r.deletes, identityID)
	delete(r.byIdentity, identityID)
	return nil
}

type stubRoleRepo struct {
	byName map[string]*domain.Role
}

func (r *stubRoleRepo) FindByName(_ context.Context, name string) (*domain.Role, error) {
	role, ok := r.byName[name]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	return role, nil
}

func (r *stubRoleRepo) List(_ context.Context) ([]*domain.Role, error) {
	var roles []*domain.Role
	for _, role := range r.byName {
		roles = append(roles, role)
	}
	return roles, nil
}

type stubGuard struct {
	issued map[string]string
	err    error
}

func newStubGuard() *stubGuard {
	return &stubGuard{issued: make(map[string]string)}
}

func (g *stubGuard) IssuedIdentity(_ context.Context, key string) (string, bool, error) {
	if g.err != nil {
		return "", false, g.err
	}
	id, ok := g.issued[key]
	return id, ok, nil
}

func (g *stubGuard) MarkIssued(_ context.Context, key, identityID string) error {
	if g.err != nil {
		return g.err
	}
	g.issued[key] = identityID
	return nil
}

type stubAudit struct {
	events []ports.ProvisioningEvent
}

func (a *stubAudit) Enqueue(event ports.ProvisioningEvent) {
	a.events = append(a.events, event)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

type fixture struct {
	issuer   *stubIssuer
	profiles *stubProfileRepo
	records  *stubRecordRepo
	roles    *stubRoleRepo
	guard    *stubGuard
	audit    *stubAudit
	svc      ports.ProvisioningService
}

func newFixture() *fixture {
	f := &fixture{
		issuer:   &stubIssuer{nextID: "id_1"},
		profiles: newStubProfileRepo(),
		records:  newStubRecordRepo(),
		roles: &stubRoleRepo{byName: map[string]*domain.Role{
			"Seller": {ID: "role_seller", Name: "Seller"},
		}},
		guard: newStubGuard(),
		audit: &stubAudit{},
	}
	compensator := NewCompensator(f.profiles, f.records, discardLogger)
	f.svc = NewProvisioningService(
		f.issuer, f.profiles, f.records, f.roles, compensator, f.guard, f.audit, discardLogger,
	)
	return f
}

func sellerDraft() ports.ProvisionAccountInput {
	return ports.ProvisionAccountInput{
		Email:       "a@x.com",
		Credential:  "s3cret-pass",
		DisplayName: "Ana",
		Kind:        domain.KindSeller,
		Active:      true,
		CreatedBy:   "op_9",
		Record: &ports.RoleRecordInput{
			BusinessCode: "S-001",
			DisplayName:  "Ana's route",
			Phone:        "+34600000000",
		},
	}
}

// ---------------------------------------------------------------------------
// Create flow
// ---------------------------------------------------------------------------

func TestProvisionAccount_Seller_Success(t *testing.T) {
	f := newFixture()

	result, err := f.svc.ProvisionAccount(context.Background(), sellerDraft())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Profile.ID != "id_1" {
		t.Errorf("profile id = %q, want identity id", result.Profile.ID)
	}
	if result.Record == nil {
		t.Fatal("seller account must carry a role record")
	}
	if result.Record.IdentityID == nil || *result.Record.IdentityID != "id_1" {
		t.Errorf("record identity reference = %v, want id_1", result.Record.IdentityID)
	}
	if result.Profile.CreatedBy != "op_9" {
		t.Errorf("created_by = %q, want op_9", result.Profile.CreatedBy)
	}
	if _, ok := f.profiles.byID["id_1"]; !ok {
		t.Error("profile not persisted")
	}
	if _, ok := f.records.byIdentity["id_1"]; !ok {
		t.Error("role record not persisted")
	}
}

func TestProvisionAccount_User_NoRoleRecord(t *testing.T) {
	f := newFixture()
	input := sellerDraft()
	input.Kind = domain.KindUser
	input.Record = nil

	result, err := f.svc.ProvisionAccount(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Record != nil {
		t.Error("user account must not carry a role record")
	}
	if len(f.records.byIdentity) != 0 {
		t.Error("role record persisted for a user kind")
	}
}

func TestProvisionAccount_EmailTaken_NothingWritten(t *testing.T) {
	f := newFixture()
	f.issuer.nextErr = fmt.Errorf("issue credential: %w", domain.ErrEmailTaken)

	_, err := f.svc.ProvisionAccount(context.Background(), sellerDraft())
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	// Error mapping: never a raw transport error for a duplicate email.
	if errors.Is(err, domain.ErrTransport) {
		t.Error("duplicate email must not map to transport failure")
	}
	if len(f.profiles.byID) != 0 || len(f.records.byIdentity) != 0 {
		t.Error("no rows may be written when issuance fails")
	}
}

func TestProvisionAccount_ProfileInsertFails_IdentityOrphaned(t *testing.T) {
	f := newFixture()
	f.profiles.insertErr = fmt.Errorf("insert profile: %w", domain.ErrRejected)

	_, err := f.svc.ProvisionAccount(context.Background(), sellerDraft())
	if !errors.Is(err, domain.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}

	// The profile never landed, so compensation has nothing to delete.
	if len(f.profiles.deletes) != 0 || len(f.records.deletes) != 0 {
		t.Error("compensator must not delete rows that were never written")
	}

	// The orphan is flagged in the audit trail.
	last := f.audit.events[len(f.audit.events)-1]
	if !last.Orphaned {
		t.Error("audit event must flag the orphaned identity")
	}
	if last.IdentityID != "id_1" {
		t.Errorf("audit identity id = %q, want id_1", last.IdentityID)
	}
}

func TestProvisionAccount_RecordInsertFails_ProfileCompensated(t *testing.T) {
	f := newFixture()
	f.records.insertErr = fmt.Errorf("insert role record: %w", domain.ErrDuplicateUnique)

	_, err := f.svc.ProvisionAccount(context.Background(), sellerDraft())
	if !errors.Is(err, domain.ErrDuplicateUnique) {
		t.Fatalf("expected ErrDuplicateUnique, got %v", err)
	}

	var perr *domain.ProvisioningError
	if !errors.As(err, &perr) || perr.Step != domain.StepWriteRoleRecord {
		t.Errorf("error must carry the failing step, got %v", err)
	}

	// Atomic visibility: the just-written profile is gone afterwards.
	if len(f.profiles.deletes) != 1 || f.profiles.deletes[0] != "id_1" {
		t.Errorf("compensator deletes = %v, want [id_1]", f.profiles.deletes)
	}
	if len(f.profiles.byID) != 0 {
		t.Error("no profile may remain after a failed attempt")
	}
}

func TestProvisionAccount_DefaultRoleResolved(t *testing.T) {
	f := newFixture()
	input := sellerDraft()
	input.RoleID = ""

	result, err := f.svc.ProvisionAccount(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Profile.RoleID != "role_seller" {
		t.Errorf("role id = %q, want the Seller reference role", result.Profile.RoleID)
	}
}

func TestProvisionAccount_ExplicitRoleKept(t *testing.T) {
	f := newFixture()
	input := sellerDraft()
	input.RoleID = "role_custom"

	result, err := f.svc.ProvisionAccount(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Profile.RoleID != "role_custom" {
		t.Errorf("role id = %q, want role_custom", result.Profile.RoleID)
	}
}

func TestProvisionAccount_AttemptReplay_ReusesIdentity(t *testing.T) {
	f := newFixture()
	f.guard.issued["attempt-1"] = "id_prev"

	input := sellerDraft()
	input.AttemptKey = "attempt-1"

	result, err := f.svc.ProvisionAccount(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.issuer.calls != 0 {
		t.Errorf("issuer called %d times on replay, want 0", f.issuer.calls)
	}
	if !result.IdentityReused {
		t.Error("replay must report the reused identity")
	}
	if result.Profile.ID != "id_prev" {
		t.Errorf("profile id = %q, want the previously issued identity", result.Profile.ID)
	}
}

func TestProvisionAccount_ReplayAfterSuccess_ReturnsExistingAccount(t *testing.T) {
	f := newFixture()

	input := sellerDraft()
	input.AttemptKey = "attempt-1"

	first, err := f.svc.ProvisionAccount(context.Background(), input)
	if err != nil {
		t.Fatalf("first attempt: %v", err)
	}

	second, err := f.svc.ProvisionAccount(context.Background(), input)
	if err != nil {
		t.Fatalf("replay of a fully landed attempt must succeed: %v", err)
	}

	if f.issuer.calls != 1 {
		t.Errorf("issuer calls = %d, want 1 across both attempts", f.issuer.calls)
	}
	if !second.IdentityReused {
		t.Error("replay must report the reused identity")
	}
	if second.Profile.ID != first.Profile.ID {
		t.Errorf("replay profile id = %q, want %q", second.Profile.ID, first.Profile.ID)
	}
	if second.Record == nil || second.Record.BusinessCode != first.Record.BusinessCode {
		t.Errorf("replay must return the existing role record, got %+v", second.Record)
	}

	// The identity has a matching profile: it is not an orphan and must not
	// reach the reconciliation queue.
	last := f.audit.events[len(f.audit.events)-1]
	if last.Outcome != "done" {
		t.Errorf("replay audit outcome = %q, want done", last.Outcome)
	}
	if last.Orphaned {
		t.Error("a fully provisioned identity must never be flagged orphaned on replay")
	}
	if len(f.profiles.deletes) != 0 || len(f.records.deletes) != 0 {
		t.Error("replay must not compensate existing rows")
	}
}

func TestProvisionAccount_GuardFailure_NonFatal(t *testing.T) {
	f := newFixture()
	f.guard.err = errors.New("redis unavailable")

	input := sellerDraft()
	input.AttemptKey = "attempt-2"

	_, err := f.svc.ProvisionAccount(context.Background(), input)
	if err != nil {
		t.Fatalf("guard failure must not fail the attempt: %v", err)
	}
	if f.issuer.calls != 1 {
		t.Errorf("issuer calls = %d, want 1", f.issuer.calls)
	}
}

func TestProvisionAccount_NoIdentityReturned_Fatal(t *testing.T) {
	f := newFixture()
	f.issuer.nextErr = fmt.Errorf("issue credential: %w", domain.ErrNoIdentity)

	_, err := f.svc.ProvisionAccount(context.Background(), sellerDraft())
	if !errors.Is(err, domain.ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
	if f.issuer.calls != 1 {
		t.Errorf("no automatic retry allowed, issuer calls = %d", f.issuer.calls)
	}
}

func TestProvisionAccount_SellerWithoutRecordFields_Rejected(t *testing.T) {
	f := newFixture()
	input := sellerDraft()
	input.Record = nil

	_, err := f.svc.ProvisionAccount(context.Background(), input)
	if !errors.Is(err, domain.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if f.issuer.calls != 0 {
		t.Error("no credential may be issued for an invalid draft")
	}
}

func TestProvisionAccount_UnknownKind_Rejected(t *testing.T) {
	f := newFixture()
	input := sellerDraft()
	input.Kind = domain.RoleKind("supervisor")

	_, err := f.svc.ProvisionAccount(context.Background(), input)
	if !errors.Is(err, domain.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Edit flow
// ---------------------------------------------------------------------------

func seedAccount(t *testing.T, f *fixture) {
	t.Helper()
	if _, err := f.svc.ProvisionAccount(context.Background(), sellerDraft()); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }

func TestUpdateAccount_ProfileOnly(t *testing.T) {
	f := newFixture()
	seedAccount(t, f)
	issuerCallsBefore := f.issuer.calls

	result, err := f.svc.UpdateAccount(context.Background(), ports.UpdateAccountInput{
		ID:          "id_1",
		DisplayName: strptr("Ana Maria"),
		Active:      boolptr(false),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Profile.DisplayName != "Ana Maria" || result.Profile.Active {
		t.Errorf("profile not patched: %+v", result.Profile)
	}
	// Email and id are immutable; no identity operation happens on edit.
	if result.Profile.Email != "a@x.com" || result.Profile.ID != "id_1" {
		t.Errorf("immutable fields changed: %+v", result.Profile)
	}
	if f.issuer.calls != issuerCallsBefore {
		t.Error("edit flow must never touch the identity platform")
	}
	// Role record untouched.
	if f.records.byIdentity["id_1"].BusinessCode != "S-001" {
		t.Error("role record must stay untouched on a profile-only edit")
	}
}

func TestUpdateAccount_Idempotent(t *testing.T) {
	f := newFixture()
	seedAccount(t, f)

	patch := ports.UpdateAccountInput{
		ID:          "id_1",
		DisplayName: strptr("Renamed"),
		Record:      &ports.RoleRecordPatch{Phone: strptr("+34611111111")},
	}

	first, err := f.svc.UpdateAccount(context.Background(), patch)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	second, err := f.svc.UpdateAccount(context.Background(), patch)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}

	if first.Profile.DisplayName != second.Profile.DisplayName {
		t.Error("repeated patch must converge to the same profile state")
	}
	if first.Record.Phone != second.Record.Phone {
		t.Error("repeated patch must converge to the same record state")
	}
}

func TestUpdateAccount_RecordFails_ProfileKept(t *testing.T) {
	f := newFixture()
	seedAccount(t, f)
	f.records.updateErr = fmt.Errorf("update role record: %w", domain.ErrDuplicateUnique)

	_, err := f.svc.UpdateAccount(context.Background(), ports.UpdateAccountInput{
		ID:          "id_1",
		DisplayName: strptr("Landed"),
		Record:      &ports.RoleRecordPatch{BusinessCode: strptr("S-002")},
	})
	if !errors.Is(err, domain.ErrDuplicateUnique) {
		t.Fatalf("expected ErrDuplicateUnique, got %v", err)
	}

	// Last write wins: the profile update is not reverted.
	if f.profiles.byID["id_1"].DisplayName != "Landed" {
		t.Error("profile update must not be rolled back on a record edit failure")
	}
	if len(f.profiles.deletes) != 0 {
		t.Error("edit flow never compensates")
	}
}

func TestUpdateAccount_MissingID(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdateAccount(context.Background(), ports.UpdateAccountInput{})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Audit trail
// ---------------------------------------------------------------------------

func TestProvisionAccount_AuditOutcomes(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.ProvisionAccount(context.Background(), sellerDraft()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.audit.events) != 1 || f.audit.events[0].Outcome != "done" {
		t.Fatalf("expected one done event, got %+v", f.audit.events)
	}

	f.issuer.nextErr = fmt.Errorf("issue credential: %w", domain.ErrEmailTaken)
	_, _ = f.svc.ProvisionAccount(context.Background(), sellerDraft())

	last := f.audit.events[len(f.audit.events)-1]
	if last.Outcome != "fail" || last.Reason != "already_exists" {
		t.Errorf("fail event = %+v, want fail/already_exists", last)
	}
	if last.Orphaned {
		t.Error("a failed issuance leaves no orphan")
	}
}
