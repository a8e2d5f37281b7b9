package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fieldops/console-api/internal/core/domain"
	"github.com/fieldops/console-api/internal/core/ports"
)

const profileCollection = "profiles"

// ProfileRepository implements ports.ProfileRepository using MongoDB.
// The document _id is the identity id issued by the platform.
type ProfileRepository struct {
	coll *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{coll: db.Collection(profileCollection)}
}

type profileDoc struct {
	ID          string    `bson:"_id"`
	Email       string    `bson:"email"`
	DisplayName string    `bson:"display_name"`
	RoleID      string    `bson:"role_id"`
	Active      bool      `bson:"active"`
	CreatedBy   string    `bson:"created_by"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (r *ProfileRepository) Insert(ctx context.Context, p *domain.Profile) error {
	doc := profileDoc{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		RoleID:      p.RoleID,
		Active:      p.Active,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return mapWriteError("insert profile", err)
	}
	return nil
}

// Update patches the mutable fields only. Email and _id are never written.
func (r *ProfileRepository) Update(ctx context.Context, id string, patch ports.ProfilePatch) (*domain.Profile, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.DisplayName != nil {
		set["display_name"] = *patch.DisplayName
	}
	if patch.Active != nil {
		set["active"] = *patch.Active
	}
	if patch.RoleID != nil {
		set["role_id"] = *patch.RoleID
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return nil, mapWriteError("update profile", err)
	}
	if res.MatchedCount == 0 {
		return nil, domain.ErrAccountNotFound
	}

	return r.FindByID(ctx, id)
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	var doc profileDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}

	return &domain.Profile{
		ID:          doc.ID,
		Email:       doc.Email,
		DisplayName: doc.DisplayName,
		RoleID:      doc.RoleID,
		Active:      doc.Active,
		CreatedBy:   doc.CreatedBy,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}

func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

// mapWriteError folds Mongo write failures onto the domain taxonomy.
func mapWriteError(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", op, domain.ErrDuplicateUnique)
	}
	var we mongo.WriteException
	var ce mongo.CommandError
	if errors.As(err, &we) || errors.As(err, &ce) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrRejected, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrTransport, err)
}
