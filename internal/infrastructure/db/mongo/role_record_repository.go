package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fieldops/console-api/internal/core/domain"
	"github.com/fieldops/console-api/internal/core/ports"
)

const roleRecordCollection = "role_records"

// RoleRecordRepository implements ports.RoleRecordRepository using MongoDB.
// business_code carries a unique index; collisions surface as
// domain.ErrDuplicateUnique.
type RoleRecordRepository struct {
	coll *mongo.Collection
}

func NewRoleRecordRepository(db *mongo.Database) *RoleRecordRepository {
	return &RoleRecordRepository{coll: db.Collection(roleRecordCollection)}
}

type roleRecordDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Kind         string             `bson:"kind"`
	BusinessCode string             `bson:"business_code"`
	DisplayName  string             `bson:"display_name"`
	Phone        string             `bson:"phone,omitempty"`
	Address      string             `bson:"address,omitempty"`
	Active       bool               `bson:"active"`
	IdentityID   *string            `bson:"identity_id,omitempty"`
	CreatedBy    string             `bson:"created_by"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func (r *RoleRecordRepository) Insert(ctx context.Context, rec *domain.RoleRecord) error {
	doc := roleRecordDoc{
		Kind:         string(rec.Kind),
		BusinessCode: rec.BusinessCode,
		DisplayName:  rec.DisplayName,
		Phone:        rec.Phone,
		Address:      rec.Address,
		Active:       rec.Active,
		IdentityID:   rec.IdentityID,
		CreatedBy:    rec.CreatedBy,
		CreatedAt:    rec.CreatedAt.UTC(),
		UpdatedAt:    rec.UpdatedAt.UTC(),
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return mapWriteError("insert role record", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		rec.ID = oid.Hex()
	}
	return nil
}

// UpdateByIdentity patches mutable fields of the record owned by the given
// identity. The identity reference and _id are never written.
func (r *RoleRecordRepository) UpdateByIdentity(ctx context.Context, identityID string, patch ports.RoleRecordPatch) (*domain.RoleRecord, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.BusinessCode != nil {
		set["business_code"] = *patch.BusinessCode
	}
	if patch.DisplayName != nil {
		set["display_name"] = *patch.DisplayName
	}
	if patch.Phone != nil {
		set["phone"] = *patch.Phone
	}
	if patch.Address != nil {
		set["address"] = *patch.Address
	}
	if patch.Active != nil {
		set["active"] = *patch.Active
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"identity_id": identityID}, bson.M{"$set": set})
	if err != nil {
		return nil, mapWriteError("update role record", err)
	}
	if res.MatchedCount == 0 {
		return nil, domain.ErrAccountNotFound
	}

	return r.FindByIdentity(ctx, identityID)
}

func (r *RoleRecordRepository) FindByIdentity(ctx context.Context, identityID string) (*domain.RoleRecord, error) {
	var doc roleRecordDoc
	if err := r.coll.FindOne(ctx, bson.M{"identity_id": identityID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find role record: %w", err)
	}

	return &domain.RoleRecord{
		ID:           doc.ID.Hex(),
		Kind:         domain.RoleKind(doc.Kind),
		BusinessCode: doc.BusinessCode,
		DisplayName:  doc.DisplayName,
		Phone:        doc.Phone,
		Address:      doc.Address,
		Active:       doc.Active,
		IdentityID:   doc.IdentityID,
		CreatedBy:    doc.CreatedBy,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

func (r *RoleRecordRepository) DeleteByIdentity(ctx context.Context, identityID string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"identity_id": identityID}); err != nil {
		return fmt.Errorf("delete role record: %w", err)
	}
	return nil
}
