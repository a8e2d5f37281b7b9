package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fieldops/console-api/internal/core/ports"
)

const auditCollection = "provisioning_events"

// AuditRepository persists provisioning outcome events. The orphaned flag
// gives the out-of-band reconciliation job its work queue.
type AuditRepository struct {
	db *mongo.Database
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) InsertEvent(ctx context.Context, event *ports.ProvisioningEvent) error {
	doc := bson.M{
		"attempt_key": event.AttemptKey,
		"identity_id": event.IdentityID,
		"email":       event.Email,
		"kind":        event.Kind,
		"outcome":     event.Outcome,
		"orphaned":    event.Orphaned,
		"created_by":  event.CreatedBy,
		"timestamp":   event.Timestamp.UTC(),
		"recorded_at": time.Now().UTC(),
	}
	if event.Step != "" {
		doc["step"] = event.Step
	}
	if event.Reason != "" {
		doc["reason"] = event.Reason
	}

	if _, err := r.db.Collection(auditCollection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert provisioning event: %w", err)
	}
	return nil
}
