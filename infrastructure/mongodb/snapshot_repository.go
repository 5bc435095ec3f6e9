package mongodb

import (
	"context"
	"strconv"

	"swingref/application/port"
	refagg "swingref/domain/aggregate/reference"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const snapshotCollectionName = "ref_state_snapshots"

type snapshotDocument struct {
	ID        string          `bson:"_id"`
	SessionID string          `bson:"session_id"`
	BarIndex  int64           `bson:"bar_index"`
	Snapshot  refagg.Snapshot `bson:"snapshot"`
}

// SnapshotRepository implements port.SnapshotRepository over a MongoDB
// collection, one document per session/bar pair, mirroring the teacher's
// upsert-by-composite-key approach in the stock metrics repository.
type SnapshotRepository struct {
	collection *mongo.Collection
}

// NewSnapshotRepository creates a new MongoDB-backed SnapshotRepository.
func NewSnapshotRepository(client *mongo.Client, databaseName string) *SnapshotRepository {
	collection := client.Database(databaseName).Collection(snapshotCollectionName)
	return &SnapshotRepository{collection: collection}
}

func docID(sessionID string, barIndex int64) string {
	return sessionID + ":" + strconv.FormatInt(barIndex, 10)
}

// Save upserts the snapshot for sessionID at its bar index.
func (r *SnapshotRepository) Save(ctx context.Context, sessionID string, snap refagg.Snapshot) error {
	doc := snapshotDocument{
		ID:        docID(sessionID, snap.BarIndex),
		SessionID: sessionID,
		BarIndex:  snap.BarIndex,
		Snapshot:  snap,
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

// Get retrieves the snapshot for sessionID at barIndex.
func (r *SnapshotRepository) Get(ctx context.Context, sessionID string, barIndex int64) (refagg.Snapshot, error) {
	var doc snapshotDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": docID(sessionID, barIndex)}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return refagg.Snapshot{}, port.ErrSnapshotNotFound
		}
		return refagg.Snapshot{}, err
	}
	return doc.Snapshot, nil
}
