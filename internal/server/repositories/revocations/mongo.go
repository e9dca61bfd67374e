package revocations

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// DefaultCollectionName is the MongoDB collection holding ledger entries.
const DefaultCollectionName = "revoked_tokens"

// MongoRepository implements Repository on a MongoDB collection. Writes use
// majority write concern and reads go to the primary, so a revocation is
// visible to the next IsRevoked from any caller.
type MongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	coll := db.Collection(DefaultCollectionName, options.Collection().
		SetWriteConcern(writeconcern.Majority()).
		SetReadPreference(readpref.Primary()))
	return &MongoRepository{coll: coll, now: time.Now}
}

// EnsureIndexes creates the unique token_hash index and a TTL index that
// lets the server drop entries once they expire.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return mongoError(err)
	}
	return nil
}

func (r *MongoRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"token_hash": HashToken(token)}, options.Count().SetLimit(1))
	if err != nil {
		return false, mongoError(err)
	}
	return n > 0, nil
}

func (r *MongoRepository) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	entry := models.RevokedToken{
		TokenHash: HashToken(token),
		ExpiresAt: expiresAt.UTC(),
		RevokedAt: r.now().UTC(),
	}

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"token_hash": entry.TokenHash},
		bson.M{"$setOnInsert": entry},
		options.UpdateOne().SetUpsert(true))
	// Two concurrent upserts of the same key may race on the unique index.
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return mongoError(err)
	}
	return nil
}

func (r *MongoRepository) Purge(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now.UTC()}})
	if err != nil {
		return 0, mongoError(err)
	}
	return res.DeletedCount, nil
}

func mongoError(err error) error {
	return fmt.Errorf("%w: mongo error: %w", common.ErrStoreUnavailable, err)
}
