package limbocheckpoint

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"LIMBO/limboserde"
)

// checkpointDocID is the single document this backend ever reads or
// writes — the checkpoint is one row, not a collection of rows.
const checkpointDocID = "checkpoint"

type checkpointDoc struct {
	ID              string           `bson:"_id"`
	Type            string           `bson:"type"`
	ReplicaID       string           `bson:"replica_id"`
	OriginID        string           `bson:"origin_id"`
	NewOwnerID      string           `bson:"new_owner_id"`
	LSN             int64            `bson:"lsn"`
	Term            uint64           `bson:"term"`
	ConfirmedVClock map[string]int64 `bson:"confirmed_vclock"`
}

// MongoBackend is the alternate Backend, grounded on storage/mongo.go's
// connect-ping-collection pattern. Unlike that file's per-key YCSB
// collection, this always targets the single checkpoint document.
type MongoBackend struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoBackend connects to uri and opens database/collection
// "limbo"/"checkpoint", pinging to fail fast on a bad connection
// string (storage/mongo.go's own init does the same Ping check).
func NewMongoBackend(ctx context.Context, uri string) (*MongoBackend, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("limbocheckpoint: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("limbocheckpoint: ping: %w", err)
	}
	return &MongoBackend{
		client: client,
		coll:   client.Database("limbo").Collection("checkpoint"),
	}, nil
}

func (m *MongoBackend) Save(ctx context.Context, req *limboserde.Request) error {
	doc := checkpointDoc{
		ID: checkpointDocID, Type: string(req.Type), ReplicaID: req.ReplicaID,
		OriginID: req.OriginID, NewOwnerID: req.NewOwnerID, LSN: req.LSN,
		Term: req.Term, ConfirmedVClock: req.ConfirmedVClock,
	}
	opts := options.Replace().SetUpsert(true)
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": checkpointDocID}, doc, opts)
	if err != nil {
		return fmt.Errorf("limbocheckpoint: replace: %w", err)
	}
	return nil
}

func (m *MongoBackend) Load(ctx context.Context) (*limboserde.Request, error) {
	var doc checkpointDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": checkpointDocID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return &limboserde.Request{ConfirmedVClock: map[string]int64{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("limbocheckpoint: find: %w", err)
	}
	return &limboserde.Request{
		Type: limboserde.Type(doc.Type), ReplicaID: doc.ReplicaID, OriginID: doc.OriginID,
		NewOwnerID: doc.NewOwnerID, LSN: doc.LSN, Term: doc.Term, ConfirmedVClock: doc.ConfirmedVClock,
	}, nil
}

func (m *MongoBackend) Close() error {
	return m.client.Disconnect(context.Background())
}
