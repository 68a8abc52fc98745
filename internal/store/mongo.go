// Package store runs segment pipelines and option aggregations against the
// per-account MongoDB database.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/telhawk-systems/segmenter/internal/config"
	"github.com/telhawk-systems/segmenter/internal/pipeline"
	"github.com/telhawk-systems/segmenter/pkg/model"
)

// Result is the decoded outcome of a pipeline. Rows is empty in count mode.
type Result struct {
	Rows       []model.Profile
	TotalCount int64
}

// Executor runs a built pipeline against the profiles collection.
type Executor interface {
	Execute(ctx context.Context, p mongo.Pipeline, mode pipeline.Mode) (*Result, error)
}

// OptionSource fetches the selectable values of one group.
type OptionSource interface {
	GroupOptions(ctx context.Context, group model.GroupKey) (model.GroupOptions, error)
}

// MongoStore implements Executor and OptionSource for one account.
type MongoStore struct {
	client    *mongo.Client
	db        *mongo.Database
	accountID string
	profiles  string
	events    string
	timeout   time.Duration
	now       func() time.Time
}

var (
	_ Executor     = (*MongoStore)(nil)
	_ OptionSource = (*MongoStore)(nil)
)

// Connect opens a client and verifies the primary is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// NewMongoStore binds client to the database of accountID.
func NewMongoStore(client *mongo.Client, cfg config.MongoConfig, accountID string) *MongoStore {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	profiles, events := cfg.ProfilesCollection, cfg.EventsCollection
	if profiles == "" {
		profiles = "profiles"
	}
	if events == "" {
		events = pipeline.EventsCollection
	}
	return &MongoStore{
		client:    client,
		db:        client.Database(cfg.Database(accountID)),
		accountID: accountID,
		profiles:  profiles,
		events:    events,
		timeout:   timeout,
		now:       time.Now,
	}
}

// AccountID returns the account every query is scoped to.
func (s *MongoStore) AccountID() string {
	return s.accountID
}

// Scope is the match every run is restricted to.
func (s *MongoStore) Scope() bson.D {
	return bson.D{{Key: "accountId", Value: s.accountID}}
}

// Ping checks connectivity.
func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return execErr("ping", s.client.Ping(ctx, readpref.Primary()))
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type countDoc struct {
	TotalCount int64 `bson:"totalCount"`
}

type pageDoc struct {
	Data       []model.Profile `bson:"data"`
	TotalCount []struct {
		Count int64 `bson:"count"`
	} `bson:"totalCount"`
}

// Execute runs p on the profiles collection and decodes the terminal shape
// produced by pipeline.Build for mode.
func (s *MongoStore) Execute(ctx context.Context, p mongo.Pipeline, mode pipeline.Mode) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cursor, err := s.db.Collection(s.profiles).Aggregate(ctx, p)
	if err != nil {
		return nil, execErr("aggregate", err)
	}
	defer cursor.Close(ctx)

	switch mode {
	case pipeline.ModeCountOnly:
		var docs []countDoc
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, execErr("decode count", err)
		}
		res := &Result{Rows: []model.Profile{}}
		if len(docs) > 0 {
			res.TotalCount = docs[0].TotalCount
		}
		return res, nil
	case pipeline.ModePaginated:
		var docs []pageDoc
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, execErr("decode page", err)
		}
		res := &Result{Rows: []model.Profile{}}
		if len(docs) > 0 {
			if docs[0].Data != nil {
				res.Rows = docs[0].Data
			}
			if len(docs[0].TotalCount) > 0 {
				res.TotalCount = docs[0].TotalCount[0].Count
			}
		}
		return res, nil
	default:
		return nil, execErr("execute", fmt.Errorf("unknown mode %q", mode))
	}
}

// InsertProfiles writes profile documents, stamping the account id.
func (s *MongoStore) InsertProfiles(ctx context.Context, docs []bson.M) error {
	return s.insert(ctx, s.profiles, docs)
}

// InsertEvents writes event documents, stamping the account id.
func (s *MongoStore) InsertEvents(ctx context.Context, docs []bson.M) error {
	return s.insert(ctx, s.events, docs)
}

func (s *MongoStore) insert(ctx context.Context, collection string, docs []bson.M) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := s.db.Collection(collection).InsertMany(ctx, stamped(docs, s.accountID))
	return execErr("insert "+collection, err)
}

// stamped copies docs with accountId set, leaving the callers' maps as they were.
func stamped(docs []bson.M, accountID string) []any {
	batch := make([]any, len(docs))
	for i, d := range docs {
		cp := make(bson.M, len(d)+1)
		for k, v := range d {
			cp[k] = v
		}
		cp["accountId"] = accountID
		batch[i] = cp
	}
	return batch
}
