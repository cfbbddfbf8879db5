// Package mongo stores a document tree in MongoDB. Each tree collection maps
// to a Mongo collection named by its slash-joined path and each document is
// keyed by its id in _id.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"bigfish/internal/repository"
	"bigfish/internal/tree"
)

// DefaultDatabase matches the database name the API has always used
const DefaultDatabase = "bigfish"

// Config locates the database
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Repository implements repository.DocumentStore on a Mongo database
type Repository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// New connects and pings the server
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		opts.SetConnectTimeout(cfg.Timeout).SetServerSelectionTimeout(cfg.Timeout)
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, &repository.ConnectionError{Endpoint: redact(cfg.URI), Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, &repository.ConnectionError{Endpoint: redact(cfg.URI), Err: fmt.Errorf("failed to ping MongoDB: %w", err)}
	}
	logger.Debug("connected to MongoDB", zap.String("database", cfg.Database))

	return &Repository{client: client, db: client.Database(cfg.Database), logger: logger}, nil
}

var credentials = regexp.MustCompile(`//[^@/]+@`)

// redact strips user:password from a connection string
func redact(uri string) string {
	return credentials.ReplaceAllString(uri, "//***@")
}

// RootCollections lists the first segment of every stored collection path,
// so collections that only hold nested data are still reported.
func (r *Repository) RootCollections(ctx context.Context) ([]string, error) {
	names, err := r.collectionNames(ctx, "")
	if err != nil {
		return nil, err
	}
	return childSegments(names, tree.Root()), nil
}

// SubCollections lists the collections under a document
func (r *Repository) SubCollections(ctx context.Context, doc tree.Path) ([]string, error) {
	if err := repository.CheckDocumentPath(doc); err != nil {
		return nil, err
	}
	names, err := r.collectionNames(ctx, doc.String()+"/")
	if err != nil {
		return nil, err
	}
	return childSegments(names, doc), nil
}

func (r *Repository) collectionNames(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.D{}
	if prefix != "" {
		filter = bson.D{{Key: "name", Value: bson.D{{Key: "$regex", Value: "^" + regexp.QuoteMeta(prefix)}}}}
	}
	names, err := r.db.ListCollectionNames(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}

// childSegments returns the distinct collection names directly below
// parent, in the order first seen.
func childSegments(names []string, parent tree.Path) []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range names {
		if strings.HasPrefix(name, "system.") {
			continue
		}
		p, err := tree.ParsePath(name)
		if err != nil || len(p) <= len(parent) || !p.IsCollection() {
			continue
		}
		if tree.Path(p[:len(parent)]).String() != parent.String() {
			continue
		}
		seg := p[len(parent)]
		if !seen[seg] {
			seen[seg] = true
			out = append(out, seg)
		}
	}
	return out
}

// Documents streams a collection in natural order
func (r *Repository) Documents(ctx context.Context, collection tree.Path) iter.Seq2[repository.Document, error] {
	if err := repository.CheckCollectionPath(collection); err != nil {
		return repository.FailedFeed(err)
	}
	return func(yield func(repository.Document, error) bool) {
		opts := options.Find().SetSort(bson.D{{Key: "$natural", Value: 1}})
		cur, err := r.db.Collection(collection.String()).Find(ctx, bson.D{}, opts)
		if err != nil {
			yield(repository.Document{}, fmt.Errorf("failed to query %s: %w", collection, err))
			return
		}
		defer cur.Close(context.Background())

		for cur.Next(ctx) {
			var raw bson.D
			if err := cur.Decode(&raw); err != nil {
				yield(repository.Document{}, fmt.Errorf("failed to decode document: %w", err))
				return
			}
			id, fields, err := FromBSON(raw)
			if err != nil {
				yield(repository.Document{}, fmt.Errorf("document %s: %w", collection.Doc(id), err))
				return
			}
			if !yield(repository.Document{ID: id, Fields: fields}, nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(repository.Document{}, err)
		}
	}
}

// Get reads one document
func (r *Repository) Get(ctx context.Context, doc tree.Path) (tree.Fields, error) {
	if err := repository.CheckDocumentPath(doc); err != nil {
		return nil, err
	}
	var raw bson.D
	err := r.db.Collection(doc.Parent().String()).
		FindOne(ctx, bson.D{{Key: "_id", Value: doc.ID()}}).
		Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	_, fields, err := FromBSON(raw)
	return fields, err
}

// Upsert replaces the document, creating it if needed
func (r *Repository) Upsert(ctx context.Context, doc tree.Path, fields tree.Fields) error {
	if err := repository.CheckDocumentPath(doc); err != nil {
		return err
	}
	raw, err := ToBSON(doc.ID(), fields)
	if err != nil {
		return err
	}
	_, err = r.db.Collection(doc.Parent().String()).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: doc.ID()}},
		raw,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to replace %s: %w", doc, err)
	}
	return nil
}

// Close disconnects the client
func (r *Repository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

var _ repository.DocumentStore = (*Repository)(nil)
