// Package firestore reads and writes document trees in Cloud Firestore or
// the Firestore emulator.
package firestore

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"sync"

	fs "cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"bigfish/internal/repository"
	"bigfish/internal/tree"
)

// Config selects a Firestore project and how to reach it. EmulatorHost
// takes precedence over CredentialsFile.
type Config struct {
	ProjectID       string
	CredentialsFile string
	EmulatorHost    string
}

// Endpoint describes the target for logs and errors
func (c Config) Endpoint() string {
	if c.EmulatorHost != "" {
		return fmt.Sprintf("firestore emulator %s (project %s)", c.EmulatorHost, c.ProjectID)
	}
	return fmt.Sprintf("firestore project %s", c.ProjectID)
}

// Repository implements repository.DocumentStore over a Firestore client
type Repository struct {
	client *fs.Client
	logger *zap.Logger
}

// New connects to Firestore
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	projectID := cfg.ProjectID
	var opts []option.ClientOption
	switch {
	case cfg.EmulatorHost != "":
		opts = emulatorOptions(cfg.EmulatorHost)
	case cfg.CredentialsFile != "":
		if projectID == "" {
			id, err := projectFromCredentials(cfg.CredentialsFile)
			if err != nil {
				return nil, &repository.ConnectionError{Endpoint: cfg.Endpoint(), Err: err}
			}
			projectID = id
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if projectID == "" {
		projectID = fs.DetectProjectID
	}

	client, err := newClient(ctx, projectID, opts...)
	if err != nil {
		return nil, &repository.ConnectionError{Endpoint: cfg.Endpoint(), Err: err}
	}
	logger.Debug("firestore client ready",
		zap.String("project", projectID),
		zap.String("emulator", cfg.EmulatorHost))

	return &Repository{client: client, logger: logger}, nil
}

// emulatorHostEnv is consulted by the client library itself
const emulatorHostEnv = "FIRESTORE_EMULATOR_HOST"

var envMu sync.Mutex

// newClient hides emulatorHostEnv from the client library while it is
// constructed, so only cfg decides which backend is dialled.
func newClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*fs.Client, error) {
	envMu.Lock()
	defer envMu.Unlock()
	if host, ok := os.LookupEnv(emulatorHostEnv); ok {
		os.Unsetenv(emulatorHostEnv)
		defer os.Setenv(emulatorHostEnv, host)
	}
	return fs.NewClient(ctx, projectID, opts...)
}

// NewFromClient wraps an existing client
func NewFromClient(client *fs.Client, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{client: client, logger: logger}
}

// emulatorOptions mirrors what the client library does when it finds
// FIRESTORE_EMULATOR_HOST, without touching the process environment.
func emulatorOptions(host string) []option.ClientOption {
	return []option.ClientOption{
		option.WithEndpoint(host),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		option.WithGRPCDialOption(grpc.WithPerRPCCredentials(emulatorCreds{})),
	}
}

type emulatorCreds struct{}

func (emulatorCreds) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer owner"}, nil
}

func (emulatorCreds) RequireTransportSecurity() bool { return false }

func projectFromCredentials(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read credentials: %w", err)
	}
	var creds struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", fmt.Errorf("parse credentials %s: %w", path, err)
	}
	if creds.ProjectID == "" {
		return "", fmt.Errorf("credentials %s carry no project_id", path)
	}
	return creds.ProjectID, nil
}

// RootCollections lists the top-level collections
func (r *Repository) RootCollections(ctx context.Context) ([]string, error) {
	return collectionIDs(r.client.Collections(ctx))
}

// SubCollections lists the collections under a document, existing or not
func (r *Repository) SubCollections(ctx context.Context, doc tree.Path) ([]string, error) {
	if err := repository.CheckDocumentPath(doc); err != nil {
		return nil, err
	}
	return collectionIDs(r.client.Doc(doc.String()).Collections(ctx))
}

func collectionIDs(it *fs.CollectionIterator) ([]string, error) {
	var names []string
	for {
		ref, err := it.Next()
		if err == iterator.Done {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		names = append(names, ref.ID)
	}
}

// Documents streams the existing documents of a collection
func (r *Repository) Documents(ctx context.Context, collection tree.Path) iter.Seq2[repository.Document, error] {
	if err := repository.CheckCollectionPath(collection); err != nil {
		return repository.FailedFeed(err)
	}
	return func(yield func(repository.Document, error) bool) {
		it := r.client.Collection(collection.String()).Documents(ctx)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				yield(repository.Document{}, err)
				return
			}
			fields, err := FieldsFromData(snap.Data())
			if err != nil {
				yield(repository.Document{}, fmt.Errorf("document %s: %w", collection.Doc(snap.Ref.ID), err))
				return
			}
			if !yield(repository.Document{ID: snap.Ref.ID, Fields: fields}, nil) {
				return
			}
		}
	}
}

// Get reads a single document
func (r *Repository) Get(ctx context.Context, doc tree.Path) (tree.Fields, error) {
	if err := repository.CheckDocumentPath(doc); err != nil {
		return nil, err
	}
	snap, err := r.client.Doc(doc.String()).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return FieldsFromData(snap.Data())
}

// Upsert sets the document, replacing all of its fields
func (r *Repository) Upsert(ctx context.Context, doc tree.Path, fields tree.Fields) error {
	if err := repository.CheckDocumentPath(doc); err != nil {
		return err
	}
	data, err := DataFromFields(fields, r.docRef)
	if err != nil {
		return err
	}
	_, err = r.client.Doc(doc.String()).Set(ctx, data)
	return err
}

// docRef rebinds a reference path to this client's project
func (r *Repository) docRef(path string) (*fs.DocumentRef, error) {
	ref := r.client.Doc(path)
	if ref == nil {
		return nil, fmt.Errorf("invalid document reference %q", path)
	}
	return ref, nil
}

// Close closes the client
func (r *Repository) Close() error {
	return r.client.Close()
}

var _ repository.DocumentStore = (*Repository)(nil)
