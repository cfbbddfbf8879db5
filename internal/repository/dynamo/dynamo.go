// Package dynamo stores a document tree in a single DynamoDB table.
//
// Items are partitioned by the path of the owning document ("#root" for
// top-level collections). Within a partition, documents use the sort key
// "collection/id" and collection markers use the bare collection name, so
// a begins_with query on "collection/" lists a collection and a query for
// marker items lists sub-collections.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"bigfish/internal/repository"
	"bigfish/internal/tree"
)

const (
	rootPK         = "#root"
	kindDocument   = "document"
	kindCollection = "collection"
	fieldsAttr     = "fields"
)

// API is the subset of the DynamoDB client the store uses
type API interface {
	dynamodb.QueryAPIClient
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// item is the key envelope shared by documents and collection markers
type item struct {
	PK   string `dynamodbav:"pk"`
	SK   string `dynamodbav:"sk"`
	Kind string `dynamodbav:"kind"`
	Name string `dynamodbav:"name"`
	ID   string `dynamodbav:"id,omitempty"`
}

// Store implements repository.DocumentStore on DynamoDB
type Store struct {
	client API
	config Config
	logger *zap.Logger
}

// New loads AWS configuration, builds a client and checks the table
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	cfg.validate()

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &repository.ConnectionError{Endpoint: cfg.describe(), Err: err}
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	s := NewWithClient(client, cfg, logger)
	if err := s.ensureTable(ctx); err != nil {
		return nil, &repository.ConnectionError{Endpoint: cfg.describe(), Err: err}
	}
	return s, nil
}

// NewWithClient wraps an existing client
func NewWithClient(client API, cfg Config, logger *zap.Logger) *Store {
	cfg.validate()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, config: cfg, logger: logger}
}

func (c Config) describe() string {
	if c.Endpoint != "" {
		return fmt.Sprintf("dynamodb %s table %s", c.Endpoint, c.Table)
	}
	return fmt.Sprintf("dynamodb %s table %s", c.Region, c.Table)
}

func (s *Store) ensureTable(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.config.Table),
	})
	var notFound *types.ResourceNotFoundException
	if err == nil || !errors.As(err, &notFound) || !s.config.CreateTable {
		return err
	}

	s.logger.Info("creating table", zap.String("table", s.config.Table))
	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.config.Table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("pk"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("sk"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("pk"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	waiter := dynamodb.NewTableExistsWaiter(s.client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.config.Table)}, 2*time.Minute)
}

func partitionKey(doc tree.Path) string {
	if doc.IsRoot() {
		return rootPK
	}
	return doc.String()
}

func docKey(doc tree.Path) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: partitionKey(doc[:len(doc)-2])},
		"sk": &types.AttributeValueMemberS{Value: doc[len(doc)-2] + "/" + doc.ID()},
	}
}

// RootCollections lists top-level collection markers
func (s *Store) RootCollections(ctx context.Context) ([]string, error) {
	return s.collections(ctx, tree.Root())
}

// SubCollections lists the collection markers under a document
func (s *Store) SubCollections(ctx context.Context, doc tree.Path) ([]string, error) {
	if err := repository.CheckDocumentPath(doc); err != nil {
		return nil, err
	}
	return s.collections(ctx, doc)
}

func (s *Store) collections(ctx context.Context, doc tree.Path) ([]string, error) {
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.config.Table),
		KeyConditionExpression: aws.String("pk = :pk"),
		FilterExpression:       aws.String("#kind = :kind"),
		ExpressionAttributeNames: map[string]string{
			"#kind": "kind",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":   &types.AttributeValueMemberS{Value: partitionKey(doc)},
			":kind": &types.AttributeValueMemberS{Value: kindCollection},
		},
	})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query collections: %w", err)
		}
		for _, raw := range page.Items {
			var it item
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				return nil, fmt.Errorf("unmarshal collection marker: %w", err)
			}
			names = append(names, it.Name)
		}
	}
	return names, nil
}

// Documents pages through a collection lazily
func (s *Store) Documents(ctx context.Context, collection tree.Path) iter.Seq2[repository.Document, error] {
	if err := repository.CheckCollectionPath(collection); err != nil {
		return repository.FailedFeed(err)
	}
	return func(yield func(repository.Document, error) bool) {
		paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
			TableName:              aws.String(s.config.Table),
			KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: partitionKey(collection.Parent())},
				":prefix": &types.AttributeValueMemberS{Value: collection.ID() + "/"},
			},
		})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				yield(repository.Document{}, fmt.Errorf("query %s: %w", collection, err))
				return
			}
			for _, raw := range page.Items {
				doc, err := decodeDocument(raw)
				if err != nil {
					yield(repository.Document{}, err)
					return
				}
				if !yield(doc, nil) {
					return
				}
			}
		}
	}
}

func decodeDocument(raw map[string]types.AttributeValue) (repository.Document, error) {
	var it item
	if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
		return repository.Document{}, fmt.Errorf("unmarshal document: %w", err)
	}
	m, ok := raw[fieldsAttr].(*types.AttributeValueMemberM)
	if !ok {
		return repository.Document{}, fmt.Errorf("document %s/%s has no fields map", it.PK, it.SK)
	}
	fields, err := FieldsFromAttributes(m.Value)
	if err != nil {
		return repository.Document{}, fmt.Errorf("document %s/%s: %w", it.PK, it.SK, err)
	}
	return repository.Document{ID: it.ID, Fields: fields}, nil
}

// Get reads one document
func (s *Store) Get(ctx context.Context, doc tree.Path) (tree.Fields, error) {
	if err := repository.CheckDocumentPath(doc); err != nil {
		return nil, err
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.Table),
		Key:            docKey(doc),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, repository.ErrNotFound
	}
	d, err := decodeDocument(out.Item)
	if err != nil {
		return nil, err
	}
	return d.Fields, nil
}

// Upsert puts the document together with a marker for every collection on
// its path in one transaction.
func (s *Store) Upsert(ctx context.Context, doc tree.Path, fields tree.Fields) error {
	if err := repository.CheckDocumentPath(doc); err != nil {
		return err
	}
	attrs, err := AttributesFromFields(fields)
	if err != nil {
		return err
	}

	items := []types.TransactWriteItem{}
	for i := 0; i < len(doc); i += 2 {
		marker, err := attributevalue.MarshalMap(item{
			PK:   partitionKey(doc[:i]),
			SK:   doc[i],
			Kind: kindCollection,
			Name: doc[i],
		})
		if err != nil {
			return fmt.Errorf("marshal collection marker: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{TableName: aws.String(s.config.Table), Item: marker},
		})
	}

	record, err := attributevalue.MarshalMap(item{
		PK:   partitionKey(doc[:len(doc)-2]),
		SK:   doc[len(doc)-2] + "/" + doc.ID(),
		Kind: kindDocument,
		Name: doc[len(doc)-2],
		ID:   doc.ID(),
	})
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	record[fieldsAttr] = &types.AttributeValueMemberM{Value: attrs}
	items = append(items, types.TransactWriteItem{
		Put: &types.Put{TableName: aws.String(s.config.Table), Item: record},
	})

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", doc, err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources that need releasing
func (s *Store) Close() error { return nil }

var _ repository.DocumentStore = (*Store)(nil)
