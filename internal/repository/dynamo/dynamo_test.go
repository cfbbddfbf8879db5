package dynamo

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"bigfish/internal/repository"
	"bigfish/internal/tree"
)

// fakeAPI keeps items in memory and understands the handful of key
// conditions the store issues.
type fakeAPI struct {
	mu    sync.Mutex
	items map[string]map[string]map[string]types.AttributeValue
	fail  error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: make(map[string]map[string]map[string]types.AttributeValue)}
}

func str(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	vals := in.ExpressionAttributeValues
	part := f.items[str(vals[":pk"])]
	keys := make([]string, 0, len(part))
	for sk := range part {
		keys = append(keys, sk)
	}
	sort.Strings(keys)

	var out []map[string]types.AttributeValue
	for _, sk := range keys {
		it := part[sk]
		if p, ok := vals[":prefix"]; ok && !strings.HasPrefix(sk, str(p)) {
			continue
		}
		if k, ok := vals[":kind"]; ok && str(it["kind"]) != str(k) {
			continue
		}
		out = append(out, it)
	}
	return &dynamodb.QueryOutput{Items: out}, nil
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[str(in.Key["pk"])][str(in.Key["sk"])]}, nil
}

func (f *fakeAPI) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	for _, ti := range in.TransactItems {
		it := ti.Put.Item
		pk, sk := str(it["pk"]), str(it["sk"])
		if f.items[pk] == nil {
			f.items[pk] = make(map[string]map[string]types.AttributeValue)
		}
		f.items[pk][sk] = it
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeAPI) DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return &dynamodb.DescribeTableOutput{}, nil
}

func (f *fakeAPI) CreateTable(context.Context, *dynamodb.CreateTableInput, ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	return &dynamodb.CreateTableOutput{}, nil
}

func newTestStore(t *testing.T) (*Store, *fakeAPI) {
	api := newFakeAPI()
	return NewWithClient(api, DefaultConfig(), zaptest.NewLogger(t)), api
}

func TestUpsertWritesMarkers(t *testing.T) {
	ctx := context.Background()
	s, api := newTestStore(t)

	require.NoError(t, s.Upsert(ctx, tree.Path{"users", "alice", "settings", "prefs"},
		tree.MustFields(map[string]any{"mvpLayout": "left"})))

	assert.Contains(t, api.items[rootPK], "users")
	assert.Contains(t, api.items["users/alice"], "settings")
	assert.Contains(t, api.items["users/alice"], "settings/prefs")

	roots, err := s.RootCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, roots)

	subs, err := s.SubCollections(ctx, tree.Path{"users", "alice"})
	require.NoError(t, err)
	assert.Equal(t, []string{"settings"}, subs)

	// The parent was never written
	for _, err := range s.Documents(ctx, tree.Path{"users"}) {
		require.NoError(t, err)
		t.Fatal("unexpected document under users")
	}
}

func TestDocumentsAndGet(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	require.NoError(t, s.Upsert(ctx, tree.Path{"mvps", "1511"}, tree.MustFields(map[string]any{"name": "Amon Ra"})))
	require.NoError(t, s.Upsert(ctx, tree.Path{"mvps", "1039"}, tree.Fields{}))
	require.NoError(t, s.Upsert(ctx, tree.Path{"mvpsArchive", "1"}, tree.Fields{}))

	var ids []string
	for doc, err := range s.Documents(ctx, tree.Path{"mvps"}) {
		require.NoError(t, err)
		ids = append(ids, doc.ID)
	}
	assert.ElementsMatch(t, []string{"1511", "1039"}, ids)

	got, err := s.Get(ctx, tree.Path{"mvps", "1511"})
	require.NoError(t, err)
	assert.Equal(t, "Amon Ra", got["name"].Str())

	_, err = s.Get(ctx, tree.Path{"mvps", "9999"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestQueryFailureIsYielded(t *testing.T) {
	s, api := newTestStore(t)
	api.fail = assert.AnError

	var errs int
	for _, err := range s.Documents(context.Background(), tree.Path{"mvps"}) {
		assert.ErrorIs(t, err, assert.AnError)
		errs++
	}
	assert.Equal(t, 1, errs)
}

func TestAttributesRoundTrip(t *testing.T) {
	in := tree.Fields{
		"int":    tree.Int(60),
		"float":  tree.Float(60),
		"nan":    tree.Float(math.NaN()),
		"time":   tree.Time(time.Date(2024, 5, 1, 20, 0, 0, 5, time.UTC)),
		"ref":    tree.Ref("users/alice"),
		"geo":    tree.Geo(29.9, 31.1),
		"bytes":  tree.Bytes([]byte{9}),
		"null":   tree.Null(),
		"list":   tree.Array(tree.String("a"), tree.Bool(false)),
		"nested": tree.Map(tree.Fields{"$time": tree.String("not a tag")}),
		"empty":  tree.Map(tree.Fields{}),
	}
	attrs, err := AttributesFromFields(in)
	require.NoError(t, err)

	n, ok := attrs["float"].(*types.AttributeValueMemberN)
	require.True(t, ok)
	assert.Equal(t, "60.0", n.Value)

	out, err := FieldsFromAttributes(attrs)
	require.NoError(t, err)
	assert.True(t, tree.FieldsEqual(in, out), "got %v", out)
}

func TestNumberSets(t *testing.T) {
	v, err := fromAttribute(&types.AttributeValueMemberNS{Value: []string{"1", "2.5"}})
	require.NoError(t, err)
	assert.Equal(t, tree.KindInt, v.Array()[0].Kind())
	assert.Equal(t, tree.KindFloat, v.Array()[1].Kind())
}
