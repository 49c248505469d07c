// Package dynamotest provides an in-memory stand-in for the DynamoDB client
// used by store tests. It understands the small expression grammar the
// stores emit: SET updates, equality / inequality / attribute_(not_)exists
// conditions joined by AND, and single-attribute key conditions on queries.
package dynamotest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type Item = map[string]types.AttributeValue

type table struct {
	pk    string
	items map[string]Item
}

// Fake implements aws.DynamoDBAPI.
type Fake struct {
	mu     sync.Mutex
	tables map[string]*table
	fail   map[string]error

	Calls map[string]int
}

func New() *Fake {
	return &Fake{
		tables: map[string]*table{},
		fail:   map[string]error{},
		Calls:  map[string]int{},
	}
}

// CreateTable registers a table keyed by the string attribute pk.
func (f *Fake) CreateTable(name, pk string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[name] = &table{pk: pk, items: map[string]Item{}}
}

// Fail makes every call to op ("PutItem", "GetItem", "UpdateItem",
// "DeleteItem", "Query") return err until cleared with a nil err.
func (f *Fake) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

// Items returns a copy of every item in the table ordered by key.
func (f *Fake) Items(name string) []Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[name]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Item, 0, len(keys))
	for _, k := range keys {
		out = append(out, copyItem(t.items[k]))
	}
	return out
}

// Put stores item directly, bypassing conditions.
func (f *Fake) Put(name string, item Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tables[name]
	t.items[stringValue(item[t.pk])] = copyItem(item)
}

func (f *Fake) enter(op string) error {
	f.Calls[op]++
	return f.fail[op]
}

func (f *Fake) lookup(name *string) (*table, error) {
	if name == nil {
		return nil, errors.New("dynamotest: missing table name")
	}
	t, ok := f.tables[*name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: sdkaws.String("table not found: " + *name)}
	}
	return t, nil
}

func (f *Fake) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("PutItem"); err != nil {
		return nil, err
	}
	t, err := f.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	key := stringValue(params.Item[t.pk])
	if key == "" {
		return nil, fmt.Errorf("dynamotest: item has no %s", t.pk)
	}
	ok, err := evalCondition(params.ConditionExpression, t.items[key], params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, conditionFailed()
	}
	t.items[key] = copyItem(params.Item)
	return &dyn.PutItemOutput{}, nil
}

func (f *Fake) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetItem"); err != nil {
		return nil, err
	}
	t, err := f.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[stringValue(params.Key[t.pk])]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *Fake) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateItem"); err != nil {
		return nil, err
	}
	t, err := f.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	key := stringValue(params.Key[t.pk])
	current, exists := t.items[key]

	ok, err := evalCondition(params.ConditionExpression, current, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, conditionFailed()
	}

	item := copyItem(current)
	if !exists {
		item = copyItem(params.Key)
	}
	if params.UpdateExpression != nil {
		if err := applySet(*params.UpdateExpression, item, params.ExpressionAttributeNames, params.ExpressionAttributeValues); err != nil {
			return nil, err
		}
	}
	t.items[key] = item
	return &dyn.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

func (f *Fake) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteItem"); err != nil {
		return nil, err
	}
	t, err := f.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	delete(t.items, stringValue(params.Key[t.pk]))
	return &dyn.DeleteItemOutput{}, nil
}

func (f *Fake) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Query"); err != nil {
		return nil, err
	}
	t, err := f.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	if params.KeyConditionExpression == nil {
		return nil, errors.New("dynamotest: query without key condition")
	}
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Item
	for _, k := range keys {
		ok, err := evalCondition(params.KeyConditionExpression, t.items[k], params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, copyItem(t.items[k]))
		}
	}
	return &dyn.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: sdkaws.String("The conditional request failed")}
}

func resolveName(token string, names map[string]string) string {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, "#") {
		if n, ok := names[token]; ok {
			return n
		}
	}
	return token
}

func evalCondition(expr *string, item Item, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	if expr == nil || strings.TrimSpace(*expr) == "" {
		return true, nil
	}
	for _, clause := range strings.Split(*expr, " AND ") {
		clause = strings.TrimSpace(clause)
		switch {
		case strings.HasPrefix(clause, "attribute_not_exists(") && strings.HasSuffix(clause, ")"):
			attr := resolveName(clause[len("attribute_not_exists("):len(clause)-1], names)
			if _, ok := item[attr]; ok {
				return false, nil
			}
		case strings.HasPrefix(clause, "attribute_exists(") && strings.HasSuffix(clause, ")"):
			attr := resolveName(clause[len("attribute_exists("):len(clause)-1], names)
			if _, ok := item[attr]; !ok {
				return false, nil
			}
		case strings.Contains(clause, "<>"):
			parts := strings.SplitN(clause, "<>", 2)
			attr := resolveName(parts[0], names)
			want, ok := values[strings.TrimSpace(parts[1])]
			if !ok {
				return false, fmt.Errorf("dynamotest: missing value in %q", clause)
			}
			if equal(item[attr], want) {
				return false, nil
			}
		case strings.Contains(clause, "="):
			parts := strings.SplitN(clause, "=", 2)
			attr := resolveName(parts[0], names)
			want, ok := values[strings.TrimSpace(parts[1])]
			if !ok {
				return false, fmt.Errorf("dynamotest: missing value in %q", clause)
			}
			if !equal(item[attr], want) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("dynamotest: unsupported condition %q", clause)
		}
	}
	return true, nil
}

func applySet(expr string, item Item, names map[string]string, values map[string]types.AttributeValue) error {
	expr = strings.TrimSpace(expr)
	if !strings.HasPrefix(expr, "SET ") {
		return fmt.Errorf("dynamotest: unsupported update %q", expr)
	}
	for _, assignment := range strings.Split(expr[len("SET "):], ",") {
		parts := strings.SplitN(assignment, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("dynamotest: bad assignment %q", assignment)
		}
		attr := resolveName(parts[0], names)
		v, ok := values[strings.TrimSpace(parts[1])]
		if !ok {
			return fmt.Errorf("dynamotest: missing value for %q", assignment)
		}
		item[attr] = v
	}
	return nil
}

func equal(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	default:
		return false
	}
}

func stringValue(v types.AttributeValue) string {
	if s, ok := v.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

// copyItem is shallow: stores never mutate attribute values in place.
func copyItem(in Item) Item {
	if in == nil {
		return nil
	}
	out := make(Item, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
