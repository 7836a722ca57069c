package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hassan-nahid/school-of-music-server/models"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoClassRepository.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
}

const dynamoBatchGetLimit = 100

// DynamoClassRepository stores classes in a DynamoDB table keyed by the string attribute "id".
type DynamoClassRepository struct {
	client DynamoAPI
	table  string
}

func NewDynamoClassRepository(client DynamoAPI, table string) *DynamoClassRepository {
	return &DynamoClassRepository{client: client, table: table}
}

type ddbClass struct {
	ID              string  `dynamodbav:"id"`
	Name            string  `dynamodbav:"name"`
	Image           string  `dynamodbav:"image,omitempty"`
	InstructorName  string  `dynamodbav:"instructorName,omitempty"`
	InstructorEmail string  `dynamodbav:"instructorEmail,omitempty"`
	AvailableSeats  int     `dynamodbav:"availableSeats"`
	Enrolled        int     `dynamodbav:"enrolled"`
	Price           float64 `dynamodbav:"price"`
	Status          string  `dynamodbav:"status"`
	Feedback        string  `dynamodbav:"feedback,omitempty"`
}

func toDDBClass(c *models.Class) ddbClass {
	return ddbClass{
		ID:              c.ID.Hex(),
		Name:            c.Name,
		Image:           c.Image,
		InstructorName:  c.InstructorName,
		InstructorEmail: c.InstructorEmail,
		AvailableSeats:  c.AvailableSeats,
		Enrolled:        c.Enrolled,
		Price:           c.Price,
		Status:          string(c.Status),
		Feedback:        c.Feedback,
	}
}

func (d ddbClass) toModel() models.Class {
	oid, _ := primitive.ObjectIDFromHex(d.ID)
	return models.Class{
		ID:              oid,
		Name:            d.Name,
		Image:           d.Image,
		InstructorName:  d.InstructorName,
		InstructorEmail: d.InstructorEmail,
		AvailableSeats:  d.AvailableSeats,
		Enrolled:        d.Enrolled,
		Price:           d.Price,
		Status:          models.ClassStatus(d.Status),
		Feedback:        d.Feedback,
	}
}

func classKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

func (r *DynamoClassRepository) scan(ctx context.Context, filter *string, names map[string]string, values map[string]types.AttributeValue) ([]models.Class, error) {
	classes := []models.Class{}
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 &r.table,
			FilterExpression:          filter,
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamodb Scan failed: %w", err)
		}
		var page []ddbClass
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal classes: %w", err)
		}
		for _, d := range page {
			classes = append(classes, d.toModel())
		}
		if len(out.LastEvaluatedKey) == 0 {
			return classes, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (r *DynamoClassRepository) FindAll(ctx context.Context) ([]models.Class, error) {
	return r.scan(ctx, nil, nil, nil)
}

func (r *DynamoClassRepository) FindByStatus(ctx context.Context, status models.ClassStatus) ([]models.Class, error) {
	return r.scan(ctx, sdkaws.String("#status = :status"),
		map[string]string{"#status": "status"},
		map[string]types.AttributeValue{":status": &types.AttributeValueMemberS{Value: string(status)}},
	)
}

func (r *DynamoClassRepository) FindByInstructor(ctx context.Context, email string) ([]models.Class, error) {
	return r.scan(ctx, sdkaws.String("instructorEmail = :email"), nil,
		map[string]types.AttributeValue{":email": &types.AttributeValueMemberS{Value: email}},
	)
}

func (r *DynamoClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if _, err := ParseObjectID(id); err != nil {
		return nil, err
	}
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &r.table,
		Key:            classKey(id),
		ConsistentRead: sdkaws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var d ddbClass
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, fmt.Errorf("unmarshal class: %w", err)
	}
	c := d.toModel()
	return &c, nil
}

// FindByIDs batches keys 100 at a time and retries unprocessed keys. Results keep the order of ids.
func (r *DynamoClassRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Class, error) {
	if _, err := ParseObjectIDs(ids); err != nil {
		return nil, err
	}

	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	found := make(map[string]models.Class, len(unique))
	for start := 0; start < len(unique); start += dynamoBatchGetLimit {
		end := start + dynamoBatchGetLimit
		if end > len(unique) {
			end = len(unique)
		}
		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, id := range unique[start:end] {
			keys = append(keys, classKey(id))
		}

		request := map[string]types.KeysAndAttributes{r.table: {Keys: keys, ConsistentRead: sdkaws.Bool(true)}}
		for len(request) > 0 {
			out, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, fmt.Errorf("dynamodb BatchGetItem failed: %w", err)
			}
			var page []ddbClass
			if err := attributevalue.UnmarshalListOfMaps(out.Responses[r.table], &page); err != nil {
				return nil, fmt.Errorf("unmarshal classes: %w", err)
			}
			for _, d := range page {
				found[d.ID] = d.toModel()
			}
			request = out.UnprocessedKeys
		}
	}

	classes := make([]models.Class, 0, len(found))
	for _, id := range unique {
		if c, ok := found[id]; ok {
			classes = append(classes, c)
		}
	}
	return classes, nil
}

func (r *DynamoClassRepository) Insert(ctx context.Context, class *models.Class) (string, error) {
	if class.ID.IsZero() {
		class.ID = primitive.NewObjectID()
	}
	item, err := attributevalue.MarshalMap(toDDBClass(class))
	if err != nil {
		return "", fmt.Errorf("marshal class: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.table,
		Item:                item,
		ConditionExpression: sdkaws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return class.ID.Hex(), nil
}

// UpdateFields sets the given attributes. Every field is written so ModifiedCount equals MatchedCount.
func (r *DynamoClassRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*models.UpdateResult, error) {
	if _, err := ParseObjectID(id); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return &models.UpdateResult{}, nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	expr := "SET "
	names := make(map[string]string, len(keys))
	values := make(map[string]types.AttributeValue, len(keys))
	for i, k := range keys {
		namePh := fmt.Sprintf("#f%d", i)
		valPh := fmt.Sprintf(":v%d", i)
		if i > 0 {
			expr += ", "
		}
		expr += namePh + " = " + valPh
		names[namePh] = k
		av, err := attributevalue.Marshal(fields[k])
		if err != nil {
			return nil, fmt.Errorf("marshal update value: %w", err)
		}
		values[valPh] = av
	}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 &r.table,
		Key:                       classKey(id),
		UpdateExpression:          &expr,
		ConditionExpression:       sdkaws.String("attribute_exists(id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return &models.UpdateResult{}, nil
		}
		return nil, fmt.Errorf("update item failed: %w", err)
	}
	return &models.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (r *DynamoClassRepository) TransferSeats(ctx context.Context, id string, q int) error {
	return r.moveSeats(ctx, id,
		"SET availableSeats = availableSeats - :q, enrolled = if_not_exists(enrolled, :zero) + :q",
		"attribute_exists(id) AND availableSeats >= :q", q)
}

func (r *DynamoClassRepository) RestoreSeats(ctx context.Context, id string, q int) error {
	return r.moveSeats(ctx, id,
		"SET availableSeats = availableSeats + :q, enrolled = enrolled - :q",
		"attribute_exists(id) AND enrolled >= :q", q)
}

func (r *DynamoClassRepository) moveSeats(ctx context.Context, id, update, cond string, q int) error {
	if _, err := ParseObjectID(id); err != nil {
		return err
	}
	qtyAV, _ := attributevalue.Marshal(q)
	zeroAV, _ := attributevalue.Marshal(0)

	values := map[string]types.AttributeValue{":q": qtyAV}
	if strings.Contains(update, ":zero") {
		values[":zero"] = zeroAV
	}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           &r.table,
		Key:                                 classKey(id),
		UpdateExpression:                    &update,
		ConditionExpression:                 &cond,
		ExpressionAttributeValues:           values,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return ErrNotFound
			}
			return ErrInsufficientSeats
		}
		return fmt.Errorf("seat update on %s failed: %w", id, err)
	}
	return nil
}
