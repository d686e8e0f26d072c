package organizations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"compliance-backend/internal/scoring"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore persists organizations in a DynamoDB table keyed by orgId.
type DynamoStore struct {
	Client DynamoAPI
	Table  string
	Now    func() time.Time
}

type orgItem struct {
	OrgID                  string            `dynamodbav:"orgId"`
	Name                   string            `dynamodbav:"name"`
	ComplianceScore        int               `dynamodbav:"complianceScore"`
	Status                 string            `dynamodbav:"status"`
	LastScanDate           *string           `dynamodbav:"lastScanDate,omitempty"`
	QuestionnaireResponses map[string]string `dynamodbav:"questionnaireResponses,omitempty"`
	ScanData               map[string]any    `dynamodbav:"scanData,omitempty"`
	AnalysisResult         *AnalysisResult   `dynamodbav:"analysisResult,omitempty"`
	CreatedAt              time.Time         `dynamodbav:"createdAt"`
}

func toItem(org Organization) orgItem {
	return orgItem{
		OrgID:                  org.ID,
		Name:                   org.Name,
		ComplianceScore:        org.ComplianceScore,
		Status:                 string(org.Status),
		LastScanDate:           org.LastScanDate,
		QuestionnaireResponses: org.QuestionnaireResponses,
		ScanData:               org.ScanData,
		AnalysisResult:         org.AnalysisResult,
		CreatedAt:              org.CreatedAt,
	}
}

func (it orgItem) organization() Organization {
	return Organization{
		ID:                     it.OrgID,
		Name:                   it.Name,
		ComplianceScore:        it.ComplianceScore,
		Status:                 scoring.Status(it.Status),
		LastScanDate:           it.LastScanDate,
		QuestionnaireResponses: it.QuestionnaireResponses,
		ScanData:               it.ScanData,
		AnalysisResult:         it.AnalysisResult,
		CreatedAt:              it.CreatedAt,
	}
}

func (s *DynamoStore) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"orgId": &types.AttributeValueMemberS{Value: id},
	}
}

func (s *DynamoStore) Get(ctx context.Context, id string) (Organization, error) {
	out, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.Table),
		Key:            s.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Organization{}, storeError("get", err)
	}
	if len(out.Item) == 0 {
		return Organization{}, ErrNotFound
	}
	var item orgItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return Organization{}, storeError("get", err)
	}
	return item.organization(), nil
}

func (s *DynamoStore) List(ctx context.Context) ([]Organization, error) {
	out := make([]Organization, 0)
	var startKey map[string]types.AttributeValue
	for {
		page, err := s.Client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.Table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, storeError("list", err)
		}
		var items []orgItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, storeError("list", err)
		}
		for _, item := range items {
			out = append(out, item.organization())
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		startKey = page.LastEvaluatedKey
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *DynamoStore) Create(ctx context.Context, fields NewOrganization) (Organization, error) {
	return s.CreateWithID(ctx, uuid.NewString(), fields)
}

// CreateWithID writes a new item, refusing to overwrite an existing orgId.
func (s *DynamoStore) CreateWithID(ctx context.Context, id string, fields NewOrganization) (Organization, error) {
	org, err := fields.Build(id, s.now())
	if err != nil {
		return Organization{}, err
	}
	item, err := attributevalue.MarshalMap(toItem(org))
	if err != nil {
		return Organization{}, storeError("create", err)
	}
	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.Table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(orgId)"),
	})
	if err != nil {
		return Organization{}, storeError("create", err)
	}
	return org, nil
}

// Update sends one UpdateItem call so all supplied fields land together.
func (s *DynamoStore) Update(ctx context.Context, id string, update Update) (Organization, error) {
	update, err := update.Normalize()
	if err != nil {
		return Organization{}, err
	}
	if update.IsEmpty() {
		return s.Get(ctx, id)
	}

	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	sets := make([]string, 0, 7)
	var marshalErr error
	add := func(attr string, v any) {
		if marshalErr != nil {
			return
		}
		av, err := attributevalue.Marshal(v)
		if err != nil {
			marshalErr = fmt.Errorf("encode %s: %w", attr, err)
			return
		}
		names["#"+attr] = attr
		values[":"+attr] = av
		sets = append(sets, fmt.Sprintf("#%s = :%s", attr, attr))
	}

	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.ComplianceScore != nil {
		add("complianceScore", *update.ComplianceScore)
	}
	if update.Status != nil {
		add("status", string(*update.Status))
	}
	if update.LastScanDate != nil {
		add("lastScanDate", *update.LastScanDate)
	}
	if update.QuestionnaireResponses != nil {
		add("questionnaireResponses", update.QuestionnaireResponses)
	}
	if update.ScanData != nil {
		add("scanData", update.ScanData)
	}
	if update.AnalysisResult != nil {
		add("analysisResult", update.AnalysisResult)
	}
	if marshalErr != nil {
		return Organization{}, storeError("update", marshalErr)
	}

	out, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.Table),
		Key:                       s.key(id),
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       aws.String("attribute_exists(orgId)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return Organization{}, ErrNotFound
		}
		return Organization{}, storeError("update", err)
	}
	var item orgItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return Organization{}, storeError("update", err)
	}
	return item.organization(), nil
}

func (s *DynamoStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

var _ Store = (*DynamoStore)(nil)
