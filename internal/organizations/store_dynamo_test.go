package organizations

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"compliance-backend/internal/scoring"
)

type fakeDynamo struct {
	getOut    *dynamodb.GetItemOutput
	updateOut *dynamodb.UpdateItemOutput
	updateErr error
	scanPages []*dynamodb.ScanOutput

	puts    []*dynamodb.PutItemInput
	updates []*dynamodb.UpdateItemInput
	scans   []*dynamodb.ScanInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getOut == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return f.getOut, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateOut, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scans = append(f.scans, in)
	page := f.scanPages[len(f.scans)-1]
	return page, nil
}

func marshalItem(t *testing.T, org Organization) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(toItem(org))
	if err != nil {
		t.Fatalf("MarshalMap: %v", err)
	}
	return item
}

func TestDynamoStoreGetRoundTripsItem(t *testing.T) {
	analyzed := time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)
	want := Organization{
		ID:                     "org-1",
		Name:                   "Acme",
		ComplianceScore:        84,
		Status:                 scoring.StatusPartial,
		LastScanDate:           strPtr("2026-01-15"),
		QuestionnaireResponses: map[string]string{"q1": "Yes"},
		AnalysisResult: &AnalysisResult{
			OverallScore:   70,
			Gaps:           []Gap{{Control: "A.5", Description: "d", Severity: SeverityHigh}},
			Remedies:       []Remedy{{Action: "a", Timeline: "1w"}},
			StepByStepPlan: []string{"step"},
			AnalyzedAt:     analyzed,
		},
		CreatedAt: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	fake := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: marshalItem(t, want)}}
	store := &DynamoStore{Client: fake, Table: "orgs"}

	got, err := store.Get(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != want.Name || got.Status != want.Status || *got.LastScanDate != "2026-01-15" {
		t.Fatalf("unexpected org %+v", got)
	}
	if got.AnalysisResult == nil || !got.AnalysisResult.AnalyzedAt.Equal(analyzed) {
		t.Fatalf("analysis not round-tripped: %+v", got.AnalysisResult)
	}
	if got.AnalysisResult.Gaps[0].Severity != SeverityHigh {
		t.Fatalf("unexpected severity %q", got.AnalysisResult.Gaps[0].Severity)
	}
}

func TestDynamoStoreGetMissing(t *testing.T) {
	store := &DynamoStore{Client: &fakeDynamo{}, Table: "orgs"}
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDynamoStoreCreateIsConditional(t *testing.T) {
	fake := &fakeDynamo{}
	store := &DynamoStore{Client: fake, Table: "orgs"}

	org, err := store.Create(context.Background(), NewOrganization{Name: "Acme"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(fake.puts) != 1 {
		t.Fatalf("expected one PutItem")
	}
	put := fake.puts[0]
	if aws.ToString(put.ConditionExpression) != "attribute_not_exists(orgId)" {
		t.Fatalf("unexpected condition %q", aws.ToString(put.ConditionExpression))
	}
	key, ok := put.Item["orgId"].(*types.AttributeValueMemberS)
	if !ok || key.Value != org.ID {
		t.Fatalf("expected orgId key %q", org.ID)
	}
	if _, ok := put.Item["analysisResult"]; ok {
		t.Fatalf("empty analysis should be omitted")
	}
}

func TestDynamoStoreUpdateSendsOneExpression(t *testing.T) {
	updated := Organization{ID: "org-2", Name: "FinSecure", ComplianceScore: 50, Status: scoring.StatusCritical}
	fake := &fakeDynamo{updateOut: &dynamodb.UpdateItemOutput{Attributes: marshalItem(t, updated)}}
	store := &DynamoStore{Client: fake, Table: "orgs"}

	got, err := store.Update(context.Background(), "org-2", Update{
		ComplianceScore: intPtr(50),
		LastScanDate:    strPtr("2026-02-01"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != scoring.StatusCritical {
		t.Fatalf("unexpected status %s", got.Status)
	}
	if len(fake.updates) != 1 {
		t.Fatalf("expected a single UpdateItem, got %d", len(fake.updates))
	}
	in := fake.updates[0]
	expr := aws.ToString(in.UpdateExpression)
	for _, part := range []string{"#complianceScore = :complianceScore", "#status = :status", "#lastScanDate = :lastScanDate"} {
		if !strings.Contains(expr, part) {
			t.Fatalf("expression %q missing %q", expr, part)
		}
	}
	if aws.ToString(in.ConditionExpression) != "attribute_exists(orgId)" {
		t.Fatalf("unexpected condition %q", aws.ToString(in.ConditionExpression))
	}
	if in.ReturnValues != types.ReturnValueAllNew {
		t.Fatalf("expected ALL_NEW")
	}
	status, ok := in.ExpressionAttributeValues[":status"].(*types.AttributeValueMemberS)
	if !ok || status.Value != "Critical" {
		t.Fatalf("expected derived status Critical")
	}
}

func TestDynamoStoreUpdateMissingMapsToNotFound(t *testing.T) {
	fake := &fakeDynamo{updateErr: &types.ConditionalCheckFailedException{Message: aws.String("failed")}}
	store := &DynamoStore{Client: fake, Table: "orgs"}

	_, err := store.Update(context.Background(), "missing", Update{Name: strPtr("x")})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDynamoStoreListFollowsPages(t *testing.T) {
	early := Organization{ID: "b", Name: "B", Status: scoring.StatusPending, CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	late := Organization{ID: "a", Name: "A", Status: scoring.StatusPending, CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	fake := &fakeDynamo{scanPages: []*dynamodb.ScanOutput{
		{
			Items:            []map[string]types.AttributeValue{marshalItem(t, late)},
			LastEvaluatedKey: map[string]types.AttributeValue{"orgId": &types.AttributeValueMemberS{Value: "a"}},
		},
		{Items: []map[string]types.AttributeValue{marshalItem(t, early)}},
	}}
	store := &DynamoStore{Client: fake, Table: "orgs"}

	orgs, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(fake.scans) != 2 {
		t.Fatalf("expected 2 scan pages, got %d", len(fake.scans))
	}
	if fake.scans[1].ExclusiveStartKey == nil {
		t.Fatalf("expected second scan to resume from LastEvaluatedKey")
	}
	if len(orgs) != 2 || orgs[0].ID != "b" || orgs[1].ID != "a" {
		t.Fatalf("expected orgs ordered by createdAt, got %+v", orgs)
	}
}
