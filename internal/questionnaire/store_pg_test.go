package questionnaire

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ts := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO questionnaire_submissions").
		WithArgs("sub-1", "org-1", "user", sqlmock.AnyArg(), ts).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := &PGStore{DB: db}
	err = store.Create(context.Background(), Submission{
		ID:             "sub-1",
		OrganizationID: "org-1",
		Type:           TypeUser,
		Responses:      map[string]string{"q1": "Yes"},
		SubmittedAt:    ts,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGStoreListDecodesResponses(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ts := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, organization_id, type, responses, submitted_at FROM questionnaire_submissions").
		WithArgs("provider").
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "type", "responses", "submitted_at"}).
			AddRow("sub-2", "internal", "provider", []byte(`{"pq1":"In Progress"}`), ts))

	store := &PGStore{DB: db}
	subs, err := store.List(context.Background(), TypeProvider)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(subs) != 1 || subs[0].Responses["pq1"] != "In Progress" || subs[0].Type != TypeProvider {
		t.Fatalf("unexpected submissions %+v", subs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
