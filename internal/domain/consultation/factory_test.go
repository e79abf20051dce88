package consultation_test

import (
	"testing"

	"github.com/campusdesk/consulthub/internal/domain/consultation"
)

func TestNewFromCreateRequestDefaultsRecipientType(t *testing.T) {
	c := consultation.NewFromCreateRequest("student-1", consultation.CreateRequest{
		Topic:       "Math help",
		Description: "Need calc help",
	}, nil)

	if c.RecipientType != consultation.RecipientConsultant {
		t.Fatalf("got recipientType %q, want %q", c.RecipientType, consultation.RecipientConsultant)
	}
	if c.Status != consultation.StatusPending {
		t.Fatalf("got status %q, want %q", c.Status, consultation.StatusPending)
	}
	if c.ConsultantID != nil {
		t.Fatalf("expected nil consultantId, got %v", *c.ConsultantID)
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		t.Fatalf("factory left identity fields unset: %+v", c)
	}
}

func TestNewBroadcastFanOut(t *testing.T) {
	teachers := []string{"t1", "t2", "t3"}

	records := consultation.NewBroadcast("student-1", consultation.BroadcastRequest{
		Topic:       "Exam prep",
		Description: "Need guidance",
	}, teachers)

	if len(records) != len(teachers) {
		t.Fatalf("got %d records, want %d", len(records), len(teachers))
	}

	seen := make(map[string]bool)

	for _, c := range records {
		if c.StudentID != "student-1" || c.Topic != "Exam prep" || c.Description != "Need guidance" {
			t.Fatalf("shared fields differ: %+v", c)
		}
		if c.RecipientType != consultation.RecipientTeacher {
			t.Fatalf("got recipientType %q, want Teacher", c.RecipientType)
		}
		if c.ConsultantID == nil {
			t.Fatal("broadcast record without consultantId")
		}
		if seen[*c.ConsultantID] {
			t.Fatalf("duplicate consultantId %q in fan-out", *c.ConsultantID)
		}
		seen[*c.ConsultantID] = true
	}
}
