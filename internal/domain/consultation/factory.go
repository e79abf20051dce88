package consultation

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(studentID string, req CreateRequest, consultantID *string) Consultation {
	now := time.Now().UTC()

	recipientType := req.RecipientType

	if recipientType == "" {
		recipientType = RecipientConsultant
	}

	return Consultation{
		ID:            uuid.NewString(),
		StudentID:     studentID,
		ConsultantID:  consultantID,
		Topic:         req.Topic,
		Description:   req.Description,
		RecipientType: recipientType,
		Status:        StatusPending,
		Reply:         "",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewBroadcast builds one pending consultation per teacher, all sharing
// topic/description/studentId. Each teacher manages an independent copy.
func NewBroadcast(studentID string, req BroadcastRequest, teacherIDs []string) []Consultation {
	now := time.Now().UTC()

	out := make([]Consultation, 0, len(teacherIDs))

	for _, teacherID := range teacherIDs {
		tid := teacherID

		out = append(out, Consultation{
			ID:            uuid.NewString(),
			StudentID:     studentID,
			ConsultantID:  &tid,
			Topic:         req.Topic,
			Description:   req.Description,
			RecipientType: RecipientTeacher,
			Status:        StatusPending,
			Reply:         "",
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	return out
}
