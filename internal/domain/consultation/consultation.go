package consultation

import (
	"errors"
	"time"
)

// Status values. Any role-authorized recipient may set any of the three;
// the restriction is on who, not on the transition itself.
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// Recipient types. Fixed at creation.
const (
	RecipientConsultant = "Consultant"
	RecipientTeacher    = "Teacher"
)

type Consultation struct {
	ID        string `json:"id"`
	StudentID string `json:"studentId"`
	// Nil when no recipient could be resolved at creation time; the
	// request is still stored and shows up in the student's list.
	ConsultantID  *string   `json:"consultantId"`
	Topic         string    `json:"topic"`
	Description   string    `json:"description"`
	RecipientType string    `json:"recipientType"`
	Status        string    `json:"status"`
	Reply         string    `json:"reply"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// View is a Consultation joined with the counterpart users' display fields.
type View struct {
	Consultation
	StudentName     string  `json:"studentName,omitempty"`
	StudentEmail    string  `json:"studentEmail,omitempty"`
	ConsultantName  *string `json:"consultantName,omitempty"`
	ConsultantEmail *string `json:"consultantEmail,omitempty"`
}

// Stats are the per-student counts partitioned by status.
type Stats struct {
	TotalConsultations    int `json:"totalConsultations"`
	PendingRequests       int `json:"pendingRequests"`
	ApprovedConsultations int `json:"approvedConsultations"`
}

var (
	ErrNotFound   = errors.New("consultation not found")
	ErrNotPending = errors.New("consultation is no longer pending")
	ErrNoTeachers = errors.New("no teachers available")
)

type CreateRequest struct {
	Topic       string `json:"topic" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"required,min=1,max=2000"`
	// Defaults to Consultant when omitted.
	RecipientType string `json:"recipientType" binding:"omitempty,oneof=Consultant Teacher"`
}

type BroadcastRequest struct {
	Topic       string `json:"topic" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"required,min=1,max=2000"`
}

type UpdateDetailsRequest struct {
	Topic       string `json:"topic" binding:"required,min=1,max=200"`
	Description string `json:"description" binding:"required,min=1,max=2000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=Pending Approved Rejected"`
}

type UpdateStatusReplyRequest struct {
	Status string `json:"status" binding:"required,oneof=Pending Approved Rejected"`
	Reply  string `json:"reply" binding:"omitempty,max=2000"`
}
