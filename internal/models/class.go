package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClassStatus is the review state of a class. Only admins move it.
type ClassStatus string

const (
	ClassStatusPending  ClassStatus = "pending"
	ClassStatusApproved ClassStatus = "approved"
	ClassStatusDenied   ClassStatus = "denied"
)

// Valid reports whether s is a known status.
func (s ClassStatus) Valid() bool {
	switch s {
	case ClassStatusPending, ClassStatusApproved, ClassStatusDenied:
		return true
	}
	return false
}

// Class is a document in the classes collection. The enrollment counters are
// only changed by a recorded payment.
type Class struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	ClassName            string             `bson:"className" json:"className"`
	ClassImage           string             `bson:"classImage,omitempty" json:"classImage,omitempty"`
	InstructorName       string             `bson:"instructorName,omitempty" json:"instructorName,omitempty"`
	InstructorEmail      string             `bson:"instructorEmail" json:"instructorEmail"`
	AvailableSeat        int                `bson:"availableSeat" json:"availableSeat"`
	Price                float64            `bson:"price" json:"price"`
	Status               ClassStatus        `bson:"status" json:"status"`
	Feedback             string             `bson:"feedback,omitempty" json:"feedback,omitempty"`
	TotalEnrolledStudent int                `bson:"totalEnrolledStudent" json:"totalEnrolledStudent"`
	CreatedAt            time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// CreateClassRequest is the instructor payload for a new class.
type CreateClassRequest struct {
	ClassName       string  `json:"className" validate:"required,max=200"`
	ClassImage      string  `json:"classImage" validate:"omitempty,url"`
	InstructorName  string  `json:"instructorName" validate:"omitempty,max=120"`
	InstructorEmail string  `json:"instructorEmail" validate:"omitempty,email"`
	AvailableSeat   int     `json:"availableSeat" validate:"gte=0"`
	Price           float64 `json:"price" validate:"gte=0"`
}

// UpdateFeedbackRequest carries admin feedback for a class.
type UpdateFeedbackRequest struct {
	Feedback string `json:"feedback" validate:"max=2000"`
}
