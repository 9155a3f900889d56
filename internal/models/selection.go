package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus tracks a selection through checkout.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusSuccessful PaymentStatus = "successful"
)

// StudentClassSelection is a document in the studentClasses collection. Its
// natural key (classId, studentEmail) is backed by a unique index.
type StudentClassSelection struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	ClassID         string             `bson:"classId" json:"classId"`
	StudentEmail    string             `bson:"studentEmail" json:"studentEmail"`
	ClassName       string             `bson:"className,omitempty" json:"className,omitempty"`
	ClassImage      string             `bson:"classImage,omitempty" json:"classImage,omitempty"`
	InstructorName  string             `bson:"instructorName,omitempty" json:"instructorName,omitempty"`
	InstructorEmail string             `bson:"instructorEmail,omitempty" json:"instructorEmail,omitempty"`
	Price           float64            `bson:"price" json:"price"`
	PaymentStatus   PaymentStatus      `bson:"paymentStatus" json:"paymentStatus"`
	PaymentDate     *time.Time         `bson:"paymentDate,omitempty" json:"paymentDate,omitempty"`
	TransactionID   string             `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	SelectedAt      time.Time          `bson:"selectedAt,omitempty" json:"selectedAt,omitempty"`
}

// SelectClassRequest is the student payload for picking a class.
type SelectClassRequest struct {
	ClassID string `json:"classId" validate:"required,len=24,hexadecimal"`
}

// PaymentDetails is what the client reports after the processor confirmed a
// charge.
type PaymentDetails struct {
	PaymentStatus PaymentStatus `json:"paymentStatus" validate:"omitempty,eq=successful"`
	PaymentDate   time.Time     `json:"paymentDate"`
	TransactionID string        `json:"transactionId" validate:"required,max=255"`
}

// PaymentIntentRequest asks for a processor client secret.
type PaymentIntentRequest struct {
	Price   float64 `json:"price" validate:"required,gt=0"`
	ClassID string  `json:"classId" validate:"omitempty,len=24,hexadecimal"`
}

// PaymentIntentResponse is returned to the checkout form.
type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// PaymentRecordResult summarises a payment-success call. AlreadyRecorded is
// set when the pair was already paid and nothing changed.
type PaymentRecordResult struct {
	ClassID         string `json:"classId"`
	StudentEmail    string `json:"studentEmail"`
	AlreadyRecorded bool   `json:"alreadyRecorded"`
	Created         bool   `json:"created"`
	SeatsLeft       *int   `json:"availableSeat,omitempty"`
	Enrolled        *int   `json:"totalEnrolledStudent,omitempty"`
}
