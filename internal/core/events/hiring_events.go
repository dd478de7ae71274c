package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeServiceCreated    = "service.created"
	EventTypeServiceDeleted    = "service.deleted"
	EventTypeMembershipCreated = "membership.created"
	EventTypeMembershipRemoved = "membership.removed"
	EventTypeHireRequested     = "hire.requested"
	EventTypeHireApproved      = "hire.approved"
	EventTypeHireRejected      = "hire.rejected"
	EventTypeHireExpired       = "hire.expired"
)

type ServiceCreatedEvent struct {
	BaseEvent
	ServiceID     int64  `json:"service_id"`
	ServiceNumber string `json:"service_number"`
	OwnerID       int64  `json:"owner_id"`
}

func NewServiceCreatedEvent(serviceID int64, serviceNumber string, ownerID int64) *ServiceCreatedEvent {
	return &ServiceCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeServiceCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"service_id":     serviceID,
				"service_number": serviceNumber,
				"owner_id":       ownerID,
			},
		},
		ServiceID:     serviceID,
		ServiceNumber: serviceNumber,
		OwnerID:       ownerID,
	}
}

type MembershipCreatedEvent struct {
	BaseEvent
	MembershipID int64  `json:"membership_id"`
	ServiceID    int64  `json:"service_id"`
	UserID       int64  `json:"user_id"`
	Role         string `json:"role"`
	InvitedBy    int64  `json:"invited_by"`
}

func NewMembershipCreatedEvent(membershipID, serviceID, userID int64, role string, invitedBy int64) *MembershipCreatedEvent {
	return &MembershipCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeMembershipCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"membership_id": membershipID,
				"service_id":    serviceID,
				"user_id":       userID,
				"role":          role,
				"invited_by":    invitedBy,
			},
		},
		MembershipID: membershipID,
		ServiceID:    serviceID,
		UserID:       userID,
		Role:         role,
		InvitedBy:    invitedBy,
	}
}

type MembershipRemovedEvent struct {
	BaseEvent
	MembershipID int64 `json:"membership_id"`
	ServiceID    int64 `json:"service_id"`
	UserID       int64 `json:"user_id"`
}

func NewMembershipRemovedEvent(membershipID, serviceID, userID int64) *MembershipRemovedEvent {
	return &MembershipRemovedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeMembershipRemoved,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"membership_id": membershipID,
				"service_id":    serviceID,
				"user_id":       userID,
			},
		},
		MembershipID: membershipID,
		ServiceID:    serviceID,
		UserID:       userID,
	}
}

type HireDecisionEvent struct {
	BaseEvent
	EntryID     int64  `json:"entry_id"`
	CandidateID int64  `json:"candidate_id"`
	EmployerID  int64  `json:"employer_id"`
	ServiceID   int64  `json:"service_id"`
	Decision    string `json:"decision"`
}

func newHireDecisionEvent(eventType string, entryID, candidateID, employerID, serviceID int64, decision string) *HireDecisionEvent {
	return &HireDecisionEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"entry_id":     entryID,
				"candidate_id": candidateID,
				"employer_id":  employerID,
				"service_id":   serviceID,
				"decision":     decision,
			},
		},
		EntryID:     entryID,
		CandidateID: candidateID,
		EmployerID:  employerID,
		ServiceID:   serviceID,
		Decision:    decision,
	}
}

func NewHireApprovedEvent(entryID, candidateID, employerID, serviceID int64) *HireDecisionEvent {
	return newHireDecisionEvent(EventTypeHireApproved, entryID, candidateID, employerID, serviceID, "approved")
}

func NewHireRejectedEvent(entryID, candidateID, employerID, serviceID int64) *HireDecisionEvent {
	return newHireDecisionEvent(EventTypeHireRejected, entryID, candidateID, employerID, serviceID, "rejected")
}

type HireRequestedEvent struct {
	BaseEvent
	EntryID     int64 `json:"entry_id"`
	CandidateID int64 `json:"candidate_id"`
}

func NewHireRequestedEvent(entryID, candidateID int64) *HireRequestedEvent {
	return &HireRequestedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeHireRequested,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"entry_id":     entryID,
				"candidate_id": candidateID,
			},
		},
		EntryID:     entryID,
		CandidateID: candidateID,
	}
}

type HireExpiredEvent struct {
	BaseEvent
	ExpiredCount int64 `json:"expired_count"`
}

func NewHireExpiredEvent(expiredCount int64) *HireExpiredEvent {
	return &HireExpiredEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeHireExpired,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expired_count": expiredCount,
			},
		},
		ExpiredCount: expiredCount,
	}
}
