package hiring

import (
	"time"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/tenant"
)

const (
	StatusPending        = "pending"
	StatusWaitingForHire = "waiting_for_hire"
	StatusApproved       = "approved"
	StatusRejected       = "rejected"
	StatusExpired        = "expired"
)

// QRPayloadType is the only payload type the scanner accepts.
const QRPayloadType = "employee_hire"

// DefaultQueueTTL bounds how long an application stays actionable.
const DefaultQueueTTL = 24 * time.Hour

// QueueEntry is one hiring application. EmployerUserID and ServiceID are nil
// for general-queue entries until an employer claims them.
type QueueEntry struct {
	ID              int64             `json:"id" gorm:"primaryKey"`
	CandidateUserID int64             `json:"candidate_user_id"`
	EmployerUserID  *int64            `json:"employer_user_id,omitempty"`
	ServiceID       *int64            `json:"service_id,omitempty"`
	Role            tenant.TenantRole `json:"role"`
	Status          string            `json:"status"`
	QRData          *QRPayload        `json:"qr_data,omitempty" gorm:"serializer:json"`
	ScannedAt       *time.Time        `json:"scanned_at,omitempty"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
	ExpiresAt       time.Time         `json:"expires_at"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (QueueEntry) TableName() string {
	return "hiring_queue"
}

// IsOutstanding reports whether the entry can still be acted on (ignoring
// wall-clock expiry; see IsExpiredAt).
func (e *QueueEntry) IsOutstanding() bool {
	return e.Status == StatusPending || e.Status == StatusWaitingForHire
}

func (e *QueueEntry) IsTerminal() bool {
	return e.Status == StatusApproved || e.Status == StatusRejected || e.Status == StatusExpired
}

// IsExpiredAt reports an outstanding entry whose TTL has lapsed but which the
// sweeper has not visited yet. Treated exactly like a swept entry.
func (e *QueueEntry) IsExpiredAt(now time.Time) bool {
	return e.IsOutstanding() && now.After(e.ExpiresAt)
}

// QRPayload is the identity snapshot embedded in a hiring QR code. Timestamps
// are unix milliseconds, matching what the mini app encodes.
type QRPayload struct {
	Type         string `json:"type"`
	Version      int    `json:"version"`
	UserID       int64  `json:"userId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"languageCode,omitempty"`
	Timestamp    int64  `json:"timestamp"`
	Expires      int64  `json:"expires"`
}

// Validate checks the payload for a given scanner. Order matters: shape
// first, then freshness, then the self-hire guard.
func (p *QRPayload) Validate(scannerID int64, now time.Time) error {
	if p.Type != QRPayloadType {
		return internal.NewValidationError("unsupported QR payload type", internal.ErrCodeQrInvalid)
	}
	if p.UserID <= 0 {
		return internal.NewValidationError("QR payload is missing the candidate id", internal.ErrCodeQrInvalid)
	}
	if p.Expires > 0 && now.After(time.UnixMilli(p.Expires)) {
		return internal.ErrQrExpired
	}
	if p.UserID == scannerID {
		return internal.ErrSelfHireRejected
	}
	return nil
}
