package hiring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/core/events"
	"github.com/frahmantamala/workshop-management/internal/core/keymutex"
	"github.com/frahmantamala/workshop-management/internal/tenant"
	"github.com/frahmantamala/workshop-management/internal/user"
)

// Repository defines the data access methods for the hiring queue.
type Repository interface {
	Create(entry *QueueEntry) error
	GetByID(id int64) (*QueueEntry, error)
	GetOutstandingByCandidate(candidateID int64) (*QueueEntry, error)
	// UpdateStatusGuarded flips an outstanding entry into a terminal state.
	// Returns false when the entry was no longer outstanding, so a racing
	// resolve or sweep cannot be clobbered.
	UpdateStatusGuarded(id int64, status string, employerID *int64, processedAt time.Time) (bool, error)
	// ApproveTx performs the whole approval side effect atomically: the
	// guarded status flip, the membership row and the candidate update
	// commit together or not at all. membership may be nil when the
	// candidate already holds one.
	ApproveTx(entry *QueueEntry, membership *tenant.Membership, candidate *user.User) error
	ListForEmployer(employerID int64, now time.Time) ([]*QueueEntry, error)
	ListByCandidate(candidateID int64) ([]*QueueEntry, error)
	CountForEmployer(employerID int64) (map[string]int64, error)
	ExpireOutstanding(now time.Time) (int64, error)
}

// UserDirectory is the slice of the user service the coordinator needs.
type UserDirectory interface {
	GetByID(id int64) (*user.User, error)
	Upsert(claims user.IdentityClaims) (*user.User, error)
	SetRegistrationStatus(userID int64, status user.RegistrationStatus, activeServiceID *int64) error
}

// TenantDirectory resolves services and existing memberships.
type TenantDirectory interface {
	GetService(id int64) (*tenant.Service, error)
	ActiveMembership(serviceID, userID int64) (*tenant.Membership, error)
}

// Service coordinates the hiring queue state machine and the onboarding side
// effects of an approval.
type Service struct {
	repo      Repository
	users     UserDirectory
	directory TenantDirectory
	eventBus  *events.EventBus
	locks     *keymutex.KeyMutex
	queueTTL  time.Duration
	logger    *slog.Logger
}

func NewService(repo Repository, users UserDirectory, directory TenantDirectory, eventBus *events.EventBus, queueTTL time.Duration, logger *slog.Logger) *Service {
	if queueTTL <= 0 {
		queueTTL = DefaultQueueTTL
	}
	return &Service{
		repo:      repo,
		users:     users,
		directory: directory,
		eventBus:  eventBus,
		locks:     keymutex.New(),
		queueTTL:  queueTTL,
		logger:    logger,
	}
}

// RequestGeneralHire puts the candidate on the general queue, visible to
// every employer. One outstanding application per candidate.
func (s *Service) RequestGeneralHire(candidateID int64) (*QueueEntry, error) {
	unlock := s.locks.Lock(candidateKey(candidateID))
	defer unlock()

	candidate, err := s.users.GetByID(candidateID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.outstandingFor(candidateID); err != nil {
		return nil, err
	} else if existing != nil {
		s.logger.Warn("duplicate hire application", "candidate_id", candidateID, "entry_id", existing.ID)
		return nil, internal.ErrDuplicateApplication
	}

	now := time.Now()
	entry := &QueueEntry{
		CandidateUserID: candidateID,
		Role:            tenant.RoleEmployee,
		Status:          StatusWaitingForHire,
		QRData:          snapshotOf(candidate, now, s.queueTTL),
		ExpiresAt:       now.Add(s.queueTTL),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(entry); err != nil {
		s.logger.Error("failed to create queue entry", "error", err, "candidate_id", candidateID)
		return nil, err
	}

	if err := s.users.SetRegistrationStatus(candidateID, user.RegistrationStatusWaitingForHire, nil); err != nil {
		s.logger.Error("failed to mark candidate waiting for hire", "error", err, "candidate_id", candidateID)
		return nil, err
	}

	s.logger.Info("hire requested", "entry_id", entry.ID, "candidate_id", candidateID)
	s.eventBus.Publish(context.Background(), events.NewHireRequestedEvent(entry.ID, candidateID))

	return entry, nil
}

// ScanAndHire is the directed fast path: an owner scans a candidate's QR code
// and the hire completes in one step. An outstanding general application is
// claimed instead of duplicated.
func (s *Service) ScanAndHire(scannerID int64, dto ScanDTO) (*QueueEntry, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := dto.Payload.Validate(scannerID, now); err != nil {
		return nil, err
	}

	scanner, err := s.users.GetByID(scannerID)
	if err != nil {
		return nil, err
	}
	if !scanner.OwnsService(dto.ServiceID) {
		return nil, internal.ErrPermissionDenied
	}

	// The QR snapshot is a full identity assertion; it also covers
	// candidates who never opened the app against this backend.
	candidate, err := s.users.Upsert(user.IdentityClaims{
		ID:           dto.Payload.UserID,
		FirstName:    dto.Payload.FirstName,
		LastName:     dto.Payload.LastName,
		Username:     dto.Payload.Username,
		LanguageCode: dto.Payload.LanguageCode,
	})
	if err != nil {
		return nil, err
	}

	role := tenant.TenantRole(dto.Role)
	if role == "" {
		role = tenant.RoleEmployee
	}

	unlock := s.locks.Lock(candidateKey(candidate.ID))
	defer unlock()

	entry, err := s.outstandingFor(candidate.ID)
	if err != nil {
		return nil, err
	}
	if entry != nil && entry.IsExpiredAt(now) {
		// A lapsed application the sweeper has not visited yet. Retire it
		// so the scan starts from a fresh entry instead of approving one
		// that is already past its TTL.
		if _, err := s.repo.UpdateStatusGuarded(entry.ID, StatusExpired, nil, now); err != nil {
			s.logger.Error("failed to expire stale queue entry", "error", err, "entry_id", entry.ID)
			return nil, err
		}
		entry = nil
	}
	if entry == nil {
		entry = &QueueEntry{
			CandidateUserID: candidate.ID,
			EmployerUserID:  &scannerID,
			ServiceID:       &dto.ServiceID,
			Role:            role,
			Status:          StatusPending,
			QRData:          &dto.Payload,
			ScannedAt:       &now,
			ExpiresAt:       now.Add(s.queueTTL),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.repo.Create(entry); err != nil {
			s.logger.Error("failed to create directed queue entry", "error", err, "candidate_id", candidate.ID)
			return nil, err
		}
	} else {
		entry.ScannedAt = &now
	}

	if err := s.approve(entry, scannerID, dto.ServiceID, role, candidate); err != nil {
		return nil, err
	}

	s.logger.Info("candidate hired via scan",
		"entry_id", entry.ID,
		"candidate_id", candidate.ID,
		"service_id", dto.ServiceID,
		"employer_id", scannerID)

	return entry, nil
}

// Approve resolves an entry in the candidate's favor.
func (s *Service) Approve(actorID, entryID int64, dto ResolveDTO) (*QueueEntry, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(entryKey(entryID))
	defer unlock()

	entry, serviceID, err := s.loadForResolve(actorID, entryID, dto.ServiceID, true)
	if err != nil {
		return nil, err
	}

	role := tenant.TenantRole(dto.Role)
	if role == "" {
		role = entry.Role
	}
	if role == "" {
		role = tenant.RoleEmployee
	}

	candidate, err := s.users.GetByID(entry.CandidateUserID)
	if err != nil {
		return nil, err
	}

	if err := s.approve(entry, actorID, serviceID, role, candidate); err != nil {
		return nil, err
	}

	s.logger.Info("hire approved",
		"entry_id", entry.ID,
		"candidate_id", entry.CandidateUserID,
		"service_id", serviceID,
		"employer_id", actorID)

	return entry, nil
}

// Reject resolves an entry against the candidate. Terminal; the candidate
// may apply again afterwards.
func (s *Service) Reject(actorID, entryID int64, dto ResolveDTO) (*QueueEntry, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(entryKey(entryID))
	defer unlock()

	entry, _, err := s.loadForResolve(actorID, entryID, dto.ServiceID, false)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	flipped, err := s.repo.UpdateStatusGuarded(entry.ID, StatusRejected, &actorID, now)
	if err != nil {
		s.logger.Error("failed to reject queue entry", "error", err, "entry_id", entry.ID)
		return nil, err
	}
	if !flipped {
		return nil, internal.ErrAlreadyProcessed
	}
	entry.Status = StatusRejected
	entry.EmployerUserID = &actorID
	entry.ProcessedAt = &now

	candidate, err := s.users.GetByID(entry.CandidateUserID)
	if err == nil && candidate.RegistrationStatus == user.RegistrationStatusWaitingForHire {
		// Restore the status the candidate held before applying; a service
		// owner or employee elsewhere does not drop to unregistered.
		restored := user.RegistrationStatusUnregistered
		switch {
		case len(candidate.OwnedServiceIDs) > 0:
			restored = user.RegistrationStatusRegistered
		case len(candidate.EmployeeServiceIDs) > 0:
			restored = user.RegistrationStatusEmployee
		}
		if err := s.users.SetRegistrationStatus(candidate.ID, restored, nil); err != nil {
			s.logger.Error("failed to reset candidate status", "error", err, "candidate_id", candidate.ID)
		}
	}

	var serviceID int64
	if entry.ServiceID != nil {
		serviceID = *entry.ServiceID
	}
	s.logger.Info("hire rejected", "entry_id", entry.ID, "candidate_id", entry.CandidateUserID, "employer_id", actorID)
	s.eventBus.Publish(context.Background(), events.NewHireRejectedEvent(entry.ID, entry.CandidateUserID, actorID, serviceID))

	return entry, nil
}

// EmployerQueue lists general entries plus entries directed at employerID,
// newest first, excluding expired ones.
func (s *Service) EmployerQueue(employerID int64) ([]*QueueEntry, error) {
	return s.repo.ListForEmployer(employerID, time.Now())
}

// CandidateApplications lists all of the candidate's entries, newest first.
func (s *Service) CandidateApplications(candidateID int64) ([]*QueueEntry, error) {
	return s.repo.ListByCandidate(candidateID)
}

func (s *Service) QueueStats(employerID int64) (*QueueStatsDTO, error) {
	counts, err := s.repo.CountForEmployer(employerID)
	if err != nil {
		return nil, err
	}

	stats := &QueueStatsDTO{
		Pending:        counts[StatusPending],
		WaitingForHire: counts[StatusWaitingForHire],
		Approved:       counts[StatusApproved],
		Rejected:       counts[StatusRejected],
		Expired:        counts[StatusExpired],
	}
	stats.Total = stats.Pending + stats.WaitingForHire + stats.Approved + stats.Rejected + stats.Expired
	return stats, nil
}

// SweepExpired flips every outstanding entry past its TTL to expired. The
// update is guarded by the status predicate, so a resolve that wins the race
// is left alone.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	count, err := s.repo.ExpireOutstanding(time.Now())
	if err != nil {
		s.logger.Error("expiry sweep failed", "error", err)
		return 0, err
	}
	if count > 0 {
		s.logger.Info("expired stale queue entries", "count", count)
		s.eventBus.Publish(ctx, events.NewHireExpiredEvent(count))
	}
	return count, nil
}

// loadForResolve fetches the entry and applies the state and authorization
// checks shared by Approve and Reject. The target service id is resolved for
// approvals; rejection of a general entry only requires the actor to be an
// owner at all (forApproval=false leaves serviceID at 0 in that case).
func (s *Service) loadForResolve(actorID, entryID int64, requestedServiceID *int64, forApproval bool) (*QueueEntry, int64, error) {
	entry, err := s.repo.GetByID(entryID)
	if err != nil {
		return nil, 0, err
	}

	if entry.IsTerminal() {
		return nil, 0, internal.ErrAlreadyProcessed
	}
	if entry.IsExpiredAt(time.Now()) {
		return nil, 0, internal.ErrQueueEntryExpired
	}

	if entry.EmployerUserID != nil && *entry.EmployerUserID != actorID {
		return nil, 0, internal.ErrPermissionDenied
	}

	actor, err := s.users.GetByID(actorID)
	if err != nil {
		return nil, 0, err
	}

	var serviceID int64
	switch {
	case entry.ServiceID != nil:
		serviceID = *entry.ServiceID
	case requestedServiceID != nil:
		serviceID = *requestedServiceID
	case forApproval:
		return nil, 0, internal.NewValidationFieldError("service_id", "service_id is required for general queue entries", internal.ErrCodeValidationFailed)
	default:
		if len(actor.OwnedServiceIDs) == 0 {
			return nil, 0, internal.ErrPermissionDenied
		}
		return entry, 0, nil
	}

	if !actor.OwnsService(serviceID) {
		return nil, 0, internal.ErrPermissionDenied
	}

	return entry, serviceID, nil
}

// approve commits the approval side effects atomically: the entry flips to
// approved, the membership row appears and the candidate becomes an employee
// in one transaction.
func (s *Service) approve(entry *QueueEntry, employerID, serviceID int64, role tenant.TenantRole, candidate *user.User) error {
	if _, err := s.directory.GetService(serviceID); err != nil {
		return err
	}

	now := time.Now()
	entry.Status = StatusApproved
	entry.EmployerUserID = &employerID
	entry.ServiceID = &serviceID
	entry.Role = role
	entry.ProcessedAt = &now
	entry.UpdatedAt = now

	// Hiring an existing employee again is a no-op on the membership row.
	var membership *tenant.Membership
	if _, err := s.directory.ActiveMembership(serviceID, candidate.ID); err != nil {
		if appErr, ok := internal.IsAppError(err); !ok || appErr.Code != internal.ErrCodeMembershipNotFound {
			return err
		}
		membership = &tenant.Membership{
			ServiceID:   serviceID,
			UserID:      candidate.ID,
			Role:        role,
			Permissions: tenant.DefaultEmployeePermissions(),
			Status:      tenant.MembershipStatusActive,
			InvitedBy:   &employerID,
			JoinedAt:    now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	if !candidate.WorksAtService(serviceID) {
		candidate.EmployeeServiceIDs = append(candidate.EmployeeServiceIDs, serviceID)
	}
	candidate.RegistrationStatus = user.RegistrationStatusEmployee
	candidate.ActiveServiceID = &serviceID
	candidate.UpdatedAt = now

	if err := s.repo.ApproveTx(entry, membership, candidate); err != nil {
		s.logger.Error("failed to commit hire approval", "error", err, "entry_id", entry.ID)
		return err
	}

	s.eventBus.Publish(context.Background(), events.NewHireApprovedEvent(entry.ID, candidate.ID, employerID, serviceID))
	if membership != nil {
		s.eventBus.Publish(context.Background(), events.NewMembershipCreatedEvent(membership.ID, serviceID, candidate.ID, string(role), employerID))
	}
	return nil
}

// outstandingFor maps not-found to nil so call sites read naturally.
func (s *Service) outstandingFor(candidateID int64) (*QueueEntry, error) {
	entry, err := s.repo.GetOutstandingByCandidate(candidateID)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok && appErr.Code == internal.ErrCodeQueueEntryNotFound {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

func snapshotOf(u *user.User, now time.Time, ttl time.Duration) *QRPayload {
	return &QRPayload{
		Type:         QRPayloadType,
		Version:      1,
		UserID:       u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Username:     u.Username,
		LanguageCode: u.LanguageCode,
		Timestamp:    now.UnixMilli(),
		Expires:      now.Add(ttl).UnixMilli(),
	}
}

func candidateKey(id int64) string {
	return fmt.Sprintf("candidate:%d", id)
}

func entryKey(id int64) string {
	return fmt.Sprintf("entry:%d", id)
}
