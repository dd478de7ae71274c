package tenant_test

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/core/events"
	"github.com/frahmantamala/workshop-management/internal/tenant"
	"github.com/frahmantamala/workshop-management/internal/user"
)

// Mock repository for testing
type mockTenantRepository struct {
	services          map[int64]*tenant.Service
	servicesByNumber  map[string]*tenant.Service
	memberships       map[int64]*tenant.Membership
	nextServiceID     int64
	nextMembershipID  int64
	createServiceErr  error
	createMemberError error
}

func newMockTenantRepository() *mockTenantRepository {
	return &mockTenantRepository{
		services:         make(map[int64]*tenant.Service),
		servicesByNumber: make(map[string]*tenant.Service),
		memberships:      make(map[int64]*tenant.Membership),
		nextServiceID:    1,
		nextMembershipID: 1,
	}
}

func (m *mockTenantRepository) CreateService(svc *tenant.Service) error {
	if m.createServiceErr != nil {
		return m.createServiceErr
	}
	svc.ID = m.nextServiceID
	m.nextServiceID++
	m.services[svc.ID] = svc
	m.servicesByNumber[svc.ServiceNumber] = svc
	return nil
}

func (m *mockTenantRepository) GetServiceByID(id int64) (*tenant.Service, error) {
	svc, ok := m.services[id]
	if !ok {
		return nil, internal.ErrUnknownService
	}
	return svc, nil
}

func (m *mockTenantRepository) GetServiceByNumber(number string) (*tenant.Service, error) {
	svc, ok := m.servicesByNumber[number]
	if !ok {
		return nil, internal.ErrUnknownService
	}
	return svc, nil
}

func (m *mockTenantRepository) ListServicesByOwner(ownerID int64) ([]*tenant.Service, error) {
	var out []*tenant.Service
	for _, svc := range m.services {
		if svc.OwnerID == ownerID {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (m *mockTenantRepository) SaveService(svc *tenant.Service) error {
	m.services[svc.ID] = svc
	m.servicesByNumber[svc.ServiceNumber] = svc
	return nil
}

func (m *mockTenantRepository) DeleteService(id int64) error {
	if svc, ok := m.services[id]; ok {
		delete(m.servicesByNumber, svc.ServiceNumber)
		delete(m.services, id)
	}
	return nil
}

func (m *mockTenantRepository) CreateMembership(mem *tenant.Membership) error {
	if m.createMemberError != nil {
		return m.createMemberError
	}
	mem.ID = m.nextMembershipID
	m.nextMembershipID++
	m.memberships[mem.ID] = mem
	return nil
}

func (m *mockTenantRepository) GetMembershipByID(id int64) (*tenant.Membership, error) {
	mem, ok := m.memberships[id]
	if !ok {
		return nil, internal.ErrMembershipNotFound
	}
	return mem, nil
}

func (m *mockTenantRepository) GetActiveMembership(serviceID, userID int64) (*tenant.Membership, error) {
	for _, mem := range m.memberships {
		if mem.ServiceID == serviceID && mem.UserID == userID && mem.Status == tenant.MembershipStatusActive {
			return mem, nil
		}
	}
	return nil, internal.ErrMembershipNotFound
}

func (m *mockTenantRepository) SaveMembership(mem *tenant.Membership) error {
	m.memberships[mem.ID] = mem
	return nil
}

func (m *mockTenantRepository) DeleteMembership(id int64) error {
	delete(m.memberships, id)
	return nil
}

func (m *mockTenantRepository) ListMembershipsByService(serviceID int64) ([]*tenant.Membership, error) {
	var out []*tenant.Membership
	for _, mem := range m.memberships {
		if mem.ServiceID == serviceID {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *mockTenantRepository) ListMembershipsByUser(userID int64) ([]*tenant.Membership, error) {
	var out []*tenant.Membership
	for _, mem := range m.memberships {
		if mem.UserID == userID {
			out = append(out, mem)
		}
	}
	return out, nil
}

// Mock user directory tracking the per-user service sets
type mockUserDirectory struct {
	users map[int64]*user.User
}

func newMockUserDirectory() *mockUserDirectory {
	return &mockUserDirectory{users: make(map[int64]*user.User)}
}

func (m *mockUserDirectory) addUser(id int64) *user.User {
	u := &user.User{
		ID:                 id,
		FirstName:          fmt.Sprintf("user-%d", id),
		Role:               user.GlobalRoleUser,
		RegistrationStatus: user.RegistrationStatusUnregistered,
		OwnedServiceIDs:    []int64{},
		EmployeeServiceIDs: []int64{},
	}
	m.users[id] = u
	return u
}

func (m *mockUserDirectory) GetByID(id int64) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserDirectory) AddOwnedService(userID, serviceID int64) (*user.User, error) {
	u, err := m.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if !u.OwnsService(serviceID) {
		u.OwnedServiceIDs = append(u.OwnedServiceIDs, serviceID)
	}
	u.ActiveServiceID = &serviceID
	return u, nil
}

func (m *mockUserDirectory) RemoveOwnedService(userID, serviceID int64) error {
	u, err := m.GetByID(userID)
	if err != nil {
		return err
	}
	out := u.OwnedServiceIDs[:0]
	for _, id := range u.OwnedServiceIDs {
		if id != serviceID {
			out = append(out, id)
		}
	}
	u.OwnedServiceIDs = out
	return nil
}

func (m *mockUserDirectory) AddEmployeeService(userID, serviceID int64) error {
	u, err := m.GetByID(userID)
	if err != nil {
		return err
	}
	if !u.WorksAtService(serviceID) {
		u.EmployeeServiceIDs = append(u.EmployeeServiceIDs, serviceID)
	}
	return nil
}

func (m *mockUserDirectory) RemoveEmployeeService(userID, serviceID int64) error {
	u, err := m.GetByID(userID)
	if err != nil {
		return err
	}
	out := u.EmployeeServiceIDs[:0]
	for _, id := range u.EmployeeServiceIDs {
		if id != serviceID {
			out = append(out, id)
		}
	}
	u.EmployeeServiceIDs = out
	return nil
}

func (m *mockUserDirectory) SetRegistrationStatus(userID int64, status user.RegistrationStatus, activeServiceID *int64) error {
	u, err := m.GetByID(userID)
	if err != nil {
		return err
	}
	u.RegistrationStatus = status
	if activeServiceID != nil {
		u.ActiveServiceID = activeServiceID
	}
	return nil
}

func (m *mockUserDirectory) SetGlobalRole(userID int64, role user.GlobalRole) error {
	u, err := m.GetByID(userID)
	if err != nil {
		return err
	}
	u.Role = role
	return nil
}

var _ = Describe("Directory", func() {
	var (
		directory *tenant.Directory
		repo      *mockTenantRepository
		users     *mockUserDirectory
	)

	BeforeEach(func() {
		repo = newMockTenantRepository()
		users = newMockUserDirectory()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		directory = tenant.NewDirectory(repo, users, events.NewEventBus(logger), logger)
	})

	Describe("CreateService", func() {
		Context("when an unregistered user creates their first service", func() {
			It("should register, promote and activate the owner", func() {
				// Given
				owner := users.addUser(100)
				dto := tenant.CreateServiceDTO{ServiceNumber: "1042", Name: "Fast Lane Garage"}

				// When
				svc, err := directory.CreateService(owner.ID, dto)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(svc.ID).ToNot(BeZero())
				Expect(svc.OwnerID).To(Equal(owner.ID))
				Expect(svc.Status).To(Equal(tenant.ServiceStatusActive))

				Expect(owner.OwnedServiceIDs).To(ContainElement(svc.ID))
				Expect(owner.RegistrationStatus).To(Equal(user.RegistrationStatusRegistered))
				Expect(owner.Role).To(Equal(user.GlobalRoleAdmin))
				Expect(owner.ActiveServiceID).ToNot(BeNil())
				Expect(*owner.ActiveServiceID).To(Equal(svc.ID))
			})
		})

		Context("when the service number is already taken", func() {
			It("should fail with a duplicate error and leave the existing record alone", func() {
				// Given
				first := users.addUser(100)
				other := users.addUser(200)
				_, err := directory.CreateService(first.ID, tenant.CreateServiceDTO{ServiceNumber: "1042", Name: "First"})
				Expect(err).ToNot(HaveOccurred())

				// When
				_, err = directory.CreateService(other.ID, tenant.CreateServiceDTO{ServiceNumber: "1042", Name: "Second"})

				// Then
				Expect(err).To(MatchError(internal.ErrDuplicateServiceNumber))
				svc, err := directory.GetServiceByNumber("1042")
				Expect(err).ToNot(HaveOccurred())
				Expect(svc.Name).To(Equal("First"))
				Expect(other.OwnedServiceIDs).To(BeEmpty())
			})
		})

		Context("when the second service is created by the same owner", func() {
			It("should not re-run the first-service promotion", func() {
				owner := users.addUser(100)
				_, err := directory.CreateService(owner.ID, tenant.CreateServiceDTO{ServiceNumber: "1", Name: "One"})
				Expect(err).ToNot(HaveOccurred())

				owner.Role = user.GlobalRoleUser // simulate a later demotion

				_, err = directory.CreateService(owner.ID, tenant.CreateServiceDTO{ServiceNumber: "2", Name: "Two"})
				Expect(err).ToNot(HaveOccurred())
				Expect(owner.Role).To(Equal(user.GlobalRoleUser))
			})
		})

		Context("when the payload is invalid", func() {
			It("should reject a non-numeric service number", func() {
				owner := users.addUser(100)

				_, err := directory.CreateService(owner.ID, tenant.CreateServiceDTO{ServiceNumber: "abc", Name: "X"})

				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
			})
		})
	})

	Describe("AddMembership", func() {
		var (
			owner *user.User
			hired *user.User
			svc   *tenant.Service
		)

		BeforeEach(func() {
			owner = users.addUser(100)
			hired = users.addUser(200)
			var err error
			svc, err = directory.CreateService(owner.ID, tenant.CreateServiceDTO{ServiceNumber: "1042", Name: "Garage"})
			Expect(err).ToNot(HaveOccurred())
		})

		Context("when hiring a new employee", func() {
			It("should create an active membership with the default permission set", func() {
				m, err := directory.AddMembership(svc.ID, hired.ID, "", &owner.ID, nil)

				Expect(err).ToNot(HaveOccurred())
				Expect(m.Role).To(Equal(tenant.RoleEmployee))
				Expect(m.Status).To(Equal(tenant.MembershipStatusActive))
				Expect(m.Permissions).To(Equal(tenant.DefaultEmployeePermissions()))
				Expect(hired.EmployeeServiceIDs).To(ContainElement(svc.ID))
			})
		})

		Context("when the employee is already hired", func() {
			It("should return the existing membership unchanged", func() {
				first, err := directory.AddMembership(svc.ID, hired.ID, tenant.RoleEmployee, &owner.ID, nil)
				Expect(err).ToNot(HaveOccurred())

				second, err := directory.AddMembership(svc.ID, hired.ID, tenant.RoleManager, &owner.ID, nil)

				Expect(err).ToNot(HaveOccurred())
				Expect(second.ID).To(Equal(first.ID))
				Expect(second.Role).To(Equal(tenant.RoleEmployee))
				Expect(len(repo.memberships)).To(Equal(1))
			})
		})

		Context("when the service does not exist", func() {
			It("should fail with unknown service", func() {
				_, err := directory.AddMembership(9999, hired.ID, tenant.RoleEmployee, &owner.ID, nil)

				Expect(err).To(MatchError(internal.ErrUnknownService))
			})
		})
	})

	Describe("RemoveMembership", func() {
		It("should delete the row and strip the user's employee set", func() {
			owner := users.addUser(100)
			hired := users.addUser(200)
			svc, err := directory.CreateService(owner.ID, tenant.CreateServiceDTO{ServiceNumber: "1042", Name: "Garage"})
			Expect(err).ToNot(HaveOccurred())
			m, err := directory.AddMembership(svc.ID, hired.ID, tenant.RoleEmployee, &owner.ID, nil)
			Expect(err).ToNot(HaveOccurred())

			Expect(directory.RemoveMembership(owner.ID, m.ID)).To(Succeed())

			Expect(hired.EmployeeServiceIDs).ToNot(ContainElement(svc.ID))
			_, err = directory.ActiveMembership(svc.ID, hired.ID)
			Expect(err).To(MatchError(internal.ErrMembershipNotFound))
		})

		It("should fail with not-found for an unknown membership", func() {
			owner := users.addUser(100)

			err := directory.RemoveMembership(owner.ID, 424242)

			Expect(err).To(MatchError(internal.ErrMembershipNotFound))
		})

		It("should allow a manager to remove an employee", func() {
			owner := users.addUser(100)
			manager := users.addUser(200)
			hired := users.addUser(300)
			svc, err := directory.CreateService(owner.ID, tenant.CreateServiceDTO{ServiceNumber: "1042", Name: "Garage"})
			Expect(err).ToNot(HaveOccurred())
			_, err = directory.AddMembership(svc.ID, manager.ID, tenant.RoleManager, &owner.ID, nil)
			Expect(err).ToNot(HaveOccurred())
			m, err := directory.AddMembership(svc.ID, hired.ID, tenant.RoleEmployee, &owner.ID, nil)
			Expect(err).ToNot(HaveOccurred())

			Expect(directory.RemoveMembership(manager.ID, m.ID)).To(Succeed())

			Expect(hired.EmployeeServiceIDs).ToNot(ContainElement(svc.ID))
		})

		It("should deny a non-owner", func() {
			owner := users.addUser(100)
			hired := users.addUser(200)
			stranger := users.addUser(300)
			svc, err := directory.CreateService(owner.ID, tenant.CreateServiceDTO{ServiceNumber: "1042", Name: "Garage"})
			Expect(err).ToNot(HaveOccurred())
			m, err := directory.AddMembership(svc.ID, hired.ID, tenant.RoleEmployee, &owner.ID, nil)
			Expect(err).ToNot(HaveOccurred())

			err = directory.RemoveMembership(stranger.ID, m.ID)

			Expect(err).To(MatchError(internal.ErrPermissionDenied))
		})
	})

	Describe("DeleteService", func() {
		It("should cascade: memberships deleted, employee sets stripped, ownership removed", func() {
			owner := users.addUser(100)
			hired := users.addUser(200)
			svc, err := directory.CreateService(owner.ID, tenant.CreateServiceDTO{ServiceNumber: "1042", Name: "Garage"})
			Expect(err).ToNot(HaveOccurred())
			_, err = directory.AddMembership(svc.ID, hired.ID, tenant.RoleEmployee, &owner.ID, nil)
			Expect(err).ToNot(HaveOccurred())

			Expect(directory.DeleteService(owner.ID, svc.ID)).To(Succeed())

			Expect(owner.OwnedServiceIDs).ToNot(ContainElement(svc.ID))
			Expect(hired.EmployeeServiceIDs).ToNot(ContainElement(svc.ID))
			Expect(repo.memberships).To(BeEmpty())
			_, err = directory.GetService(svc.ID)
			Expect(err).To(MatchError(internal.ErrUnknownService))
		})
	})

	Describe("UpdateMembership", func() {
		It("should merge role, permissions and status", func() {
			owner := users.addUser(100)
			hired := users.addUser(200)
			svc, err := directory.CreateService(owner.ID, tenant.CreateServiceDTO{ServiceNumber: "1042", Name: "Garage"})
			Expect(err).ToNot(HaveOccurred())
			m, err := directory.AddMembership(svc.ID, hired.ID, tenant.RoleEmployee, &owner.ID, nil)
			Expect(err).ToNot(HaveOccurred())

			role := string(tenant.RoleManager)
			perms := []string{tenant.CapViewOrders}
			updated, err := directory.UpdateMembership(owner.ID, m.ID, tenant.UpdateMembershipDTO{
				Role:        &role,
				Permissions: &perms,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Role).To(Equal(tenant.RoleManager))
			Expect(updated.Permissions).To(Equal(perms))
		})

		It("should allow a manager to change an employee's permissions", func() {
			owner := users.addUser(100)
			manager := users.addUser(200)
			hired := users.addUser(300)
			svc, err := directory.CreateService(owner.ID, tenant.CreateServiceDTO{ServiceNumber: "1042", Name: "Garage"})
			Expect(err).ToNot(HaveOccurred())
			_, err = directory.AddMembership(svc.ID, manager.ID, tenant.RoleManager, &owner.ID, nil)
			Expect(err).ToNot(HaveOccurred())
			m, err := directory.AddMembership(svc.ID, hired.ID, tenant.RoleEmployee, &owner.ID, nil)
			Expect(err).ToNot(HaveOccurred())

			perms := []string{tenant.CapViewOrders, tenant.CapViewAnalytics}
			updated, err := directory.UpdateMembership(manager.ID, m.ID, tenant.UpdateMembershipDTO{
				Permissions: &perms,
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Permissions).To(Equal(perms))
		})

		It("should deny an employee without the manage_employees grant", func() {
			owner := users.addUser(100)
			worker := users.addUser(200)
			colleague := users.addUser(300)
			svc, err := directory.CreateService(owner.ID, tenant.CreateServiceDTO{ServiceNumber: "1042", Name: "Garage"})
			Expect(err).ToNot(HaveOccurred())
			_, err = directory.AddMembership(svc.ID, worker.ID, tenant.RoleEmployee, &owner.ID, nil)
			Expect(err).ToNot(HaveOccurred())
			m, err := directory.AddMembership(svc.ID, colleague.ID, tenant.RoleEmployee, &owner.ID, nil)
			Expect(err).ToNot(HaveOccurred())

			role := string(tenant.RoleManager)
			_, err = directory.UpdateMembership(worker.ID, m.ID, tenant.UpdateMembershipDTO{Role: &role})

			Expect(err).To(MatchError(internal.ErrPermissionDenied))
		})
	})

	Describe("GetServiceFor", func() {
		var (
			owner *user.User
			hired *user.User
			svc   *tenant.Service
		)

		BeforeEach(func() {
			owner = users.addUser(100)
			hired = users.addUser(200)
			var err error
			svc, err = directory.CreateService(owner.ID, tenant.CreateServiceDTO{ServiceNumber: "1042", Name: "Garage"})
			Expect(err).ToNot(HaveOccurred())
			_, err = directory.AddMembership(svc.ID, hired.ID, tenant.RoleEmployee, &owner.ID, nil)
			Expect(err).ToNot(HaveOccurred())
		})

		It("should return the record to the owner and to members", func() {
			got, err := directory.GetServiceFor(owner.ID, svc.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(got.ID).To(Equal(svc.ID))

			got, err = directory.GetServiceFor(hired.ID, svc.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(got.ID).To(Equal(svc.ID))
		})

		It("should answer an unrelated user exactly like a missing id", func() {
			stranger := users.addUser(300)

			_, knownErr := directory.GetServiceFor(stranger.ID, svc.ID)
			_, missErr := directory.GetServiceFor(stranger.ID, 424242)

			Expect(knownErr).To(MatchError(internal.ErrUnknownService))
			Expect(missErr).To(MatchError(internal.ErrUnknownService))
		})
	})
})

var _ = Describe("Membership", func() {
	It("should report permissions from its set", func() {
		m := &tenant.Membership{Permissions: []string{tenant.CapViewOrders}}

		Expect(m.HasPermission(tenant.CapViewOrders)).To(BeTrue())
		Expect(m.HasPermission(tenant.CapDeleteOrders)).To(BeFalse())
	})
})

var _ = Describe("Service round trip", func() {
	It("should read back exactly what was registered", func() {
		repo := newMockTenantRepository()
		users := newMockUserDirectory()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		directory := tenant.NewDirectory(repo, users, events.NewEventBus(logger), logger)
		owner := users.addUser(100)

		created, err := directory.CreateService(owner.ID, tenant.CreateServiceDTO{
			ServiceNumber: "777",
			Name:          "Turbo Works",
			Address:       "12 Piston Road",
		})
		Expect(err).ToNot(HaveOccurred())

		byID, err := directory.GetService(created.ID)
		Expect(err).ToNot(HaveOccurred())
		byNumber, err := directory.GetServiceByNumber("777")
		Expect(err).ToNot(HaveOccurred())

		Expect(byID).To(Equal(created))
		Expect(byNumber).To(Equal(created))
		Expect(byID.Address).To(Equal("12 Piston Road"))
	})
})

var _ = Describe("single active membership", func() {
	It("should never produce two active rows for the same (service, user)", func() {
		repo := newMockTenantRepository()
		users := newMockUserDirectory()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		directory := tenant.NewDirectory(repo, users, events.NewEventBus(logger), logger)
		owner := users.addUser(100)
		hired := users.addUser(200)
		svc, err := directory.CreateService(owner.ID, tenant.CreateServiceDTO{ServiceNumber: "1", Name: "G"})
		Expect(err).ToNot(HaveOccurred())

		for i := 0; i < 5; i++ {
			_, err := directory.AddMembership(svc.ID, hired.ID, tenant.RoleEmployee, &owner.ID, nil)
			Expect(err).ToNot(HaveOccurred())
		}

		active := 0
		for _, m := range repo.memberships {
			if m.ServiceID == svc.ID && m.UserID == hired.ID && m.Status == tenant.MembershipStatusActive {
				active++
			}
		}
		Expect(active).To(Equal(1))
	})
})

var _ = Describe("time stamps", func() {
	It("should set JoinedAt on hire", func() {
		repo := newMockTenantRepository()
		users := newMockUserDirectory()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		directory := tenant.NewDirectory(repo, users, events.NewEventBus(logger), logger)
		owner := users.addUser(100)
		hired := users.addUser(200)
		svc, err := directory.CreateService(owner.ID, tenant.CreateServiceDTO{ServiceNumber: "1", Name: "G"})
		Expect(err).ToNot(HaveOccurred())

		before := time.Now()
		m, err := directory.AddMembership(svc.ID, hired.ID, tenant.RoleEmployee, &owner.ID, nil)
		Expect(err).ToNot(HaveOccurred())

		Expect(m.JoinedAt).To(BeTemporally(">=", before.Add(-time.Second)))
	})
})
