package user_test

import (
	"io"
	"log/slog"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/user"
)

type mockUserRepository struct {
	users map[int64]*user.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[int64]*user.User)}
}

func (m *mockUserRepository) GetByID(id int64) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepository) Create(u *user.User) error {
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepository) Save(u *user.User) error {
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

var _ = Describe("User Service", func() {
	var (
		repo    *mockUserRepository
		service *user.Service
	)

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	claims := user.IdentityClaims{
		ID:           42,
		FirstName:    "Marta",
		LastName:     "Kovac",
		Username:     "martak",
		LanguageCode: "de",
	}

	BeforeEach(func() {
		repo = newMockUserRepository()
		service = user.NewService(repo, testLogger)
	})

	Describe("Upsert", func() {
		Context("when the user has never been seen", func() {
			It("should create the user with default server-side state", func() {
				// When: a first authenticated contact happens
				u, err := service.Upsert(claims)

				// Then: a fresh record with defaults is stored
				Expect(err).ToNot(HaveOccurred())
				Expect(u.ID).To(Equal(int64(42)))
				Expect(u.FirstName).To(Equal("Marta"))
				Expect(u.Role).To(Equal(user.GlobalRoleUser))
				Expect(u.RegistrationStatus).To(Equal(user.RegistrationStatusUnregistered))
				Expect(u.OwnedServiceIDs).To(BeEmpty())
				Expect(u.EmployeeServiceIDs).To(BeEmpty())
				Expect(u.ActiveServiceID).To(BeNil())
			})

			It("should reject a non-positive user id", func() {
				_, err := service.Upsert(user.IdentityClaims{ID: 0, FirstName: "Ghost"})

				Expect(err).To(HaveOccurred())
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidID))
			})
		})

		Context("when the user already exists", func() {
			BeforeEach(func() {
				_, err := service.Upsert(claims)
				Expect(err).ToNot(HaveOccurred())

				// Given: the record has accumulated server-side state since
				Expect(service.SetGlobalRole(42, user.GlobalRoleModerator)).To(Succeed())
				_, err = service.AddOwnedService(42, 7)
				Expect(err).ToNot(HaveOccurred())
				Expect(service.AddEmployeeService(42, 9)).To(Succeed())
				Expect(service.SetRegistrationStatus(42, user.RegistrationStatusRegistered, nil)).To(Succeed())
			})

			It("should refresh profile fields and keep server-side state", func() {
				// When: the same user re-identifies with a changed profile
				updated := claims
				updated.FirstName = "Marta-Renamed"
				updated.Username = "marta_k"

				u, err := service.Upsert(updated)

				Expect(err).ToNot(HaveOccurred())
				Expect(u.FirstName).To(Equal("Marta-Renamed"))
				Expect(u.Username).To(Equal("marta_k"))

				// Then: nothing the platform does not own was touched
				Expect(u.Role).To(Equal(user.GlobalRoleModerator))
				Expect(u.RegistrationStatus).To(Equal(user.RegistrationStatusRegistered))
				Expect(u.OwnedServiceIDs).To(Equal([]int64{7}))
				Expect(u.EmployeeServiceIDs).To(Equal([]int64{9}))
			})

			It("should keep the stored language code when the claims omit it", func() {
				updated := claims
				updated.LanguageCode = ""

				u, err := service.Upsert(updated)

				Expect(err).ToNot(HaveOccurred())
				Expect(u.LanguageCode).To(Equal("de"))
			})

			It("should be idempotent across repeated identical upserts", func() {
				first, err := service.Upsert(claims)
				Expect(err).ToNot(HaveOccurred())

				second, err := service.Upsert(claims)
				Expect(err).ToNot(HaveOccurred())

				Expect(second.Role).To(Equal(first.Role))
				Expect(second.RegistrationStatus).To(Equal(first.RegistrationStatus))
				Expect(second.OwnedServiceIDs).To(Equal(first.OwnedServiceIDs))
				Expect(second.EmployeeServiceIDs).To(Equal(first.EmployeeServiceIDs))
			})

			It("should advance last seen on every contact", func() {
				before, err := service.GetByID(42)
				Expect(err).ToNot(HaveOccurred())

				time.Sleep(5 * time.Millisecond)

				u, err := service.Upsert(claims)
				Expect(err).ToNot(HaveOccurred())
				Expect(u.LastSeenAt.After(before.LastSeenAt)).To(BeTrue())
			})
		})
	})

	Describe("SetActiveService", func() {
		BeforeEach(func() {
			_, err := service.Upsert(claims)
			Expect(err).ToNot(HaveOccurred())
		})

		It("should deny switching to a service the user has no relation to", func() {
			err := service.SetActiveService(42, 99)

			Expect(err).To(Equal(internal.ErrPermissionDenied))

			u, err := service.GetByID(42)
			Expect(err).ToNot(HaveOccurred())
			Expect(u.ActiveServiceID).To(BeNil())
		})

		It("should allow switching to an owned service", func() {
			_, err := service.AddOwnedService(42, 7)
			Expect(err).ToNot(HaveOccurred())

			Expect(service.SetActiveService(42, 7)).To(Succeed())

			u, err := service.GetByID(42)
			Expect(err).ToNot(HaveOccurred())
			Expect(*u.ActiveServiceID).To(Equal(int64(7)))
		})

		It("should allow switching to a service the user works at", func() {
			Expect(service.AddEmployeeService(42, 9)).To(Succeed())

			Expect(service.SetActiveService(42, 9)).To(Succeed())

			u, err := service.GetByID(42)
			Expect(err).ToNot(HaveOccurred())
			Expect(*u.ActiveServiceID).To(Equal(int64(9)))
		})
	})

	Describe("service set mutation", func() {
		BeforeEach(func() {
			_, err := service.Upsert(claims)
			Expect(err).ToNot(HaveOccurred())
		})

		It("should not duplicate an owned service on repeated adds", func() {
			for i := 0; i < 3; i++ {
				_, err := service.AddOwnedService(42, 7)
				Expect(err).ToNot(HaveOccurred())
			}

			ids, err := service.OwnedServiceIDs(42)
			Expect(err).ToNot(HaveOccurred())
			Expect(ids).To(Equal([]int64{7}))
		})

		It("should make a freshly owned service the active one", func() {
			u, err := service.AddOwnedService(42, 7)
			Expect(err).ToNot(HaveOccurred())
			Expect(*u.ActiveServiceID).To(Equal(int64(7)))
		})

		It("should clear the active pointer when the active service is removed", func() {
			_, err := service.AddOwnedService(42, 7)
			Expect(err).ToNot(HaveOccurred())

			Expect(service.RemoveOwnedService(42, 7)).To(Succeed())

			u, err := service.GetByID(42)
			Expect(err).ToNot(HaveOccurred())
			Expect(u.OwnedServiceIDs).To(BeEmpty())
			Expect(u.ActiveServiceID).To(BeNil())
		})

		It("should keep the active pointer when a different service is removed", func() {
			_, err := service.AddOwnedService(42, 7)
			Expect(err).ToNot(HaveOccurred())
			_, err = service.AddOwnedService(42, 8)
			Expect(err).ToNot(HaveOccurred())

			Expect(service.RemoveOwnedService(42, 7)).To(Succeed())

			u, err := service.GetByID(42)
			Expect(err).ToNot(HaveOccurred())
			Expect(u.OwnedServiceIDs).To(Equal([]int64{8}))
			Expect(*u.ActiveServiceID).To(Equal(int64(8)))
		})

		It("should not duplicate an employee service on repeated adds", func() {
			Expect(service.AddEmployeeService(42, 9)).To(Succeed())
			Expect(service.AddEmployeeService(42, 9)).To(Succeed())

			u, err := service.GetByID(42)
			Expect(err).ToNot(HaveOccurred())
			Expect(u.EmployeeServiceIDs).To(Equal([]int64{9}))
		})

		It("should detach the employee set and active pointer on removal", func() {
			Expect(service.AddEmployeeService(42, 9)).To(Succeed())
			Expect(service.SetActiveService(42, 9)).To(Succeed())

			Expect(service.RemoveEmployeeService(42, 9)).To(Succeed())

			u, err := service.GetByID(42)
			Expect(err).ToNot(HaveOccurred())
			Expect(u.EmployeeServiceIDs).To(BeEmpty())
			Expect(u.ActiveServiceID).To(BeNil())
		})
	})

	Describe("DisplayName", func() {
		It("should fall back from name to username to a placeholder", func() {
			full := &user.User{FirstName: "Marta", LastName: "Kovac"}
			Expect(full.DisplayName()).To(Equal("Marta Kovac"))

			handleOnly := &user.User{Username: "martak"}
			Expect(handleOnly.DisplayName()).To(Equal("martak"))

			anonymous := &user.User{}
			Expect(anonymous.DisplayName()).To(Equal("User"))
		})
	})
})
