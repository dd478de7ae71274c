package order_test

import (
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/workshop-management/internal"
	"github.com/frahmantamala/workshop-management/internal/order"
	"github.com/frahmantamala/workshop-management/internal/tenant"
)

type mockOrderRepository struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]*order.Order
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{nextID: 1, orders: make(map[int64]*order.Order)}
}

func (m *mockOrderRepository) Create(o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = m.nextID
	m.nextID++
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *mockOrderRepository) GetByID(id int64) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, internal.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepository) ListByService(serviceID int64, limit, offset int) ([]*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*order.Order
	for id := int64(1); id < m.nextID; id++ {
		o, ok := m.orders[id]
		if !ok || o.ServiceID != serviceID {
			continue
		}
		cp := *o
		out = append(out, &cp)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockOrderRepository) Save(o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *mockOrderRepository) Delete(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, id)
	return nil
}

func (m *mockOrderRepository) MaxOrderSuffix(serviceID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, o := range m.orders {
		if o.ServiceID != serviceID {
			continue
		}
		idx := strings.LastIndex(o.OrderNumber, "-")
		if idx < 0 {
			continue
		}
		n, err := strconv.Atoi(o.OrderNumber[idx+1:])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}

type mockServiceResolver struct {
	services map[int64]*tenant.Service
}

func (m *mockServiceResolver) GetService(id int64) (*tenant.Service, error) {
	svc, ok := m.services[id]
	if !ok {
		return nil, internal.ErrUnknownService
	}
	return svc, nil
}

var _ = Describe("Order Service", func() {
	var (
		repo    *mockOrderRepository
		tenants *mockServiceResolver
		service *order.Service
	)

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	BeforeEach(func() {
		repo = newMockOrderRepository()
		tenants = &mockServiceResolver{services: map[int64]*tenant.Service{
			1: {ID: 1, ServiceNumber: "1042", Name: "Garage One", OwnerID: 10},
			2: {ID: 2, ServiceNumber: "2077", Name: "Garage Two", OwnerID: 20},
		}}
		service = order.NewService(repo, tenants, testLogger)
	})

	Describe("CreateOrder", func() {
		It("should number orders sequentially within the service namespace", func() {
			for i := 1; i <= 3; i++ {
				o, err := service.CreateOrder(1, 10, order.CreateOrderDTO{Description: "brake check"})
				Expect(err).ToNot(HaveOccurred())
				Expect(o.OrderNumber).To(Equal("1042-00" + strconv.Itoa(i)))
				Expect(o.Status).To(Equal(order.StatusNew))
			}
		})

		It("should keep numbering independent per service", func() {
			_, err := service.CreateOrder(1, 10, order.CreateOrderDTO{Description: "oil change"})
			Expect(err).ToNot(HaveOccurred())

			o, err := service.CreateOrder(2, 20, order.CreateOrderDTO{Description: "oil change"})
			Expect(err).ToNot(HaveOccurred())
			Expect(o.OrderNumber).To(Equal("2077-001"))
		})

		It("should never allocate the same number to concurrent creates", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := service.CreateOrder(1, 10, order.CreateOrderDTO{Description: "tire swap"})
					Expect(err).ToNot(HaveOccurred())
				}()
			}
			wg.Wait()

			orders, err := service.ListOrders(1, 100, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(orders).To(HaveLen(20))

			seen := map[string]bool{}
			for _, o := range orders {
				Expect(seen[o.OrderNumber]).To(BeFalse(), "duplicate number %s", o.OrderNumber)
				seen[o.OrderNumber] = true
			}
			Expect(seen["1042-020"]).To(BeTrue())
		})

		It("should reject an order without a description", func() {
			_, err := service.CreateOrder(1, 10, order.CreateOrderDTO{Description: "   "})

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("should fail for an unknown service", func() {
			_, err := service.CreateOrder(99, 10, order.CreateOrderDTO{Description: "brake check"})

			Expect(err).To(Equal(internal.ErrUnknownService))
		})
	})

	Describe("NextOrderNumber", func() {
		It("should preview the number the next create would take", func() {
			Expect(service.NextOrderNumber(1)).To(Equal("1042-001"))

			_, err := service.CreateOrder(1, 10, order.CreateOrderDTO{Description: "inspection"})
			Expect(err).ToNot(HaveOccurred())

			Expect(service.NextOrderNumber(1)).To(Equal("1042-002"))
		})
	})

	Describe("GetOrder", func() {
		It("should not leak an order across service boundaries", func() {
			o, err := service.CreateOrder(1, 10, order.CreateOrderDTO{Description: "detailing"})
			Expect(err).ToNot(HaveOccurred())

			// When: a different service asks for the same order id
			_, err = service.GetOrder(2, o.ID)

			// Then: the answer is indistinguishable from a missing order
			Expect(err).To(Equal(internal.ErrOrderNotFound))
		})
	})

	Describe("UpdateOrder", func() {
		var existing *order.Order

		BeforeEach(func() {
			var err error
			existing, err = service.CreateOrder(1, 10, order.CreateOrderDTO{
				CustomerName: "Alice",
				CarModel:     "Golf IV",
				Description:  "noisy suspension",
			})
			Expect(err).ToNot(HaveOccurred())
		})

		It("should apply only the provided fields", func() {
			status := order.StatusInProgress
			updated, err := service.UpdateOrder(1, existing.ID, order.UpdateOrderDTO{Status: &status})

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Status).To(Equal(order.StatusInProgress))
			Expect(updated.CustomerName).To(Equal("Alice"))
			Expect(updated.Description).To(Equal("noisy suspension"))
			Expect(updated.OrderNumber).To(Equal(existing.OrderNumber))
		})

		It("should reject an unknown status", func() {
			status := "done-ish"
			_, err := service.UpdateOrder(1, existing.ID, order.UpdateOrderDTO{Status: &status})

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("should refuse updates through the wrong service", func() {
			status := order.StatusCompleted
			_, err := service.UpdateOrder(2, existing.ID, order.UpdateOrderDTO{Status: &status})

			Expect(err).To(Equal(internal.ErrOrderNotFound))
		})
	})

	Describe("DeleteOrder", func() {
		It("should remove the order and free nothing else", func() {
			first, err := service.CreateOrder(1, 10, order.CreateOrderDTO{Description: "first"})
			Expect(err).ToNot(HaveOccurred())
			second, err := service.CreateOrder(1, 10, order.CreateOrderDTO{Description: "second"})
			Expect(err).ToNot(HaveOccurred())

			Expect(service.DeleteOrder(1, first.ID)).To(Succeed())

			_, err = service.GetOrder(1, first.ID)
			Expect(err).To(Equal(internal.ErrOrderNotFound))

			kept, err := service.GetOrder(1, second.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(kept.Description).To(Equal("second"))
		})

		It("should not delete through the wrong service", func() {
			o, err := service.CreateOrder(1, 10, order.CreateOrderDTO{Description: "keep me"})
			Expect(err).ToNot(HaveOccurred())

			Expect(service.DeleteOrder(2, o.ID)).To(Equal(internal.ErrOrderNotFound))

			_, err = service.GetOrder(1, o.ID)
			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("ListOrders", func() {
		BeforeEach(func() {
			for i := 0; i < 5; i++ {
				_, err := service.CreateOrder(1, 10, order.CreateOrderDTO{Description: "job " + strconv.Itoa(i)})
				Expect(err).ToNot(HaveOccurred())
			}
		})

		It("should paginate with limit and offset", func() {
			page, err := service.ListOrders(1, 2, 2)
			Expect(err).ToNot(HaveOccurred())
			Expect(page).To(HaveLen(2))
			Expect(page[0].OrderNumber).To(Equal("1042-003"))
			Expect(page[1].OrderNumber).To(Equal("1042-004"))
		})

		It("should clamp a nonsense limit to the default", func() {
			page, err := service.ListOrders(1, -5, 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(page).To(HaveLen(5))
		})
	})
})

var _ = Describe("Order numbering format", func() {
	It("should zero-pad the suffix to three digits", func() {
		repo := newMockOrderRepository()
		repo.orders[500] = &order.Order{ID: 500, ServiceID: 1, OrderNumber: "1042-099"}
		repo.nextID = 501

		tenants := &mockServiceResolver{services: map[int64]*tenant.Service{
			1: {ID: 1, ServiceNumber: "1042", OwnerID: 10},
		}}
		svc := order.NewService(repo, tenants, slog.New(slog.NewTextHandler(io.Discard, nil)))

		o, err := svc.CreateOrder(1, 10, order.CreateOrderDTO{Description: "hundredth"})
		Expect(err).ToNot(HaveOccurred())
		Expect(o.OrderNumber).To(Equal("1042-100"))
		Expect(o.CreatedAt).To(BeTemporally("~", time.Now(), time.Second))
	})
})
