package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"aerostore/internal/cart"
	"aerostore/internal/catalog"
	"aerostore/internal/customer"
	"aerostore/internal/notify"
	"aerostore/internal/platform/metrics"
	dErrors "aerostore/pkg/domain-errors"
	"aerostore/pkg/platform/fieldcipher"
)

var testMetrics = metrics.New()

type EngineSuite struct {
	suite.Suite
	ctx        context.Context
	products   *catalog.InMemoryStore
	customers  *customer.InMemoryStore
	orders     *InMemoryStore
	carts      *cart.Service
	cartStore  *cart.InMemoryPersistedStore
	dispatcher *fakeDispatcher
	engine     *Engine
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []int64
	err  error
}

func (d *fakeDispatcher) Notify(_ context.Context, c notify.Confirmation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, c.OrderID)
	return nil
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.products = catalog.NewInMemoryStore()
	s.products.Seed(
		catalog.Product{SKU: "F35", Name: "F-35 Lightning II", Price: 250_000_000, Stock: 2},
		catalog.Product{SKU: "B2", Name: "B-2 Spirit", Price: 2_000_000_000, Stock: 1},
	)
	s.customers = customer.NewInMemoryStore()
	s.orders = NewInMemory(s.products, s.customers)
	s.cartStore = cart.NewInMemoryPersistedStore()
	s.carts = cart.NewService(s.products, s.cartStore)
	s.dispatcher = &fakeDispatcher{}

	key, err := fieldcipher.GenerateKey()
	s.Require().NoError(err)
	cipher, err := fieldcipher.New(key)
	s.Require().NoError(err)

	s.engine = NewEngine(
		NewInMemoryTx(s.orders),
		cipher,
		s.carts,
		s.dispatcher,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		testMetrics,
		[]string{".mil", ".gov"},
		0,
	)
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func validRequest() Request {
	return Request{
		ContactEmail:    "j.mitchell@af.mil",
		ContactName:     "Col. J. Mitchell",
		ConsentDeclared: true,
		Sensitive: SensitiveFields{
			Agency:           "Department of the Air Force",
			PONumber:         "PO-2026-00417",
			DeliveryLocation: "Nellis AFB, NV",
		},
		EndUserCertificate: "euc-2026-0417.pdf",
	}
}

func (s *EngineSuite) TestPlaceOrderSuccess() {
	snapshot := cart.Cart{"F35": 1}
	placed, err := s.engine.PlaceOrder(s.ctx, snapshot, validRequest())
	s.Require().NoError(err)
	s.False(placed.Resubmitted)
	s.NotZero(placed.OrderID)
	s.Equal(250_000_000.0, placed.Total)

	product, err := s.products.BySKU(s.ctx, "F35")
	s.Require().NoError(err)
	s.Equal(1, product.Stock)

	order, items, err := s.orders.OrderByID(s.ctx, placed.OrderID)
	s.Require().NoError(err)
	s.Equal(StatusPlaced, order.Status)
	s.Equal(ExportPending, order.ExportLicenseStatus)
	s.Require().Len(items, 1)
	s.Equal(250_000_000.0, items[0].UnitPrice)
	s.Equal(1, items[0].Quantity)
}

func (s *EngineSuite) TestUnitPriceCapturedAtOrderTime() {
	placed, err := s.engine.PlaceOrder(s.ctx, cart.Cart{"F35": 1}, validRequest())
	s.Require().NoError(err)

	// A later catalog price change must not rewrite history.
	newPrice := 999_999_999.0
	s.Require().NoError(s.products.Update(s.ctx, catalog.ProductUpdate{SKU: "F35", Price: &newPrice}))

	_, items, err := s.orders.OrderByID(s.ctx, placed.OrderID)
	s.Require().NoError(err)
	s.Equal(250_000_000.0, items[0].UnitPrice)
}

func (s *EngineSuite) TestInsufficientStockRollsBackWhole() {
	snapshot := cart.Cart{"F35": 5}
	_, err := s.engine.PlaceOrder(s.ctx, snapshot, validRequest())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeInsufficientStock))
	s.Contains(err.Error(), "F35")

	product, err := s.products.BySKU(s.ctx, "F35")
	s.Require().NoError(err)
	s.Equal(2, product.Stock, "failed checkout must not touch stock")
	s.Equal(0, s.orders.OrderCount(), "no partial order rows")
	s.Equal(cart.Cart{"F35": 5}, snapshot, "cart left intact for adjustment")
}

func (s *EngineSuite) TestMultiItemFailureLeavesNoPartialEffect() {
	// First item is satisfiable, second is not; nothing may persist.
	snapshot := cart.Cart{"F35": 1, "B2": 2}
	_, err := s.engine.PlaceOrder(s.ctx, snapshot, validRequest())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeInsufficientStock))

	f35, _ := s.products.BySKU(s.ctx, "F35")
	b2, _ := s.products.BySKU(s.ctx, "B2")
	s.Equal(2, f35.Stock)
	s.Equal(1, b2.Stock)
	s.Equal(0, s.orders.OrderCount())
}

func (s *EngineSuite) TestConcurrentCheckoutsExactlyOneWinner() {
	const goroutines = 8
	var wg sync.WaitGroup
	var successes, stockFailures, other atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.engine.PlaceOrder(s.ctx, cart.Cart{"B2": 1}, validRequest())
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.Is(err, dErrors.CodeInsufficientStock):
				stockFailures.Add(1)
			default:
				other.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load(), "exactly one checkout may take the last unit")
	s.Equal(int32(goroutines-1), stockFailures.Load())
	s.Equal(int32(0), other.Load())

	product, err := s.products.BySKU(s.ctx, "B2")
	s.Require().NoError(err)
	s.Equal(0, product.Stock)
}

func (s *EngineSuite) TestEmptyCartResubmissionIsNoOp() {
	placed, err := s.engine.PlaceOrder(s.ctx, cart.New(), validRequest())
	s.Require().NoError(err)
	s.True(placed.Resubmitted)
	s.Zero(placed.OrderID)
	s.Equal(0, s.orders.OrderCount())
}

func (s *EngineSuite) TestValidationFailsFast() {
	cases := map[string]Request{
		"disallowed domain": func() Request {
			r := validRequest()
			r.ContactEmail = "buyer@gmail.com"
			return r
		}(),
		"missing consent": func() Request {
			r := validRequest()
			r.ConsentDeclared = false
			return r
		}(),
		"missing certificate": func() Request {
			r := validRequest()
			r.EndUserCertificate = ""
			return r
		}(),
		"missing email": func() Request {
			r := validRequest()
			r.ContactEmail = ""
			return r
		}(),
	}
	for name, req := range cases {
		s.Run(name, func() {
			_, err := s.engine.PlaceOrder(s.ctx, cart.Cart{"F35": 1}, req)
			s.Require().Error(err)
			s.True(dErrors.Is(err, dErrors.CodeValidation))
			s.Equal(0, s.orders.OrderCount(), "fail-fast rejects must not reach the store")
		})
	}
}

func (s *EngineSuite) TestUnknownProductRejected() {
	_, err := s.engine.PlaceOrder(s.ctx, cart.Cart{"SR71": 1}, validRequest())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeValidation))
	s.Equal(0, s.orders.OrderCount())
}

func (s *EngineSuite) TestMissingCipherRefusesCheckout() {
	engine := NewEngine(
		NewInMemoryTx(s.orders), nil, s.carts, s.dispatcher,
		slog.New(slog.NewTextHandler(io.Discard, nil)), testMetrics,
		[]string{".mil"}, 0,
	)
	_, err := engine.PlaceOrder(s.ctx, cart.Cart{"F35": 1}, validRequest())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConfiguration))
	s.Equal(0, s.orders.OrderCount())
}

func (s *EngineSuite) TestSensitiveFieldsStoredEncrypted() {
	placed, err := s.engine.PlaceOrder(s.ctx, cart.Cart{"F35": 1}, validRequest())
	s.Require().NoError(err)

	order, _, err := s.orders.OrderByID(s.ctx, placed.OrderID)
	s.Require().NoError(err)
	s.True(fieldcipher.IsToken(order.Sensitive.Agency))
	s.True(fieldcipher.IsToken(order.Sensitive.PONumber))
	s.NotContains(order.Sensitive.Agency, "Air Force")
	s.Empty(order.Sensitive.FundingSource, "absent fields stay absent, not encrypted empties")
	s.Equal("j.mitchell@af.mil", order.ContactEmail, "contact email stays plaintext")
}

func (s *EngineSuite) TestCustomerResolvedByFoldedEmail() {
	req := validRequest()
	req.ContactEmail = "J.Mitchell@AF.MIL"
	placed, err := s.engine.PlaceOrder(s.ctx, cart.Cart{"F35": 1}, req)
	s.Require().NoError(err)

	c, err := s.customers.FindByEmail(s.ctx, "j.mitchell@af.mil")
	s.Require().NoError(err)
	s.Equal(placed.CustomerID, c.ID)
	s.Equal("Col. J. Mitchell", c.Name)

	s.Run("existing customer gets name refreshed, not duplicated", func() {
		req.ContactName = "Gen. J. Mitchell"
		_, err := s.engine.PlaceOrder(s.ctx, cart.Cart{"F35": 1}, req)
		s.Require().NoError(err)

		again, err := s.customers.FindByEmail(s.ctx, "j.mitchell@af.mil")
		s.Require().NoError(err)
		s.Equal(c.ID, again.ID)
		s.Equal("Gen. J. Mitchell", again.Name)
	})
}

func (s *EngineSuite) TestSavedCartClearedAfterCommit() {
	// An authenticated customer's saved cart mirrors the session copy; the
	// first resolved customer gets ID 1.
	s.Require().NoError(s.cartStore.Save(s.ctx, 1, cart.Cart{"F35": 1}))

	placed, err := s.engine.PlaceOrder(s.ctx, cart.Cart{"F35": 1}, validRequest())
	s.Require().NoError(err)
	s.Require().Equal(int64(1), placed.CustomerID)

	stored, err := s.carts.Load(s.ctx, placed.CustomerID)
	s.Require().NoError(err)
	s.True(stored.IsEmpty())
}

func (s *EngineSuite) TestNotificationFailureDoesNotFailCheckout() {
	s.dispatcher.err = errors.New("broker unreachable")
	placed, err := s.engine.PlaceOrder(s.ctx, cart.Cart{"F35": 1}, validRequest())
	s.Require().NoError(err, "notification is best-effort after commit")
	s.NotZero(placed.OrderID)
	s.Equal(1, s.orders.OrderCount())
}

func (s *EngineSuite) TestNotificationCarriesOrderSummary() {
	placed, err := s.engine.PlaceOrder(s.ctx, cart.Cart{"F35": 1}, validRequest())
	s.Require().NoError(err)

	s.dispatcher.mu.Lock()
	defer s.dispatcher.mu.Unlock()
	s.Require().Len(s.dispatcher.sent, 1)
	s.Equal(placed.OrderID, s.dispatcher.sent[0])
}
