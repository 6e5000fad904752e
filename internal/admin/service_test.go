package admin

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"aerostore/internal/catalog"
	"aerostore/internal/checkout"
	"aerostore/internal/customer"
	dErrors "aerostore/pkg/domain-errors"
	"aerostore/pkg/platform/fieldcipher"
	"aerostore/pkg/platform/sentinel"
)

type AdminServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *checkout.InMemoryStore
	cipher  *fieldcipher.Cipher
	service *Service
	orderID int64
}

func (s *AdminServiceSuite) SetupTest() {
	s.ctx = context.Background()
	products := catalog.NewInMemoryStore()
	products.Seed(catalog.Product{SKU: "F35", Name: "F-35 Lightning II", Price: 250_000_000, Stock: 2})
	s.store = checkout.NewInMemory(products, customer.NewInMemoryStore())

	key, err := fieldcipher.GenerateKey()
	s.Require().NoError(err)
	s.cipher, err = fieldcipher.New(key)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(checkout.NewInMemoryTx(s.store), s.store, s.cipher, logger)

	agency, err := s.cipher.Encrypt("Department of the Air Force")
	s.Require().NoError(err)
	s.orderID, err = s.store.InsertOrder(s.ctx, &checkout.Order{
		CustomerID:          1,
		Total:               250_000_000,
		Status:              checkout.StatusPlaced,
		ContactEmail:        "j.mitchell@af.mil",
		Sensitive:           checkout.SensitiveFields{Agency: agency},
		EndUserCertificate:  "euc-2026-0417.pdf",
		ConsentDeclared:     true,
		ExportLicenseStatus: checkout.ExportPending,
	})
	s.Require().NoError(err)
}

func TestAdminServiceSuite(t *testing.T) {
	suite.Run(t, new(AdminServiceSuite))
}

func (s *AdminServiceSuite) TestListOrders() {
	orders, err := s.service.ListOrders(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.Equal(s.orderID, orders[0].ID)
}

func (s *AdminServiceSuite) TestOrderDecryptsFields() {
	order, _, err := s.service.Order(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Equal("Department of the Air Force", order.Sensitive.Agency)
	s.Empty(order.Sensitive.FundingSource, "absent fields stay absent")
}

func (s *AdminServiceSuite) TestOrderWithWrongKeyShowsPlaceholder() {
	otherKey, err := fieldcipher.GenerateKey()
	s.Require().NoError(err)
	otherCipher, err := fieldcipher.New(otherKey)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewService(checkout.NewInMemoryTx(s.store), s.store, otherCipher, logger)

	order, _, err := service.Order(s.ctx, s.orderID)
	s.Require().NoError(err, "a bad field must not fail the order read")
	s.Equal(decryptFailure, order.Sensitive.Agency)
}

func (s *AdminServiceSuite) TestOrderNotFound() {
	_, _, err := s.service.Order(s.ctx, 999)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *AdminServiceSuite) TestStatusTransitions() {
	s.Require().NoError(s.service.UpdateStatus(s.ctx, s.orderID, checkout.StatusProcessing))
	s.Require().NoError(s.service.UpdateStatus(s.ctx, s.orderID, checkout.StatusShipped))
	s.Require().NoError(s.service.UpdateStatus(s.ctx, s.orderID, checkout.StatusCompleted))

	order, _, err := s.store.OrderByID(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Equal(checkout.StatusCompleted, order.Status)
}

func (s *AdminServiceSuite) TestStatusTransitionRejected() {
	err := s.service.UpdateStatus(s.ctx, s.orderID, checkout.StatusCompleted)
	s.True(dErrors.Is(err, dErrors.CodeConflict), "placed cannot jump to completed")

	err = s.service.UpdateStatus(s.ctx, s.orderID, "teleported")
	s.True(dErrors.Is(err, dErrors.CodeValidation))

	order, _, readErr := s.store.OrderByID(s.ctx, s.orderID)
	s.Require().NoError(readErr)
	s.Equal(checkout.StatusPlaced, order.Status)
}

func (s *AdminServiceSuite) TestStatusStaleWriteRefused() {
	// A write carrying an expectation that no longer holds must not apply;
	// this is what keeps two simultaneous reviews from a lost update.
	s.Require().NoError(s.store.UpdateOrderStatus(s.ctx, s.orderID, checkout.StatusPlaced, checkout.StatusProcessing))

	err := s.store.UpdateOrderStatus(s.ctx, s.orderID, checkout.StatusPlaced, checkout.StatusCancelled)
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrConflict)

	order, _, readErr := s.store.OrderByID(s.ctx, s.orderID)
	s.Require().NoError(readErr)
	s.Equal(checkout.StatusProcessing, order.Status)
}

func (s *AdminServiceSuite) TestConcurrentStatusUpdatesNeverSkipTransitionCheck() {
	// Cancellation and progression race; whatever interleaving wins, the
	// resulting status must be reachable from placed and nothing may move a
	// cancelled order forward.
	var wg sync.WaitGroup
	for _, target := range []checkout.OrderStatus{
		checkout.StatusProcessing, checkout.StatusCancelled,
		checkout.StatusProcessing, checkout.StatusCancelled,
	} {
		wg.Add(1)
		go func(to checkout.OrderStatus) {
			defer wg.Done()
			err := s.service.UpdateStatus(s.ctx, s.orderID, to)
			if err != nil {
				s.True(dErrors.Is(err, dErrors.CodeConflict), "unexpected error: %v", err)
			}
		}(target)
	}
	wg.Wait()

	order, _, err := s.store.OrderByID(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Contains([]checkout.OrderStatus{checkout.StatusProcessing, checkout.StatusCancelled}, order.Status)

	if order.Status == checkout.StatusCancelled {
		err := s.service.UpdateStatus(s.ctx, s.orderID, checkout.StatusShipped)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	}
}

func (s *AdminServiceSuite) TestStatusSelfTransitionIsNoOp() {
	s.Require().NoError(s.service.UpdateStatus(s.ctx, s.orderID, checkout.StatusPlaced))
}

func (s *AdminServiceSuite) TestExportLicense() {
	s.Require().NoError(s.service.UpdateExportLicense(s.ctx, s.orderID, checkout.ExportApproved))

	order, _, err := s.store.OrderByID(s.ctx, s.orderID)
	s.Require().NoError(err)
	s.Equal(checkout.ExportApproved, order.ExportLicenseStatus)

	err = s.service.UpdateExportLicense(s.ctx, s.orderID, "maybe")
	s.True(dErrors.Is(err, dErrors.CodeValidation))

	err = s.service.UpdateExportLicense(s.ctx, 999, checkout.ExportDenied)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}
