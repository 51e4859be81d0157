package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"bazaar-backend/internal/fees"
	"bazaar-backend/internal/geo"
	"bazaar-backend/internal/model"
	"bazaar-backend/internal/notify"
	"bazaar-backend/internal/payment"
	"bazaar-backend/internal/points"
	"bazaar-backend/internal/qrcode"
	"bazaar-backend/internal/repository"
	"bazaar-backend/internal/wallet"
)

// maxOrderNumberAttempts bounds the retry loop for date-scoped order number
// allocation. Uniqueness is enforced by the store, not the counter.
const maxOrderNumberAttempts = 10000

// OrderServiceDeps are the collaborators of the order lifecycle engine,
// injected explicitly so each can be substituted in tests.
type OrderServiceDeps struct {
	Orders        repository.OrderRepository
	Products      repository.ProductRepository
	Businesses    repository.BusinessRepository
	Drivers       repository.DriverRepository
	Subscriptions repository.SubscriptionRepository
	Calculator    *fees.Calculator
	Estimator     geo.Estimator
	QR            *qrcode.Issuer
	Wallet        *wallet.Ledger
	Points        *points.Ledger
	Gateway       payment.Gateway
	Notifier      notify.Notifier
}

// orderService implements OrderService.
type orderService struct {
	deps   OrderServiceDeps
	logger zerolog.Logger
	now    func() time.Time
}

// NewOrderService creates the order lifecycle engine and registers its QR
// consumption handlers (pickup completion, driver handover confirmation).
func NewOrderService(deps OrderServiceDeps, logger zerolog.Logger) OrderService {
	s := &orderService{
		deps:   deps,
		logger: logger.With().Str("service", "order").Logger(),
		now:    time.Now,
	}
	deps.QR.RegisterHandler(model.QROrder, s.handlePickupScan)
	deps.QR.RegisterHandler(model.QRDriverPickup, s.handleDriverPickupScan)
	return s
}

// Create validates, prices and persists a new order. Order, items and the
// pickup token are written in one database transaction; business
// notifications go out after commit, best-effort.
func (s *orderService) Create(ctx context.Context, req *model.CreateOrderRequest) (*model.OrderDetail, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	products, err := s.loadProducts(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	businesses, err := s.loadBusinesses(ctx, products)
	if err != nil {
		return nil, err
	}

	items, totalAmount := buildItems(req.Items, products)

	pricing, err := s.price(ctx, req, businesses, items, totalAmount)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		ID:              uuid.New(),
		UserID:          req.UserID,
		Type:            req.Type,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   model.PaymentStatusPending,
		Status:          model.StatusPending,
		DeliveryAddress: req.DeliveryAddress,
		TotalAmount:     totalAmount,
		DiscountAmount:  pricing.discount,
		PlatformFee:     pricing.platformFee,
		DeliveryFee:     pricing.deliveryFee,
		FinalAmount:     totalAmount - pricing.discount + pricing.deliveryFee + pricing.platformFee,
	}
	for i := range items {
		items[i].OrderID = order.ID
	}

	if err := s.persistWithOrderNumber(ctx, order, items); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Str("order_type", string(order.Type)).
		Int64("final_amount", order.FinalAmount).
		Int("business_count", len(businesses)).
		Msg("order created successfully")

	s.notifyBusinesses(ctx, order, businesses)

	return s.assembleDetail(ctx, order, items)
}

// pricing holds the computed fee components of a new order.
type orderPricing struct {
	discount    int64
	deliveryFee int64
	platformFee int64
}

// price computes the fee components per the marketplace pricing rules:
// distance-based delivery fee with multi-establishment surcharge, the
// subscription free-delivery override, the partner discount over the
// partner-business item subtotal (clamped to the order subtotal), and the
// platform fee on the discounted subtotal.
func (s *orderService) price(ctx context.Context, req *model.CreateOrderRequest, businesses []model.Business, items []model.OrderItem, totalAmount int64) (orderPricing, error) {
	var p orderPricing
	calc := s.deps.Calculator

	var distance float64
	if req.Type == model.OrderTypeDelivery {
		distance = s.deliveryDistance(ctx, req.DeliveryAddress, businesses)
		p.deliveryFee = calc.DeliveryFee(distance, len(businesses))
	}

	subscribed, err := s.deps.Subscriptions.HasActive(ctx, req.UserID, s.now())
	if err != nil {
		return p, fmt.Errorf("failed to check subscription: %w", err)
	}

	// The subscription override and the partner discount are mutually
	// exclusive: subscribers inside the free radius get free delivery and
	// no standard discount.
	if subscribed && req.Type == model.OrderTypeDelivery && distance <= calc.FreeRadiusKm() {
		p.deliveryFee = 0
	} else {
		p.discount = calc.PartnerDiscount(partnerSubtotal(businesses, items))
		if p.discount > totalAmount {
			p.discount = totalAmount
		}
	}

	p.platformFee = calc.PlatformFee(totalAmount, p.discount)
	return p, nil
}

// partnerSubtotal sums the item totals belonging to partner businesses.
// Only that share of the order is discountable.
func partnerSubtotal(businesses []model.Business, items []model.OrderItem) int64 {
	partners := make(map[uuid.UUID]bool, len(businesses))
	for _, b := range businesses {
		if b.Partner {
			partners[b.ID] = true
		}
	}
	if len(partners) == 0 {
		return 0
	}

	var subtotal int64
	for _, item := range items {
		if partners[item.BusinessID] {
			subtotal += item.TotalPrice
		}
	}
	return subtotal
}

// deliveryDistance resolves the billing distance: the farthest business
// from the delivery address, or the fixed fallback when coordinates are
// missing. The value is used for fee estimation only and never persisted
// as location truth.
func (s *orderService) deliveryDistance(ctx context.Context, addr *model.Address, businesses []model.Business) float64 {
	if addr == nil {
		return geo.FallbackDistanceKm
	}
	dest := &geo.Point{Lat: addr.Latitude, Lon: addr.Longitude}

	var max float64
	for _, b := range businesses {
		origin := &geo.Point{Lat: b.Latitude, Lon: b.Longitude}
		if d := geo.DistanceOrFallback(ctx, s.deps.Estimator, origin, dest); d > max {
			max = d
		}
	}
	if max == 0 {
		return geo.FallbackDistanceKm
	}
	return max
}

// persistWithOrderNumber writes order, items and, for pickup orders, the
// pickup QR token in one transaction. The date-scoped order number is
// seeded from the store and retried on unique violations, so concurrent
// creations never share a number.
func (s *orderService) persistWithOrderNumber(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	now := s.now().UTC()

	count, err := s.deps.Orders.CountForDate(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to seed order number: %w", err)
	}

	for attempt := 0; attempt < maxOrderNumberAttempts; attempt++ {
		order.OrderNumber = fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), count+1+attempt)
		order.CreatedAt = now
		order.UpdatedAt = now

		err := s.persistOnce(ctx, order, items)
		if err == nil {
			return nil
		}
		if repository.IsUniqueViolation(err) {
			s.logger.Debug().
				Str("order_number", order.OrderNumber).
				Msg("order number collision, retrying")
			continue
		}
		return err
	}

	return model.ErrOrderNumberExhausted
}

func (s *orderService) persistOnce(ctx context.Context, order *model.Order, items []model.OrderItem) (err error) {
	tx, err := s.deps.Orders.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.deps.Orders.CreateOrder(ctx, tx, order); err != nil {
		return err
	}
	if err = s.deps.Orders.CreateOrderItems(ctx, tx, items); err != nil {
		return err
	}

	if order.Type == model.OrderTypePickup {
		code, qrErr := s.deps.QR.IssueTx(ctx, tx, model.QROrder, order.ID.String(), nil)
		if qrErr != nil {
			err = fmt.Errorf("failed to issue pickup token: %w", qrErr)
			return err
		}
		if err = s.deps.Orders.SetQRToken(ctx, tx, order.ID, code.Token); err != nil {
			return err
		}
		order.QRToken = &code.Token
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}
	return nil
}

// notifyBusinesses fans out new-order notifications. Failures are logged
// and never fail the creation.
func (s *orderService) notifyBusinesses(ctx context.Context, order *model.Order, businesses []model.Business) {
	g, gctx := errgroup.WithContext(ctx)
	for _, b := range businesses {
		g.Go(func() error {
			if err := s.deps.Notifier.Notify(gctx, b.ID.String(), "order_created", map[string]string{
				"order_id":     order.ID.String(),
				"order_number": order.OrderNumber,
			}); err != nil {
				s.logger.Warn().Err(err).
					Str("business_id", b.ID.String()).
					Msg("failed to notify business")
			}
			return nil
		})
	}
	_ = g.Wait()
}

// notifyUser sends a best-effort notification to the order owner.
func (s *orderService) notifyUser(ctx context.Context, order *model.Order, eventType string) {
	if err := s.deps.Notifier.Notify(ctx, order.UserID.String(), eventType, map[string]string{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"status":       string(order.Status),
	}); err != nil {
		s.logger.Warn().Err(err).
			Str("order_id", order.ID.String()).
			Str("event_type", eventType).
			Msg("failed to notify user")
	}
}

// GetByID retrieves the denormalized order view. The requester must be the
// order owner; this is a hard authorization gate.
func (s *orderService) GetByID(ctx context.Context, orderID, requesterID uuid.UUID) (*model.OrderDetail, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != requesterID {
		s.logger.Warn().
			Str("order_id", orderID.String()).
			Str("requester_id", requesterID.String()).
			Msg("order access denied")
		return nil, model.ErrNotOwner
	}

	items, err := s.deps.Orders.GetItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.assembleDetail(ctx, order, items)
}

// Cancel cancels an order on behalf of its owner. Paid orders are refunded
// net of the tiered cancellation fee: wallet-paid share back to the wallet,
// gateway share through the gateway.
func (s *orderService) Cancel(ctx context.Context, orderID, requesterID uuid.UUID) (*model.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != requesterID {
		return nil, model.ErrNotOwner
	}
	if !model.CanTransition(order.Type, order.Status, model.StatusCancelled) {
		return nil, &model.IllegalTransitionError{From: order.Status, To: model.StatusCancelled}
	}

	statusAtCancel := order.Status
	ok, err := s.deps.Orders.TransitionStatus(ctx, orderID, order.Status, model.StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The order moved concurrently; re-read for an accurate error.
		current, loadErr := s.loadOrder(ctx, orderID)
		if loadErr != nil {
			return nil, loadErr
		}
		return nil, &model.IllegalTransitionError{From: current.Status, To: model.StatusCancelled}
	}
	order.Status = model.StatusCancelled

	if order.PaymentStatus == model.PaymentStatusPaid {
		if err := s.refund(ctx, order, statusAtCancel); err != nil {
			return nil, err
		}
		order.PaymentStatus = model.PaymentStatusRefunded
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("from_status", string(statusAtCancel)).
		Msg("order cancelled")

	s.notifyUser(ctx, order, "order_cancelled")
	return order, nil
}

// refund reverses a paid order's charges. The wallet-paid share is credited
// back through the wallet ledger; the gateway share is refunded against the
// recorded gateway reference. A single refund transaction for the refunded
// total is appended to the history.
func (s *orderService) refund(ctx context.Context, order *model.Order, statusAtCancel model.OrderStatus) error {
	cancellationFee := s.deps.Calculator.CancellationFee(order.FinalAmount, statusAtCancel)
	refundTotal := order.FinalAmount - cancellationFee
	if refundTotal <= 0 {
		return nil
	}

	txns, err := s.deps.Wallet.ByReference(ctx, model.ReferenceOrder, order.ID.String())
	if err != nil {
		return fmt.Errorf("failed to load order transactions: %w", err)
	}

	var walletPaid int64
	gatewayRefs := make(map[string]int64)
	for _, t := range txns {
		if t.Type != model.TransactionPayment || t.Status != model.TransactionCompleted {
			continue
		}
		if t.PaymentMethod == model.PaymentMethodWallet {
			walletPaid += -t.Amount
		} else if ref, found := strings.CutPrefix(t.Description, "gateway:"); found {
			gatewayRefs[ref] += -t.Amount
		}
	}

	// The cancellation fee is withheld from the gateway share first, then
	// from the wallet share.
	remaining := refundTotal
	walletRefund := walletPaid
	if walletRefund > remaining {
		walletRefund = remaining
	}
	remaining -= walletRefund

	if walletRefund > 0 {
		if _, err := s.deps.Wallet.Credit(ctx, order.UserID, walletRefund, wallet.Entry{
			Type:          model.TransactionRefund,
			ReferenceType: model.ReferenceOrder,
			ReferenceID:   order.ID.String(),
			Description:   fmt.Sprintf("Refund for order %s", order.OrderNumber),
		}); err != nil {
			return fmt.Errorf("failed to credit wallet refund: %w", err)
		}
	}

	for ref, amount := range gatewayRefs {
		if remaining <= 0 {
			break
		}
		if amount > remaining {
			amount = remaining
		}
		if _, err := s.deps.Gateway.Refund(ctx, ref, amount); err != nil {
			return fmt.Errorf("failed to refund via gateway: %w", err)
		}
		remaining -= amount
	}

	if err := s.deps.Wallet.Record(ctx, &model.Transaction{
		UserID:        order.UserID,
		Type:          model.TransactionRefund,
		ReferenceType: model.ReferenceOrder,
		ReferenceID:   order.ID.String(),
		Amount:        -refundTotal,
		PaymentMethod: order.PaymentMethod,
		Status:        model.TransactionCompleted,
		Description:   fmt.Sprintf("Refund issued for order %s", order.OrderNumber),
	}); err != nil {
		return fmt.Errorf("failed to record refund: %w", err)
	}

	if err := s.deps.Orders.SetPaymentStatus(ctx, order.ID, model.PaymentStatusRefunded); err != nil {
		return err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Int64("refund_total", refundTotal).
		Int64("cancellation_fee", cancellationFee).
		Msg("order refunded")

	return nil
}

// Accept moves a pending order to accepted on behalf of a business.
func (s *orderService) Accept(ctx context.Context, orderID, businessID uuid.UUID) error {
	return s.businessTransition(ctx, orderID, businessID, model.StatusPending, model.StatusAccepted, "order_accepted")
}

// StartPreparing moves an accepted order to preparing.
func (s *orderService) StartPreparing(ctx context.Context, orderID, businessID uuid.UUID) error {
	return s.businessTransition(ctx, orderID, businessID, model.StatusAccepted, model.StatusPreparing, "order_preparing")
}

// MarkReady moves a preparing delivery order into the driver pool. Pickup
// orders stay in preparing until their pickup token is scanned.
func (s *orderService) MarkReady(ctx context.Context, orderID, businessID uuid.UUID) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Type != model.OrderTypeDelivery {
		return &model.IllegalTransitionError{From: order.Status, To: model.StatusWaitingDriver}
	}
	return s.businessTransition(ctx, orderID, businessID, model.StatusPreparing, model.StatusWaitingDriver, "order_ready")
}

// businessTransition applies a status change requested by a business that
// must own part of the order.
func (s *orderService) businessTransition(ctx context.Context, orderID, businessID uuid.UUID, from, to model.OrderStatus, event string) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.authorizeBusiness(ctx, orderID, businessID); err != nil {
		return err
	}
	if order.Status != from || !model.CanTransition(order.Type, from, to) {
		return &model.IllegalTransitionError{From: order.Status, To: to}
	}

	ok, err := s.deps.Orders.TransitionStatus(ctx, orderID, from, to)
	if err != nil {
		return err
	}
	if !ok {
		current, loadErr := s.loadOrder(ctx, orderID)
		if loadErr != nil {
			return loadErr
		}
		return &model.IllegalTransitionError{From: current.Status, To: to}
	}
	order.Status = to

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("from_status", string(from)).
		Str("to_status", string(to)).
		Msg("order status updated")

	s.notifyUser(ctx, order, event)
	return nil
}

// authorizeBusiness verifies the business owns at least one of the
// order's items.
func (s *orderService) authorizeBusiness(ctx context.Context, orderID, businessID uuid.UUID) error {
	items, err := s.deps.Orders.GetItems(ctx, orderID)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.BusinessID == businessID {
			return nil
		}
	}
	return model.ErrNotOwner
}

// DriverAccept assigns a driver to a waiting delivery and starts it. A
// handover token is issued for the driver to present at the counter.
func (s *orderService) DriverAccept(ctx context.Context, orderID, driverID uuid.UUID) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !model.CanTransition(order.Type, order.Status, model.StatusInDelivery) {
		return &model.IllegalTransitionError{From: order.Status, To: model.StatusInDelivery}
	}

	driver, err := s.deps.Drivers.GetByID(ctx, driverID)
	if err != nil {
		return err
	}
	if driver == nil || !driver.Active {
		return model.NewDomainError(model.ErrCodeValidation, "Driver not found or inactive")
	}

	ok, err := s.deps.Orders.AssignDriver(ctx, orderID, model.StatusWaitingDriver, model.StatusInDelivery, driverID)
	if err != nil {
		return err
	}
	if !ok {
		current, loadErr := s.loadOrder(ctx, orderID)
		if loadErr != nil {
			return loadErr
		}
		return &model.IllegalTransitionError{From: current.Status, To: model.StatusInDelivery}
	}
	order.Status = model.StatusInDelivery
	order.DriverID = &driverID

	if _, err := s.deps.QR.Issue(ctx, model.QRDriverPickup, orderID.String(), map[string]string{
		"driver_id": driverID.String(),
	}); err != nil {
		// The assignment already happened; the token can be re-issued.
		s.logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("failed to issue handover token")
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("driver_id", driverID.String()).
		Msg("driver assigned")

	s.notifyUser(ctx, order, "order_in_delivery")
	return nil
}

// DriverReject returns a waiting order to the preparing pool, clearing any
// assigned driver.
func (s *orderService) DriverReject(ctx context.Context, orderID, driverID uuid.UUID) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !model.CanTransition(order.Type, order.Status, model.StatusPreparing) || order.Status != model.StatusWaitingDriver {
		return &model.IllegalTransitionError{From: order.Status, To: model.StatusPreparing}
	}

	ok, err := s.deps.Orders.ClearDriver(ctx, orderID, model.StatusWaitingDriver, model.StatusPreparing)
	if err != nil {
		return err
	}
	if !ok {
		current, loadErr := s.loadOrder(ctx, orderID)
		if loadErr != nil {
			return loadErr
		}
		return &model.IllegalTransitionError{From: current.Status, To: model.StatusPreparing}
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("driver_id", driverID.String()).
		Msg("driver rejected order")

	return nil
}

// CompleteDelivery finishes a delivery. Cash orders are marked paid on the
// doorstep, loyalty points are awarded, and the driver's earnings split of
// the delivery fee is recorded.
func (s *orderService) CompleteDelivery(ctx context.Context, orderID, driverID uuid.UUID) error {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.DriverID == nil || *order.DriverID != driverID {
		return model.ErrNotAssignedDriver
	}
	if !model.CanTransition(order.Type, order.Status, model.StatusCompleted) {
		return &model.IllegalTransitionError{From: order.Status, To: model.StatusCompleted}
	}

	deliveredAt := s.now()
	ok, err := s.deps.Orders.MarkDelivered(ctx, orderID, model.StatusInDelivery, deliveredAt)
	if err != nil {
		return err
	}
	if !ok {
		current, loadErr := s.loadOrder(ctx, orderID)
		if loadErr != nil {
			return loadErr
		}
		return &model.IllegalTransitionError{From: current.Status, To: model.StatusCompleted}
	}
	order.Status = model.StatusCompleted
	order.DeliveredAt = &deliveredAt

	s.settleCompletion(ctx, order)

	earnings, platformCut := s.deps.Calculator.DriverSplit(order.DeliveryFee)
	if earnings > 0 {
		if err := s.deps.Wallet.Record(ctx, &model.Transaction{
			UserID:        driverID,
			Type:          model.TransactionEarnings,
			ReferenceType: model.ReferenceOrder,
			ReferenceID:   order.ID.String(),
			Amount:        earnings,
			PaymentMethod: order.PaymentMethod,
			Status:        model.TransactionCompleted,
			Description:   fmt.Sprintf("Delivery earnings for order %s", order.OrderNumber),
		}); err != nil {
			s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to record driver earnings")
		}
	}

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("driver_id", driverID.String()).
		Int64("driver_earnings", earnings).
		Int64("platform_cut", platformCut).
		Msg("order delivered")

	s.notifyUser(ctx, order, "order_delivered")
	return nil
}

// settleCompletion applies the completion side effects shared by delivery
// and pickup: cash settlement and loyalty accrual. Both are best-effort
// relative to the already-committed transition.
func (s *orderService) settleCompletion(ctx context.Context, order *model.Order) {
	if order.PaymentStatus == model.PaymentStatusPending && order.PaymentMethod == model.PaymentMethodCash {
		if err := s.deps.Orders.SetPaymentStatus(ctx, order.ID, model.PaymentStatusPaid); err != nil {
			s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to mark cash order paid")
		} else {
			order.PaymentStatus = model.PaymentStatusPaid
			if err := s.deps.Wallet.Record(ctx, &model.Transaction{
				UserID:        order.UserID,
				Type:          model.TransactionPayment,
				ReferenceType: model.ReferenceOrder,
				ReferenceID:   order.ID.String(),
				Amount:        -order.FinalAmount,
				PaymentMethod: model.PaymentMethodCash,
				Status:        model.TransactionCompleted,
				Description:   fmt.Sprintf("Cash payment for order %s", order.OrderNumber),
			}); err != nil {
				s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to record cash payment")
			}
		}
	}

	pts := s.deps.Calculator.PointsEarned(order.FinalAmount)
	if _, err := s.deps.Points.Award(ctx, order.UserID, pts, "order_completed", order.ID.String()); err != nil {
		s.logger.Error().Err(err).
			Str("order_id", order.ID.String()).
			Int("points", pts).
			Msg("failed to award points")
	}
}

// ListAwaitingDriver returns delivery orders waiting for a driver, oldest
// first.
func (s *orderService) ListAwaitingDriver(ctx context.Context) ([]model.Order, error) {
	return s.deps.Orders.ListByStatus(ctx, model.StatusWaitingDriver, 50)
}

// handlePickupScan consumes an order pickup token scanned at the counter.
// The scanner must be one of the order's businesses; the order must be a
// preparing pickup order. Cash orders are settled on scan.
func (s *orderService) handlePickupScan(ctx context.Context, code *model.QRCode, scanner qrcode.ScannerContext) error {
	orderID, err := uuid.Parse(code.ReferenceID)
	if err != nil {
		return fmt.Errorf("malformed order reference on token: %w", err)
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Type != model.OrderTypePickup {
		return &model.IllegalTransitionError{From: order.Status, To: model.StatusCompleted}
	}
	if err := s.authorizeBusiness(ctx, orderID, scanner.ActorID); err != nil {
		return err
	}
	if !model.CanTransition(order.Type, order.Status, model.StatusCompleted) {
		return &model.IllegalTransitionError{From: order.Status, To: model.StatusCompleted}
	}

	ok, err := s.deps.Orders.CompletePickup(ctx, orderID)
	if err != nil {
		return err
	}
	if !ok {
		current, loadErr := s.loadOrder(ctx, orderID)
		if loadErr != nil {
			return loadErr
		}
		return &model.IllegalTransitionError{From: current.Status, To: model.StatusCompleted}
	}
	order.Status = model.StatusCompleted

	s.settleCompletion(ctx, order)

	s.logger.Info().
		Str("order_id", orderID.String()).
		Str("business_id", scanner.ActorID.String()).
		Msg("pickup order completed")

	s.notifyUser(ctx, order, "order_picked_up")
	return nil
}

// handleDriverPickupScan confirms the physical handover of a delivery to
// its assigned driver. The token stays valid across scans so a
// multi-business run can be scanned once per establishment; each
// successful scan notifies the customer of the pickup.
func (s *orderService) handleDriverPickupScan(ctx context.Context, code *model.QRCode, scanner qrcode.ScannerContext) error {
	orderID, err := uuid.Parse(code.ReferenceID)
	if err != nil {
		return fmt.Errorf("malformed order reference on token: %w", err)
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.DriverID == nil || *order.DriverID != scanner.ActorID {
		return model.ErrNotAssignedDriver
	}
	if order.Status != model.StatusInDelivery {
		return &model.IllegalTransitionError{From: order.Status, To: model.StatusInDelivery}
	}

	s.notifyUser(ctx, order, "order_picked_up_by_driver")
	return nil
}

// loadOrder fetches an order, mapping absence to ErrOrderNotFound.
func (s *orderService) loadOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.deps.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// loadProducts fetches and validates every requested product: it must
// exist and be available.
func (s *orderService) loadProducts(ctx context.Context, items []model.OrderItemRequest) (map[string]model.Product, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	fetched, err := s.deps.Products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	products := make(map[string]model.Product, len(fetched))
	for _, p := range fetched {
		products[p.ID] = p
	}

	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			s.logger.Warn().Str("product_id", item.ProductID).Msg("product not found")
			return nil, model.ErrProductNotFound
		}
		if !p.Available {
			s.logger.Warn().Str("product_id", item.ProductID).Msg("product unavailable")
			return nil, model.ErrProductUnavailable
		}
	}

	return products, nil
}

// loadBusinesses fetches the distinct businesses of the order's products
// and validates each is active.
func (s *orderService) loadBusinesses(ctx context.Context, products map[string]model.Product) ([]model.Business, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, p := range products {
		if !seen[p.BusinessID] {
			seen[p.BusinessID] = true
			ids = append(ids, p.BusinessID)
		}
	}

	businesses, err := s.deps.Businesses.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load businesses: %w", err)
	}
	if len(businesses) != len(ids) {
		return nil, model.ErrBusinessInactive
	}
	for _, b := range businesses {
		if !b.Active {
			s.logger.Warn().Str("business_id", b.ID.String()).Msg("business inactive")
			return nil, model.ErrBusinessInactive
		}
	}

	return businesses, nil
}

// buildItems snapshots the requested items against the live catalogue,
// resolving selected add-ons by name, and returns the items plus the order
// subtotal.
func buildItems(reqs []model.OrderItemRequest, products map[string]model.Product) ([]model.OrderItem, int64) {
	items := make([]model.OrderItem, len(reqs))
	var total int64
	for i, req := range reqs {
		p := products[req.ProductID]

		var addOns []model.OrderAddOn
		var addOnTotal int64
		for _, name := range req.AddOns {
			for _, a := range p.AddOns {
				if a.Name == name {
					addOns = append(addOns, model.OrderAddOn{Name: a.Name, Price: a.Price})
					addOnTotal += a.Price
					break
				}
			}
		}

		itemTotal := (p.Price + addOnTotal) * int64(req.Quantity)
		items[i] = model.OrderItem{
			ID:         uuid.New(),
			ProductID:  p.ID,
			BusinessID: p.BusinessID,
			Name:       p.Name,
			Quantity:   req.Quantity,
			UnitPrice:  p.Price,
			TotalPrice: itemTotal,
			AddOns:     addOns,
		}
		total += itemTotal
	}
	return items, total
}

// assembleDetail builds the denormalized order view.
func (s *orderService) assembleDetail(ctx context.Context, order *model.Order, items []model.OrderItem) (*model.OrderDetail, error) {
	seen := make(map[uuid.UUID]bool)
	var businessIDs []uuid.UUID
	for _, item := range items {
		if !seen[item.BusinessID] {
			seen[item.BusinessID] = true
			businessIDs = append(businessIDs, item.BusinessID)
		}
	}

	businesses, err := s.deps.Businesses.GetByIDs(ctx, businessIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load businesses: %w", err)
	}

	detail := &model.OrderDetail{Order: *order, Items: items}
	if order.Type == model.OrderTypeDelivery && order.DeliveryAddress != nil {
		dest := geo.Point{Lat: order.DeliveryAddress.Latitude, Lon: order.DeliveryAddress.Longitude}

		// Sequence multi-establishment pickups so the route ends nearest
		// the customer.
		stops := make([]geo.Point, len(businesses))
		byPoint := make(map[geo.Point]model.Business, len(businesses))
		for i, b := range businesses {
			stops[i] = geo.Point{Lat: b.Latitude, Lon: b.Longitude}
			byPoint[stops[i]] = b
		}
		if len(byPoint) == len(businesses) {
			route := geo.NearestNeighbourOptimizer{}.OptimizeRoute(dest, stops)
			for i := len(route) - 1; i >= 0; i-- {
				b := byPoint[route[i]]
				detail.Businesses = append(detail.Businesses, model.BusinessSummary{ID: b.ID, Name: b.Name})
			}
		} else {
			// Co-located businesses collapse in the route index.
			for _, b := range businesses {
				detail.Businesses = append(detail.Businesses, model.BusinessSummary{ID: b.ID, Name: b.Name})
			}
		}

		if order.Status != model.StatusCompleted && order.Status != model.StatusCancelled {
			distance := s.deliveryDistance(ctx, order.DeliveryAddress, businesses)
			detail.EstimatedMinutes = int(geo.EstimateDeliveryTime(distance).Minutes())
		}
	} else {
		for _, b := range businesses {
			detail.Businesses = append(detail.Businesses, model.BusinessSummary{ID: b.ID, Name: b.Name})
		}
	}

	if order.DriverID != nil {
		driver, err := s.deps.Drivers.GetByID(ctx, *order.DriverID)
		if err != nil {
			return nil, err
		}
		if driver != nil {
			detail.Driver = &model.DriverSummary{ID: driver.ID, Name: driver.Name, Phone: driver.Phone}
		}
	}

	return detail, nil
}

// validateCreateRequest applies the input validation sequence. Each check
// is a hard failure before any mutation.
func validateCreateRequest(req *model.CreateOrderRequest) error {
	if req == nil || len(req.Items) == 0 {
		return model.ErrEmptyItems
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return model.NewDomainError(model.ErrCodeValidation, "Product ID is required")
		}
		if item.Quantity < 1 {
			return model.ErrInvalidQuantity
		}
	}
	if req.Type != model.OrderTypeDelivery && req.Type != model.OrderTypePickup {
		return model.ErrInvalidOrderType
	}
	if req.Type == model.OrderTypeDelivery {
		a := req.DeliveryAddress
		if a == nil || (a.Latitude == 0 && a.Longitude == 0) {
			return model.ErrAddressRequired
		}
	}
	if req.PaymentMethod != model.PaymentMethodCash && req.PaymentMethod != model.PaymentMethodOnline {
		return model.ErrInvalidPayment
	}
	return nil
}
