package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/resto-order/api/internal/database"
	"github.com/resto-order/api/internal/enum"
)

// allowedTransitions defines valid status transitions.
// Key is current status, value is the set of statuses it can transition to.
// Statuses without an entry are terminal.
var allowedTransitions = map[database.OrderStatus][]database.OrderStatus{
	database.OrderStatusPending:  {database.OrderStatusAccepted, database.OrderStatusCancelled},
	database.OrderStatusAccepted: {database.OrderStatusOnTheWay, database.OrderStatusCancelled},
	database.OrderStatusOnTheWay: {database.OrderStatusDelivered, database.OrderStatusCancelled},
}

// validateStatusTransition checks if the transition from current to next is allowed.
func validateStatusTransition(current, next database.OrderStatus) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return conflictError(fmt.Sprintf("order is already %s", current))
	}
	if !slices.Contains(allowed, next) {
		return conflictError(fmt.Sprintf("cannot transition order from %s to %s", current, next))
	}
	return nil
}

func isTerminal(status database.OrderStatus) bool {
	_, ok := allowedTransitions[status]
	return !ok
}

func isValidOrderStatus(s database.OrderStatus) bool {
	switch s {
	case database.OrderStatusPending,
		database.OrderStatusAccepted,
		database.OrderStatusOnTheWay,
		database.OrderStatusDelivered,
		database.OrderStatusCancelled:
		return true
	}
	return false
}

// OrderStateStore defines the DB methods needed to move orders through
// their lifecycle. Satisfied by *database.Queries.
type OrderStateStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetBranchByManager(ctx context.Context, managerID uuid.UUID) (database.Branch, error)
	AcceptOrder(ctx context.Context, arg database.AcceptOrderParams) (database.Order, error)
	AssignRider(ctx context.Context, arg database.AssignRiderParams) (database.Order, error)
	UpdateOrder(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListRiderOrders(ctx context.Context, riderID uuid.UUID) ([]database.ListRiderOrdersRow, error)
	ListOrderItemsByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]database.OrderItem, error)
}

// OrderPatch holds the optional fields of UpdateOrder. Nil fields are left
// unchanged.
type OrderPatch struct {
	Status        *string
	CustomerName  *string
	CustomerPhone *string
	Location      *string
	Landmark      *string
	ChangeRequest *string
	DeliveryType  *string
}

func (p OrderPatch) empty() bool {
	return p.Status == nil && p.CustomerName == nil && p.CustomerPhone == nil &&
		p.Location == nil && p.Landmark == nil && p.ChangeRequest == nil && p.DeliveryType == nil
}

func (p OrderPatch) onlyStatus() bool {
	return p.Status != nil && p.CustomerName == nil && p.CustomerPhone == nil &&
		p.Location == nil && p.Landmark == nil && p.ChangeRequest == nil && p.DeliveryType == nil
}

// OrderDetail is an order with its lines.
type OrderDetail struct {
	Order      database.Order
	BranchName string
	Items      []database.OrderItem
}

// OrderStateService drives orders through the status state machine and
// serves role-scoped order listings.
type OrderStateService struct {
	store    OrderStateStore
	notifier OrderNotifier
}

// NewOrderStateService creates a new OrderStateService.
func NewOrderStateService(store OrderStateStore, notifier OrderNotifier) *OrderStateService {
	return &OrderStateService{store: store, notifier: notifierOrNoop(notifier)}
}

// AcceptOrder moves a pending order to accepted and assigns its rider.
// Admins must name the rider; managers and riders accept for themselves,
// managers only within their branch.
// The write is conditional on the order still being pending, so of two
// concurrent accepts exactly one succeeds.
func (s *OrderStateService) AcceptOrder(ctx context.Context, actor Actor, orderID uuid.UUID, riderID *uuid.UUID) (database.Order, error) {
	var rider uuid.UUID
	switch actor.Role {
	case enum.UserRoleAdmin:
		if riderID == nil {
			return database.Order{}, validationError("riderId", "riderId is required")
		}
		if err := s.requireRider(ctx, *riderID); err != nil {
			return database.Order{}, err
		}
		rider = *riderID
	case enum.UserRoleManager:
		current, err := s.getOrder(ctx, orderID)
		if err != nil {
			return database.Order{}, err
		}
		if err := s.requireManagedBranch(ctx, actor, current); err != nil {
			return database.Order{}, err
		}
		rider = actor.UserID
	case enum.UserRoleRider:
		rider = actor.UserID
	default:
		return database.Order{}, forbiddenError("only admins, managers and riders can accept orders")
	}

	order, err := s.store.AcceptOrder(ctx, database.AcceptOrderParams{ID: orderID, RiderID: rider})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			current, err := s.getOrder(ctx, orderID)
			if err != nil {
				return database.Order{}, err
			}
			return database.Order{}, conflictError(fmt.Sprintf("order is not pending (current status: %s)", current.Status))
		}
		return database.Order{}, fmt.Errorf("accept order: %w", err)
	}

	s.notifier.OrderEvent(enum.EventOrderAccepted, order)
	return order, nil
}

// AssignRider sets or replaces the rider of an order that is not finished.
// The status is left unchanged. Only admins and the manager of the order's
// branch may reassign.
func (s *OrderStateService) AssignRider(ctx context.Context, actor Actor, orderID, riderID uuid.UUID) (database.Order, error) {
	switch actor.Role {
	case enum.UserRoleAdmin:
	case enum.UserRoleManager:
		current, err := s.getOrder(ctx, orderID)
		if err != nil {
			return database.Order{}, err
		}
		if err := s.requireManagedBranch(ctx, actor, current); err != nil {
			return database.Order{}, err
		}
	default:
		return database.Order{}, forbiddenError("only admins and managers can assign riders")
	}
	if err := s.requireRider(ctx, riderID); err != nil {
		return database.Order{}, err
	}

	order, err := s.store.AssignRider(ctx, database.AssignRiderParams{ID: orderID, RiderID: riderID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			current, err := s.getOrder(ctx, orderID)
			if err != nil {
				return database.Order{}, err
			}
			return database.Order{}, conflictError(fmt.Sprintf("cannot assign a rider to a %s order", current.Status))
		}
		return database.Order{}, fmt.Errorf("assign rider: %w", err)
	}

	s.notifier.OrderEvent(enum.EventOrderRiderAssigned, order)
	return order, nil
}

// UpdateOrder patches an order. A status change must be a legal successor
// of the current status and allowed for the actor's role.
func (s *OrderStateService) UpdateOrder(ctx context.Context, actor Actor, orderID uuid.UUID, patch OrderPatch) (database.Order, error) {
	if patch.empty() {
		return database.Order{}, validationError("", "no fields to update")
	}
	if patch.DeliveryType != nil && !isValidDeliveryType(*patch.DeliveryType) {
		return database.Order{}, validationError("deliveryType", "deliveryType must be delivery or pickup")
	}
	var next database.OrderStatus
	if patch.Status != nil {
		next = database.OrderStatus(*patch.Status)
		if !isValidOrderStatus(next) {
			return database.Order{}, validationError("status", "invalid status")
		}
		if next == database.OrderStatusAccepted {
			return database.Order{}, validationError("status", "orders are accepted through the accept endpoint")
		}
	}

	current, err := s.getOrder(ctx, orderID)
	if err != nil {
		return database.Order{}, err
	}

	if err := authorizePatch(actor, current, patch, next); err != nil {
		return database.Order{}, err
	}
	if actor.Role == enum.UserRoleManager {
		if err := s.requireManagedBranch(ctx, actor, current); err != nil {
			return database.Order{}, err
		}
	}
	if patch.Status != nil {
		if err := validateStatusTransition(current.Status, next); err != nil {
			return database.Order{}, err
		}
	} else if isTerminal(current.Status) {
		return database.Order{}, conflictError(fmt.Sprintf("order is already %s", current.Status))
	}

	params := database.UpdateOrderParams{
		ID:             orderID,
		ExpectedStatus: current.Status,
		Status:         textPtr(patch.Status),
		CustomerName:   textPtr(patch.CustomerName),
		CustomerPhone:  textPtr(patch.CustomerPhone),
		Location:       textPtr(patch.Location),
		Landmark:       textPtr(patch.Landmark),
		ChangeRequest:  textPtr(patch.ChangeRequest),
		DeliveryType:   textPtr(patch.DeliveryType),
	}
	updated, err := s.store.UpdateOrder(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The status moved between our read and the conditional write.
			latest, err := s.getOrder(ctx, orderID)
			if err != nil {
				return database.Order{}, err
			}
			return database.Order{}, conflictError(fmt.Sprintf("order status changed to %s, please retry", latest.Status))
		}
		return database.Order{}, fmt.Errorf("update order: %w", err)
	}

	event := enum.EventOrderUpdated
	if patch.Status != nil {
		event = enum.EventOrderStatusChanged
	}
	s.notifier.OrderEvent(event, updated)
	return updated, nil
}

// authorizePatch applies the role rules of UpdateOrder.
func authorizePatch(actor Actor, order database.Order, patch OrderPatch, next database.OrderStatus) error {
	switch actor.Role {
	case enum.UserRoleAdmin, enum.UserRoleManager:
		return nil
	case enum.UserRoleRider:
		if !order.RiderID.Valid || uuid.UUID(order.RiderID.Bytes) != actor.UserID {
			return forbiddenError("order is not assigned to you")
		}
		if patch.Status != nil && next != database.OrderStatusOnTheWay && next != database.OrderStatusDelivered {
			return forbiddenError("riders can only mark orders on the way or delivered")
		}
		return nil
	case enum.UserRoleCustomer:
		if !order.UserID.Valid || uuid.UUID(order.UserID.Bytes) != actor.UserID {
			return forbiddenError("order does not belong to you")
		}
		if !patch.onlyStatus() || next != database.OrderStatusCancelled {
			return forbiddenError("customers can only cancel their orders")
		}
		if order.Status != database.OrderStatusPending {
			return conflictError(fmt.Sprintf("order can no longer be cancelled (current status: %s)", order.Status))
		}
		return nil
	}
	return forbiddenError("insufficient permissions")
}

// GetRiderOrders lists the rider's active orders, most recently accepted
// first.
func (s *OrderStateService) GetRiderOrders(ctx context.Context, riderID uuid.UUID) ([]OrderDetail, error) {
	rows, err := s.store.ListRiderOrders(ctx, riderID)
	if err != nil {
		return nil, fmt.Errorf("list rider orders: %w", err)
	}
	orders := make([]database.Order, len(rows))
	for i, r := range rows {
		orders[i] = r.Order
	}
	details, err := s.withItems(ctx, orders)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		details[i].BranchName = r.BranchName.String
	}
	return details, nil
}

// FetchOrders lists orders visible to the actor, newest first. Admins see
// every order and managers the orders of the branch they manage.
func (s *OrderStateService) FetchOrders(ctx context.Context, actor Actor, status string) ([]OrderDetail, error) {
	params := database.ListOrdersParams{}
	if status != "" {
		if !isValidOrderStatus(database.OrderStatus(status)) {
			return nil, validationError("status", "invalid status")
		}
		params.Status = pgtype.Text{String: status, Valid: true}
	}

	switch actor.Role {
	case enum.UserRoleAdmin:
	case enum.UserRoleManager:
		branch, err := s.store.GetBranchByManager(ctx, actor.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, forbiddenError("no branch is assigned to this manager")
			}
			return nil, fmt.Errorf("get managed branch: %w", err)
		}
		params.BranchID = pgtype.UUID{Bytes: branch.ID, Valid: true}
	default:
		return nil, forbiddenError("insufficient permissions")
	}

	orders, err := s.store.ListOrders(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return s.withItems(ctx, orders)
}

// GetOrder returns one order if the actor may see it: admins any order,
// managers their branch's orders, riders their assigned orders and
// customers their own.
func (s *OrderStateService) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (OrderDetail, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return OrderDetail{}, err
	}

	switch actor.Role {
	case enum.UserRoleAdmin:
	case enum.UserRoleManager:
		if err := s.requireManagedBranch(ctx, actor, order); err != nil {
			return OrderDetail{}, err
		}
	case enum.UserRoleRider:
		if !order.RiderID.Valid || uuid.UUID(order.RiderID.Bytes) != actor.UserID {
			return OrderDetail{}, forbiddenError("order is not assigned to you")
		}
	default:
		if !order.UserID.Valid || uuid.UUID(order.UserID.Bytes) != actor.UserID {
			return OrderDetail{}, forbiddenError("order does not belong to you")
		}
	}

	details, err := s.withItems(ctx, []database.Order{order})
	if err != nil {
		return OrderDetail{}, err
	}
	return details[0], nil
}

// ExportOrders lists every order, optionally filtered by status, for the
// admin export.
func (s *OrderStateService) ExportOrders(ctx context.Context, status string) ([]OrderDetail, error) {
	return s.FetchOrders(ctx, Actor{Role: enum.UserRoleAdmin}, status)
}

func (s *OrderStateService) getOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, notFoundError("Order not found")
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// requireManagedBranch rejects a manager acting on an order outside the
// branch they manage.
func (s *OrderStateService) requireManagedBranch(ctx context.Context, actor Actor, order database.Order) error {
	branch, err := s.store.GetBranchByManager(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return forbiddenError("no branch is assigned to this manager")
		}
		return fmt.Errorf("get managed branch: %w", err)
	}
	if !order.BranchID.Valid || uuid.UUID(order.BranchID.Bytes) != branch.ID {
		return forbiddenError("order belongs to another branch")
	}
	return nil
}

func (s *OrderStateService) requireRider(ctx context.Context, riderID uuid.UUID) error {
	user, err := s.store.GetUserByID(ctx, riderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFoundError("Rider not found")
		}
		return fmt.Errorf("get rider: %w", err)
	}
	if user.Role != enum.UserRoleRider {
		return notFoundError("Rider not found")
	}
	return nil
}

// withItems attaches order lines with a single query.
func (s *OrderStateService) withItems(ctx context.Context, orders []database.Order) ([]OrderDetail, error) {
	details := make([]OrderDetail, len(orders))
	if len(orders) == 0 {
		return details, nil
	}
	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := s.store.ListOrderItemsByOrderIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	byOrder := make(map[uuid.UUID][]database.OrderItem, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for i, o := range orders {
		lines := byOrder[o.ID]
		if lines == nil {
			lines = []database.OrderItem{}
		}
		details[i] = OrderDetail{Order: o, Items: lines}
	}
	return details, nil
}

func textPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}
