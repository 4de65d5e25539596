package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `o.id, o.status, o.delivery_type, o.source, o.customer_name, o.customer_phone,
	o.customer_email, o.location, o.landmark, o.change_request, o.user_id, o.branch_id,
	o.rider_id, o.total_amount, o.accepted_at, o.picked_up_at, o.delivered_at,
	o.cancelled_at, o.created_at, o.updated_at`

func orderDest(i *Order) []interface{} {
	return []interface{}{
		&i.ID,
		&i.Status,
		&i.DeliveryType,
		&i.Source,
		&i.CustomerName,
		&i.CustomerPhone,
		&i.CustomerEmail,
		&i.Location,
		&i.Landmark,
		&i.ChangeRequest,
		&i.UserID,
		&i.BranchID,
		&i.RiderID,
		&i.TotalAmount,
		&i.AcceptedAt,
		&i.PickedUpAt,
		&i.DeliveredAt,
		&i.CancelledAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	}
}

func scanOrder(row scanner) (Order, error) {
	var i Order
	err := row.Scan(orderDest(&i)...)
	return i, err
}

const orderItemColumns = `id, order_id, product_id, product_name, quantity, unit_price, instructions, created_at`

func scanOrderItem(row scanner) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ProductID,
		&i.ProductName,
		&i.Quantity,
		&i.UnitPrice,
		&i.Instructions,
		&i.CreatedAt,
	)
	return i, err
}

const createOrder = `INSERT INTO orders AS o (
    status, delivery_type, source, customer_name, customer_phone, customer_email,
    location, landmark, change_request, user_id, branch_id, total_amount
) VALUES (
    'pending', $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	DeliveryType  string
	Source        string
	CustomerName  string
	CustomerPhone string
	CustomerEmail pgtype.Text
	Location      string
	Landmark      pgtype.Text
	ChangeRequest pgtype.Text
	UserID        pgtype.UUID
	BranchID      pgtype.UUID
	TotalAmount   pgtype.Numeric
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.DeliveryType,
		arg.Source,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.CustomerEmail,
		arg.Location,
		arg.Landmark,
		arg.ChangeRequest,
		arg.UserID,
		arg.BranchID,
		arg.TotalAmount,
	))
}

const createOrderItems = `INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, instructions)
SELECT $1, u.product_id, u.product_name, u.quantity, u.unit_price, u.instructions
FROM unnest($2::uuid[], $3::text[], $4::int[], $5::numeric[], $6::text[])
    AS u(product_id, product_name, quantity, unit_price, instructions)
RETURNING ` + orderItemColumns

// CreateOrderItemsParams holds one column slice per order_items field. All
// slices must have the same length.
type CreateOrderItemsParams struct {
	OrderID      uuid.UUID
	ProductIDs   []pgtype.UUID
	ProductNames []string
	Quantities   []int32
	UnitPrices   []pgtype.Numeric
	Instructions []pgtype.Text
}

// CreateOrderItems inserts every line of an order in one statement.
func (q *Queries) CreateOrderItems(ctx context.Context, arg CreateOrderItemsParams) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, createOrderItems,
		arg.OrderID,
		arg.ProductIDs,
		arg.ProductNames,
		arg.Quantities,
		arg.UnitPrices,
		arg.Instructions,
	)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanOrderItem)
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const acceptOrder = `UPDATE orders AS o SET
    status = 'accepted',
    rider_id = $2,
    accepted_at = now(),
    updated_at = now()
WHERE o.id = $1 AND o.status = 'pending'
RETURNING ` + orderColumns

type AcceptOrderParams struct {
	ID      uuid.UUID
	RiderID uuid.UUID
}

// AcceptOrder returns pgx.ErrNoRows when the order is missing or no longer
// pending.
func (q *Queries) AcceptOrder(ctx context.Context, arg AcceptOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, acceptOrder, arg.ID, arg.RiderID))
}

const assignRider = `UPDATE orders AS o SET
    rider_id = $2,
    updated_at = now()
WHERE o.id = $1 AND o.status NOT IN ('delivered', 'cancelled')
RETURNING ` + orderColumns

type AssignRiderParams struct {
	ID      uuid.UUID
	RiderID uuid.UUID
}

func (q *Queries) AssignRider(ctx context.Context, arg AssignRiderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, assignRider, arg.ID, arg.RiderID))
}

const updateOrder = `UPDATE orders AS o SET
    status = COALESCE($3::text, o.status),
    customer_name = COALESCE($4::text, o.customer_name),
    customer_phone = COALESCE($5::text, o.customer_phone),
    location = COALESCE($6::text, o.location),
    landmark = COALESCE($7::text, o.landmark),
    change_request = COALESCE($8::text, o.change_request),
    delivery_type = COALESCE($9::text, o.delivery_type),
    picked_up_at = CASE WHEN $3::text = 'on_the_way' THEN now() ELSE o.picked_up_at END,
    delivered_at = CASE WHEN $3::text = 'delivered' THEN now() ELSE o.delivered_at END,
    cancelled_at = CASE WHEN $3::text = 'cancelled' THEN now() ELSE o.cancelled_at END,
    updated_at = now()
WHERE o.id = $1 AND o.status = $2
RETURNING ` + orderColumns

// UpdateOrderParams patches an order that is still in ExpectedStatus.
// Null fields keep their current value.
type UpdateOrderParams struct {
	ID             uuid.UUID
	ExpectedStatus OrderStatus
	Status         pgtype.Text
	CustomerName   pgtype.Text
	CustomerPhone  pgtype.Text
	Location       pgtype.Text
	Landmark       pgtype.Text
	ChangeRequest  pgtype.Text
	DeliveryType   pgtype.Text
}

func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrder,
		arg.ID,
		arg.ExpectedStatus,
		arg.Status,
		arg.CustomerName,
		arg.CustomerPhone,
		arg.Location,
		arg.Landmark,
		arg.ChangeRequest,
		arg.DeliveryType,
	))
}

const listOrders = `SELECT ` + orderColumns + `
FROM orders o
WHERE ($1::uuid IS NULL OR o.branch_id = $1)
  AND ($2::text IS NULL OR o.status = $2)
ORDER BY o.created_at DESC, o.id`

type ListOrdersParams struct {
	BranchID pgtype.UUID
	Status   pgtype.Text
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.BranchID, arg.Status)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanOrder)
}

const listRiderOrders = `SELECT ` + orderColumns + `, b.name
FROM orders o
LEFT JOIN branches b ON b.id = o.branch_id
WHERE o.rider_id = $1 AND o.status IN ('accepted', 'on_the_way')
ORDER BY COALESCE(o.accepted_at, o.created_at) DESC, o.id`

type ListRiderOrdersRow struct {
	Order
	BranchName pgtype.Text
}

func (q *Queries) ListRiderOrders(ctx context.Context, riderID uuid.UUID) ([]ListRiderOrdersRow, error) {
	rows, err := q.db.Query(ctx, listRiderOrders, riderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row scanner) (ListRiderOrdersRow, error) {
		var i ListRiderOrdersRow
		dest := append(orderDest(&i.Order), &i.BranchName)
		err := row.Scan(dest...)
		return i, err
	})
}

const listOrderItemsByOrderIDs = `SELECT ` + orderItemColumns + `
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, created_at, id`

func (q *Queries) ListOrderItemsByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrderIDs, orderIDs)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanOrderItem)
}
