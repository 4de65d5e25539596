package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusOnTheWay  OrderStatus = "on_the_way"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type User struct {
	ID             uuid.UUID
	Email          pgtype.Text
	HashedPassword pgtype.Text
	FullName       string
	Phone          pgtype.Text
	Role           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type City struct {
	ID   uuid.UUID
	Name string
}

type Area struct {
	ID     uuid.UUID
	CityID uuid.UUID
	Name   string
}

type Branch struct {
	ID          uuid.UUID
	Name        string
	CityID      pgtype.UUID
	AreaID      pgtype.UUID
	Address     string
	Phone       string
	ManagerID   pgtype.UUID
	IsPaused    bool
	PauseReason pgtype.Text
	PausedUntil pgtype.Timestamptz
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type BranchSchedule struct {
	BranchID  uuid.UUID
	DayOfWeek int16
	IsClosed  bool
	OpenTime  pgtype.Text
	CloseTime pgtype.Text
}

type GlobalPause struct {
	IsPaused    bool
	Reason      pgtype.Text
	PausedUntil pgtype.Timestamptz
	UpdatedAt   time.Time
}

type Category struct {
	ID        uuid.UUID
	Name      string
	SortOrder int32
	IsActive  bool
}

type Product struct {
	ID          uuid.UUID
	CategoryID  pgtype.UUID
	Name        string
	Description pgtype.Text
	ImageUrl    pgtype.Text
	Price       pgtype.Numeric
	Discount    pgtype.Numeric
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type AddonItem struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Name      string
	Price     pgtype.Numeric
}

type Cart struct {
	ID           uuid.UUID
	UserID       pgtype.UUID
	DeliveryType string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CartItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID pgtype.UUID
	Quantity  int32
	Notes     pgtype.Text
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Order struct {
	ID            uuid.UUID
	Status        OrderStatus
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
	RiderID       pgtype.UUID
	TotalAmount   pgtype.Numeric
	AcceptedAt    pgtype.Timestamptz
	PickedUpAt    pgtype.Timestamptz
	DeliveredAt   pgtype.Timestamptz
	CancelledAt   pgtype.Timestamptz
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type OrderItem struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	ProductID    pgtype.UUID
	ProductName  string
	Quantity     int32
	UnitPrice    pgtype.Numeric
	Instructions pgtype.Text
	CreatedAt    time.Time
}

type ChatbotSession struct {
	Sender    string
	State     []byte
	ExpiresAt time.Time
	UpdatedAt time.Time
}
