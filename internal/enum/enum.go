package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending   = "pending"
	OrderStatusAccepted  = "accepted"
	OrderStatusOnTheWay  = "on_the_way"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleAdmin    = "admin"
	UserRoleManager  = "manager"
	UserRoleRider    = "rider"
	UserRoleCustomer = "customer"
)

const (
	DeliveryTypeDelivery = "delivery"
	DeliveryTypePickup   = "pickup"
)

const (
	OrderSourceApp     = "app"
	OrderSourcePOS     = "pos"
	OrderSourceChatbot = "chatbot"
)

// ── Group B: Configurable labels (no DB constraint) ──

// Permissions granted through role_permissions. Admin holds all of them.
const (
	PermissionAddOrder    = "add order"
	PermissionAddPOS      = "add pos"
	PermissionUpdateOrder = "update order"
	PermissionViewOrder   = "view order"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderAccepted      = "order.accepted"
	EventOrderRiderAssigned = "order.rider_assigned"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderUpdated       = "order.updated"
)
