package workflow

// Status is the order lifecycle state stored in orders.status.
type Status string

const (
	StatusPending        Status = "pending"
	StatusDiscussing     Status = "discussing"
	StatusPaymentPending Status = "payment_pending"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusRejected       Status = "rejected"
	StatusCancelled      Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusDiscussing,
	StatusPaymentPending,
	StatusInProgress,
	StatusCompleted,
	StatusRejected,
	StatusCancelled,
}

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func (s Status) Valid() bool {
	for _, v := range allStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// Active reports whether the order is being worked on by both parties.
func (s Status) Active() bool {
	return s == StatusDiscussing || s == StatusPaymentPending || s == StatusInProgress
}

// Role is the profile role owned by the identity provider.
type Role string

const (
	RoleUser   Role = "user"
	RoleArtist Role = "artist"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleArtist || r == RoleAdmin
}

// CanManageOrders is the single role check for artist-side order actions.
func CanManageOrders(r Role) bool {
	return r == RoleArtist || r == RoleAdmin
}

// CanPlaceOrders reports whether r may open a commission. Payment proof can
// only come from a client, so orders placed by artists or admins could never
// be paid.
func CanPlaceOrders(r Role) bool {
	return r == RoleUser
}

func IsAdmin(r Role) bool {
	return r == RoleAdmin
}

// Capabilities lists the feature flags a role unlocks in the front end.
func Capabilities(r Role) []string {
	switch r {
	case RoleAdmin:
		return []string{"manage_orders", "manage_gallery", "view_admin"}
	case RoleArtist:
		return []string{"manage_orders", "manage_gallery"}
	case RoleUser:
		return []string{"create_orders"}
	default:
		return []string{}
	}
}
