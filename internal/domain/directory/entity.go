package directory

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the end user who reported a support issue
type Customer struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FullName returns the customer's display name
func (c *Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Role carries the permission flags gating support chat access.
// Merchant roles are scoped to a merchant, internal admin roles have
// a NULL merchant id.
type Role struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	MerchantID       uuid.NullUUID `db:"merchant_id" json:"merchant_id,omitempty"`
	Name             string        `db:"name" json:"name"`
	SupportCanAccess bool          `db:"support_can_access" json:"support_can_access"`
	SupportChat      bool          `db:"support_chat" json:"support_chat"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
}

// MerchantStaff is a staff member of a merchant organisation
type MerchantStaff struct {
	ID         uuid.UUID `db:"id" json:"id"`
	MerchantID uuid.UUID `db:"merchant_id" json:"merchant_id"`
	OutletID   uuid.UUID `db:"outlet_id" json:"outlet_id"`
	RoleID     uuid.UUID `db:"role_id" json:"role_id"`
	Email      string    `db:"email" json:"email"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// FullName returns the staff member's display name
func (s *MerchantStaff) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// AdminStaff is an internal support agent
type AdminStaff struct {
	ID        uuid.UUID `db:"id" json:"id"`
	RoleID    uuid.UUID `db:"role_id" json:"role_id"`
	Email     string    `db:"email" json:"email"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FullName returns the admin's display name
func (a *AdminStaff) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// NotificationPreference holds per-user support notification flags.
// Missing rows default to everything enabled.
type NotificationPreference struct {
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	SupportEmail bool      `db:"support_email" json:"support_email"`
	SupportPush  bool      `db:"support_push" json:"support_push"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DeviceToken is a registered push target for a user
type DeviceToken struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Token     string    `db:"token" json:"token"`
	Platform  string    `db:"platform" json:"platform"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
