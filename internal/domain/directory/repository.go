package directory

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines directory data access interface
type Repository interface {
	// Customers
	GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error)

	// Staff
	GetMerchantStaff(ctx context.Context, id uuid.UUID) (*MerchantStaff, error)
	GetAdminStaff(ctx context.Context, id uuid.UUID) (*AdminStaff, error)
	// ListSupportRoles returns roles whose permission flags allow support
	// chat access, scoped to a merchant. Pass uuid.Nil for internal admin
	// roles (NULL merchant id).
	ListSupportRoles(ctx context.Context, merchantID uuid.UUID) ([]*Role, error)
	ListMerchantStaffByRolesAndOutlet(ctx context.Context, roleIDs []uuid.UUID, outletID uuid.UUID) ([]*MerchantStaff, error)
	ListAdminStaffByRoles(ctx context.Context, roleIDs []uuid.UUID) ([]*AdminStaff, error)

	// Notification preferences
	GetPreference(ctx context.Context, userID uuid.UUID) (*NotificationPreference, error)
	UpsertPreference(ctx context.Context, pref *NotificationPreference) error

	// Device tokens
	ListDeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error)
	SaveDeviceToken(ctx context.Context, token *DeviceToken) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates new directory repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetCustomer(ctx context.Context, id uuid.UUID) (*Customer, error) {
	query := `SELECT * FROM customers WHERE id = $1`
	var customer Customer
	err := r.db.GetContext(ctx, &customer, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repository) GetMerchantStaff(ctx context.Context, id uuid.UUID) (*MerchantStaff, error) {
	query := `SELECT * FROM merchant_staff WHERE id = $1`
	var staff MerchantStaff
	err := r.db.GetContext(ctx, &staff, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}

func (r *repository) GetAdminStaff(ctx context.Context, id uuid.UUID) (*AdminStaff, error) {
	query := `SELECT * FROM admin_staff WHERE id = $1`
	var staff AdminStaff
	err := r.db.GetContext(ctx, &staff, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}

func (r *repository) ListSupportRoles(ctx context.Context, merchantID uuid.UUID) ([]*Role, error) {
	var roles []*Role
	var err error
	if merchantID == uuid.Nil {
		query := `
			SELECT * FROM staff_roles
			WHERE merchant_id IS NULL AND support_can_access = true AND support_chat = true
		`
		err = r.db.SelectContext(ctx, &roles, query)
	} else {
		query := `
			SELECT * FROM staff_roles
			WHERE merchant_id = $1 AND support_can_access = true AND support_chat = true
		`
		err = r.db.SelectContext(ctx, &roles, query, merchantID)
	}
	return roles, err
}

func (r *repository) ListMerchantStaffByRolesAndOutlet(ctx context.Context, roleIDs []uuid.UUID, outletID uuid.UUID) ([]*MerchantStaff, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT * FROM merchant_staff
		WHERE role_id IN (?) AND outlet_id = ? AND active = true
	`, roleIDs, outletID)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var staff []*MerchantStaff
	err = r.db.SelectContext(ctx, &staff, query, args...)
	return staff, err
}

func (r *repository) ListAdminStaffByRoles(ctx context.Context, roleIDs []uuid.UUID) ([]*AdminStaff, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT * FROM admin_staff
		WHERE role_id IN (?) AND active = true
	`, roleIDs)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var staff []*AdminStaff
	err = r.db.SelectContext(ctx, &staff, query, args...)
	return staff, err
}

func (r *repository) GetPreference(ctx context.Context, userID uuid.UUID) (*NotificationPreference, error) {
	query := `SELECT * FROM notification_preferences WHERE user_id = $1`
	var pref NotificationPreference
	err := r.db.GetContext(ctx, &pref, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &pref, nil
}

func (r *repository) UpsertPreference(ctx context.Context, pref *NotificationPreference) error {
	query := `
		INSERT INTO notification_preferences (user_id, support_email, support_push, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET support_email = EXCLUDED.support_email, support_push = EXCLUDED.support_push, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, pref.UserID, pref.SupportEmail, pref.SupportPush, time.Now())
	return err
}

func (r *repository) ListDeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	query := `SELECT token FROM device_tokens WHERE user_id = $1`
	var tokens []string
	err := r.db.SelectContext(ctx, &tokens, query, userID)
	return tokens, err
}

func (r *repository) SaveDeviceToken(ctx context.Context, token *DeviceToken) error {
	query := `
		INSERT INTO device_tokens (user_id, token, platform, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, token) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, token.UserID, token.Token, token.Platform, time.Now())
	return err
}
