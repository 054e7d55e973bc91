package ticket

import "errors"

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrStaffNotFound  = errors.New("staff member not found")
)
