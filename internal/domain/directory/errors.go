package directory

import "errors"

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrStaffNotFound    = errors.New("staff member not found")
)
