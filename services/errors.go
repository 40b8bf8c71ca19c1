package services

import "fmt"

// NotFoundError indicates a referenced entity is absent. Handlers surface it
// as a 404.
type NotFoundError struct {
	Entity string
	ID     interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// BadRequestError indicates invalid caller input (e.g. a sync call with no
// scope). Handlers surface it as a 400.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string {
	return e.Reason
}
