package errdefs

import "fmt"

type ErrNotFound struct {
	model string
}

func NewErrNotFound(model string) ErrNotFound {
	return ErrNotFound{
		model: model,
	}
}

func (err ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found", err.model)
}

type ErrAlreadyExists struct {
	model string
}

func NewErrAlreadyExists(model string) ErrAlreadyExists {
	return ErrAlreadyExists{
		model: model,
	}
}

func (err ErrAlreadyExists) Error() string {
	return fmt.Sprintf("%s already exists", err.model)
}

type ErrInvalid struct {
	model  string
	reason string
}

func NewErrInvalid(model, reason string) ErrInvalid {
	return ErrInvalid{
		model:  model,
		reason: reason,
	}
}

func (err ErrInvalid) Error() string {
	return fmt.Sprintf("invalid %s: %s", err.model, err.reason)
}
