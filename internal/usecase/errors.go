package usecase

type ErrNotFound string

func (e ErrNotFound) Error() string { return string(e) + " not found" }

type ErrBadRequest string

func (e ErrBadRequest) Error() string { return string(e) }

type ErrUnauthorized string

func (e ErrUnauthorized) Error() string { return string(e) }

// ErrUpstream is a fatal failure to read from the upstream system.
type ErrUpstream string

func (e ErrUpstream) Error() string { return string(e) }

// ErrDependency is an upstream sync failure inside a local flow that needed
// the upstream record first.
type ErrDependency string

func (e ErrDependency) Error() string { return string(e) }
