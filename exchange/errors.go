package exchange

import "errors"

var (
	ErrNotFound   = errors.New("exchange: not found")
	ErrInvalidKey = errors.New("exchange: invalid key")
	ErrImmutable  = errors.New("exchange: published key is immutable")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
