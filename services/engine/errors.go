package engine

import "errors"

var (
	ErrInvalidBar    = errors.New("invalid bar")
	ErrOutOfOrderBar = errors.New("out-of-order bar")
	ErrDuplicateBar  = errors.New("duplicate bar timestamp")
	ErrNoInstruments = errors.New("no instruments to simulate")
)
