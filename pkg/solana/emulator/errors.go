package emulator

import (
	"github.com/pkg/errors"
)

var (
	ErrUnknownProgram            = errors.New("program is not registered")
	ErrMissingSignature          = errors.New("missing required signature")
	ErrAccountNotWritable        = errors.New("account is not writable")
	ErrExternalAccountDataWrite  = errors.New("account data can only be written by its owner program")
	ErrExternalAccountDebit      = errors.New("account can only be debited by its owner program")
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrAccountAlreadyInitialized = errors.New("account already initialized")
	ErrInsufficientFundsForRent  = errors.New("insufficient funds for rent exemption")
	ErrInvokeDepthExceeded       = errors.New("cross-program invocation depth exceeded")
	ErrBalanceMismatch           = errors.New("transaction does not preserve total lamports")
)
