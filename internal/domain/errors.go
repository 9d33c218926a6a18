package domain

import "errors"

var (
	ErrFormat             = errors.New("malformed credential entry")
	ErrSourceUnavailable  = errors.New("credential source unavailable")
	ErrInitialization     = errors.New("no accounts available from any credential source")
	ErrPoolNotInitialized = errors.New("account pool not initialized")
	ErrAlreadyInitialized = errors.New("account pool already initialized")
	ErrAccountNotFound    = errors.New("account not found")
	ErrSecretNotFound     = errors.New("secret not found")
	ErrRuntimeNotFound    = errors.New("pool runtime not found")
)
