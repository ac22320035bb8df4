package domain

import "errors"

var (
	// ErrNoData marks a remote fetch that exhausted its retries or returned
	// nothing usable. Callers treat it as "skip this item this cycle".
	ErrNoData = errors.New("no data")

	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")

	ErrSigningFailed = errors.New("signing failed")
	ErrNotApproved   = errors.New("delegate approval not confirmed")
)
