package domain

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace namespaces every swarmpay error code.
const Codespace = "swarmpay"

// ─── Coded Errors ───────────────────────────────────────────────────────────
// Codes are stable: clients match on codespace+code, not on message text.
// Code 1 is reserved by the errors package for internal failures.

var (
	// Task lifecycle
	ErrInvalidTaskStatus        = errorsmod.Register(Codespace, 2, "invalid task status")
	ErrInvalidComputationResult = errorsmod.Register(Codespace, 3, "invalid computation result")
	ErrInsufficientReward       = errorsmod.Register(Codespace, 4, "insufficient reward funds")
	ErrInvalidSwarmProof        = errorsmod.Register(Codespace, 5, "invalid swarm proof")
	ErrInvalidReferral          = errorsmod.Register(Codespace, 6, "invalid referral")

	// Ledger
	ErrInsufficientBalance = errorsmod.Register(Codespace, 7, "insufficient balance")

	// Lookups
	ErrTaskNotFound  = errorsmod.Register(Codespace, 8, "task not found")
	ErrPoolNotFound  = errorsmod.Register(Codespace, 9, "pool not found")
	ErrSwarmNotFound = errorsmod.Register(Codespace, 10, "swarm not found")

	// Validation
	ErrInvalidPool  = errorsmod.Register(Codespace, 11, "invalid pool parameters")
	ErrPoolExists   = errorsmod.Register(Codespace, 12, "pool already initialized")
	ErrInvalidSwarm = errorsmod.Register(Codespace, 13, "invalid swarm")
	ErrInvalidTask  = errorsmod.Register(Codespace, 14, "invalid task parameters")
	ErrUnauthorized = errorsmod.Register(Codespace, 15, "unauthorized")
	ErrBadRequest   = errorsmod.Register(Codespace, 16, "malformed request")
)
