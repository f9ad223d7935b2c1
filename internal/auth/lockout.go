package auth

import "time"

const (
	defaultMaxAttempts  = 5
	defaultLockDuration = 2 * time.Hour
)

// LockState is the lockout bookkeeping carried on every account. The zero
// value is an unlocked account with no failed attempts.
type LockState struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// Evaluate reports whether the account is locked at the given instant.
// Callers must check this before any credential comparison.
func Evaluate(state LockState, now time.Time) bool {
	return state.LockedUntil != nil && state.LockedUntil.After(now)
}

// OnFailure returns the state after one failed login attempt.
//
// A lock that has already expired is cleared and the counter restarts at 1:
// the first failure after expiry opens a fresh window, it does not continue
// the old one. Otherwise the counter increments, and reaching threshold on an
// unlocked account engages a lock for lockFor. The counter keeps the
// incremented value when the lock engages.
func OnFailure(state LockState, now time.Time, threshold int, lockFor time.Duration) LockState {
	if state.LockedUntil != nil && !state.LockedUntil.After(now) {
		return LockState{FailedAttempts: 1}
	}

	next := LockState{
		FailedAttempts: state.FailedAttempts + 1,
		LockedUntil:    state.LockedUntil,
	}
	if next.FailedAttempts >= threshold && !Evaluate(state, now) {
		until := now.Add(lockFor)
		next.LockedUntil = &until
	}

	return next
}

// OnSuccess returns the state after a successful login: counter and lock are
// unconditionally cleared.
func OnSuccess(LockState) LockState {
	return LockState{}
}
