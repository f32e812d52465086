package concurrency

import "errors"

// ErrMailboxFull is returned when a bounded queue cannot accept more work.
var ErrMailboxFull = errors.New("concurrency: mailbox full")
