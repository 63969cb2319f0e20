package sram

import "errors"

// ErrOverflow is returned by Write when the cursor would exceed the
// current bank's 1 MiB capacity.
var ErrOverflow = errors.New("sram: write would overflow bank")

// ErrNoBankStarted is returned by Write when no bank has been selected
// with StartBank. FlushAndRelease returns no error and is a no-op then.
var ErrNoBankStarted = errors.New("sram: no bank started")
