package escrow

import "github.com/iov-one/weave/errors"

// ErrAssetMismatch is returned when a deposit or a settlement uses the
// asset path the escrow was not created for.
var ErrAssetMismatch = errors.Register(1100, "asset mismatch")
