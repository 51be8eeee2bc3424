/*

Package token implements a minimal service token ledger.

Each account is a balance held at an address together with an authority
allowed to move it. On first credit an account is created with the
holding address as its own authority, which makes escrow vaults
self-controlled by construction. The controller performs the balance
bookkeeping while the handlers and the escrow package decide who may
trigger a transfer.

*/
package token
