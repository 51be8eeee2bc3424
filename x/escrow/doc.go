/*

Package escrow implements custody of buyer funds against an off-chain
intent.

The buyer creates a draft escrow bound to a seller and an intent hash,
then funds it on either the native currency path or the token path. The
deposit is held at an address derived from the escrow condition, so no
transaction signer can move it. A configured oracle decides the outcome:
release pays the seller, refund returns the deposit to the buyer. Both
outcomes are terminal.

An attestation sharing the same intent hash records what actually
happened off-chain. The two records are correlated, never coupled: an
escrow settles the same way regardless of the attestation state.

*/
package escrow
