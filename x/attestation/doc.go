/*

Package attestation implements an on-chain record of claims an authority
makes about off-chain intents.

An attestation starts as a draft bound to an authority and a 32 byte
intent hash. The authority seals it exactly once by committing to an
outcome hash. After sealing, any party can audit it with a report hash
and a verdict, or challenge it by pointing at evidence. A negative audit
or a challenge moves it to disputed, which is terminal.

An escrow created with the same intent hash is correlated with the
attestation through that value alone. Settlement of funds never reads
the attestation state and the attestation lifecycle never moves funds.

*/
package attestation
