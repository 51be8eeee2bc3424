/*

Package paymaster charges token fees for off-chain services. A fee
payment is a plain transfer from the payer to the collector account set
in the genesis configuration.

*/
package paymaster
