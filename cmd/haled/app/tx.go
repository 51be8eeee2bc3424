package app

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/x/cash"
	"github.com/iov-one/weave/x/sigs"
)

// TxDecoder creates a Tx and unmarshals bytes into it
func TxDecoder(bz []byte) (weave.Tx, error) {
	tx := new(Tx)
	err := tx.Unmarshal(bz)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// make sure tx fulfills all interfaces
var _ weave.Tx = (*Tx)(nil)
var _ cash.FeeTx = (*Tx)(nil)
var _ sigs.SignedTx = (*Tx)(nil)

// GetMsg switches over all types defined in the protobuf file
func (tx *Tx) GetMsg() (weave.Msg, error) {
	sum := tx.GetSum()
	if sum == nil {
		return nil, errors.Wrap(errors.ErrState, "transaction without a message")
	}

	// make sure to cover all messages defined in protobuf
	switch t := sum.(type) {
	case *Tx_SendMsg:
		return t.SendMsg, nil
	case *Tx_CreateEscrowMsg:
		return t.CreateEscrowMsg, nil
	case *Tx_DepositNativeMsg:
		return t.DepositNativeMsg, nil
	case *Tx_DepositTokenMsg:
		return t.DepositTokenMsg, nil
	case *Tx_ReleaseEscrowMsg:
		return t.ReleaseEscrowMsg, nil
	case *Tx_RefundEscrowMsg:
		return t.RefundEscrowMsg, nil
	case *Tx_InitializeAttestationMsg:
		return t.InitializeAttestationMsg, nil
	case *Tx_SealAttestationMsg:
		return t.SealAttestationMsg, nil
	case *Tx_AuditAttestationMsg:
		return t.AuditAttestationMsg, nil
	case *Tx_ChallengeAttestationMsg:
		return t.ChallengeAttestationMsg, nil
	case *Tx_TransferMsg:
		return t.TransferMsg, nil
	case *Tx_PayServiceFeeMsg:
		return t.PayServiceFeeMsg, nil
	}
	return nil, errors.Wrapf(errors.ErrType, "unsupported message %T", sum)
}

// GetSignBytes returns the bytes to sign...
func (tx *Tx) GetSignBytes() ([]byte, error) {
	// temporarily unset the signatures, as the sign bytes
	// should only come from the data itself, not previous signatures
	sigs := tx.Signatures
	tx.Signatures = nil

	bz, err := tx.Marshal()

	// reset the signatures after calculating the bytes
	tx.Signatures = sigs
	return bz, err
}
