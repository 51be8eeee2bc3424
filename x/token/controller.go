package token

import (
	"math"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/orm"
)

// Controller is the functionality needed by other packages to move
// tokens around. A token account is created on first credit with the
// holding address as its authority.
type Controller interface {
	// Balance returns the balance of the account. It fails if the
	// account does not exist.
	Balance(db weave.KVStore, account weave.Address) (uint64, error)
	// Authority returns the address allowed to move tokens out of the
	// account. It fails if the account does not exist.
	Authority(db weave.KVStore, account weave.Address) (weave.Address, error)
	// MoveTokens debits src and credits dest, which must differ. It
	// performs no authority check, callers are responsible for
	// authorization.
	MoveTokens(db weave.KVStore, src weave.Address, dest weave.Address, amount uint64) error
	// IssueTokens mints new tokens onto the destination account.
	IssueTokens(db weave.KVStore, dest weave.Address, amount uint64) error
}

// BaseController implements Controller on top of a token account bucket.
type BaseController struct {
	bucket orm.ModelBucket
}

var _ Controller = BaseController{}

// NewController returns a controller using the given bucket to store
// the accounts.
func NewController(bucket orm.ModelBucket) BaseController {
	return BaseController{bucket: bucket}
}

// Balance returns the token balance held at the account address.
func (c BaseController) Balance(db weave.KVStore, account weave.Address) (uint64, error) {
	acct, err := c.account(db, account)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// Authority returns the recorded authority of the account.
func (c BaseController) Authority(db weave.KVStore, account weave.Address) (weave.Address, error) {
	acct, err := c.account(db, account)
	if err != nil {
		return nil, err
	}
	return acct.Authority, nil
}

// MoveTokens moves the given amount from src to dest. If src does not
// exist, or does not have sufficient tokens, it fails.
func (c BaseController) MoveTokens(db weave.KVStore, src weave.Address, dest weave.Address, amount uint64) error {
	if amount == 0 {
		return errors.Wrap(errors.ErrAmount, "zero transfer")
	}
	// Sender and recipient are loaded as independent copies, so a self
	// transfer would write the credited copy over the debited one.
	if src.Equals(dest) {
		return errors.Wrap(errors.ErrInput, "transfer to self")
	}
	sender, err := c.account(db, src)
	if err != nil {
		return err
	}
	if sender.Balance < amount {
		return errors.Wrapf(errors.ErrAmount, "insufficient funds, balance %d", sender.Balance)
	}
	recipient, err := c.accountOrCreate(db, dest)
	if err != nil {
		return err
	}
	if recipient.Balance > math.MaxUint64-amount {
		return errors.Wrap(errors.ErrOverflow, "recipient balance")
	}
	sender.Balance -= amount
	recipient.Balance += amount
	if _, err := c.bucket.Put(db, src, sender); err != nil {
		return errors.Wrap(err, "cannot store sender account")
	}
	if _, err := c.bucket.Put(db, dest, recipient); err != nil {
		return errors.Wrap(err, "cannot store recipient account")
	}
	return nil
}

// IssueTokens attempts to add the given amount of tokens to the
// destination account. Fails if it overflows the balance.
func (c BaseController) IssueTokens(db weave.KVStore, dest weave.Address, amount uint64) error {
	recipient, err := c.accountOrCreate(db, dest)
	if err != nil {
		return err
	}
	if recipient.Balance > math.MaxUint64-amount {
		return errors.Wrap(errors.ErrOverflow, "recipient balance")
	}
	recipient.Balance += amount
	if _, err := c.bucket.Put(db, dest, recipient); err != nil {
		return errors.Wrap(err, "cannot store recipient account")
	}
	return nil
}

func (c BaseController) account(db weave.KVStore, addr weave.Address) (*TokenAccount, error) {
	var acct TokenAccount
	switch err := c.bucket.One(db, addr, &acct); {
	case err == nil:
		return &acct, nil
	case errors.ErrNotFound.Is(err):
		return nil, errors.Wrapf(errors.ErrEmpty, "no account %s", addr)
	default:
		return nil, errors.Wrap(err, "cannot load account")
	}
}

func (c BaseController) accountOrCreate(db weave.KVStore, addr weave.Address) (*TokenAccount, error) {
	var acct TokenAccount
	switch err := c.bucket.One(db, addr, &acct); {
	case err == nil:
		return &acct, nil
	case errors.ErrNotFound.Is(err):
		// First credit. The holding address is its own authority.
		return &TokenAccount{
			Metadata:  &weave.Metadata{Schema: 1},
			Authority: addr.Clone(),
		}, nil
	default:
		return nil, errors.Wrap(err, "cannot load account")
	}
}
