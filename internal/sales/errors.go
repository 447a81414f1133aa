package sales

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/multierr"
)

var (
	// ErrScanExhausted is returned by BatchIterator.Next once every chain is done.
	ErrScanExhausted          = errors.New("sale scan exhausted")
	ErrQueryRetriesExhausted  = errors.New("not able to recover from query errors")
	ErrReceiptRetrievalFailed = errors.New("unable to get event receipt")
)

// ChainScanError aborts the scan of one chain. Other chains keep going.
type ChainScanError struct {
	Chain string
	Range *BlockRange
	Err   error
}

func (e *ChainScanError) Error() string {
	if e.Range != nil {
		return fmt.Sprintf("scan of %s failed at blocks %d-%d: %v", e.Chain, e.Range.StartBlock, e.Range.EndBlock, e.Err)
	}
	return fmt.Sprintf("scan of %s failed: %v", e.Chain, e.Err)
}

func (e *ChainScanError) Unwrap() error {
	return e.Err
}

// UnparsableLogError carries the failure of every interpreter tried on a log.
type UnparsableLogError struct {
	TxHash   common.Hash
	LogIndex uint
	Err      error
}

func (e *UnparsableLogError) Error() string {
	return fmt.Sprintf("unparsable log %d in tx %s: %v", e.LogIndex, e.TxHash.Hex(), e.Err)
}

func (e *UnparsableLogError) Unwrap() []error {
	return multierr.Errors(e.Err)
}
