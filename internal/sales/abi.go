package sales

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
)

var errNoTopics = errors.New("log has no topics")

// matchEvent finds the event whose signature and indexed-argument count
// both fit the log. The count check separates ERC-721 and ERC-20 Transfer,
// which share a signature hash.
func matchEvent(contract abi.ABI, lg types.Log) (*abi.Event, error) {
	if len(lg.Topics) == 0 {
		return nil, errNoTopics
	}
	ev, err := contract.EventByID(lg.Topics[0])
	if err != nil {
		return nil, err
	}
	if want := len(indexedInputs(ev)) + 1; len(lg.Topics) != want {
		return nil, fmt.Errorf("%s expects %d topics, log has %d", ev.Name, want, len(lg.Topics))
	}
	return ev, nil
}

func decodeArgs(ev *abi.Event, lg types.Log) (map[string]any, error) {
	args := make(map[string]any, len(ev.Inputs))
	if err := ev.Inputs.NonIndexed().UnpackIntoMap(args, lg.Data); err != nil {
		return nil, fmt.Errorf("unpack %s data: %w", ev.Name, err)
	}
	if len(lg.Topics) > 0 {
		if err := abi.ParseTopicsIntoMap(args, indexedInputs(ev), lg.Topics[1:]); err != nil {
			return nil, fmt.Errorf("parse %s topics: %w", ev.Name, err)
		}
	}
	return args, nil
}

func indexedInputs(ev *abi.Event) abi.Arguments {
	var indexed abi.Arguments
	for _, in := range ev.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	return indexed
}
