package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/6529-Collections/nftsales/internal/config"
	"github.com/6529-Collections/nftsales/internal/metrics"
	"github.com/6529-Collections/nftsales/internal/sales"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/cobra"
)

type parsedLogView struct {
	TxHash   common.Hash        `json:"txHash"`
	LogIndex uint               `json:"logIndex"`
	Address  common.Address     `json:"address"`
	Type     sales.StandardType `json:"type"`
	Event    string             `json:"event,omitempty"`
	Args     map[string]string  `json:"args,omitempty"`
	Errors   []string           `json:"errors,omitempty"`
}

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <txHash> <logIndex>",
		Short: "Decode one log of a transaction and print the sale found there",
		Args:  cobra.ExactArgs(2),
		RunE:  runDecode,
	}
	cmd.Flags().Bool("parse-only", false, "only classify the log, skip metadata extraction")
	cmd.Flags().String("chain", "ethereum", "chain the transaction was mined on")
	return cmd
}

func parseDecodeArgs(args []string) (common.Hash, uint, error) {
	raw, err := hexutil.Decode(args[0])
	if err != nil || len(raw) != common.HashLength {
		return common.Hash{}, 0, fmt.Errorf("invalid transaction hash %q", args[0])
	}
	idx, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return common.Hash{}, 0, fmt.Errorf("invalid log index %q: %w", args[1], err)
	}
	return common.BytesToHash(raw), uint(idx), nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	txHash, logIndex, err := parseDecodeArgs(args)
	if err != nil {
		return err
	}
	parseOnly, _ := cmd.Flags().GetBool("parse-only")
	chain, _ := cmd.Flags().GetString("chain")

	p, err := buildPipeline(cmd, config.Get(), nil, metrics.Nop{})
	if err != nil {
		return err
	}
	defer p.Close()

	out, err := decodeLog(cmd.Context(), p, chain, txHash, logIndex, parseOnly)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func decodeLog(ctx context.Context, p *pipeline, chain string, txHash common.Hash, logIndex uint, parseOnly bool) (any, error) {
	receipt, err := p.fetcher.GetReceipt(ctx, chain, txHash)
	if err != nil {
		return nil, err
	}
	var target *types.Log
	for _, lg := range receipt.Logs {
		if lg.Index == logIndex {
			target = lg
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("transaction %s has no log with index %d", txHash.Hex(), logIndex)
	}

	if parseOnly {
		return viewParsedLog(p.classifier.Classify(chain, *target)), nil
	}
	event, err := p.decoder.Decode(chain, *target)
	if err != nil {
		return nil, fmt.Errorf("log %d is not a %s sale: %w", logIndex, p.market.Marketplace, err)
	}
	return p.extractor.Extract(event, receipt.Logs), nil
}

func viewParsedLog(parsed sales.ParsedLog) parsedLogView {
	view := parsedLogView{
		TxHash:   parsed.Raw.TxHash,
		LogIndex: parsed.Raw.Index,
		Address:  parsed.Raw.Address,
		Type:     parsed.Type,
		Event:    parsed.Name(),
		Args:     parsed.FormattedArgs(),
	}
	for _, err := range parsed.Errors {
		view.Errors = append(view.Errors, err.Error())
	}
	return view
}
