package sales

import (
	"fmt"
	"time"

	"github.com/6529-Collections/nftsales/internal/markets"
	"github.com/6529-Collections/nftsales/internal/metrics"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ParsedLog is one receipt log after classification. Event and Args are nil
// for Unknown logs; Args is also nil when the signature matched but the
// payload did not decode.
type ParsedLog struct {
	Raw    types.Log
	Event  *abi.Event
	Type   StandardType
	Args   map[string]any
	Errors []error
}

func (p ParsedLog) Name() string {
	if p.Event == nil {
		return ""
	}
	return p.Event.Name
}

// FormattedArgs renders the decoded arguments as display strings.
func (p ParsedLog) FormattedArgs() map[string]string {
	return formatArgs(p.Args)
}

type interpreter struct {
	kind     StandardType
	contract abi.ABI
}

var tokenInterpreters = []interpreter{
	{kind: ERC721, contract: erc721ABI},
	{kind: ERC1155, contract: erc1155ABI},
	{kind: ERC20, contract: erc20ABI},
}

type LogClassifier struct {
	decoder  *SaleEventDecoder
	recorder metrics.Recorder
}

func NewLogClassifier(decoder *SaleEventDecoder, recorder metrics.Recorder) *LogClassifier {
	return &LogClassifier{decoder: decoder, recorder: recorder}
}

// Classify tries the token standards first and the chain's marketplace
// interface last. A log nothing recognises comes back Unknown with an
// UnparsableLogError attached; it never fails the caller.
func (c *LogClassifier) Classify(chain string, lg types.Log) ParsedLog {
	start := time.Now()
	defer func() {
		c.recorder.Submit(metricName(c.decoder.Marketplace(), chain, "receipt_parseLog.latency"),
			elapsedMillis(start), metrics.Histogram)
	}()

	interpreters := tokenInterpreters
	var errs error
	if contract, ok := c.decoder.contract(chain); ok {
		interpreters = append(interpreters[:len(interpreters):len(interpreters)],
			interpreter{kind: Marketplace, contract: contract})
	} else {
		errs = multierr.Append(errs, fmt.Errorf("%s: no interface configured for chain %s", Marketplace, chain))
	}

	for _, in := range interpreters {
		ev, err := matchEvent(in.contract, lg)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", in.kind, err))
			continue
		}
		parsed := ParsedLog{Raw: lg, Event: ev, Type: in.kind}
		args, err := decodeArgs(ev, lg)
		if err != nil {
			zap.L().Error("Failed to decode event log data",
				zap.String("type", string(in.kind)),
				zap.String("name", ev.Name),
				zap.String("txHash", lg.TxHash.Hex()),
				zap.Uint("logIndex", lg.Index),
				zap.Error(err))
			parsed.Errors = append(parsed.Errors, err)
			return parsed
		}
		parsed.Args = args
		return parsed
	}

	return ParsedLog{
		Raw:    lg,
		Type:   Unknown,
		Errors: []error{&UnparsableLogError{TxHash: lg.TxHash, LogIndex: lg.Index, Err: errs}},
	}
}

func metricName(marketplace markets.Marketplace, chain, name string) string {
	return fmt.Sprintf("%s.%s.%s", marketplace, chain, name)
}

func elapsedMillis(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
