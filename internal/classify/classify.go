// Package classify implements the Instruction Classifier: it pattern-
// matches a block's parsed instructions into normalized Transaction
// records for any instruction touching a watched address.
package classify

import (
	"encoding/json"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/ljtgentle/solana-scan/internal/models"
)

const (
	programSystem       = "system"
	programSPLToken     = "spl-token"
	programSPLToken2022 = "spl-token-2022"

	typeTransfer        = "transfer"
	typeTransferChecked = "transferChecked"
)

var lamportsPerSOL = decimal.New(1, 9)

// WatchedSet is the read-only snapshot the classifier matches against.
// Prefilter and post-extraction filtering both consult it; the caller
// takes exactly one snapshot per envelope (spec §4.2).
type WatchedSet interface {
	Contains(address string) bool
}

// Classify extracts zero or more Transaction records from a single
// transaction envelope. blockNumber is the slot being scanned.
func Classify(tx rpc.ParsedTransactionWithMeta, blockNumber uint64, watched WatchedSet) []models.Transaction {
	if tx.Transaction == nil {
		return nil
	}
	if !anyAccountKeyWatched(tx, watched) {
		return nil
	}

	signature := ""
	if len(tx.Transaction.Signatures) > 0 {
		signature = tx.Transaction.Signatures[0].String()
	}

	fee := decimal.Zero
	status := models.StatusFailed
	var txErr interface{}
	if tx.Meta != nil {
		fee = decimal.NewFromInt(int64(tx.Meta.Fee)).Div(lamportsPerSOL)
		txErr = tx.Meta.Err
	}
	if txErr == nil {
		status = models.StatusConfirmed
	}

	now := time.Now().UTC()

	var out []models.Transaction
	for _, instr := range tx.Transaction.Message.Instructions {
		if !instr.IsParsed() {
			continue
		}

		record, matched := matchInstruction(instr)
		if !matched {
			continue
		}

		if !watched.Contains(record.FromAddress) && !watched.Contains(record.ToAddress) {
			continue
		}

		record.Signature = signature
		record.BlockNumber = blockNumber
		record.Fee = fee
		record.Status = status
		record.Timestamp = now
		if raw, err := json.Marshal(instr.Parsed); err == nil {
			record.RawData = raw
		}

		out = append(out, record)
	}

	return out
}

func anyAccountKeyWatched(tx rpc.ParsedTransactionWithMeta, watched WatchedSet) bool {
	for _, k := range tx.Transaction.Message.AccountKeys {
		if watched.Contains(k.PublicKey.String()) {
			return true
		}
	}
	return false
}

// matchInstruction applies the native/token/nft matching rules independent
// of watched-set membership; membership is checked by the caller after
// extraction (the spec's "filter after extraction" step). Instructions
// come through as pointers (rpc.ParsedMessage.Instructions is
// []*rpc.ParsedInstruction), so this takes a pointer rather than copying.
func matchInstruction(instr *rpc.ParsedInstruction) (models.Transaction, bool) {
	if instr.Parsed == nil {
		return models.Transaction{}, false
	}
	info := instr.Parsed.Info

	switch {
	case instr.Program == programSystem && instr.Parsed.InstructionType == typeTransfer:
		return nativeTransfer(info)

	case (instr.Program == programSPLToken || instr.Program == programSPLToken2022) &&
		(instr.Parsed.InstructionType == typeTransfer || instr.Parsed.InstructionType == typeTransferChecked):
		return tokenTransfer(info)
	}

	return models.Transaction{}, false
}

func nativeTransfer(info map[string]interface{}) (models.Transaction, bool) {
	source, _ := info["source"].(string)
	destination, _ := info["destination"].(string)
	lamports := toDecimal(info["lamports"])
	if source == "" && destination == "" {
		return models.Transaction{}, false
	}

	return models.Transaction{
		TransactionType: models.TransactionTypeNative,
		FromAddress:     source,
		ToAddress:       destination,
		Amount:          lamports.Div(lamportsPerSOL),
	}, true
}

func tokenTransfer(info map[string]interface{}) (models.Transaction, bool) {
	source, _ := info["source"].(string)
	destination, _ := info["destination"].(string)
	mint, _ := info["mint"].(string)
	amount := toDecimal(info["amount"])

	decimals := 0
	if d, ok := info["decimals"]; ok {
		decimals = int(toDecimal(d).IntPart())
	}
	if decimals > 0 {
		amount = amount.Div(decimal.New(1, int32(decimals)))
	}

	txType := models.TransactionTypeToken
	if decimals == 0 && amount.Equal(decimal.NewFromInt(1)) {
		txType = models.TransactionTypeNFT
	}

	return models.Transaction{
		TransactionType: txType,
		FromAddress:     source,
		ToAddress:       destination,
		Amount:          amount,
		TokenMint:       mint,
	}, true
}

// toDecimal accepts a string, int, or float JSON value for amount/lamports
// fields, matching the node's loosely-typed parsed-instruction encoding.
func toDecimal(v interface{}) decimal.Decimal {
	switch val := v.(type) {
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(val)
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}
