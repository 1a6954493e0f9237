package classify

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

// Fixture addresses are valid base58 public keys (32 copies of the byte
// 'A', 'B', 'X', 'Y' or 'Z'). The prefilter compares each account key's
// base58 string against the watched set, so the account keys, the watched
// set and the instruction info all use these same strings.
const (
	addrA = "5PjDJaGfSPJj4tFzMRCiuuAasKg5n8dJKXKenhuwZexx"
	addrB = "5TeWSsjg2gbxCyWVniXeCmwM7UtHTCK7svzJr5xYJzHf"
	addrX = "6ws1bVyu3F8wGy1fPHhrc2v8UyWiGbRAAuek8SwikKPD"
	addrY = "71nJjoSudYSAR4GApb2mtugtj8iuwf6yjKKQBpzKVehv"
	addrZ = "75hbt6uvDqjPZ9WgFtMhBnTeyHw7cinoHiz4FD2vEz2d"
)

type watchedSet map[string]struct{}

func (w watchedSet) Contains(addr string) bool {
	_, ok := w[addr]
	return ok
}

func mustKey(t *testing.T, s string) solana.PublicKey {
	t.Helper()
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		// Fall back to a deterministic 32-byte key derived from s when the
		// literal is not a valid base58 public key. The fallback key's
		// String() is not s, so it never matches a watched entry holding s.
		var arr [32]byte
		copy(arr[:], s)
		return solana.PublicKeyFromBytes(arr[:])
	}
	return key
}

func accountKey(t *testing.T, s string) *rpc.AccountKey {
	return &rpc.AccountKey{PublicKey: mustKey(t, s)}
}

func parsedInstruction(program, instrType string, info map[string]interface{}) *rpc.ParsedInstruction {
	return &rpc.ParsedInstruction{
		Program: program,
		Parsed: &rpc.InstructionInfo{
			InstructionType: instrType,
			Info:            info,
		},
	}
}

func envelope(t *testing.T, signature string, accountKeys []string, instructions []*rpc.ParsedInstruction, fee uint64, failed bool) rpc.ParsedTransactionWithMeta {
	t.Helper()

	keys := make([]*rpc.AccountKey, 0, len(accountKeys))
	for _, k := range accountKeys {
		keys = append(keys, accountKey(t, k))
	}

	var txErr interface{}
	if failed {
		txErr = "InstructionError"
	}

	return rpc.ParsedTransactionWithMeta{
		Meta: &rpc.ParsedTransactionMeta{Fee: fee, Err: txErr},
		Transaction: &rpc.ParsedTransaction{
			Signatures: []solana.Signature{signatureFrom(signature)},
			Message: rpc.ParsedMessage{
				AccountKeys:  keys,
				Instructions: instructions,
			},
		},
	}
}

func signatureFrom(s string) solana.Signature {
	var sig solana.Signature
	copy(sig[:], s)
	return sig
}

func TestClassify_NoWatchedAccountKey_EmitsNothing(t *testing.T) {
	watched := watchedSet{addrA: {}}
	tx := envelope(t, "sig1", []string{addrX, addrY}, []*rpc.ParsedInstruction{
		parsedInstruction(programSystem, typeTransfer, map[string]interface{}{
			"source": addrX, "destination": addrY, "lamports": float64(1000),
		}),
	}, 5000, false)

	got := Classify(tx, 500, watched)
	if len(got) != 0 {
		t.Fatalf("expected 0 transactions, got %d", len(got))
	}
}

func TestClassify_NativeTransfer(t *testing.T) {
	watched := watchedSet{addrA: {}}
	tx := envelope(t, "sigN", []string{addrA, addrB}, []*rpc.ParsedInstruction{
		parsedInstruction(programSystem, typeTransfer, map[string]interface{}{
			"source": addrA, "destination": addrB, "lamports": float64(2_000_000_000),
		}),
	}, 5000, false)

	got := Classify(tx, 500, watched)
	if len(got) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(got))
	}

	record := got[0]
	if record.TransactionType != "native" {
		t.Errorf("expected native, got %s", record.TransactionType)
	}
	if !record.Amount.Equal(decimal.NewFromFloat(2.0)) {
		t.Errorf("expected amount 2.0, got %s", record.Amount)
	}
	if !record.Fee.Equal(decimal.NewFromFloat(0.000005)) {
		t.Errorf("expected fee 0.000005, got %s", record.Fee)
	}
	if record.Status != "confirmed" {
		t.Errorf("expected confirmed, got %s", record.Status)
	}
	if record.BlockNumber != 500 {
		t.Errorf("expected block 500, got %d", record.BlockNumber)
	}
}

func TestClassify_TokenVsNFTBoundary(t *testing.T) {
	cases := []struct {
		name     string
		amount   interface{}
		decimals interface{}
		want     string
	}{
		{"decimals0 amount1 is nft", "1", float64(0), "nft"},
		{"decimals0 amount2 is token", "2", float64(0), "token"},
		{"decimals6 amount1_000_000 is token amount1.0", "1000000", float64(6), "token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			watched := watchedSet{addrX: {}}
			tx := envelope(t, "sigT"+tc.name, []string{addrX, addrY}, []*rpc.ParsedInstruction{
				parsedInstruction(programSPLToken, typeTransferChecked, map[string]interface{}{
					"source": addrX, "destination": addrY, "mint": "M1",
					"amount": tc.amount, "decimals": tc.decimals,
				}),
			}, 0, false)

			got := Classify(tx, 1, watched)
			if len(got) != 1 {
				t.Fatalf("expected 1 transaction, got %d", len(got))
			}
			if string(got[0].TransactionType) != tc.want {
				t.Errorf("expected type %s, got %s", tc.want, got[0].TransactionType)
			}
		})
	}
}

func TestClassify_MultipleInstructionsPerEnvelope(t *testing.T) {
	watched := watchedSet{addrX: {}}
	tx := envelope(t, "sigMulti", []string{addrX, addrY, addrZ}, []*rpc.ParsedInstruction{
		parsedInstruction(programSPLToken2022, typeTransferChecked, map[string]interface{}{
			"source": addrX, "destination": addrY, "mint": "M1", "amount": "1", "decimals": float64(0),
		}),
		parsedInstruction(programSPLToken2022, typeTransferChecked, map[string]interface{}{
			"source": addrX, "destination": addrZ, "mint": "M2", "amount": "10", "decimals": float64(0),
		}),
	}, 0, false)

	got := Classify(tx, 1, watched)
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(got))
	}
	if got[0].TransactionType != "nft" || got[1].TransactionType != "token" {
		t.Errorf("expected [nft, token], got [%s, %s]", got[0].TransactionType, got[1].TransactionType)
	}
}

func TestClassify_FailedTransactionStatus(t *testing.T) {
	watched := watchedSet{addrA: {}}
	tx := envelope(t, "sigFailed", []string{addrA, addrB}, []*rpc.ParsedInstruction{
		parsedInstruction(programSystem, typeTransfer, map[string]interface{}{
			"source": addrA, "destination": addrB, "lamports": float64(1000),
		}),
	}, 5000, true)

	got := Classify(tx, 1, watched)
	if len(got) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(got))
	}
	if got[0].Status != "failed" {
		t.Errorf("expected failed, got %s", got[0].Status)
	}
}

func TestClassify_UnparsedInstructionIgnored(t *testing.T) {
	watched := watchedSet{addrA: {}}
	tx := envelope(t, "sigRaw", []string{addrA, addrB}, []*rpc.ParsedInstruction{
		{Program: programSystem},
	}, 0, false)

	got := Classify(tx, 1, watched)
	if len(got) != 0 {
		t.Fatalf("expected 0 transactions for unparsed instruction, got %d", len(got))
	}
}
