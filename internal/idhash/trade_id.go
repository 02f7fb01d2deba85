// Package idhash derives deterministic record identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"holo-reversal-lab/internal/domain"
)

// TradeKey identifies a round trip. Replaying the same run reproduces the
// same key and therefore the same trade ID.
type TradeKey struct {
	RunID           string
	Symbol          string
	StrategyID      string
	Side            domain.Direction
	EntrySignalTime int64 // entry order timestamp (ms)
}

// ComputeTradeID returns the hex SHA256 of
// run_id|symbol|strategy_id|side|entry_signal_time.
func ComputeTradeID(k TradeKey) string {
	var b strings.Builder
	b.WriteString(k.RunID)
	b.WriteByte('|')
	b.WriteString(k.Symbol)
	b.WriteByte('|')
	b.WriteString(k.StrategyID)
	b.WriteByte('|')
	b.WriteString(string(k.Side))
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(k.EntrySignalTime, 10))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
