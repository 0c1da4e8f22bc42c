package ledger

import (
	"fmt"
	"strconv"
	"unicode/utf16"

	"github.com/shopspring/decimal"
)

// BlockHash computes the content digest stored on finalized transactions.
// It is a 32-bit rolling hash over UTF-16 code units, matching hashes
// already persisted by the web client. It is not a security primitive.
func BlockHash(id string, amount decimal.Decimal, timestampMillis int64) string {
	return rollingHash(id + amount.String() + strconv.FormatInt(timestampMillis, 10))
}

func rollingHash(s string) string {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(unit)
	}
	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}
	return fmt.Sprintf("0x%016x", abs)
}
