package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Pair is a trading pair in "BASE/QUOTE" form, e.g. "BTC/USDT".
type Pair string

// DefaultPairs is the initial pair list shown to the user.
var DefaultPairs = []Pair{
	"BTC/USDT",
	"ETH/USDT",
	"BNB/USDT",
	"SOL/USDT",
	"XRP/USDT",
	"DOGE/USDT",
	"ADA/USDT",
}

var pairRe = regexp.MustCompile(`^[A-Z0-9]+/[A-Z0-9]+$`)

// ParsePair upper-cases and trims s and checks the BASE/QUOTE format.
func ParsePair(s string) (Pair, error) {
	p := strings.ToUpper(strings.TrimSpace(s))
	if !pairRe.MatchString(p) {
		return "", fmt.Errorf("invalid pair %q: expected BASE/QUOTE, e.g. BTC/USDT", s)
	}
	return Pair(p), nil
}

// Symbol returns the exchange symbol: "BTC/USDT" -> "BTCUSDT".
func (p Pair) Symbol() string {
	return strings.ReplaceAll(string(p), "/", "")
}

func (p Pair) String() string { return string(p) }
