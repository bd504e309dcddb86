// Package whale extracts structured transfers from Whale Alert feed titles.
package whale

import (
	"regexp"
	"strconv"
	"strings"
)

// Example: 1,000,000,000 #DOGE (123,456,789 USD) transferred from #Robinhood to unknown wallet
var transferRe = regexp.MustCompile(`([\d,.]+) #(\w+) \(([\d,.]+) USD\) transferred from (.*) to (.*)`)

// Transfer is the part of a whale alert recovered from its title.
type Transfer struct {
	Coin       string
	AmountCoin float64
	AmountUSD  float64
	From       string
	To         string
}

// ParseTitle matches a transfer title. The second result is false for any
// title that is not a transfer; callers skip those.
func ParseTitle(title string) (Transfer, bool) {
	m := transferRe.FindStringSubmatch(title)
	if m == nil {
		return Transfer{}, false
	}
	coin, err := parseAmount(m[1])
	if err != nil {
		return Transfer{}, false
	}
	usd, err := parseAmount(m[3])
	if err != nil {
		return Transfer{}, false
	}
	return Transfer{
		Coin:       m[2],
		AmountCoin: coin,
		AmountUSD:  usd,
		From:       strings.TrimSpace(m[4]),
		To:         strings.TrimSpace(m[5]),
	}, true
}

// parseAmount strips digit-grouping commas.
func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}
