// Package indicator provides technical indicator calculations over price series.
//
// Every exported function is pure: it takes a slice of prices (oldest first)
// and returns freshly allocated results without touching its input. Short
// inputs never panic; each indicator documents its defined fallback.
package indicator

// Default periods used by the market snapshot.
const (
	DefaultRSIPeriod = 14
	DefaultEMAPeriod = 200

	DefaultMACDShort  = 12
	DefaultMACDLong   = 26
	DefaultMACDSignal = 9
)

// NeutralRSI is returned by RSI when the series is too short.
const NeutralRSI = 50.0
