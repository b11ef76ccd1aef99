/*

Token metadata and USD price quotes used to convert asset-denominated totals into USD.

*/

package types

type Token struct {
	Address  string `json:"address"`  // lowercase hex
	Symbol   string `json:"symbol"`   // e.g. "WHYPE"
	Decimals int    `json:"decimals"` // e.g. 18
}

// TokenPrice is a single price feed entry keyed by "<chain>:<address>".
type TokenPrice struct {
	Price     float64 `json:"price"`
	Decimals  int     `json:"decimals"`
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"`
}
