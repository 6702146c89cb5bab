package market

// AssetInfo holds the sizing and formatting filters of one futures symbol.
// It is fetched once at configuration time and read-only afterwards.
type AssetInfo struct {
	Asset             string  `json:"asset"`
	Symbol            string  `json:"symbol"`
	PricePrecision    int     `json:"price_precision"`
	QuantityPrecision int     `json:"quantity_precision"`
	MinQty            float64 `json:"min_qty"`
	MinNotional       float64 `json:"min_notional"`
}
