package binance

import (
	"strconv"
	"strings"
)

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}

// filterValue reads one numeric field of a symbol filter from exchangeInfo.
func filterValue(filters []map[string]interface{}, filterType, field string) float64 {
	for _, f := range filters {
		if t, _ := f["filterType"].(string); t != filterType {
			continue
		}
		switch v := f[field].(type) {
		case string:
			return parseFloat(v)
		case float64:
			return v
		}
	}
	return 0
}
