package core

// Static placeholder exchange rates relative to USD. Live rate retrieval is
// deliberately not part of the tracker; callers that need display conversion
// work from this table.
var exchangeRates = map[string]float64{
	"USD": 1.0,
	"EUR": 0.85,
	"GBP": 0.75,
	"JPY": 110.0,
	"CAD": 1.25,
}

// Currencies returns the known currency codes.
func Currencies() []string {
	out := make([]string, 0, len(exchangeRates))
	for code := range exchangeRates {
		out = append(out, code)
	}
	return out
}

// ConvertCents converts an amount between two known currencies. If either
// currency is unknown the amount is returned unchanged, matching the
// forgiving display semantics of the rest of the tracker.
func ConvertCents(cents int64, from, to string) int64 {
	if from == to {
		return cents
	}
	fromRate, okFrom := exchangeRates[from]
	toRate, okTo := exchangeRates[to]
	if !okFrom || !okTo {
		return cents
	}
	return int64(float64(cents) * toRate / fromRate)
}
