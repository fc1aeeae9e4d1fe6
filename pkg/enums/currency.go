package enums

// Currency is the ISO currency code attached to money amounts. All amounts
// are stored as integer paise.
type Currency string

const (
	CurrencyINR Currency = "INR"
)
