package pii

// Category identifies the kind of PII a span contains
type Category string

const (
	CategoryEmail       Category = "EMAIL"
	CategoryPhone       Category = "PHONE"
	CategoryIBAN        Category = "IBAN"
	CategoryNationalID  Category = "NATIONAL_ID"
	CategoryPaymentCard Category = "PAYMENT_CARD"
	CategoryIPAddress   Category = "IP_ADDRESS"
	CategoryName        Category = "NAME"
	CategoryAddress     Category = "ADDRESS"
	CategoryDateOfBirth Category = "DATE_OF_BIRTH"
	CategoryUnknown     Category = "UNKNOWN"
)

// Categories lists all known PII categories
var Categories = []Category{
	CategoryEmail,
	CategoryPhone,
	CategoryIBAN,
	CategoryNationalID,
	CategoryPaymentCard,
	CategoryIPAddress,
	CategoryName,
	CategoryAddress,
	CategoryDateOfBirth,
	CategoryUnknown,
}

// IsValid reports whether c is one of the known categories
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
