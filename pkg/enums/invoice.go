package enums

import "fmt"

// InvoiceNature is the accounting nature of an invoice entry.
type InvoiceNature string

const (
	InvoiceNatureCredit InvoiceNature = "credit"
	InvoiceNatureDebit  InvoiceNature = "debit"
)

func (n InvoiceNature) IsValid() bool {
	switch n {
	case InvoiceNatureCredit, InvoiceNatureDebit:
		return true
	}
	return false
}

// ParseInvoiceNature validates and converts a raw string.
func ParseInvoiceNature(value string) (InvoiceNature, error) {
	nature := InvoiceNature(value)
	if !nature.IsValid() {
		return "", fmt.Errorf("invalid invoice nature %q", value)
	}
	return nature, nil
}
