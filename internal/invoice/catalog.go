package invoice

// FieldDef describes one editable form field.
type FieldDef struct {
	Section   Section
	Key       string
	Label     string
	Multiline bool
}

// EditorFields lists the fields shown on the review form, in display order.
var EditorFields = []FieldDef{
	{Section: SectionDocument, Key: "VendorName", Label: "Vendor Name"},
	{Section: SectionDocument, Key: "InvoiceNumber", Label: "Invoice Number"},
	{Section: SectionDocument, Key: "InvoiceDate", Label: "Invoice Date"},
	{Section: SectionDocument, Key: "DueDate", Label: "Due Date"},
	{Section: SectionDocument, Key: "Terms", Label: "Terms"},
	{Section: SectionDocument, Key: "Currency", Label: "Currency"},
	{Section: SectionHeader, Key: "SalesOrderNumber", Label: "Sales Order Number"},
	{Section: SectionHeader, Key: "PurchaseOrderNumber", Label: "Purchase Order"},
	{Section: SectionHeader, Key: "AccountNumber", Label: "Account Number"},
	{Section: SectionHeader, Key: "CustomerID", Label: "Customer ID"},
	{Section: SectionDocument, Key: "Subtotal", Label: "Subtotal"},
	{Section: SectionDocument, Key: "Tax", Label: "Tax"},
	{Section: SectionDocument, Key: "Freight", Label: "Freight"},
	{Section: SectionDocument, Key: "Total", Label: "Total"},
	{Section: SectionDocument, Key: "BillToName", Label: "Bill To"},
	{Section: SectionDocument, Key: "ShipToName", Label: "Ship To"},
	{Section: SectionDocument, Key: "BillToAddress", Label: "Bill To Address", Multiline: true},
	{Section: SectionDocument, Key: "ShipToAddress", Label: "Ship To Address", Multiline: true},
	{Section: SectionDocument, Key: "Notes", Label: "Notes", Multiline: true},
}

var documentKeys = []string{
	"VendorName", "InvoiceNumber", "InvoiceDate", "DueDate", "Terms",
	"BillToName", "BillToAddress", "ShipToName", "ShipToAddress",
	"Currency", "Notes", "Subtotal", "Tax", "Freight", "Total",
}

var headerKeys = []string{
	"SalesOrderNumber", "OrderDate", "DueDate", "ShipDate", "PurchaseOrderNumber",
	"AccountNumber", "CustomerID", "SalesPersonID", "TerritoryID", "BillToAddressID",
	"ShipToAddressID", "ShipMethodID", "CreditCardID", "CreditCardApprovalCode",
	"CurrencyRateID", "SubTotal", "TaxAmt", "Freight", "TotalDue",
}

// DefaultCurrency is prefilled on the empty template.
const DefaultCurrency = "USD"

// EmptyRecord returns the blank template used when editing starts without an
// extraction: every known field present and empty, currency prefilled.
func EmptyRecord() Record {
	r := Record{
		Document: make(Fields, len(documentKeys)),
		Header:   make(Fields, len(headerKeys)),
		Details:  []LineItem{},
	}
	for _, k := range documentKeys {
		r.Document[k] = ""
	}
	for _, k := range headerKeys {
		r.Header[k] = ""
	}
	r.Document["Currency"] = DefaultCurrency
	return r
}

// Label returns the form label for a field, or the key itself.
func Label(s Section, key string) string {
	for _, def := range EditorFields {
		if def.Section == s && def.Key == key {
			return def.Label
		}
	}
	return key
}
