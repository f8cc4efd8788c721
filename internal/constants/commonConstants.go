package constants

type (
	APIStatus   string
	CachePrefix string
)

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixCustomerConfig CachePrefix = "CUSTOMER_CONFIG_"
)

// Canonical tabular header names. These are also the default field mappings.
const (
	HeaderPONumber         = "PO Number"
	HeaderSupplierItem     = "Supplier Item"
	HeaderItemDescription  = "Item Description"
	HeaderQuantityOrdered  = "Quantity Ordered"
	HeaderPromisedDate     = "Promised Date"
	HeaderShipToLocation   = "Ship-To Location"
	HeaderQuantityReceived = "Quantity Received"
	HeaderNeedByDate       = "Need-By Date"
	HeaderUOM              = "UOM"
	HeaderOrganization     = "Organization"
	HeaderSupplier         = "Supplier"
	HeaderItemNumber       = "Item Number"
)

// RequiredTabularHeaders must all resolve in a file's header row
var RequiredTabularHeaders = []string{
	HeaderPONumber,
	HeaderSupplierItem,
	HeaderItemDescription,
	HeaderQuantityOrdered,
	HeaderPromisedDate,
	HeaderShipToLocation,
}

// Interchange transaction types accepted by the forecast processor
const (
	TransactionTypePlanningSchedule = "830"
	TransactionTypeShipSchedule     = "862"
)
