package constants

// Transaction log values for the edi_transactions table
const (
	TransactionDirectionInbound = "inbound"

	TransactionFileTypeX12     = "x12"
	TransactionFileTypeTabular = "tabular"

	TransactionStatusProcessed = "processed"
	TransactionStatusError     = "error"
)

// Business rule values stored in customer_configs.business_rules
const (
	POParsingSplitOnDash   = "split_on_dash"
	POParsingSplitOnPeriod = "split_on_period"
	POParsingNoSplit       = "no_split"

	LocationMappingDescription = "description_based"
	LocationMappingCode        = "code_based"

	ContainerRoundUp = "round_up"
)
