package tabular

// Header aliases, compared against slugified header cells.
var (
	dateKeys = []string{
		"date", "transaction_date", "trans_date", "txn_date", "posted_date", "posting_date",
		"post_date", "value_date", "booking_date", "effective_date", "posted",
	}
	descriptionKeys = []string{
		"description", "transaction_description", "details", "transaction_details", "narrative",
		"memo", "payee", "merchant", "merchant_name", "name", "particulars", "reference", "remarks",
	}
	amountKeys = []string{
		"amount", "transaction_amount", "amt", "net_amount", "value", "sum",
	}
	debitKeys = []string{
		"debit", "debits", "debit_amount", "withdrawal", "withdrawals", "paid_out", "money_out",
		"outflow", "charges", "spent",
	}
	creditKeys = []string{
		"credit", "credits", "credit_amount", "deposit", "deposits", "paid_in", "money_in",
		"inflow", "received",
	}
)

func moneyKeys() []string {
	keys := make([]string, 0, len(amountKeys)+len(debitKeys)+len(creditKeys))
	keys = append(keys, amountKeys...)
	keys = append(keys, debitKeys...)
	return append(keys, creditKeys...)
}
