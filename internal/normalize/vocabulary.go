package normalize

// DefaultAliases maps normalized spellings to canonical pay and deduction codes.
// Canonical codes always map to themselves and need no entry.
var DefaultAliases = map[string]string{
	// earnings
	"BASIC PAY":                    "BPAY",
	"BAND PAY":                     "BPAY",
	"BASIC":                        "BPAY",
	"PAY IN THE LEVEL":             "BPAY",
	"PAY IN LEVEL":                 "BPAY",
	"BP":                           "BPAY",
	"DEARNESS ALLOWANCE":           "DA",
	"DEARNESS ALLCE":               "DA",
	"MILITARY SERVICE PAY":         "MSP",
	"MIL SERVICE PAY":              "MSP",
	"TRANSPORT ALLOWANCE":          "TPTA",
	"TPT ALLOWANCE":                "TPTA",
	"TPT ALLCE":                    "TPTA",
	"DA ON TPTA":                   "TPTADA",
	"DA ON TRANSPORT ALLOWANCE":    "TPTADA",
	"HOUSE RENT ALLOWANCE":         "HRA",
	"CHILDREN EDUCATION ALLOWANCE": "CEA",
	"KIT MAINTENANCE ALLOWANCE":    "KMA",
	"FIELD AREA ALLOWANCE":         "FAA",
	"HIGH ALTITUDE ALLOWANCE":      "HAA",
	"SPECIAL ALLOWANCE":            "SPLA",
	"CONVEYANCE ALLOWANCE":         "CONVA",
	"MEDICAL ALLOWANCE":            "MEDA",
	"LEAVE TRAVEL ALLOWANCE":       "LTA",

	// deductions
	"DSOP FUND SUBSCRIPTION":    "DSOP",
	"DSOPF SUBSCRIPTION":        "DSOP",
	"DSOPF":                     "DSOP",
	"DSOP FUND":                 "DSOP",
	"AFPP FUND SUBSCRIPTION":    "DSOP",
	"AFPP":                      "DSOP",
	"AFPPF":                     "DSOP",
	"ARMY GROUP INSURANCE FUND": "AGIF",
	"AGI FUND":                  "AGIF",
	"AGIF SUBSCRIPTION":         "AGIF",
	"INCOME TAX":                "ITAX",
	"IT":                        "ITAX",
	"I TAX":                     "ITAX",
	"TDS":                       "ITAX",
	"EDUCATION CESS":            "EHCESS",
	"EDN CESS":                  "EHCESS",
	"HEALTH AND EDUCATION CESS": "EHCESS",
	"HEALTH & EDUCATION CESS":   "EHCESS",
	"GENERAL PROVIDENT FUND":    "GPF",
	"PROVIDENT FUND":            "PF",
	"EMPLOYEES PROVIDENT FUND":  "PF",
	"EPF":                       "PF",
	"PROFESSIONAL TAX":          "PTAX",
	"PROF TAX":                  "PTAX",
	"POSTAL LIFE INSURANCE":     "PLI",
	"LICENCE FEE":               "LF",
	"LICENSE FEE":               "LF",

	"CENTRAL GOVERNMENT EMPLOYEES GROUP INSURANCE SCHEME": "CGEGIS",
}

// DefaultNonFinancialKeywords mark lines copied from ledger sections rather than the pay statement.
var DefaultNonFinancialKeywords = []string{
	"OPENING BALANCE",
	"CLOSING BALANCE",
	"CREDIT BALANCE RELEASED",
	"BALANCE B/F",
	"BALANCE C/F",
	"BROUGHT FORWARD",
	"CARRIED FORWARD",
	"FUND BALANCE",
	"LOAN BALANCE",
	"PROGRESSIVE TOTAL",
}

// DefaultSuspiciousDeductionKeywords indicate a misclassified total, refund or remittance.
var DefaultSuspiciousDeductionKeywords = []string{
	"TOTAL",
	"GROSS",
	"NET PAY",
	"NET REMITTANCE",
	"NET AMOUNT",
	"AMOUNT CREDITED",
	"CREDITED TO BANK",
	"REFUND",
	"BALANCE",
}
