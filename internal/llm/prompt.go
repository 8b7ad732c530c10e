package llm

import "strings"

// SystemPrompt is the instruction sent with every extraction call.
const SystemPrompt = `You are a payslip data extraction assistant. Extract the financial data of ONE monthly payslip into a single JSON object.

The object must have exactly these top-level keys:
- "earnings": object mapping each earnings pay code (e.g. "BPAY", "DA", "MSP", "TPTA") to its amount as a number
- "deductions": object mapping each deduction code (e.g. "DSOP", "AGIF", "ITAX") to its amount as a number
- "grossPay": number, the total of all earnings
- "totalDeductions": number, the total of all deductions
- "netRemittance": number, the amount remitted to the bank
- "month": the pay month as an UPPERCASE English month name (e.g. "JANUARY")
- "year": the pay year as an integer

"earnings", "deductions", "grossPay", "totalDeductions" and "netRemittance" are required. "month" and "year" are optional; omit them if they are not printed on the payslip.

RECONCILIATION RULES:
- netRemittance must equal grossPay - totalDeductions within 1%.
- grossPay should equal the sum of earnings; totalDeductions should equal the sum of deductions.
- Do NOT include opening or closing balances, fund balances, loan balances, or "credit balance released" lines.
- Do NOT put totals, refunds, or the amount credited to the bank into "deductions".
- Use plain numbers without currency symbols or thousands separators. Omit zero amounts.

Return ONLY the JSON object, with no markdown formatting, no code fences and no explanation.`

// BuildTextPrompt wraps a redacted payslip text for the first pass.
func BuildTextPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Extract the payslip data from the following text.\n\n")
	b.WriteString("PAYSLIP TEXT:\n")
	b.WriteString(text)
	return b.String()
}

// BuildVisionPrompt is the first-pass instruction for an image payload.
func BuildVisionPrompt() string {
	return SystemPrompt + "\n\nExtract the payslip data from the attached image."
}

// BuildIndependentPrompt asks for a fresh extraction. It never includes a prior result.
func BuildIndependentPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Read the following payslip carefully from the beginning and extract its data independently. ")
	b.WriteString("Re-derive every line item and total directly from the document text.\n\n")
	b.WriteString("PAYSLIP TEXT:\n")
	b.WriteString(text)
	return b.String()
}

// BuildIndependentVisionPrompt is BuildIndependentPrompt for an image payload.
func BuildIndependentVisionPrompt() string {
	return SystemPrompt + "\n\nRead the attached payslip image carefully from the beginning and extract its data independently. " +
		"Re-derive every line item and total directly from the image."
}

// BuildReconciliationPrompt asks for a focused re-extraction after the totals failed to reconcile.
func BuildReconciliationPrompt(text, hint string) string {
	var b strings.Builder
	b.WriteString("A previous extraction of this payslip did not reconcile. ")
	b.WriteString("Extract the data again, paying particular attention to the totals and to which lines are real earnings and deductions.\n\n")
	if hint != "" {
		b.WriteString("PROBLEMS FOUND:\n")
		b.WriteString(hint)
		b.WriteString("\n\n")
	}
	b.WriteString("PAYSLIP TEXT:\n")
	b.WriteString(text)
	return b.String()
}

// BuildReconciliationVisionPrompt is BuildReconciliationPrompt for an image payload.
func BuildReconciliationVisionPrompt(hint string) string {
	p := SystemPrompt + "\n\nA previous extraction of the attached payslip did not reconcile. " +
		"Extract the data again, paying particular attention to the totals and to which lines are real earnings and deductions."
	if hint != "" {
		p += "\n\nPROBLEMS FOUND:\n" + hint
	}
	return p
}
