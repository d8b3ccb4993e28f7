package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"spendora/internal/core"
)

// ExpenseCategories are offered to the model when categorizing an expense.
var ExpenseCategories = []string{
	"Software", "Marketing", "Office Supplies", "Travel", "Utilities",
	"Meals & Entertainment", "Professional Services", "Rent", "Other",
}

const systemPrompt = "You are a meticulous bookkeeping assistant. Return ONLY a single valid JSON object that matches the requested schema. Do not wrap it in markdown."

const invoicePrompt = `Analyze the provided invoice and extract the following information in JSON format:
- vendor: The name of the company that issued the invoice.
- invoiceDate: The date the invoice was issued.
- dueDate: The date the payment is due.
- totalAmount: The total amount due.
- category: A suggested expense category for this invoice (e.g., "Office Supplies", "Software", "Utilities", "Travel").
- taxType: If GST or TDS is mentioned, specify "GST" or "TDS". Otherwise, omit this field.
- taxAmount: If a tax amount is specified, extract it here. Otherwise, omit this field.
- lineItems: A list of all items, including description, quantity, unit price, and total amount for each item.
- summary: A brief one-sentence summary of the invoice.`

func categorizePrompt(description string, amount float64) string {
	return fmt.Sprintf(`Categorize the following expense based on its description and amount. Provide a suitable category and a brief justification for your choice.
Description: %q
Amount: $%s

Possible categories include: %s.`,
		description, strconv.FormatFloat(amount, 'f', -1, 64), strings.Join(ExpenseCategories, ", "))
}

func reconcilePrompt(statement string, ledger []core.BankTransaction) (string, error) {
	ledgerJSON, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode ledger: %w", err)
	}
	return fmt.Sprintf("Reconcile the following bank statement against the provided ledger.\n\n"+
		"**Bank Statement:**\n```\n%s\n```\n\n"+
		"**Ledger Items:**\n```json\n%s\n```\n\n"+
		"Your task is to:\n"+
		"1. Identify bank transactions that match ledger items. A match occurs if the amount is very close and the description is related.\n"+
		"2. List all unmatched bank transactions.\n"+
		"3. For each unmatched transaction, suggest a likely expense category.\n\n"+
		"Return the result in a JSON object.",
		strings.TrimSpace(statement), ledgerJSON), nil
}

func reportPrompt(ledger []core.LedgerItem) (string, error) {
	ledgerJSON, err := json.MarshalIndent(ledger, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode ledger: %w", err)
	}
	return fmt.Sprintf("Analyze the following ledger of financial transactions and generate a detailed report in JSON format.\n\n"+
		"**Ledger Data:**\n```json\n%s\n```\n\n"+
		"The report should include:\n"+
		"1. **executiveSummary**: A concise, 2-3 sentence summary of the overall financial health and key trends.\n"+
		"2. **expenseBreakdown**: An array of objects, each with 'category', 'totalAmount', and 'percentage' of total expenses.\n"+
		"3. **keyInsights**: An array of 3-5 bullet-point strings identifying notable spending patterns, potential savings, or areas of concern.\n"+
		"4. **recommendations**: An array of 3-5 actionable recommendations for financial improvement.",
		ledgerJSON), nil
}
