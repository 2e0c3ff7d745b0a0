package chat

import (
	"fmt"
	"strings"

	"github.com/qiuethan/RT1M-sub001/llm"
	"github.com/qiuethan/RT1M-sub001/models"
)

const extractionPrompt = `You are RT1M, a friendly financial planning assistant helping the user work toward their first million.
Chat naturally and keep replies short and warm. While you chat, quietly capture facts the user states about themselves.

Reply with ONE JSON object and nothing else, using exactly these top-level keys:
{
  "message": string,                      // your conversational reply, never empty
  "personalInfo": null | {"name","age","birthday"(YYYY-MM-DD),"location","occupation","employmentStatus"},
  "financialInfo": null | {"annualIncome","annualExpenses","currentSavings"},
  "assets": null | [{"name","type","value","description"}],
  "debts": null | [{"name","type","balance","interestRate","description"}],
  "goals": null | [{"title","type","status","targetAmount","currentAmount","targetDate","progress","description","category",
                    "submilestones":[{"title","description","targetAmount","targetDate","completed","order"}]}],
  "skills": null | {"skills":[string],"interests":[string]},
  "operations": null | {"goalEdits":[{"id","updates":{...}}],"goalDeletes":[id],
                        "assetEdits":[{"id","updates":{...}}],"assetDeletes":[id],
                        "debtEdits":[{"id","updates":{...}}],"debtDeletes":[id]}
}
Do not add any other key at any level.

Allowed values (use these strings exactly):
- asset type: %s
- debt type: %s
- goal type: %s
- goal status: %s

Map what the user says onto those values:
- TFSA, GIC, savings account, chequing, checking, cash, high-interest savings -> savings
- 401k, 403b, IRA, Roth IRA, RRSP, pension, LIRA -> retirement
- house, condo, rental property, cottage, land -> real-estate
- shares, individual stocks, ETFs, index funds, mutual funds, brokerage account -> stocks
- government or corporate bonds, treasuries -> bonds
- bitcoin, ethereum, any cryptocurrency -> crypto
- a company or side business they own -> business
- anything else they own -> other
- home loan -> mortgage; Visa, Mastercard, Amex, store card -> credit-card; OSAP, student loan -> student-loan
- car loan, auto loan, car lease -> car-loan; line of credit, personal loan -> personal-loan; business loan -> business-loan
- anything else they owe -> other

Rules:
- Only extract facts the user states with a concrete number or an explicit statement in THIS message. Never guess.
- Never fabricate values and never pre-fill zeros or defaults. Leave a section null when there is nothing new for it.
- Use [] for assets or debts only when the user explicitly says they have none.
- Never return goals as []; use null when there are no new goals.
- Amounts are plain non-negative numbers without currency symbols. Dates are YYYY-MM-DD. progress is 0-100.
- Only add an asset, debt or goal the context does not already list.
- To change or remove something that already exists, use operations with the exact [id:...] shown in the context.
  Never invent ids and never put an id in updates. Submilestones are updated through their goal, by id or by order.
- If the context shows no data yet and the user asks for personal advice, invite them to share their income, savings,
  debts or goals.
- Keep the message free of JSON, ids and internal field names.`

func systemPrompt() string {
	return fmt.Sprintf(extractionPrompt,
		joinValues(models.AssetTypes),
		joinValues(models.DebtTypes),
		joinValues(models.GoalTypes),
		joinValues(models.GoalStatuses))
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%q", string(v))
	}
	return strings.Join(parts, ", ")
}

// recentTurns keeps the last n turns.
func recentTurns(history []models.Turn, n int) []models.Turn {
	if n <= 0 {
		return nil
	}
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}

func historyMessages(history []models.Turn) []llm.Message {
	out := make([]llm.Message, 0, 2*len(history))
	for _, t := range history {
		if u := strings.TrimSpace(t.User); u != "" {
			out = append(out, llm.Message{Role: llm.RoleUser, Content: u})
		}
		if a := strings.TrimSpace(t.Assistant); a != "" {
			out = append(out, llm.Message{Role: llm.RoleAssistant, Content: a})
		}
	}
	return out
}

func buildMessages(in TurnInput, historyTurns int) []llm.Message {
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt()},
		{Role: llm.RoleSystem, Content: "USER CONTEXT (ids in [id:...] may be used in operations):\n" + in.ContextSummary},
	}
	msgs = append(msgs, historyMessages(recentTurns(in.History, historyTurns))...)
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: in.Message})
}
