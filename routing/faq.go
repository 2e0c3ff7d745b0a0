package routing

// FAQEntry is a canned answer for a common generic question.
type FAQEntry struct {
	Questions []string
	Answer    string
}

type faqIndex struct {
	entries []FAQEntry
	exact   map[string]int
	words   [][]map[string]bool
}

func newFAQIndex(entries []FAQEntry) *faqIndex {
	idx := &faqIndex{entries: entries, exact: map[string]int{}}
	for i, e := range entries {
		var ws []map[string]bool
		for _, q := range e.Questions {
			n := Normalize(q)
			idx.exact[n] = i
			ws = append(ws, keywords(n))
		}
		idx.words = append(idx.words, ws)
	}
	return idx
}

// lookup returns the canned answer for norm. Fuzzy matching only runs when
// fuzzy is set.
func (f *faqIndex) lookup(norm string, threshold float64, fuzzy bool) (string, bool) {
	if i, ok := f.exact[norm]; ok {
		return f.entries[i].Answer, true
	}
	if !fuzzy {
		return "", false
	}
	kw := keywords(norm)
	best, bestScore := -1, 0.0
	for i, ws := range f.words {
		for _, w := range ws {
			if s := jaccard(kw, w); s > bestScore {
				best, bestScore = i, s
			}
		}
	}
	if best >= 0 && bestScore >= threshold {
		return f.entries[best].Answer, true
	}
	return "", false
}

// DefaultFAQ is the static set of generic questions answered without a model call.
var DefaultFAQ = []FAQEntry{
	{
		Questions: []string{"what is a 401k", "what is 401k", "how does a 401k work"},
		Answer: "A 401(k) is an employer-sponsored retirement account in the US. You contribute part of each paycheck before tax " +
			"(or after tax for a Roth 401(k)), the money is invested, and it grows tax-deferred until retirement. " +
			"Many employers match part of your contribution, so contributing at least enough to get the full match is usually a good first step.",
	},
	{
		Questions: []string{"what is an ira", "what is a ira", "how does an ira work"},
		Answer: "An IRA (Individual Retirement Account) is a retirement account you open yourself, separate from your employer. " +
			"A traditional IRA may give you a tax deduction now and is taxed on withdrawal; a Roth IRA is funded with after-tax money " +
			"and qualified withdrawals in retirement are tax-free. Annual contribution limits apply.",
	},
	{
		Questions: []string{"roth vs traditional", "roth vs traditional ira", "difference between roth and traditional ira", "roth or traditional"},
		Answer: "The main difference is when you pay tax. Traditional accounts give you a deduction today and you pay tax when you withdraw. " +
			"Roth accounts are funded with after-tax money and grow tax-free. Roth tends to win if you expect a higher tax rate in retirement; " +
			"traditional tends to win if you expect a lower one.",
	},
	{
		Questions: []string{"what is compound interest", "how does compound interest work"},
		Answer: "Compound interest is interest earned on both your original money and the interest it has already earned. " +
			"Over time this snowballs: $10,000 growing at 7% a year becomes roughly $19,700 after 10 years and $76,000 after 30. " +
			"Starting early matters more than almost anything else.",
	},
	{
		Questions: []string{"how do i make a budget", "how to budget", "budgeting basics", "how do i start budgeting", "what is the 50 30 20 rule"},
		Answer: "Start by listing your monthly take-home income and tracking where your money goes for a month. " +
			"A simple framework is 50/30/20: about 50% for needs, 30% for wants and 20% for savings and debt repayment. " +
			"Automate your savings on payday so it happens before you can spend it.",
	},
	{
		Questions: []string{"what is an emergency fund", "how big should an emergency fund be", "why do i need an emergency fund"},
		Answer: "An emergency fund is cash set aside for unexpected expenses such as job loss, medical bills or car repairs. " +
			"A common target is three to six months of essential expenses, kept somewhere safe and easy to access like a high-interest savings account.",
	},
	{
		Questions: []string{"what is an index fund", "how do index funds work"},
		Answer: "An index fund is a mutual fund or ETF that tracks a market index such as the S&P 500. " +
			"Because it simply holds everything in the index, it offers broad diversification at very low fees, " +
			"which makes it a popular core holding for long-term investors.",
	},
	{
		Questions: []string{"what is net worth", "how do you calculate net worth"},
		Answer: "Net worth is everything you own minus everything you owe: the value of your assets (cash, investments, property) " +
			"less your debts (mortgage, loans, credit cards). Tracking it over time is one of the clearest measures of financial progress.",
	},
	{
		Questions: []string{"what is a credit score", "how does a credit score work", "how do i improve credit score"},
		Answer: "A credit score is a number lenders use to judge how likely you are to repay debt. " +
			"It is driven mainly by paying bills on time, keeping credit card balances low relative to limits, " +
			"the age of your accounts and how often you apply for new credit.",
	},
	{
		Questions: []string{"what is a tfsa", "how does a tfsa work"},
		Answer: "A TFSA (Tax-Free Savings Account) is a Canadian account where investment growth and withdrawals are tax-free. " +
			"Contribution room accumulates every year from age 18, and withdrawals are added back to your room the following year.",
	},
	{
		Questions: []string{"what is an rrsp", "what is a rrsp", "how does an rrsp work"},
		Answer: "An RRSP (Registered Retirement Savings Plan) is a Canadian retirement account. Contributions are tax-deductible, " +
			"investments grow tax-deferred and withdrawals are taxed as income, ideally in retirement when your tax rate is lower.",
	},
	{
		Questions: []string{"what is an etf", "what is a etf", "how do etfs work"},
		Answer: "An ETF (exchange-traded fund) is a basket of investments that trades on a stock exchange like a single share. " +
			"ETFs usually have low fees and give instant diversification, and many simply track an index.",
	},
	{
		Questions: []string{"what is diversification", "why is diversification important"},
		Answer: "Diversification means spreading your money across many investments, sectors and asset types so a loss in one " +
			"does not sink your whole portfolio. It reduces risk without necessarily reducing long-term returns.",
	},
	{
		Questions: []string{"what is a stock", "what are stocks"},
		Answer: "A stock is a share of ownership in a company. Its value rises and falls with the company's prospects, " +
			"and some stocks also pay dividends. Over long periods stocks have historically returned more than bonds or cash, with more volatility.",
	},
	{
		Questions: []string{"what is a bond", "what are bonds"},
		Answer: "A bond is a loan you make to a government or company in exchange for regular interest payments and your money back at maturity. " +
			"Bonds are generally less volatile than stocks and are often used to balance risk in a portfolio.",
	},
	{
		Questions: []string{"what is inflation", "how does inflation affect savings"},
		Answer: "Inflation is the general rise in prices over time, which reduces what each dollar can buy. " +
			"Cash earning less than inflation loses purchasing power, which is why long-term savings are usually invested.",
	},
	{
		Questions: []string{"what is dollar cost averaging"},
		Answer: "Dollar-cost averaging means investing a fixed amount on a regular schedule regardless of price. " +
			"You buy more shares when prices are low and fewer when they are high, which removes the pressure of timing the market.",
	},
}
