package category

const defaultRecipient = "regmibhuwan555@gmail.com"

// Default is the built-in directory used when no category file is configured.
func Default() *Directory {
	return New([]Mapping{
		{Label: AnonymousFeedback, RecipientName: "Management", Email: defaultRecipient, Anonymous: true},
		{Label: "Payroll / CFO Inquiry", RecipientName: "Payroll Department", Email: defaultRecipient},
		{Label: "Business Operations", RecipientName: "Operations Team", Email: defaultRecipient},
		{Label: "People Services (HR)", RecipientName: "HR Department", Email: defaultRecipient},
		{Label: "General Inquiry", RecipientName: "Office Staff", Email: defaultRecipient},

		{Label: "Broc", RecipientName: "Broc", Email: defaultRecipient},
		{Label: "Nicole", RecipientName: "Nicole", Email: defaultRecipient},
		{Label: "Tim", RecipientName: "Tim", Email: defaultRecipient},
		{Label: "Denise", RecipientName: "Denise", Email: defaultRecipient},
		{Label: "Alfa", RecipientName: "Alfa", Email: defaultRecipient},
		{Label: "Luke", RecipientName: "Luke", Email: defaultRecipient},
		{Label: "Jeff", RecipientName: "Jeff", Email: defaultRecipient},
		{Label: "Troy", RecipientName: "Troy", Email: defaultRecipient},
		{Label: "Dean", RecipientName: "Dean", Email: defaultRecipient},
	})
}
