package email

const (
	subjectLeadAssigned      = "Nytt uppdrag väntar på dig"
	subjectLeadAccepted      = "Vi har tagit emot din förfrågan"
	subjectQuoteFmt          = "Din offert på %s SEK"
	subjectQuoteRespondedFmt = "Offert %s av kunden"
)
