package connector

import (
	"context"
	"fmt"
	"net/http"
)

type quickbooks struct {
	settings Settings
	client   *http.Client
}

func (q *quickbooks) Name() string { return "quickbooks" }

func (q *quickbooks) SubmitInvoice(ctx context.Context, inv Invoice) (string, error) {
	url := fmt.Sprintf("%s/v3/company/%s/invoice", q.settings.BaseURL, q.settings.CompanyID)
	return postInvoice(ctx, q.client, url, map[string]string{
		"Authorization": "Bearer " + q.settings.APIKey,
	}, inv)
}

type xero struct {
	settings Settings
	client   *http.Client
}

func (x *xero) Name() string { return "xero" }

func (x *xero) SubmitInvoice(ctx context.Context, inv Invoice) (string, error) {
	url := x.settings.BaseURL + "/api.xro/2.0/Invoices"
	return postInvoice(ctx, x.client, url, map[string]string{
		"Authorization":  "Bearer " + x.settings.APIKey,
		"Xero-Tenant-Id": x.settings.CompanyID,
	}, inv)
}

type fortnox struct {
	settings Settings
	client   *http.Client
}

func (f *fortnox) Name() string { return "fortnox" }

func (f *fortnox) SubmitInvoice(ctx context.Context, inv Invoice) (string, error) {
	url := f.settings.BaseURL + "/3/invoices"
	return postInvoice(ctx, f.client, url, map[string]string{
		"Access-Token": f.settings.APIKey,
	}, inv)
}

type visma struct {
	settings Settings
	client   *http.Client
}

func (v *visma) Name() string { return "visma" }

func (v *visma) SubmitInvoice(ctx context.Context, inv Invoice) (string, error) {
	url := v.settings.BaseURL + "/v2/customerinvoices"
	return postInvoice(ctx, v.client, url, map[string]string{
		"Authorization": "Bearer " + v.settings.APIKey,
	}, inv)
}
