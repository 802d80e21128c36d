package payload

import "time"

type Supplier struct {
	Code       string         `json:"code"`
	Name       string         `json:"name"`
	TaxID      string         `json:"taxId,omitempty"`
	Email      string         `json:"email,omitempty"`
	Phone      string         `json:"phone,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func (*Supplier) Kind() string  { return TypeSupplier }
func (s *Supplier) Key() string { return s.Code }

type Product struct {
	SKU          string         `json:"sku"`
	Name         string         `json:"name"`
	CategoryCode string         `json:"categoryCode,omitempty"`
	PriceCents   int64          `json:"priceCents"`
	Currency     string         `json:"currency,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

func (*Product) Kind() string  { return TypeProduct }
func (p *Product) Key() string { return p.SKU }

type Category struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	ParentCode string `json:"parentCode,omitempty"`
}

func (*Category) Kind() string  { return TypeCategory }
func (c *Category) Key() string { return c.Code }

type WorkflowStep struct {
	Name   string         `json:"name"`
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

type Workflow struct {
	WorkflowKey string         `json:"key"`
	Name        string         `json:"name"`
	Trigger     string         `json:"trigger,omitempty"`
	Steps       []WorkflowStep `json:"steps"`
}

func (*Workflow) Kind() string  { return TypeWorkflow }
func (w *Workflow) Key() string { return w.WorkflowKey }

type Campaign struct {
	Code            string     `json:"code"`
	Name            string     `json:"name"`
	DiscountPercent float64    `json:"discountPercent"`
	StartsAt        time.Time  `json:"startsAt"`
	EndsAt          *time.Time `json:"endsAt,omitempty"`
	ProductSKUs     []string   `json:"productSkus,omitempty"`
}

func (*Campaign) Kind() string  { return TypeCampaign }
func (c *Campaign) Key() string { return c.Code }

type PriceListItem struct {
	SKU        string `json:"sku"`
	PriceCents int64  `json:"priceCents"`
}

type PriceList struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Currency string          `json:"currency"`
	Items    []PriceListItem `json:"items"`
}

func (*PriceList) Kind() string  { return TypePriceList }
func (p *PriceList) Key() string { return p.Code }
