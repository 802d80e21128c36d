package payload

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeBareSupplier(t *testing.T) {
	r := NewRegistry()

	doc, err := r.Decode(TypeSupplier, []byte(`{"code":"SUP-1","name":"Acme Foods","email":"ops@acme.test"}`))
	require.NoError(t, err)
	require.Equal(t, TypeSupplier, doc.ResourceType)
	require.Equal(t, ModeFullReplace, doc.DeploymentMode)

	s, ok := doc.Data.(*Supplier)
	require.True(t, ok)
	require.Equal(t, "SUP-1", s.Key())
	require.Equal(t, "ops@acme.test", s.Email)
}

func TestDecodeEnvelope(t *testing.T) {
	r := NewRegistry()
	raw := []byte(`{
		"resourceType": "price_list",
		"deploymentMode": "full_replace",
		"version": "2.1.0",
		"timestamp": "2026-03-01T10:00:00Z",
		"data": {"code":"PL-EU","name":"Europe","currency":"EUR","items":[{"sku":"A1","priceCents":1299}]}
	}`)

	doc, err := r.Decode(TypePriceList, raw)
	require.NoError(t, err)
	require.Equal(t, "2.1.0", doc.Version)
	require.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), doc.Timestamp)

	pl := doc.Data.(*PriceList)
	require.Len(t, pl.Items, 1)
	require.EqualValues(t, 1299, pl.Items[0].PriceCents)
}

func TestDecodeRejects(t *testing.T) {
	r := NewRegistry()

	cases := []struct {
		name, resourceType, raw string
	}{
		{"unknown type", "warehouse", `{"code":"x"}`},
		{"not json", TypeSupplier, `{"code":`},
		{"missing required field", TypeSupplier, `{"code":"SUP-1"}`},
		{"wrong envelope type", TypeProduct, `{"resourceType":"supplier","data":{"code":"a","name":"b"}}`},
		{"negative price", TypeProduct, `{"sku":"A1","name":"Apple","priceCents":-1}`},
		{"workflow without steps", TypeWorkflow, `{"key":"onboard","name":"Onboard","steps":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Decode(tc.resourceType, []byte(tc.raw))
			require.Error(t, err)
		})
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	r := NewRegistry()
	at := time.Date(2026, 5, 2, 8, 30, 0, 0, time.FixedZone("CET", 3600))

	raw, err := Envelope(&Category{Code: "FRUIT", Name: "Fruit"}, "1.0.0", at)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	require.Equal(t, "category", generic["resourceType"])
	require.Equal(t, "full_replace", generic["deploymentMode"])
	require.Equal(t, "2026-05-02T07:30:00Z", generic["timestamp"])

	doc, err := r.Decode(TypeCategory, raw)
	require.NoError(t, err)
	require.Equal(t, "FRUIT", doc.Data.Key())
	require.Equal(t, "1.0.0", doc.Version)
}

func TestDecodeUnknownTypeListsSupported(t *testing.T) {
	_, err := NewRegistry().Decode("warehouse", []byte(`{"code":"x"}`))
	require.EqualError(t, err,
		`unsupported resource type "warehouse", expected one of campaign, category, price_list, product, supplier, workflow`)
}

func TestEncodeKeepsUnmodeledFields(t *testing.T) {
	r := NewRegistry()

	doc, err := r.Decode(TypeSupplier, []byte(`{"code":"SUP-1","name":"Acme","country":"IT","paymentTerms":{"days":30}}`))
	require.NoError(t, err)
	doc.Version = "1.0.0"
	doc.Timestamp = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	out, err := doc.Encode()
	require.NoError(t, err)
	require.JSONEq(t, `{
		"resourceType": "supplier",
		"data": {"code":"SUP-1","name":"Acme","country":"IT","paymentTerms":{"days":30}},
		"deploymentMode": "full_replace",
		"version": "1.0.0",
		"timestamp": "2026-01-02T03:04:05Z"
	}`, string(out))
}

func TestEncodeEnvelopeData(t *testing.T) {
	r := NewRegistry()
	raw := []byte(`{"resourceType":"workflow","version":"1.1.0","data":{"key":"onboard","name":"Onboard","owner":"ops","steps":[{"name":"greet","action":"email"}]}}`)

	doc, err := r.Decode(TypeWorkflow, raw)
	require.NoError(t, err)
	require.Equal(t, "onboard", doc.Data.Key())

	out, err := doc.Encode()
	require.NoError(t, err)
	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out, &env))
	require.Equal(t, "ops", env.Data["owner"])
}
