package payload

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// Resource types a commit can carry.
const (
	TypeSupplier  = "supplier"
	TypeProduct   = "product"
	TypeCategory  = "category"
	TypeWorkflow  = "workflow"
	TypeCampaign  = "campaign"
	TypePriceList = "price_list"
)

// ModeFullReplace tells the receiver to overwrite its local copy entirely.
const ModeFullReplace = "full_replace"

// Data is one variant of the payload union.
type Data interface {
	// Kind is the resource type the variant decodes.
	Kind() string
	// Key is the external code the receiver upserts on.
	Key() string
}

// Document is a decoded commit payload.
type Document struct {
	ResourceType   string    `json:"resourceType"`
	Data           Data      `json:"data"`
	DeploymentMode string    `json:"deploymentMode,omitempty"`
	Version        string    `json:"version,omitempty"`
	Timestamp      time.Time `json:"timestamp,omitempty"`

	// raw is the resource data exactly as stored, including fields the
	// typed variant does not model.
	raw json.RawMessage
}

// Encode returns the document as an envelope whose data is the stored
// resource data, byte for byte.
func (d *Document) Encode() ([]byte, error) {
	data := d.raw
	if len(data) == 0 {
		b, err := json.Marshal(d.Data)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(envelope{
		ResourceType:   d.ResourceType,
		Data:           data,
		DeploymentMode: d.DeploymentMode,
		Version:        d.Version,
		Timestamp:      d.Timestamp,
	})
}

type envelope struct {
	ResourceType   string          `json:"resourceType"`
	Data           json.RawMessage `json:"data"`
	DeploymentMode string          `json:"deploymentMode,omitempty"`
	Version        string          `json:"version,omitempty"`
	Timestamp      time.Time       `json:"timestamp,omitempty"`
}

type variant struct {
	schema *jsonschema.Schema
	decode func([]byte) (Data, error)
}

// Registry maps a resource type to its schema and decoder.
type Registry struct {
	mu       sync.RWMutex
	variants map[string]variant
}

// NewRegistry returns a registry with every built-in resource type registered.
func NewRegistry() *Registry {
	r := &Registry{variants: map[string]variant{}}
	r.MustRegister(TypeSupplier, supplierSchema, decodeAs[*Supplier])
	r.MustRegister(TypeProduct, productSchema, decodeAs[*Product])
	r.MustRegister(TypeCategory, categorySchema, decodeAs[*Category])
	r.MustRegister(TypeWorkflow, workflowSchema, decodeAs[*Workflow])
	r.MustRegister(TypeCampaign, campaignSchema, decodeAs[*Campaign])
	r.MustRegister(TypePriceList, priceListSchema, decodeAs[*PriceList])
	return r
}

// Register adds a resource type with the JSON schema its data must satisfy.
func (r *Registry) Register(resourceType, schema string, decode func([]byte) (Data, error)) error {
	url := "mem://payload/" + resourceType + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		return fmt.Errorf("add schema %s: %w", resourceType, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return fmt.Errorf("compile schema %s: %w", resourceType, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variants[resourceType] = variant{schema: compiled, decode: decode}
	return nil
}

// MustRegister is Register for static schemas.
func (r *Registry) MustRegister(resourceType, schema string, decode func([]byte) (Data, error)) {
	if err := r.Register(resourceType, schema, decode); err != nil {
		panic(err)
	}
}

// Types lists the registered resource types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.variants))
	for k := range r.variants {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Decode validates raw against the schema of resourceType and decodes it.
// raw may be either an envelope ({resourceType, data, ...}) or the bare
// resource data.
func (r *Registry) Decode(resourceType string, raw []byte) (*Document, error) {
	r.mu.RLock()
	v, ok := r.variants[resourceType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported resource type %q, expected one of %s",
			resourceType, strings.Join(r.Types(), ", "))
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("payload is not valid json")
	}

	doc := &Document{ResourceType: resourceType}
	data := raw
	if isEnvelope(raw) {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode envelope: %w", err)
		}
		if env.ResourceType != resourceType {
			return nil, fmt.Errorf("payload resourceType %q does not match %q", env.ResourceType, resourceType)
		}
		doc.DeploymentMode = env.DeploymentMode
		doc.Version = env.Version
		doc.Timestamp = env.Timestamp
		data = env.Data
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("decode %s data: %w", resourceType, err)
	}
	if err := v.schema.Validate(generic); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", resourceType, err)
	}
	d, err := v.decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s data: %w", resourceType, err)
	}
	doc.Data = d
	doc.raw = data
	if doc.DeploymentMode == "" {
		doc.DeploymentMode = ModeFullReplace
	}
	return doc, nil
}

// Envelope builds the payload stored on an automatically generated commit.
func Envelope(d Data, version string, at time.Time) ([]byte, error) {
	return json.Marshal(Document{
		ResourceType:   d.Kind(),
		Data:           d,
		DeploymentMode: ModeFullReplace,
		Version:        version,
		Timestamp:      at.UTC(),
	})
}

func isEnvelope(raw []byte) bool {
	res := gjson.GetManyBytes(raw, "resourceType", "data")
	return res[0].Type == gjson.String && res[1].IsObject()
}

func decodeAs[T Data](raw []byte) (Data, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
