package payload

const supplierSchema = `{
  "type": "object",
  "required": ["code", "name"],
  "properties": {
    "code": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 1},
    "taxId": {"type": "string"},
    "email": {"type": "string"},
    "phone": {"type": "string"},
    "attributes": {"type": "object"}
  }
}`

const productSchema = `{
  "type": "object",
  "required": ["sku", "name", "priceCents"],
  "properties": {
    "sku": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 1},
    "categoryCode": {"type": "string"},
    "priceCents": {"type": "integer", "minimum": 0},
    "currency": {"type": "string", "pattern": "^[A-Z]{3}$"},
    "attributes": {"type": "object"}
  }
}`

const categorySchema = `{
  "type": "object",
  "required": ["code", "name"],
  "properties": {
    "code": {"type": "string", "minLength": 1},
    "name": {"type": "string", "minLength": 1},
    "parentCode": {"type": "string"}
  }
}`

const workflowSchema = `{
  "type": "object",
  "required": ["key", "name", "steps"],
  "properties": {
    "key": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "trigger": {"type": "string"},
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "action"],
        "properties": {
          "name": {"type": "string"},
          "action": {"type": "string"},
          "params": {"type": "object"}
        }
      }
    }
  }
}`

const campaignSchema = `{
  "type": "object",
  "required": ["code", "name", "discountPercent", "startsAt"],
  "properties": {
    "code": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "discountPercent": {"type": "number", "exclusiveMinimum": 0, "maximum": 100},
    "startsAt": {"type": "string", "format": "date-time"},
    "endsAt": {"type": "string", "format": "date-time"},
    "productSkus": {"type": "array", "items": {"type": "string"}}
  }
}`

const priceListSchema = `{
  "type": "object",
  "required": ["code", "name", "currency", "items"],
  "properties": {
    "code": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "currency": {"type": "string", "pattern": "^[A-Z]{3}$"},
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["sku", "priceCents"],
        "properties": {
          "sku": {"type": "string", "minLength": 1},
          "priceCents": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`
