// Package jsonapi writes JSON:API documents (https://jsonapi.org).
package jsonapi

// ContentType is the JSON:API media type.
const ContentType = "application/vnd.api+json"

// Document is a top-level document. It carries data or errors, and optional meta.
type Document struct {
	Data   any     `json:"data,omitempty"`
	Errors []Error `json:"errors,omitempty"`
	Meta   Meta    `json:"meta,omitempty"`
}

// Meta holds non-standard information.
type Meta map[string]any

// Links holds the self link of a resource.
type Links struct {
	Self string `json:"self,omitempty"`
}

// Resource is a resource object.
type Resource struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Links      *Links         `json:"links,omitempty"`
}

// ResourceBuilder assembles a Resource attribute by attribute.
type ResourceBuilder struct {
	r Resource
}

// NewResource starts a resource of the given type and id.
func NewResource(typ, id string) *ResourceBuilder {
	return &ResourceBuilder{r: Resource{Type: typ, ID: id, Attributes: map[string]any{}}}
}

// Attr sets one attribute.
func (b *ResourceBuilder) Attr(key string, value any) *ResourceBuilder {
	b.r.Attributes[key] = value
	return b
}

// Link sets the self link.
func (b *ResourceBuilder) Link(self string) *ResourceBuilder {
	b.r.Links = &Links{Self: self}
	return b
}

// Build returns the resource.
func (b *ResourceBuilder) Build() Resource {
	return b.r
}
