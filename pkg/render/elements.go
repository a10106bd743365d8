package render

import "github.com/sauldoescode/saul.app/pkg/vdom"

// isVoidElement returns true if the tag is a void element.
func isVoidElement(tag string) bool {
	return vdom.IsVoidElement(tag)
}

// booleanAttrs are attributes that don't need a value.
// When true, they're rendered as just the attribute name.
var booleanAttrs = map[string]bool{
	"async":        true,
	"autofocus":    true,
	"checked":      true,
	"defer":        true,
	"disabled":     true,
	"hidden":       true,
	"multiple":     true,
	"open":         true,
	"readonly":     true,
	"required":     true,
	"route-active": true,
	"selected":     true,
}

// isBooleanAttr returns true if the attribute is a boolean attribute.
func isBooleanAttr(name string) bool {
	return booleanAttrs[name]
}
