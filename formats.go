package transmute

import (
	"github.com/flanksource/transmute/api"
	"github.com/flanksource/transmute/document"
	"github.com/samber/lo"
)

// Catalog lists the accepted formats and the document route table.
type Catalog struct {
	Images    []api.Format     `json:"images" yaml:"images"`
	Documents []api.Format     `json:"documents" yaml:"documents"`
	Routes    []document.Route `json:"routes" yaml:"routes"`
}

// Formats returns the catalog. Routes lists only supported document pairs
// unless all is set.
func Formats(all bool) Catalog {
	routes := document.Routes()
	if !all {
		routes = lo.Filter(routes, func(r document.Route, _ int) bool { return r.Supported() })
	}
	return Catalog{
		Images:    api.Formats(api.FamilyImage),
		Documents: api.Formats(api.FamilyDocument),
		Routes:    routes,
	}
}
