package document

import (
	"github.com/flanksource/transmute/api"
)

// RouteKind is how a (source, target) pair is assembled.
type RouteKind string

const (
	// RoutePaged decodes to text, paginates and encodes pages.
	RoutePaged RouteKind = "paged"
	// RouteText decodes to text and emits it unchanged.
	RouteText RouteKind = "text"
	// RouteDirect encodes a plain-text source straight into the target.
	RouteDirect RouteKind = "direct"

	RouteUnimplemented RouteKind = "unimplemented"
	RouteImpossible    RouteKind = "impossible"
)

// Route is one entry of the route table.
type Route struct {
	From api.Format `json:"from" yaml:"from"`
	To   api.Format `json:"to" yaml:"to"`
	Kind RouteKind  `json:"kind" yaml:"kind"`
}

func (r Route) Supported() bool {
	switch r.Kind {
	case RoutePaged, RouteText, RouteDirect:
		return true
	}
	return false
}

// Err returns the UnsupportedConversion error for unsupported routes and nil
// otherwise.
func (r Route) Err() error {
	switch r.Kind {
	case RouteUnimplemented:
		return api.Unsupported(r.From, r.To, api.ReasonUnimplemented)
	case RouteImpossible:
		return api.Unsupported(r.From, r.To, api.ReasonImpossible)
	}
	return nil
}

type pair struct{ from, to api.Format }

var table = map[pair]RouteKind{
	{api.DOCX, api.PDF}: RoutePaged,
	{api.TXT, api.PDF}:  RoutePaged,
	{api.DOCX, api.TXT}: RouteText,
	{api.TXT, api.DOCX}: RouteDirect,
	{api.PDF, api.TXT}:  RouteUnimplemented,
	{api.PDF, api.DOCX}: RouteUnimplemented,
}

// Lookup classifies a pair. Identity pairs, unknown formats and pairs that
// leave the document family are impossible.
func Lookup(from, to api.Format) Route {
	r := Route{From: from, To: to, Kind: RouteImpossible}
	if from == to || from.Family() != api.FamilyDocument || to.Family() != api.FamilyDocument {
		return r
	}
	if kind, ok := table[pair{from, to}]; ok {
		r.Kind = kind
	}
	return r
}

// Routes enumerates every ordered pair of document formats, identity pairs
// included, sorted by source then target.
func Routes() []Route {
	formats := api.Formats(api.FamilyDocument)
	routes := make([]Route, 0, len(formats)*len(formats))
	for _, from := range formats {
		for _, to := range formats {
			routes = append(routes, Lookup(from, to))
		}
	}
	return routes
}
