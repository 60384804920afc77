// Package units serves the care units of a health institution as options
// for a dependent select, together with the catalog backing them.
//
// The handler responds to GET and HEAD requests. The institution id is read
// from the parent query parameter; the response is JSON ({"data": [...]})
// or, when format=html is requested, a list of <option> elements. The
// default catalog is embedded under data/units.yaml.
package units
