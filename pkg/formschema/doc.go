// Package formschema loads declarative wizard form schemas from JSON or YAML
// documents. A document holds named choice sets and one or more forms; each
// form lists its steps, fields, field groups, visibility rules, date
// sequences and dependent selects. Field definitions may be imported from an
// OpenAPI request body and refined in the schema file.
package formschema
