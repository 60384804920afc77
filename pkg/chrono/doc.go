// Package chrono performs light chronological validation: a sequence of date
// inputs must be strictly increasing, and single dates may be required not to
// lie in the future. Dates use the dd/mm/yyyy layout unless a sequence sets
// its own.
package chrono
