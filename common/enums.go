// Package common holds small pieces shared by the core and the command line
// layer: book identifiers and enumerations used in configuration and terms
// files.
package common

// Kind of X-Ray entity, Kindle renders people and terms on separate tabs.
// ENUM(character, topic)
type EntityKind string

func (k EntityKind) IsCharacter() bool {
	return k == EntityKindCharacter
}
