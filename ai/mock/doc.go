// Package mock provides test doubles for the ai interfaces.
//
// The mocks are deterministic and require no network access. Behavior can
// be overridden per-test via function fields.
package mock
