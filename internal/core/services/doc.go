// Package services implements the core business logic of margin, wiring
// domain entities through the driven ports.
package services
