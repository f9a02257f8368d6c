// Package domain contains the core business entities for margin.
// It has no dependencies on adapters or infrastructure.
package domain
