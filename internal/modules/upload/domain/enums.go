//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// Outcome is the result recorded for one manifest entry
// ENUM(success,timeout,failed)
type Outcome string
