//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package domain

// State is the lifecycle state of an archive run
// ENUM(idle,running,completed,interrupted,fatal)
type State string
