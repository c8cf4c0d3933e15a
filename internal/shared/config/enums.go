//go:generate go run github.com/abice/go-enum --file=$GOFILE --names --nocase

package config

// AppEnv represents the application environment
// ENUM(local,production,development,testing)
type AppEnv string

// CursorBackend selects where the archive cursor is persisted
// ENUM(file,bbolt,sqlite,postgres,redis,memory)
type CursorBackend string
