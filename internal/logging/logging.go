package logging

import (
	"log"
	"os"
	"strings"
)

var allowlistOrder = []string{
	"event",
	"request_id",
	"method",
	"route",
	"status",
	"duration_ms",
	"ip_hash",
	"subject_hash",
	"drink_id",
	"permission",
	"auth_code",
	"store",
	"address",
	"error",
	"version",
}

var allowlistKeys = func() map[string]struct{} {
	keys := make(map[string]struct{}, len(allowlistOrder))
	for _, key := range allowlistOrder {
		keys[key] = struct{}{}
	}
	return keys
}()

// Allowlist prints the known fields of fields as key=value pairs in a fixed
// order. Unknown keys and empty values are dropped.
func Allowlist(logger *log.Logger, fields map[string]string) {
	if logger == nil {
		return
	}
	var parts []string
	for _, key := range allowlistOrder {
		value, ok := fields[key]
		if !ok || value == "" {
			continue
		}
		parts = append(parts, key+"="+quote(value))
	}
	if len(parts) == 0 {
		return
	}
	logger.Print(strings.Join(parts, " "))
}

func Allowed(key string) bool {
	_, ok := allowlistKeys[key]
	return ok
}

func Fatal(logger *log.Logger, fields map[string]string) {
	Allowlist(logger, fields)
	os.Exit(1)
}

func quote(value string) string {
	if strings.ContainsAny(value, " \t\n\"=") {
		return `"` + strings.NewReplacer(`"`, `\"`, "\n", `\n`, "\t", `\t`).Replace(value) + `"`
	}
	return value
}
