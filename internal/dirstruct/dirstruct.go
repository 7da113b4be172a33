// Package dirstruct expands the directory structure template which decides
// where a data store places the payload of an upload, relative to its root.
//
// The template may contain the placeholders {year}, {month}, {day}, {hour}
// and {minute}, which are substituted from the upload's creation time, and
// env[NAME] placeholders, which are substituted from an environment map
// captured once at process start. Unknown placeholders are left untouched.
package dirstruct

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var reEnvToken = regexp.MustCompile(`env\[([A-Za-z_][A-Za-z0-9_]*)\]`)

// Env is an immutable snapshot of the process environment.
type Env map[string]string

// CaptureEnv snapshots the current process environment. The snapshot is
// taken once at startup and passed around explicitly, so changes to the
// environment at runtime never influence where payloads are placed.
func CaptureEnv() Env {
	env := make(Env)
	for _, entry := range os.Environ() {
		if name, value, ok := strings.Cut(entry, "="); ok {
			env[name] = value
		}
	}
	return env
}

// Expand substitutes the time and environment placeholders in template.
// The time placeholders are expanded from t, which callers must derive from
// the upload's creation time so that the resulting path is stable across
// requests and restarts.
func Expand(template string, t time.Time, env Env) string {
	t = t.UTC()

	expanded := strings.NewReplacer(
		"{year}", strconv.Itoa(t.Year()),
		"{month}", strconv.Itoa(int(t.Month())),
		"{day}", strconv.Itoa(t.Day()),
		"{hour}", strconv.Itoa(t.Hour()),
		"{minute}", strconv.Itoa(t.Minute()),
	).Replace(template)

	expanded = reEnvToken.ReplaceAllStringFunc(expanded, func(token string) string {
		name := reEnvToken.FindStringSubmatch(token)[1]
		if value, ok := env[name]; ok {
			return value
		}
		return token
	})

	return strings.Trim(expanded, "/")
}
