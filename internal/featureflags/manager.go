// Package featureflags gates optional features such as AI chat and live recording.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Flag names understood by the server.
const (
	AIChat    = "ai_chat"
	Recording = "recording"
)

// rule is a parsed flag value: fully on, fully off, or a percentage rollout.
type rule struct {
	raw     string
	percent int
}

// Manager evaluates flags declared as a comma-separated key=value list,
// e.g. "ai_chat=on,recording=25%".
type Manager struct {
	rules map[string]rule
}

// NewManager parses raw. Malformed entries are skipped.
func NewManager(raw string) *Manager {
	rules := make(map[string]rule)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		if r, ok := parseRule(value); ok {
			rules[key] = r
		}
	}
	return &Manager{rules: rules}
}

func parseRule(value string) (rule, bool) {
	switch value {
	case "on", "true", "1":
		return rule{raw: value, percent: 100}, true
	case "off", "false", "0":
		return rule{raw: value, percent: 0}, true
	}
	pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
	if !strings.HasSuffix(value, "%") || err != nil {
		return rule{}, false
	}
	return rule{raw: value, percent: min(max(pct, 0), 100)}, true
}

// Enabled reports whether name is on for userID. Partial rollouts bucket users
// deterministically and never include anonymous callers.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[normalize(name)]
	if !ok {
		return false
	}
	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0 || userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < r.percent
}

// Raw returns a copy of the configured flag values.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.rules))
	for k, r := range m.rules {
		out[k] = r.raw
	}
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.rules))
	for name := range m.rules {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

// Gate hides a route behind name. userID extracts the caller from the request.
func (m *Manager) Gate(name string, userID func(*fiber.Ctx) uint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !m.Enabled(name, userID(c)) {
			return fiber.ErrNotFound
		}
		return c.Next()
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}
