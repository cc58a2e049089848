// Package acl resolves per-user access levels for disk paths.
//
// Rules are matched in order; the first rule whose disk equals the requested
// disk and whose path pattern matches the requested path decides the level.
// When no rule matches, the strategy decides: a blacklist grants full access
// and a whitelist grants none.
package acl

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/jackfish212/contentfs/types"
)

var _ types.AccessChecker = (*Service)(nil)

// Access levels.
const (
	None      = 0
	Read      = 1
	ReadWrite = 2
)

// AnyUser as a rule's UserID applies the rule to every caller.
const AnyUser = "*"

// Strategy decides the access level for paths no rule covers.
type Strategy string

const (
	Blacklist Strategy = "blacklist"
	Whitelist Strategy = "whitelist"
)

// ParseStrategy validates s. The empty string selects Blacklist.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", Blacklist:
		return Blacklist, nil
	case Whitelist:
		return Whitelist, nil
	}
	return "", fmt.Errorf("%w: unknown acl strategy %q", types.ErrInvalidConfig, s)
}

func (s Strategy) fallback() int {
	if s == Whitelist {
		return None
	}
	return ReadWrite
}

// Rule grants Access on paths of Disk matching Path for UserID.
// Path is a shell pattern where '*' also matches '/'.
type Rule struct {
	UserID string `json:"user" yaml:"user"`
	Disk   string `json:"disk" yaml:"disk"`
	Path   string `json:"path" yaml:"path"`
	Access int    `json:"access" yaml:"access"`
}

func (r Rule) appliesTo(user string) bool {
	return r.UserID == AnyUser || r.UserID == user
}

// Repository supplies the ordered rules that apply to user.
type Repository interface {
	Rules(ctx context.Context, user string) ([]Rule, error)
}

// Service answers access level queries from a Repository.
type Service struct {
	repo     Repository
	strategy Strategy

	mu       sync.RWMutex
	patterns map[string]*regexp.Regexp
}

// NewService creates a Service. An empty strategy selects Blacklist.
func NewService(repo Repository, strategy Strategy) *Service {
	if strategy == "" {
		strategy = Blacklist
	}
	return &Service{repo: repo, strategy: strategy, patterns: make(map[string]*regexp.Regexp)}
}

func (s *Service) Strategy() Strategy { return s.strategy }

// AccessLevel returns the access level of the context's user on path of disk.
func (s *Service) AccessLevel(ctx context.Context, disk, path string) (int, error) {
	user := UserFrom(ctx)
	rules, err := s.repo.Rules(ctx, user)
	if err != nil {
		return None, fmt.Errorf("acl: rules: %w", err)
	}
	for _, r := range rules {
		if r.Disk != disk {
			continue
		}
		if s.match(r.Path, path) {
			slog.Debug("acl: rule matched", "user", user, "disk", disk, "path", path, "rule", r.Path, "access", r.Access)
			return r.Access, nil
		}
	}
	return s.strategy.fallback(), nil
}

func (s *Service) match(pattern, path string) bool {
	s.mu.RLock()
	re, ok := s.patterns[pattern]
	s.mu.RUnlock()
	if !ok {
		re = compilePattern(pattern)
		s.mu.Lock()
		s.patterns[pattern] = re
		s.mu.Unlock()
	}
	return re.MatchString(path)
}

// compilePattern translates a shell pattern into an anchored regexp.
// '*' matches any run of characters including '/', '?' matches one
// character and [...] is a character class; '\' escapes the next character.
func compilePattern(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '\\':
			if i+1 < len(pattern) {
				i++
				b.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
			} else {
				b.WriteString(`\\`)
			}
		case '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := pattern[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + strings.ReplaceAll(class, `\`, `\\`) + "]")
			i += end + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return regexp.MustCompile("^" + regexp.QuoteMeta(pattern) + "$")
	}
	return re
}
