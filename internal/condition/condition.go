package condition

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/kode4food/waypoint/pkg/api"
)

type (
	// Registry resolves condition languages and evaluates expressions,
	// caching their compiled forms
	Registry struct {
		langs       map[string]Language
		cache       *Cache
		defaultLang string
	}

	// Language compiles and evaluates boolean expressions against run state
	Language interface {
		// Compile parses an expression and returns its compiled form
		Compile(expr string) (Compiled, error)

		// Evaluate runs a compiled expression against the given state
		Evaluate(c Compiled, st api.State) (bool, error)
	}

	// Compiled is a language-specific compiled expression
	Compiled any

	// Policy decides what an evaluation error means for a run
	Policy string
)

const (
	LangHCL   = "hcl"
	LangLua   = "lua"
	LangJPath = "jpath"

	DefaultLanguage = LangHCL
)

const (
	// PolicyLenient treats evaluation errors as false
	PolicyLenient Policy = "lenient"

	// PolicyStrict fails the run on evaluation errors
	PolicyStrict Policy = "strict"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported condition language")
	ErrEmptyExpression     = errors.New("empty condition expression")
	ErrNotBoolean          = errors.New("condition result is not boolean")
	ErrBadCompiledType     = errors.New("unexpected compiled expression type")
	ErrUnknownPolicy       = errors.New("unknown condition policy")
)

// NewRegistry creates a Registry with the hcl, lua and jpath languages. An
// empty defaultLang selects hcl
func NewRegistry(cacheSize int, defaultLang string) *Registry {
	if defaultLang == "" {
		defaultLang = DefaultLanguage
	}
	return &Registry{
		langs: map[string]Language{
			LangHCL:   NewHCLEnv(),
			LangLua:   NewLuaEnv(cacheSize),
			LangJPath: NewJPathEnv(),
		},
		cache:       NewCache(cacheSize),
		defaultLang: defaultLang,
	}
}

// Get returns the Language registered under the given name. An empty name
// resolves to the default language
func (r *Registry) Get(lang string) (Language, error) {
	l, ok := r.langs[r.resolve(lang)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	return l, nil
}

// Languages returns the names of all registered languages
func (r *Registry) Languages() []string {
	return slices.Sorted(maps.Keys(r.langs))
}

// DefaultLanguage returns the language used when an expression names none
func (r *Registry) DefaultLanguage() string {
	return r.defaultLang
}

// Compile returns the compiled form of an expression, consulting the cache
// first. Failures are reported as *api.ConditionError
func (r *Registry) Compile(lang, expr string) (Compiled, error) {
	lang = r.resolve(lang)
	key := cacheKey(lang, expr)
	if c, ok := r.cache.Get(key); ok {
		return c, nil
	}

	l, err := r.Get(lang)
	if err != nil {
		return nil, conditionError(lang, expr, err)
	}
	if strings.TrimSpace(expr) == "" {
		return nil, conditionError(lang, expr, ErrEmptyExpression)
	}
	c, err := l.Compile(expr)
	if err != nil {
		return nil, conditionError(lang, expr, err)
	}
	r.cache.Add(key, c)
	return c, nil
}

// Evaluate compiles (or fetches) and evaluates an expression against state.
// Failures are reported as *api.ConditionError
func (r *Registry) Evaluate(lang, expr string, st api.State) (bool, error) {
	lang = r.resolve(lang)
	c, err := r.Compile(lang, expr)
	if err != nil {
		return false, err
	}
	l, err := r.Get(lang)
	if err != nil {
		return false, conditionError(lang, expr, err)
	}
	res, err := l.Evaluate(c, st)
	if err != nil {
		return false, conditionError(lang, expr, err)
	}
	return res, nil
}

// Validate compiles every condition a graph declares, returning the first
// failure
func (r *Registry) Validate(g *api.Graph) error {
	for _, ref := range g.Conditions() {
		if _, err := r.Compile(ref.Language, ref.Expression); err != nil {
			return fmt.Errorf("%s: %w", ref.Source, err)
		}
	}
	return nil
}

func (r *Registry) resolve(lang string) string {
	if lang == "" {
		return r.defaultLang
	}
	return strings.ToLower(lang)
}

func conditionError(lang, expr string, err error) error {
	return &api.ConditionError{
		Err:        err,
		Expression: expr,
		Language:   lang,
	}
}

// ParsePolicy converts a policy name into a Policy
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(name))); p {
	case PolicyLenient, PolicyStrict:
		return p, nil
	case "":
		return PolicyLenient, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownPolicy, name)
	}
}

// Resolve applies the policy to an evaluation outcome. Under the lenient
// policy errors count as false and are returned as ignored
func (p Policy) Resolve(res bool, err error) (ok bool, ignored, fatal error) {
	if err == nil {
		return res, nil, nil
	}
	if p == PolicyStrict {
		return false, nil, err
	}
	return false, err, nil
}
