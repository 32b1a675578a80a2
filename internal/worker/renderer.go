package worker

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/osteele/liquid"
)

// mergeTagPattern matches the single-brace merge tags campaign authors
// write ({first_name}, {company_name}). They are rewritten to Liquid
// output tags before parsing so the full filter syntax also works.
var mergeTagPattern = regexp.MustCompile(`\{([a-z_][a-z0-9_]*)\}`)

// Renderer renders message templates with prospect merge fields.
// Unknown merge tags render as empty strings rather than failing the
// send; a broken personalization should never strand a queue item.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

func NewRenderer() *Renderer {
	engine := liquid.NewEngine()

	engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		strVal := fmt.Sprintf("%v", value)
		if strVal == "" || strVal == "<nil>" {
			return defaultVal
		}
		return value
	})

	engine.RegisterFilter("capitalize", func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(string(s[0])) + strings.ToLower(s[1:])
	})

	return &Renderer{engine: engine}
}

// normalize rewrites single-brace merge tags to Liquid output tags.
// Already-Liquid templates pass through untouched because the pattern
// requires exactly one brace on each side.
func normalize(template string) string {
	return mergeTagPattern.ReplaceAllString(template, "{{ $1 }}")
}

// Render renders one template with the given merge fields. Parsed
// templates are cached by their source text.
func (r *Renderer) Render(template string, fields map[string]interface{}) (string, error) {
	if template == "" {
		return "", nil
	}

	if cached, ok := r.cache.Load(template); ok {
		return cached.(*liquid.Template).RenderString(fields)
	}

	tpl, err := r.engine.ParseString(normalize(template))
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	r.cache.Store(template, tpl)

	return tpl.RenderString(fields)
}
