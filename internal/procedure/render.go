package procedure

import (
	"context"
	"errors"
	"maps"
	"strings"
	"text/template"

	"github.com/electwix/dbproc/internal/names"
)

// Substituter replaces bracketed references with physical identifiers.
type Substituter interface {
	Substitute(src string) (string, error)
}

// RenderEnv supplies what rendering needs from the host application.
type RenderEnv struct {
	Names Substituter
	// Quote quotes the procedure name exposed to templates as {{.name}}.
	Quote func(string) string
}

// Render produces the SQL to install. When a context is configured the
// source is first executed as a text/template with that context plus
// "name"; bracketed references are then substituted. The result is kept
// and returned by SQL.
func (p *Procedure) Render(ctx context.Context, env RenderEnv) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text := p.rawSQL
	if p.context.Enabled() {
		values, err := p.renderContext(env)
		if err != nil {
			return "", err
		}
		text, err = p.execTemplate(values)
		if err != nil {
			return "", err
		}
	}

	if env.Names == nil {
		return "", errors.New("procedure: render without a name mapper")
	}
	sql, err := env.Names.Substitute(text)
	if err != nil {
		var refErr *names.UnknownReferenceError
		if errors.As(err, &refErr) {
			return "", &ReferenceError{Procedure: p.String(), Key: refErr.Key, Err: err}
		}
		return "", err
	}

	p.mu.Lock()
	p.sql = sql
	p.mu.Unlock()
	return sql, nil
}

func (p *Procedure) renderContext(env RenderEnv) (map[string]any, error) {
	name := p.name
	if env.Quote != nil {
		name = env.Quote(name)
	}
	values := map[string]any{"name": name}

	switch p.context.kind {
	case contextStatic:
		maps.Copy(values, p.context.static)
	case contextComputed:
		computed, err := p.context.compute(p)
		if err != nil {
			return nil, &ContextError{Procedure: p.String(), Err: err}
		}
		maps.Copy(values, computed)
	}
	return values, nil
}

func (p *Procedure) execTemplate(values map[string]any) (string, error) {
	tmpl, err := template.New(p.name).Option("missingkey=error").Parse(p.rawSQL)
	if err != nil {
		return "", &TemplateError{Procedure: p.String(), Err: err}
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, values); err != nil {
		return "", &TemplateError{Procedure: p.String(), Err: err}
	}
	return b.String(), nil
}
