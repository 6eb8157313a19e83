// Package procedure declares stored procedures from their source files,
// installs them into a database and calls them.
//
// A source file starts with a header such as
//
//	CREATE PROCEDURE stock_level(IN shelf INT, OUT level INT) LANGUAGE SQL BEGIN
//
// from which the name and the canonical argument order are inferred unless
// given explicitly. Bracketed references like [shop.Stock.shelf] in the body
// are replaced with physical identifiers when the procedure is rendered.
package procedure

import (
	"fmt"
	"slices"
	"sync"

	"github.com/electwix/dbproc/internal/engine"
)

// Source is the text of a procedure and where it came from.
type Source struct {
	Path string
	Text string
}

// TextReader reads UTF-8 source text by path.
type TextReader interface {
	ReadText(path string) (string, error)
}

// Procedure is a declared stored procedure. Everything but the rendered SQL
// is fixed at construction.
type Procedure struct {
	path          string
	name          string
	rawSQL        string
	args          []string
	declared      []Argument
	results       bool
	flatten       bool
	raiseWarnings bool
	context       ContextOption
	shuffle       Shuffle
	callSQL       string

	mu  sync.Mutex
	sql string
}

// Load reads path through r and declares the procedure it contains.
func Load(r TextReader, path string, opts Options) (*Procedure, error) {
	text, err := r.ReadText(path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	return New(Source{Path: path, Text: text}, opts)
}

// New declares a procedure. The header is parsed only when the name or the
// arguments are inferred.
func New(src Source, opts Options) (*Procedure, error) {
	if err := opts.validate(src.Path); err != nil {
		return nil, err
	}

	p := &Procedure{
		path:          src.Path,
		rawSQL:        src.Text,
		results:       opts.Results,
		flatten:       opts.Flatten,
		raiseWarnings: opts.RaiseWarnings,
		context:       opts.Context,
	}

	name, explicitName := opts.Name.Explicit()
	args, explicitArgs := opts.Arguments.Explicit()

	if !explicitName || !explicitArgs {
		header, err := ParseHeader(src.Text)
		if err != nil {
			return nil, &GrammarError{Procedure: p.label(name), Err: err}
		}
		if !explicitName {
			name = header.Name
		}
		if !explicitArgs {
			declared, err := ParseArguments(header.Arguments)
			if err != nil {
				return nil, &GrammarError{Procedure: p.label(name), Err: err}
			}
			p.declared = declared
			args = make([]string, len(declared))
			for i, arg := range declared {
				args[i] = arg.Name
			}
		}
	}

	p.name = name
	p.args = args
	p.shuffle = NewShuffle(name, args)
	p.callSQL = engine.CallWith(name, len(args), engine.QuestionMark)
	return p, nil
}

func (p *Procedure) label(name string) string {
	if name != "" {
		return fmt.Sprintf("%s (%s)", name, p.path)
	}
	return p.path
}

// Name returns the procedure name.
func (p *Procedure) Name() string { return p.name }

// Path returns the source location.
func (p *Procedure) Path() string { return p.path }

// Arguments returns the canonical argument names in positional order.
func (p *Procedure) Arguments() []string { return slices.Clone(p.args) }

// Declared returns the parsed argument declarations. It is empty when the
// arguments were given explicitly.
func (p *Procedure) Declared() []Argument { return slices.Clone(p.declared) }

// HasResults reports whether a call yields result sets.
func (p *Procedure) HasResults() bool { return p.results }

// Flatten reports whether singleton results are collapsed to their row.
func (p *Procedure) Flatten() bool { return p.flatten }

// RaiseWarnings reports whether call warnings are returned as errors.
func (p *Procedure) RaiseWarnings() bool { return p.raiseWarnings }

// RawSQL returns the source text as read.
func (p *Procedure) RawSQL() string { return p.rawSQL }

// CallSQL returns the CALL statement with one "?" per argument.
func (p *Procedure) CallSQL() string { return p.callSQL }

// SQL returns the SQL produced by the last Render, or "".
func (p *Procedure) SQL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sql
}

// Shuffle orders named values into positional order.
func (p *Procedure) Shuffle(supplied map[string]any) ([]any, error) {
	return p.shuffle(supplied)
}

func (p *Procedure) String() string {
	return p.label(p.name)
}

// callStatement returns the CALL statement in eng's placeholder style.
func (p *Procedure) callStatement(eng engine.Engine) string {
	if eng == nil || eng.Placeholder(1) == "?" {
		return p.callSQL
	}
	return eng.CallStatement(p.name, len(p.args))
}
