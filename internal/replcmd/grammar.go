// Package replcmd implements the `.`-prefixed meta-commands the REPL
// recognizes instead of handing a line to the MarkQL parser: loading a
// named source, switching the active one, changing display settings,
// and describing the last result's column mapping.
package replcmd

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var cmdLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `(?i)\.(load|use|sources|set|describe|help|quit|exit)\b`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_./-]*`},
	{Name: "String", Pattern: `"([^"\\]|\\.)*"`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Grammar is the top-level AST node for one meta-command line.
type Grammar struct {
	Load     *LoadAST     `parser:"  @@"`
	Use      *UseAST      `parser:"| @@"`
	Sources  *SourcesAST  `parser:"| @@"`
	Set      *SetAST      `parser:"| @@"`
	Describe *DescribeAST `parser:"| @@"`
	Help     *HelpAST     `parser:"| @@"`
	Quit     *QuitAST     `parser:"| @@"`
}

// LoadAST: .load <alias> <path>
type LoadAST struct {
	Keyword string `parser:"\".load\""`
	Alias   string `parser:"@Ident"`
	Path    string `parser:"( @Ident | @String )"`
}

// UseAST: .use <alias>
type UseAST struct {
	Keyword string `parser:"\".use\""`
	Alias   string `parser:"@Ident"`
}

// SourcesAST: .sources
type SourcesAST struct {
	Keyword string `parser:"\".sources\""`
}

// SetAST: .set <key> <value>
type SetAST struct {
	Keyword string `parser:"\".set\""`
	Key     string `parser:"@Ident"`
	Value   string `parser:"@Ident"`
}

// DescribeAST: .describe last
type DescribeAST struct {
	Keyword string `parser:"\".describe\""`
	Target  string `parser:"@Ident"`
}

// HelpAST: .help
type HelpAST struct {
	Keyword string `parser:"\".help\""`
}

// QuitAST: .quit or .exit
type QuitAST struct {
	Keyword string `parser:"@(\".quit\" | \".exit\")"`
}

// cmdParser is the singleton built from the grammar.
var cmdParser = participle.MustBuild[Grammar](
	participle.Lexer(cmdLexer),
	participle.CaseInsensitive("Keyword"),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
)

// Parse parses one meta-command line into its Grammar node.
func Parse(line string) (*Grammar, error) {
	g, err := cmdParser.ParseString("", line)
	if err != nil {
		return nil, errSyntax(line, err)
	}
	return g, nil
}

// IsMetaCommand reports whether line looks like a `.`-prefixed meta-command
// rather than a MarkQL query, so the REPL can route it before parsing.
func IsMetaCommand(line string) bool {
	for _, r := range line {
		if r == ' ' || r == '\t' {
			continue
		}
		return r == '.'
	}
	return false
}
