// Package suggestor builds a deterministic MarkQL statement suggestion
// for a node picked interactively in an exploration UI. It is a direct
// port of the C++ suggestion heuristic MarkQL's predecessor shipped in
// its explorer CLI: same tie-break order, same thresholds, same output
// shape — only the language changed.
package suggestor

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/markql/markql/internal/htmldoc"
)

// Strategy names which statement shape a Suggestion proposes.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyProject
	StrategyFlatten
)

// Suggestion is a proposed MarkQL statement plus the confidence and
// one-line rationale behind it.
type Suggestion struct {
	Strategy   Strategy
	Confidence int // 0-100
	Reason     string
	Statement  string
}

// Suggest builds a statement suggestion for selected within doc. It
// always returns a Suggestion; Strategy stays StrategyNone (with Reason
// set and Statement empty) when doc or selected can't support one.
func Suggest(doc *htmldoc.Document, selected htmldoc.NodeID) Suggestion {
	if len(doc.Nodes) == 0 {
		return Suggestion{Reason: "empty document"}
	}
	if selected < 0 || int(selected) >= len(doc.Nodes) {
		return Suggestion{Reason: "invalid selected node"}
	}

	children := htmldoc.BuildChildIndex(doc)
	chain := htmldoc.AncestorChain(doc, selected)
	if len(chain) == 0 {
		return Suggestion{Reason: "unable to resolve node ancestry"}
	}

	rowID, repeatedRows := findRowNode(doc, children, chain)
	row := doc.Nodes[rowID]
	sel := doc.Nodes[selected]
	rowTagValid := isValidIdentifier(row.Tag)
	selTagValid := isValidIdentifier(sel.Tag)

	whereClauses := []string{"tag = " + sqlQuote(row.Tag)}
	rowClass := firstClassToken(row)
	if len(rowClass) >= 3 {
		// Class token is usually stable across repeated rows and keeps
		// the generated query reusable.
		whereClauses = append(whereClauses, "attributes.class CONTAINS ("+sqlQuote(rowClass)+")")
	} else if id, ok := row.Attributes["id"]; ok && id != "" {
		// id fallback keeps the suggestion deterministic when class is
		// missing or noisy.
		whereClauses = append(whereClauses, "attributes.id = "+sqlQuote(id))
	}

	alloc := newAliasAllocator()
	var fields []fieldEntry

	hasSelID := false
	if selID, ok := sel.Attributes["id"]; ok && selID != "" {
		hasSelID = true
	}
	if selTagValid && hasSelID {
		alloc.add(&fields, sel.Tag+"_id", fmt.Sprintf("ATTR(%s, id)", sel.Tag))
	}

	titleSelector, titlePredicate := findTitleField(doc, children, rowID, sel, selTagValid)
	if titleSelector != "" {
		if titlePredicate != "" {
			alloc.add(&fields, "title", fmt.Sprintf("TEXT(%s WHERE attributes.class CONTAINS (%s))", titleSelector, sqlQuote(titlePredicate)))
		} else {
			alloc.add(&fields, "title", fmt.Sprintf("TEXT(%s)", titleSelector))
		}
	}

	if hasAnchorDescendant(doc, children, rowID) {
		alloc.add(&fields, "link_text", "TEXT(a)")
		alloc.add(&fields, "link_href", "ATTR(a, href)")
	}

	if len(fields) == 0 {
		alloc.add(&fields, "content", "TEXT(self)")
	}

	// PROJECT is only suggested when a repeated row shape plus multiple
	// extractable fields indicate table-like data; otherwise FLATTEN is
	// the safer first-pass extraction.
	useProject := rowTagValid && repeatedRows >= 2 && len(fields) >= 2

	confidence := 35
	if repeatedRows >= 2 {
		confidence += 25
	}
	if len(fields) >= 2 {
		confidence += 20
	}
	if rowClass != "" {
		confidence += 10
	}
	if hasSelID {
		confidence += 10
	}
	if confidence > 95 {
		confidence = 95
	}

	whereSQL := strings.Join(whereClauses, "\n  AND ")

	var suggestion Suggestion
	if useProject {
		suggestion.Strategy = StrategyProject
		suggestion.Reason = fmt.Sprintf("repeated row shape detected (%d) with extractable fields", repeatedRows)
		var b strings.Builder
		fmt.Fprintf(&b, "SELECT %s.node_id,\n       PROJECT(%s) AS (\n", row.Tag, row.Tag)
		for i, f := range fields {
			fmt.Fprintf(&b, "         %s: %s", f.name, f.expr)
			if i+1 < len(fields) {
				b.WriteString(",\n")
			} else {
				b.WriteString("\n")
			}
		}
		fmt.Fprintf(&b, "       )\nFROM doc\nWHERE %s\nORDER BY node_id;", whereSQL)
		suggestion.Statement = b.String()
	} else {
		suggestion.Strategy = StrategyFlatten
		suggestion.Reason = "row pattern is weak for PROJECT; flattening is safer for first-pass extraction"
		if rowTagValid {
			suggestion.Statement = fmt.Sprintf(
				"SELECT %s.node_id,\n       FLATTEN(%s, 2) AS (flat_text)\nFROM doc\nWHERE %s\nORDER BY node_id;",
				row.Tag, row.Tag, whereSQL)
		} else {
			suggestion.Statement = fmt.Sprintf(
				"SELECT self.node_id,\n       TEXT(self) AS text\nFROM doc\nWHERE %s\nORDER BY node_id;",
				whereSQL)
		}
	}

	suggestion.Confidence = confidence
	if !useProject {
		suggestion.Confidence -= 10
	}
	if suggestion.Confidence < 10 {
		suggestion.Confidence = 10
	}
	return suggestion
}

// findRowNode walks the selected node's ancestor chain (nearest first)
// looking for the first candidate whose tag repeats at least twice
// among its siblings (or, for a root candidate, among all document
// roots) — the strongest signal of a list/table row container. Falls
// back to the chain's outermost ancestor when nothing repeats.
func findRowNode(doc *htmldoc.Document, children *htmldoc.ChildIndex, chain []htmldoc.NodeID) (htmldoc.NodeID, int) {
	rowID := chain[0]
	repeatedRows := 1
	for _, candidateID := range chain {
		candidate := doc.Nodes[candidateID]
		sameTagCount := 0
		if candidate.HasParent() {
			for _, siblingID := range children.Children(candidate.ParentID) {
				if doc.Nodes[siblingID].Tag == candidate.Tag {
					sameTagCount++
				}
			}
		} else {
			for _, rootID := range children.Roots() {
				if doc.Nodes[rootID].Tag == candidate.Tag {
					sameTagCount++
				}
			}
		}
		if sameTagCount >= 2 {
			return candidateID, sameTagCount
		}
	}
	return rowID, repeatedRows
}

func classifyTitleCandidate(node htmldoc.Node) (bool, string) {
	cls := firstClassToken(node)
	isTitleLike := containsCI(node.Tag, "h1") || containsCI(node.Tag, "h2") || containsCI(node.Tag, "h3") ||
		containsCI(node.Tag, "th") || containsCI(node.Tag, "strong") || containsCI(node.Tag, "b") ||
		containsCI(cls, "title") || containsCI(cls, "header") || containsCI(cls, "name")
	return isTitleLike, cls
}

// findTitleField mixes tag hints and class hints because pages encode
// titles either structurally or via styling convention. It first checks
// the selected node itself, then falls back to the row's direct
// children in document order.
func findTitleField(doc *htmldoc.Document, children *htmldoc.ChildIndex, rowID htmldoc.NodeID, sel htmldoc.Node, selTagValid bool) (selector, predicate string) {
	if selTagValid {
		titleLike, cls := classifyTitleCandidate(sel)
		if titleLike || sel.Text != "" {
			selector = sel.Tag
			if len(cls) >= 3 {
				predicate = cls
			}
			return
		}
	}
	for _, childID := range children.Children(rowID) {
		child := doc.Nodes[childID]
		if !isValidIdentifier(child.Tag) {
			continue
		}
		titleLike, cls := classifyTitleCandidate(child)
		if !titleLike && child.Text == "" {
			continue
		}
		selector = child.Tag
		if len(cls) >= 3 {
			predicate = cls
		}
		return
	}
	return "", ""
}

// hasAnchorDescendant does a bounded DFS from rowID looking for an
// anchor tag, guarded at 2*len(doc.Nodes) steps so a malformed tree
// can't spin the suggester forever — cheap detection of a common link
// field without full schema inference.
func hasAnchorDescendant(doc *htmldoc.Document, children *htmldoc.ChildIndex, rowID htmldoc.NodeID) bool {
	stack := []htmldoc.NodeID{rowID}
	guard := 0
	limit := len(doc.Nodes) * 2
	for len(stack) > 0 && guard < limit {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if int(cur) >= 0 && int(cur) < len(doc.Nodes) {
			if doc.Nodes[cur].Tag == "a" {
				return true
			}
			stack = append(stack, children.Children(cur)...)
		}
		guard++
	}
	return false
}

type fieldEntry struct {
	name string
	expr string
}

// aliasAllocator assigns each suggested field a unique, snake_cased
// column name, appending "_2", "_3", ... on collision so the generated
// statement always parses without the user needing to edit aliases.
type aliasAllocator struct {
	used map[string]bool
}

func newAliasAllocator() *aliasAllocator {
	return &aliasAllocator{used: map[string]bool{}}
}

func (a *aliasAllocator) add(fields *[]fieldEntry, name, expr string) {
	if name == "" || expr == "" {
		return
	}
	name = toSnakeCase(name)
	if name == "" {
		return
	}
	final := name
	suffix := 2
	for a.used[final] {
		final = name + "_" + strconv.Itoa(suffix)
		suffix++
	}
	a.used[final] = true
	*fields = append(*fields, fieldEntry{name: final, expr: expr})
}

func isValidIdentifier(text string) bool {
	if text == "" {
		return false
	}
	first := rune(text[0])
	if !(unicode.IsLetter(first) || first == '_') {
		return false
	}
	for _, c := range text {
		if !(unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_') {
			return false
		}
	}
	return true
}

func escapeSingleQuotes(text string) string {
	return strings.ReplaceAll(text, "'", "''")
}

func sqlQuote(text string) string {
	return "'" + escapeSingleQuotes(text) + "'"
}

func firstClassToken(node htmldoc.Node) string {
	cls, ok := node.Attributes["class"]
	if !ok {
		return ""
	}
	fields := strings.Fields(cls)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func toSnakeCase(input string) string {
	var b strings.Builder
	prevSep := false
	for _, c := range input {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			b.WriteRune(unicode.ToLower(c))
			prevSep = false
		} else if !prevSep {
			b.WriteByte('_')
			prevSep = true
		}
	}
	return strings.Trim(b.String(), "_")
}

func containsCI(text, needle string) bool {
	if needle == "" || text == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(needle))
}
