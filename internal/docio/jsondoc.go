// Package docio loads and saves htmldoc.Document values as JSON, the
// on-disk form the HtmlDocument contract takes between a fetch/parse
// step and a MarkQL query run.
package docio

import (
	"encoding/json"
	"io"
	"os"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"

	"github.com/markql/markql/internal/htmldoc"
)

type serializedNode struct {
	ID         int64             `json:"id"`
	Tag        string            `json:"tag"`
	Text       string            `json:"text"`
	InnerHTML  string            `json:"inner_html,omitempty"`
	ParentID   int64             `json:"parent_id"`
	SiblingPos int64             `json:"sibling_pos"`
	MaxDepth   int64             `json:"max_depth"`
	DocOrder   int64             `json:"doc_order"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type serializedDocument struct {
	Nodes []serializedNode `json:"nodes"`
}

func toSerializedDocument(doc *htmldoc.Document) serializedDocument {
	nodes := make([]serializedNode, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		nodes = append(nodes, serializedNode{
			ID:         int64(n.ID),
			Tag:        n.Tag,
			Text:       n.Text,
			InnerHTML:  n.InnerHTML,
			ParentID:   int64(n.ParentID),
			SiblingPos: n.SiblingPos,
			MaxDepth:   n.MaxDepth,
			DocOrder:   n.DocOrder,
			Attributes: n.Attributes,
		})
	}
	return serializedDocument{Nodes: nodes}
}

func fromSerializedDocument(sd serializedDocument) *htmldoc.Document {
	nodes := make([]htmldoc.Node, 0, len(sd.Nodes))
	for _, sn := range sd.Nodes {
		attrs := sn.Attributes
		if attrs == nil {
			attrs = map[string]string{}
		}
		nodes = append(nodes, htmldoc.Node{
			ID:         htmldoc.NodeID(sn.ID),
			Tag:        sn.Tag,
			Text:       sn.Text,
			InnerHTML:  sn.InnerHTML,
			ParentID:   htmldoc.NodeID(sn.ParentID),
			SiblingPos: sn.SiblingPos,
			MaxDepth:   sn.MaxDepth,
			DocOrder:   sn.DocOrder,
			Attributes: attrs,
		})
	}
	return &htmldoc.Document{Nodes: nodes}
}

// WriteJSON encodes doc to w.
func WriteJSON(doc *htmldoc.Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toSerializedDocument(doc)); err != nil {
		return errors.Wrap(err, "json.Encode")
	}
	return nil
}

// ReadJSON decodes a Document from r.
func ReadJSON(r io.Reader) (*htmldoc.Document, error) {
	var sd serializedDocument
	if err := json.NewDecoder(r).Decode(&sd); err != nil {
		return nil, errors.Wrap(err, "json.Decode")
	}
	return fromSerializedDocument(sd), nil
}

// LoadJSON reads a Document from a JSON file at path.
func LoadJSON(path string) (*htmldoc.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		// Return the error directly so callers can use os.IsNotExist(err).
		return nil, err
	}
	defer f.Close()
	return ReadJSON(f)
}

// SaveJSON writes doc to path atomically: the file either has its
// previous contents or its new ones, never a partial write, even if the
// process dies mid-save.
func SaveJSON(doc *htmldoc.Document, path string) error {
	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0644), renameio.WithExistingPermissions())
	if err != nil {
		return errors.Wrap(err, "renameio.NewPendingFile")
	}
	defer pf.Cleanup()

	if err := WriteJSON(doc, pf); err != nil {
		return err
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return errors.Wrap(err, "renameio.CloseAtomicallyReplace")
	}
	return nil
}
