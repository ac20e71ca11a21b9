// Package export writes link snapshots as JSON lines.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
)

// ContentType of a snapshot body
const ContentType = "application/x-ndjson"

// EncodeJSONL writes one link per line
func EncodeJSONL(w io.Writer, links []entities.ContentLink) error {
	enc := json.NewEncoder(w)
	for _, l := range links {
		if err := enc.Encode(l); err != nil {
			return fmt.Errorf("encoding link %s: %w", l.ID, err)
		}
	}
	return nil
}

// DecodeJSONL reads links written by EncodeJSONL
func DecodeJSONL(r io.Reader) ([]entities.ContentLink, error) {
	dec := json.NewDecoder(r)
	var links []entities.ContentLink
	for dec.More() {
		var l entities.ContentLink
		if err := dec.Decode(&l); err != nil {
			return nil, fmt.Errorf("decoding line %d: %w", len(links)+1, err)
		}
		links = append(links, l)
	}
	return links, nil
}

func encode(links []entities.ContentLink) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeJSONL(&buf, links); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// expandKey replaces {timestamp} in a key template
func expandKey(template string, at time.Time) string {
	return strings.ReplaceAll(template, "{timestamp}", at.UTC().Format("20060102T150405Z"))
}
