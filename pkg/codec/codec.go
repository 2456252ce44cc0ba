package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Codec turns exchange records into bytes for a relay or log sink.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	ContentType() string
}

type jsonStrict struct{ indent bool }

var (
	JSONStrict Codec = jsonStrict{}
	JSONPretty Codec = jsonStrict{indent: true}
)

// Lookup resolves a codec by the name used in plugin arguments.
func Lookup(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSONStrict, nil
	case "json-pretty":
		return JSONPretty, nil
	}
	return nil, fmt.Errorf("codec: unknown codec %q", name)
}

func (c jsonStrict) Marshal(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if c.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (jsonStrict) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	// Probe for trailing data (must be EOF)
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return fmt.Errorf("json trailing content")
	}
	return nil
}

func (jsonStrict) ContentType() string { return "application/json" }
