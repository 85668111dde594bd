package siri

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// ParseFormat accepts "json" and "xml" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatXML:
		return FormatXML, nil
	default:
		return "", fmt.Errorf("unsupported payload format %q", s)
	}
}

// DecodeError reports a payload that does not match the declared schema.
type DecodeError struct {
	Format Format
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s payload: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses body according to format.
func Decode(format Format, body []byte) (*Siri, error) {
	switch format {
	case FormatJSON:
		return DecodeJSON(body)
	case FormatXML:
		return DecodeXML(body)
	default:
		return nil, &DecodeError{Format: format, Err: fmt.Errorf("unsupported format")}
	}
}

// DecodeJSON parses a SIRI JSON document. The usual {"Siri": {...}} envelope
// is optional; a bare {"ServiceDelivery": {...}} object is accepted too.
func DecodeJSON(body []byte) (*Siri, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, &DecodeError{Format: FormatJSON, Err: fmt.Errorf("empty body")}
	}

	var envelope struct {
		Siri            *Siri            `json:"Siri"`
		ServiceDelivery *ServiceDelivery `json:"ServiceDelivery"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &DecodeError{Format: FormatJSON, Err: err}
	}

	switch {
	case envelope.Siri != nil:
		return envelope.Siri, nil
	case envelope.ServiceDelivery != nil:
		return &Siri{ServiceDelivery: *envelope.ServiceDelivery}, nil
	default:
		return nil, &DecodeError{Format: FormatJSON, Err: fmt.Errorf("no Siri or ServiceDelivery element")}
	}
}

// DecodeXML parses a SIRI XML document. Element namespaces are ignored and
// non UTF-8 encodings declared in the prolog are transcoded.
func DecodeXML(body []byte) (*Siri, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &DecodeError{Format: FormatXML, Err: fmt.Errorf("empty body")}
	}

	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = charset.NewReaderLabel

	var doc Siri
	if err := decoder.Decode(&doc); err != nil {
		return nil, &DecodeError{Format: FormatXML, Err: err}
	}
	return &doc, nil
}
