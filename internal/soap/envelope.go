// Package soap implements a minimal SOAP 1.1 rpc/literal codec for the
// event service: envelope framing, the request/response message shapes, and
// the WSDL contract. It covers exactly what the service speaks; it is not a
// general SOAP toolkit.
package soap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

const (
	// EnvelopeNS is the SOAP 1.1 envelope namespace.
	EnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	// ServiceNS is the target namespace of the event service contract.
	ServiceNS = "http://eventservice.example.com/wsdl"
)

// Envelope is a SOAP 1.1 envelope. The body payload is kept as raw XML so
// requests can be dispatched by element name before being unmarshalled into
// their concrete message type.
type Envelope struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Envelope"`
	Body    Body     `xml:"http://schemas.xmlsoap.org/soap/envelope/ Body"`
}

// Body holds the raw payload of an envelope.
type Body struct {
	Inner []byte `xml:",innerxml"`
}

// DecodeRequest reads a SOAP envelope and returns the local name of the
// first body element together with the raw payload for a second, typed
// unmarshal pass.
func DecodeRequest(r io.Reader) (op string, payload []byte, err error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", nil, fmt.Errorf("read request: %w", err)
	}

	var env Envelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return "", nil, fmt.Errorf("decode envelope: %w", err)
	}

	dec := xml.NewDecoder(bytes.NewReader(env.Body.Inner))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", nil, fmt.Errorf("empty SOAP body")
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, env.Body.Inner, nil
		}
	}
}

// EncodeResponse wraps the payload in a SOAP envelope and writes it out.
func EncodeResponse(w io.Writer, payload any) error {
	inner, err := xml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return writeEnvelope(w, inner)
}

// Fault is a SOAP 1.1 fault payload.
type Fault struct {
	XMLName xml.Name `xml:"http://schemas.xmlsoap.org/soap/envelope/ Fault"`
	Code    string   `xml:"faultcode"`
	Reason  string   `xml:"faultstring"`
}

// EncodeFault writes a fault envelope.
func EncodeFault(w io.Writer, code, reason string) error {
	inner, err := xml.Marshal(Fault{Code: code, Reason: reason})
	if err != nil {
		return fmt.Errorf("marshal fault: %w", err)
	}
	return writeEnvelope(w, inner)
}

func writeEnvelope(w io.Writer, inner []byte) error {
	env := Envelope{Body: Body{Inner: inner}}
	out, err := xml.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
