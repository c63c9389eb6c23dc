package envelope

import "encoding/json"

// knownFields lists the JSON keys the envelope struct itself understands;
// everything else observed on decode is preserved verbatim in Extra so it
// round-trips unchanged even when produced by a newer protocol revision.
var knownFields = map[string]bool{
	"version": true, "sn": true, "any": true, "replyto": true,
	"request": true, "result": true, "status": true, "window": true,
	"ttl": true, "subject": true,
}

// Encode produces the self-delimiting textual representation of an
// envelope. The result is a single JSON object and can be carried as-is
// as the body of a transport message.
func Encode(e *Envelope) ([]byte, error) {
	type alias Envelope
	base, err := json.Marshal((*alias)(e))
	if err != nil {
		return nil, err
	}
	if len(e.Extra) == 0 {
		return base, nil
	}

	// Merge Extra back in without clobbering known fields.
	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range e.Extra {
		if knownFields[k] {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = raw
	}
	return json.Marshal(merged)
}

// Decode parses the wire form of an envelope. Unknown fields are preserved
// in Extra rather than discarded, so decode(encode(e)) == e for every
// well-formed envelope, including ones carrying fields this revision does
// not recognize.
func Decode(data []byte) (*Envelope, error) {
	type alias Envelope
	out := &alias{}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, err
	}

	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	extra := make(map[string]any)
	for k, v := range raw {
		if knownFields[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, err
		}
		extra[k] = val
	}
	e := (*Envelope)(out)
	if len(extra) > 0 {
		e.Extra = extra
	}
	return e, nil
}

// Load populates an envelope in place from its wire representation.
func (e *Envelope) Load(data []byte) error {
	decoded, err := Decode(data)
	if err != nil {
		return err
	}
	*e = *decoded
	return nil
}
