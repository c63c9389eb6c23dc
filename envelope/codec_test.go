package envelope_test

import (
	"testing"

	tdd "github.com/stretchr/testify/assert"

	"go.rmagent.dev/core/envelope"
)

func TestCodecRoundTrip(t *testing.T) {
	e := envelope.New()
	e.ReplyTo = "reply.queue"
	e.Request = &envelope.Request{Method: "echo", Args: []any{"hi"}}
	e.Window = &envelope.Window{Begin: 100, Duration: 60}
	e.TTL = 30
	e.Subject = "diagnostics"

	data, err := envelope.Encode(e)
	tdd.NoError(t, err)

	out, err := envelope.Decode(data)
	tdd.NoError(t, err)
	tdd.Equal(t, e.Version, out.Version)
	tdd.Equal(t, e.SN, out.SN)
	tdd.Equal(t, e.ReplyTo, out.ReplyTo)
	tdd.Equal(t, e.Request.Method, out.Request.Method)
	tdd.Equal(t, e.Window.Begin, out.Window.Begin)
	tdd.Equal(t, e.TTL, out.TTL)
	tdd.Equal(t, e.Subject, out.Subject)
}

func TestCodecPreservesUnknownFields(t *testing.T) {
	data := []byte(`{"version":"1.0","sn":"abc","future_field":"carried-through"}`)

	e, err := envelope.Decode(data)
	tdd.NoError(t, err)
	tdd.Equal(t, "carried-through", e.Extra["future_field"])

	out, err := envelope.Encode(e)
	tdd.NoError(t, err)

	roundTripped, err := envelope.Decode(out)
	tdd.NoError(t, err)
	tdd.Equal(t, "carried-through", roundTripped.Extra["future_field"])
}

func TestReplyCarriesOriginatingSN(t *testing.T) {
	req := envelope.New()
	reply := req.Reply()
	tdd.Equal(t, req.SN, reply.SN)
}

func TestResultFailed(t *testing.T) {
	tdd.False(t, (&envelope.Result{Retval: "ok"}).Failed())
	tdd.True(t, (&envelope.Result{Exval: "boom", Xclass: "ValueError"}).Failed())
}
