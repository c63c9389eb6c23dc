package messaging

import (
	"testing"

	tdd "github.com/stretchr/testify/assert"
)

func TestNewSNProducesDistinctValues(t *testing.T) {
	a := newSN()
	b := newSN()
	tdd.NotEmpty(t, a)
	tdd.NotEqual(t, a, b)
}
