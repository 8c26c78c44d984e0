package graph_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/davinci/internal/presentation/graph"
	httpAdapter "github.com/aretw0/davinci/pkg/adapters/http"
)

func TestGenerateMermaid(t *testing.T) {
	s, err := httpAdapter.LoadScriptFile("../../../pkg/adapters/http/testdata/login.yaml")
	require.NoError(t, err)

	out := graph.GenerateMermaid(s)

	for _, want := range []string{
		"graph TD\n",
		`login(("login"))`,
		`register[/"register"/]`,
		`bad_credentials{{"bad-credentials <br/> 400"}}`,
		`done(["done"])`,
		`login -- "data.actionKey=register & eventType=action" --> register`,
		`login -- "data.formData.password=Passw0rd! & data.formData.username=demo" --> done`,
		"login --> bad_credentials",
		"register --> done",
	} {
		assert.Contains(t, out, want)
	}
}

func TestGenerateMermaid_Escaping(t *testing.T) {
	s, err := httpAdapter.LoadScript(strings.NewReader(`
start: a.b
steps:
  a.b:
    routes:
      - when: {data.formData.q: 'say "hi"'}
        goto: c/d
  c/d:
    body: {status: COMPLETED}
`))
	require.NoError(t, err)

	out := graph.GenerateMermaid(s)
	assert.Contains(t, out, `a_b(("a.b"))`)
	assert.Contains(t, out, `a_b -- "data.formData.q=say 'hi'" --> c_d`)
	assert.Contains(t, out, `c_d(["c/d"])`)
}
