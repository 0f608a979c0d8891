package decoding

import (
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageDoc_Complete(t *testing.T) {
	f, err := parser.ParseFile(token.NewFileSet(), "doc.go", nil, parser.ParseComments)
	require.NoError(t, err)
	require.NotNil(t, f.Doc)
	require.NotEmpty(t, f.Comments)
	assert.Contains(t, f.Comments[0].Text(), "Copyright (c) tokenfsm Authors.")

	text := f.Doc.Text()
	assert.Contains(t, text, "典型用法")
	assert.Contains(t, text, "fmt.Println(text)")
	assert.Contains(t, text, "错误语义")
}
