package descriptor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSkipsBlankLinesAndComments(t *testing.T) {
	input := `
# a comment
name1,path1,1,1,/etc/plc/p1.conf

name2,path2,0,0,/etc/plc/p2.conf,/etc/plc/scripts
`
	out, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "name1", out[0].Name)
	assert.True(t, out[0].Enabled)
	assert.Equal(t, Native, out[0].Kind)
	assert.Equal(t, "", out[0].ScriptEnvPath)

	assert.Equal(t, "name2", out[1].Name)
	assert.False(t, out[1].Enabled)
	assert.Equal(t, Script, out[1].Kind)
	assert.Equal(t, "/etc/plc/scripts", out[1].ScriptEnvPath)
}

func TestParseTrimsWhitespaceAndCR(t *testing.T) {
	input := " name , path , 1 , 1 , /cfg \r\n"
	out, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "name", out[0].Name)
	assert.Equal(t, "path", out[0].Path)
	assert.Equal(t, "/cfg", out[0].ConfigPath)
}

func TestParseRejectsTooFewFields(t *testing.T) {
	_, err := Parse(strings.NewReader("name,path,1"))
	require.Error(t, err)
}

func TestParseRejectsMoreThanMax(t *testing.T) {
	var b strings.Builder
	for i := 0; i < MaxDescriptors+1; i++ {
		b.WriteString("p,path,1,1,/cfg\n")
	}
	out, err := Parse(strings.NewReader(b.String()))
	require.Error(t, err)
	assert.Len(t, out, MaxDescriptors)
}

func TestKindStringer(t *testing.T) {
	assert.Equal(t, "NATIVE", Native.String())
	assert.Equal(t, "SCRIPT", Script.String())
}
